// Package dialogue chứa logic nghiệp vụ thuần của đơn vị review:
// codec cho dialogue number và state machine review theo role.
package dialogue

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"dub_studio/core/common"
)

// Number là khóa composite định danh một dialogue, dạng wire
// "projectNumber.episodeNumber.sceneNumber.lineNumber" với episode/scene
// zero-padded 2 chữ số và line zero-padded 3 chữ số (ví dụ "3.01.02.005").
// Đây là wire contract duy nhất phải giữ byte-exact vì nhiều endpoint
// độc lập cùng parse nó.
type Number struct {
	Project int // Số thứ tự project
	Episode int // Số thứ tự episode (1-99)
	Scene   int // Số thứ tự scene (1-99)
	Line    int // Số thứ tự line (1-999)
}

// numberPattern bắt đúng 4 thành phần phân cách bởi dấu chấm.
// Episode/scene đúng 2 chữ số, line đúng 3 chữ số để đảm bảo
// parse rồi format lại cho ra đúng chuỗi ban đầu.
var numberPattern = regexp.MustCompile(`^(\d+)\.(\d{2})\.(\d{2})\.(\d{3})$`)

// ParseNumber parse chuỗi dialogue number thành Number.
// Trả về ErrInvalidFormat nếu chuỗi không đúng định dạng.
func ParseNumber(s string) (Number, error) {
	m := numberPattern.FindStringSubmatch(s)
	if m == nil {
		return Number{}, common.NewError(
			common.ErrCodeValidationFormat,
			fmt.Sprintf("Dialogue number '%s' không đúng định dạng p.ee.ss.lll", s),
			common.StatusBadRequest,
			nil,
		)
	}

	project, err := strconv.Atoi(m[1])
	if err != nil {
		return Number{}, common.ErrInvalidFormat
	}
	episode, _ := strconv.Atoi(m[2])
	scene, _ := strconv.Atoi(m[3])
	line, _ := strconv.Atoi(m[4])

	return Number{
		Project: project,
		Episode: episode,
		Scene:   scene,
		Line:    line,
	}, nil
}

// String format Number về dạng wire. Với mọi chuỗi hợp lệ s:
// ParseNumber(s).String() == s
func (n Number) String() string {
	return fmt.Sprintf("%d.%02d.%02d.%03d", n.Project, n.Episode, n.Scene, n.Line)
}

// EpisodeSuffix trả về hậu tố collection của episode ("_Ep_<NN>"),
// dùng để match Number với collectionName của episode sở hữu.
func (n Number) EpisodeSuffix() string {
	return fmt.Sprintf("_Ep_%02d", n.Episode)
}

// MatchesCollection kiểm tra collectionName có đúng là collection của
// episode mà Number trỏ tới hay không (so hậu tố _Ep_<NN>).
func (n Number) MatchesCollection(collectionName string) bool {
	return strings.HasSuffix(collectionName, n.EpisodeSuffix())
}
