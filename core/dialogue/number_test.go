package dialogue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumber(t *testing.T) {
	t.Run("Parse chuỗi hợp lệ", func(t *testing.T) {
		n, err := ParseNumber("3.01.02.005")
		require.NoError(t, err)
		assert.Equal(t, 3, n.Project)
		assert.Equal(t, 1, n.Episode)
		assert.Equal(t, 2, n.Scene)
		assert.Equal(t, 5, n.Line)
	})

	t.Run("Project number nhiều chữ số", func(t *testing.T) {
		n, err := ParseNumber("142.99.01.999")
		require.NoError(t, err)
		assert.Equal(t, 142, n.Project)
		assert.Equal(t, 99, n.Episode)
		assert.Equal(t, 999, n.Line)
	})

	t.Run("Chuỗi không hợp lệ phải bị từ chối", func(t *testing.T) {
		invalid := []string{
			"",
			"3.1.02.005",    // episode thiếu zero-padding
			"3.01.2.005",    // scene thiếu zero-padding
			"3.01.02.05",    // line phải đúng 3 chữ số
			"3.01.02",       // thiếu thành phần
			"3.01.02.005.1", // thừa thành phần
			"a.01.02.005",   // project không phải số
			"3-01-02-005",   // sai dấu phân cách
			" 3.01.02.005",  // khoảng trắng đầu chuỗi
		}
		for _, s := range invalid {
			_, err := ParseNumber(s)
			assert.Error(t, err, "chuỗi '%s' phải bị từ chối", s)
		}
	})
}

func TestNumberString_RoundTrip(t *testing.T) {
	// Với mọi chuỗi hợp lệ: parse rồi format lại phải cho ra đúng chuỗi ban đầu
	cases := []string{"1.01.01.001", "3.01.02.005", "42.15.07.123", "7.99.99.999"}
	for _, s := range cases {
		n, err := ParseNumber(s)
		require.NoError(t, err)
		assert.Equal(t, s, n.String(), "round-trip phải giữ nguyên chuỗi")
	}
}

func TestNumberMatchesCollection(t *testing.T) {
	n := Number{Project: 3, Episode: 7, Scene: 1, Line: 1}

	assert.Equal(t, "_Ep_07", n.EpisodeSuffix())
	assert.True(t, n.MatchesCollection("phim_hay_Ep_07"))
	assert.False(t, n.MatchesCollection("phim_hay_Ep_08"), "khác số episode phải không khớp")
	assert.False(t, n.MatchesCollection("phim_hay_Ep_17"), "hậu tố phải so đủ cả zero-padding")
}
