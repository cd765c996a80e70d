package dialogue

import (
	"fmt"

	"dub_studio/core/common"
	models "dub_studio/core/api/models/mongodb"
)

// Action là một thao tác của người dùng lên dialogue trong vòng review.
type Action string

const (
	ActionTranscribe Action = "transcribe" // transcriber ghi lời thoại gốc
	ActionTranslate  Action = "translate"  // translator ghi bản dịch/adapted
	ActionVoiceOver  Action = "voice_over" // voice artist gắn bản thu
	ActionReview     Action = "review"     // director/senior director duyệt hoặc trả về
)

// actionRoles: role nào được phép thực hiện action nào.
// Admin luôn pass qua Project.HasAssignment nên không liệt kê ở đây.
var actionRoles = map[Action][]string{
	ActionTranscribe: {models.RoleTranscriber},
	ActionTranslate:  {models.RoleTranslator},
	ActionVoiceOver:  {models.RoleVoiceArtist},
	ActionReview:     {models.RoleDirector, models.RoleSeniorDirector},
}

// allowedFrom: action được phép thực hiện khi dialogue đang ở trạng thái nào.
// Các action sản xuất (transcribe/translate/voice_over) đều re-entrant từ
// chính trạng thái đích của mình để cho phép nộp lại idempotent; các trạng
// thái revision (revision-requested, needs-rerecord) mở lại vòng sản xuất.
var allowedFrom = map[Action][]string{
	ActionTranscribe: {
		models.DialogueStatusPending,
		models.DialogueStatusTranscribed,
		models.DialogueStatusRevisionRequested,
		models.DialogueStatusNeedsReRecord,
	},
	ActionTranslate: {
		models.DialogueStatusTranscribed,
		models.DialogueStatusTranslated,
		models.DialogueStatusRevisionRequested,
		models.DialogueStatusNeedsReRecord,
	},
	ActionVoiceOver: {
		models.DialogueStatusTranslated,
		models.DialogueStatusApproved,
		models.DialogueStatusVoiceOverAdded,
	},
	ActionReview: {
		models.DialogueStatusTranslated,
		models.DialogueStatusApproved,
		models.DialogueStatusRevisionRequested,
		models.DialogueStatusNeedsReRecord,
		models.DialogueStatusVoiceOverAdded,
	},
}

// RoleAllowed kiểm tra role có được phép thực hiện action hay không.
func RoleAllowed(action Action, role string) bool {
	if role == models.RoleAdmin {
		return true
	}
	for _, r := range actionRoles[action] {
		if r == role {
			return true
		}
	}
	return false
}

// CheckTransition kiểm tra action có hợp lệ từ trạng thái hiện tại không.
// Trả về ErrPreconditionFailed nếu transition không nằm trong bảng cho phép.
func CheckTransition(current string, action Action) error {
	for _, s := range allowedFrom[action] {
		if s == current {
			return nil
		}
	}
	return common.NewError(
		common.ErrCodeBusinessPrecondition,
		fmt.Sprintf("Không thể thực hiện '%s' khi dialogue đang ở trạng thái '%s'", action, current),
		common.StatusPreconditionFailed,
		nil,
	)
}

// ReviewVerdict là kết quả duyệt của director trên một dialogue.
// Nhiều cờ có thể cùng bật (nhiều reviewer độc lập); trạng thái cuối
// được chốt theo thứ tự ưu tiên trong ResolveReviewStatus.
type ReviewVerdict struct {
	Approved          bool
	RevisionRequested bool
	NeedsReRecord     bool
}

// ResolveReviewStatus chốt trạng thái review từ các cờ verdict.
// Thứ tự ưu tiên: needs-rerecord > revision-requested > approved.
// Verdict rỗng (không cờ nào bật) là input không hợp lệ.
func ResolveReviewStatus(v ReviewVerdict) (string, error) {
	switch {
	case v.NeedsReRecord:
		return models.DialogueStatusNeedsReRecord, nil
	case v.RevisionRequested:
		return models.DialogueStatusRevisionRequested, nil
	case v.Approved:
		return models.DialogueStatusApproved, nil
	default:
		return "", common.NewError(
			common.ErrCodeValidationInput,
			"Verdict review phải có ít nhất một cờ: approved, revisionRequested hoặc needsReRecord",
			common.StatusBadRequest,
			nil,
		)
	}
}

// TargetStatus trả về trạng thái đích của một action sản xuất.
// Với ActionReview dùng ResolveReviewStatus thay vì hàm này.
func TargetStatus(action Action) string {
	switch action {
	case ActionTranscribe:
		return models.DialogueStatusTranscribed
	case ActionTranslate:
		return models.DialogueStatusTranslated
	case ActionVoiceOver:
		return models.DialogueStatusVoiceOverAdded
	default:
		return ""
	}
}
