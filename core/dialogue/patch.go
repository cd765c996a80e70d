package dialogue

import (
	models "dub_studio/core/api/models/mongodb"
	"dub_studio/core/common"
)

// UpdatePatch là tập field một request review muốn thay đổi trên dialogue.
// Con trỏ nil nghĩa là field không được gửi lên (giữ nguyên giá trị cũ) -
// concurrency giữa các field là last-write-wins có chủ đích.
type UpdatePatch struct {
	Character *string
	Original  *string

	Translated *string
	Adapted    *string

	TimeIn  *string
	TimeOut *string

	VoiceOverUrl      *string
	ProcessedVoiceUrl *string

	DirectorNotes  *string
	VoiceOverNotes *string

	Approved          bool
	RevisionRequested bool
	NeedsReRecord     bool
}

// DetectAction suy ra action từ nội dung patch. Thứ tự xét: review
// (có verdict flag hoặc directorNotes) > voice_over > translate >
// transcribe. Patch rỗng là input không hợp lệ.
func DetectAction(p UpdatePatch) (Action, error) {
	switch {
	case p.Approved || p.RevisionRequested || p.NeedsReRecord || p.DirectorNotes != nil:
		return ActionReview, nil
	case p.VoiceOverUrl != nil || p.ProcessedVoiceUrl != nil || p.VoiceOverNotes != nil:
		return ActionVoiceOver, nil
	case p.Translated != nil || p.Adapted != nil:
		return ActionTranslate, nil
	case p.Original != nil || p.Character != nil || p.TimeIn != nil || p.TimeOut != nil:
		return ActionTranscribe, nil
	default:
		return "", common.NewError(
			common.ErrCodeValidationInput,
			"Patch không chứa field nào để cập nhật",
			common.StatusBadRequest,
			nil,
		)
	}
}

// ActorAllowed kiểm tra username có role nào trong project được phép
// thực hiện action hay không.
func ActorAllowed(p *models.Project, username string, action Action) bool {
	for _, a := range p.Assignments {
		if a.Username != username {
			continue
		}
		if RoleAllowed(action, a.Role) {
			return true
		}
	}
	return false
}
