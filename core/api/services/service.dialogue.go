package services

import (
	"context"
	"fmt"

	models "dub_studio/core/api/models/mongodb"
	"dub_studio/core/common"
	"dub_studio/core/dialogue"
	"dub_studio/core/pipeline"
	"dub_studio/core/tenant"
	"dub_studio/core/utility"

	"go.mongodb.org/mongo-driver/bson"
)

// DialogueService là cấu trúc chứa các phương thức liên quan đến Dialogue.
// Dialogues nằm trong các collection theo episode (<slug>_Ep_<NN>) nên
// mọi thao tác resolve collection qua tenant router.
type DialogueService struct {
	projects *ProjectService
}

// NewDialogueService tạo mới DialogueService
func NewDialogueService(projects *ProjectService) *DialogueService {
	return &DialogueService{projects: projects}
}

// scenes trả về base service trên collection dialogue của một episode.
func (s *DialogueService) scenes(ctx context.Context, project *models.Project, collectionName string) (*BaseServiceMongoImpl[models.SceneDoc], error) {
	coll, err := tenant.ResolveCollection(ctx, project, collectionName)
	if err != nil {
		return nil, err
	}
	return NewBaseServiceMongo[models.SceneDoc](coll), nil
}

// ListScenes trả về tất cả scene documents của một episode, sắp theo
// số scene.
func (s *DialogueService) ListScenes(ctx context.Context, project *models.Project, collectionName string) ([]models.SceneDoc, error) {
	svc, err := s.scenes(ctx, project, collectionName)
	if err != nil {
		return nil, err
	}
	return svc.Find(ctx, bson.M{}, nil)
}

// SeedScenes ghi các scene documents ban đầu cho một episode (upsert theo
// sceneNumber, idempotent khi chạy lại).
func (s *DialogueService) SeedScenes(ctx context.Context, project *models.Project, collectionName string, scenes []models.SceneDoc) error {
	svc, err := s.scenes(ctx, project, collectionName)
	if err != nil {
		return err
	}
	for _, scene := range scenes {
		data := map[string]interface{}{
			"sceneNumber": scene.SceneNumber,
			"dialogues":   scene.Dialogues,
		}
		if _, err := svc.Upsert(ctx, bson.M{"sceneNumber": scene.SceneNumber}, data); err != nil {
			return err
		}
	}
	return nil
}

// FindDialogue tìm dialogue theo dialogue number trong collection của
// episode. Trả về ErrNotFound nếu không có phần tử nào khớp.
func (s *DialogueService) FindDialogue(ctx context.Context, project *models.Project, collectionName string, number dialogue.Number) (*models.Dialogue, error) {
	svc, err := s.scenes(ctx, project, collectionName)
	if err != nil {
		return nil, err
	}

	scene, err := svc.FindOne(ctx, bson.M{"dialogues.dialogueNumber": number.String()}, nil)
	if err != nil {
		return nil, err
	}
	for i := range scene.Dialogues {
		if scene.Dialogues[i].DialogueNumber == number.String() {
			return &scene.Dialogues[i], nil
		}
	}
	return nil, common.ErrNotFound
}

// ApplyReview áp một patch review lên dialogue: suy ra action từ patch,
// kiểm tra quyền của actor, kiểm tra transition hợp lệ rồi ghi atomic
// bằng positional update trên đúng phần tử mảng khớp dialogue number.
// Cập nhật lên các dialogue khác trong cùng episode không bị chặn.
func (s *DialogueService) ApplyReview(ctx context.Context, project *models.Project, collectionName string, number dialogue.Number, actor string, patch dialogue.UpdatePatch) (*models.Dialogue, error) {
	action, err := dialogue.DetectAction(patch)
	if err != nil {
		return nil, err
	}
	if !dialogue.ActorAllowed(project, actor, action) {
		return nil, common.NewError(
			common.ErrCodeAuthRole,
			fmt.Sprintf("Người dùng '%s' không có quyền thực hiện '%s' trên project '%s'", actor, action, project.Slug),
			common.StatusUnauthorized,
			nil,
		)
	}

	current, err := s.FindDialogue(ctx, project, collectionName, number)
	if err != nil {
		return nil, err
	}
	if err := dialogue.CheckTransition(current.Status, action); err != nil {
		return nil, err
	}

	var targetStatus string
	if action == dialogue.ActionReview {
		targetStatus, err = dialogue.ResolveReviewStatus(dialogue.ReviewVerdict{
			Approved:          patch.Approved,
			RevisionRequested: patch.RevisionRequested,
			NeedsReRecord:     patch.NeedsReRecord,
		})
		if err != nil {
			return nil, err
		}
	} else {
		targetStatus = dialogue.TargetStatus(action)
	}

	// Gắn voice-over bắt buộc phải có URL
	if action == dialogue.ActionVoiceOver && (patch.VoiceOverUrl == nil || *patch.VoiceOverUrl == "") {
		return nil, common.NewError(
			common.ErrCodeValidationInput,
			"Gắn voice-over yêu cầu voiceOverUrl",
			common.StatusBadRequest,
			nil,
		)
	}

	set := map[string]interface{}{
		"dialogues.$.status":    targetStatus,
		"dialogues.$.updatedAt": utility.CurrentTimeInMilli(),
		"dialogues.$.updatedBy": actor,
	}
	setField := func(field string, value *string) {
		if value != nil {
			set["dialogues.$."+field] = *value
		}
	}
	setField("character", patch.Character)
	setField("original", patch.Original)
	setField("translated", patch.Translated)
	setField("adapted", patch.Adapted)
	setField("timeIn", patch.TimeIn)
	setField("timeOut", patch.TimeOut)
	setField("voiceOverUrl", patch.VoiceOverUrl)
	setField("processedVoiceUrl", patch.ProcessedVoiceUrl)
	setField("directorNotes", patch.DirectorNotes)
	setField("voiceOverNotes", patch.VoiceOverNotes)

	if action == dialogue.ActionReview {
		set["dialogues.$.revisionRequested"] = patch.RevisionRequested
		set["dialogues.$.needsReRecord"] = patch.NeedsReRecord
	}

	svc, err := s.scenes(ctx, project, collectionName)
	if err != nil {
		return nil, err
	}
	filter := bson.M{"dialogues.dialogueNumber": number.String()}
	if _, err := svc.UpdateOne(ctx, filter, UpdateData{Set: set}, nil); err != nil {
		return nil, err
	}

	return s.FindDialogue(ctx, project, collectionName, number)
}

// RemoveVoice gỡ voice-over khỏi dialogue và đưa status về pending.
// Đây là regression có chủ đích trong state machine, không phải lỗi.
func (s *DialogueService) RemoveVoice(ctx context.Context, project *models.Project, collectionName string, number dialogue.Number, actor string) (*models.Dialogue, error) {
	if !dialogue.ActorAllowed(project, actor, dialogue.ActionVoiceOver) &&
		!dialogue.ActorAllowed(project, actor, dialogue.ActionReview) {
		return nil, common.NewError(
			common.ErrCodeAuthRole,
			fmt.Sprintf("Người dùng '%s' không có quyền gỡ voice-over trên project '%s'", actor, project.Slug),
			common.StatusUnauthorized,
			nil,
		)
	}

	if _, err := s.FindDialogue(ctx, project, collectionName, number); err != nil {
		return nil, err
	}

	svc, err := s.scenes(ctx, project, collectionName)
	if err != nil {
		return nil, err
	}

	updateData := UpdateData{
		Set: map[string]interface{}{
			"dialogues.$.status":    models.DialogueStatusPending,
			"dialogues.$.updatedAt": utility.CurrentTimeInMilli(),
			"dialogues.$.updatedBy": actor,
		},
		Unset: map[string]interface{}{
			"dialogues.$.voiceOverUrl":      "",
			"dialogues.$.processedVoiceUrl": "",
			"dialogues.$.voiceOverNotes":    "",
		},
	}
	filter := bson.M{"dialogues.dialogueNumber": number.String()}
	if _, err := svc.UpdateOne(ctx, filter, updateData, nil); err != nil {
		return nil, err
	}

	return s.FindDialogue(ctx, project, collectionName, number)
}

// ApplyTranslations ghi các bản dịch nháp từ pipeline vào các dialogues
// tương ứng. Bản nháp không đổi trạng thái review - translator vẫn phải
// xác nhận qua vòng review.
func (s *DialogueService) ApplyTranslations(ctx context.Context, project *models.Project, collectionName string, drafts []pipeline.TranslationDraft) error {
	svc, err := s.scenes(ctx, project, collectionName)
	if err != nil {
		return err
	}

	for _, draft := range drafts {
		set := map[string]interface{}{
			"dialogues.$.translated": draft.Translated,
			"dialogues.$.updatedAt":  utility.CurrentTimeInMilli(),
		}
		if draft.Adapted != "" {
			set["dialogues.$.adapted"] = draft.Adapted
		}
		filter := bson.M{"dialogues.dialogueNumber": draft.DialogueNumber}
		if _, err := svc.UpdateOne(ctx, filter, UpdateData{Set: set}, nil); err != nil {
			// Bản nháp cho dialogue không tồn tại được bỏ qua, không chặn
			// các bản nháp còn lại
			continue
		}
	}
	return nil
}
