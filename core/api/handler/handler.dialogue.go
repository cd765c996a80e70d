// Package handler chứa các handler xử lý request HTTP cho vòng review dialogue
package handler

import (
	"dub_studio/core/api/dto"
	models "dub_studio/core/api/models/mongodb"
	"dub_studio/core/api/services"
	"dub_studio/core/dialogue"
	"dub_studio/core/tenant"

	"github.com/gofiber/fiber/v3"
)

// DialogueHandler xử lý các request trên từng dialogue.
// Dialogue number (P.EE.SS.LLL) tự mang đủ thông tin routing: project number
// dẫn về project, episode number dẫn về collection trong database tenant.
type DialogueHandler struct {
	projectService  *services.ProjectService
	dialogueService *services.DialogueService
}

// NewDialogueHandler tạo một instance mới của DialogueHandler
func NewDialogueHandler(projectService *services.ProjectService, dialogueService *services.DialogueService) *DialogueHandler {
	return &DialogueHandler{
		projectService:  projectService,
		dialogueService: dialogueService,
	}
}

// resolveDialogue parse :dialogueNumber rồi suy ra project và collection
// chứa dialogue đó
func (h *DialogueHandler) resolveDialogue(c fiber.Ctx) (*models.Project, string, dialogue.Number, error) {
	number, err := dialogue.ParseNumber(c.Params("dialogueNumber"))
	if err != nil {
		return nil, "", dialogue.Number{}, err
	}

	project, err := h.projectService.FindProjectByNumber(c.Context(), number.Project)
	if err != nil {
		return nil, "", dialogue.Number{}, err
	}

	collectionName := tenant.CollectionNameFor(project.Slug, number.Episode)
	return project, collectionName, number, nil
}

// HandleUpdateDialogue áp một patch review lên dialogue.
//
// LÝ DO PHẢI TẠO ENDPOINT ĐẶC BIỆT (không thể dùng CRUD chuẩn):
// 1. Action (transcribe/translate/voice_over/review) được suy ra từ tập
//    field có mặt trong patch, không khai báo tường minh.
// 2. Actor phải có role khớp với action trong assignments của project.
// 3. Transition của review FSM được kiểm tra trước khi ghi; verdict của
//    review ưu tiên needsReRecord > revisionRequested > approved.
func (h *DialogueHandler) HandleUpdateDialogue(c fiber.Ctx) error {
	username, _ := c.Locals("username").(string)

	project, collectionName, number, err := h.resolveDialogue(c)
	if err != nil {
		WriteResponse(c, nil, err)
		return nil
	}

	var input dto.DialogueUpdateInput
	if err := ParseBody(c, &input); err != nil {
		WriteResponse(c, nil, err)
		return nil
	}

	patch := dialogue.UpdatePatch{
		Character:         input.Character,
		Original:          input.Original,
		Translated:        input.Translated,
		Adapted:           input.Adapted,
		TimeIn:            input.TimeIn,
		TimeOut:           input.TimeOut,
		VoiceOverUrl:      input.VoiceOverUrl,
		ProcessedVoiceUrl: input.ProcessedVoiceUrl,
		DirectorNotes:     input.DirectorNotes,
		VoiceOverNotes:    input.VoiceOverNotes,
		Approved:          input.Approved,
		RevisionRequested: input.RevisionRequested,
		NeedsReRecord:     input.NeedsReRecord,
	}

	updated, err := h.dialogueService.ApplyReview(c.Context(), project, collectionName, number, username, patch)
	WriteResponse(c, updated, err)
	return nil
}

// HandleRemoveVoice gỡ voice-over khỏi dialogue và đưa status về pending.
// Đây là regression có chủ đích trong state machine, không phải lỗi.
func (h *DialogueHandler) HandleRemoveVoice(c fiber.Ctx) error {
	username, _ := c.Locals("username").(string)

	project, collectionName, number, err := h.resolveDialogue(c)
	if err != nil {
		WriteResponse(c, nil, err)
		return nil
	}

	updated, err := h.dialogueService.RemoveVoice(c.Context(), project, collectionName, number, username)
	WriteResponse(c, updated, err)
	return nil
}
