// Package handler chứa các handler xử lý request HTTP cho pipeline lồng tiếng theo episode
package handler

import (
	"fmt"
	"strconv"

	"dub_studio/core/api/dto"
	models "dub_studio/core/api/models/mongodb"
	"dub_studio/core/api/services"
	"dub_studio/core/common"
	"dub_studio/core/dialogue"
	"dub_studio/core/pipeline"
	"dub_studio/core/tenant"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EpisodeHandler xử lý các request liên quan đến episode và pipeline 5 step.
// Episode nằm trong database tenant của từng project nên mọi route đều yêu
// cầu query param projectId để route về đúng tenant.
type EpisodeHandler struct {
	projectService  *services.ProjectService
	episodeService  *services.EpisodeService
	dialogueService *services.DialogueService
	orchestrator    *pipeline.Orchestrator
}

// NewEpisodeHandler tạo một instance mới của EpisodeHandler
func NewEpisodeHandler(projectService *services.ProjectService, episodeService *services.EpisodeService, dialogueService *services.DialogueService, orchestrator *pipeline.Orchestrator) *EpisodeHandler {
	return &EpisodeHandler{
		projectService:  projectService,
		episodeService:  episodeService,
		dialogueService: dialogueService,
		orchestrator:    orchestrator,
	}
}

// resolveEpisode tải project từ query param projectId, kiểm tra membership
// của actor rồi tải episode theo :id trong database tenant của project.
func (h *EpisodeHandler) resolveEpisode(c fiber.Ctx) (*models.Project, *models.Episode, error) {
	username, _ := c.Locals("username").(string)

	projectID := c.Query("projectId")
	if !primitive.IsValidObjectID(projectID) {
		return nil, nil, common.NewError(
			common.ErrCodeValidationFormat,
			fmt.Sprintf("Query param projectId '%s' không đúng định dạng MongoDB ObjectID", projectID),
			common.StatusBadRequest,
			nil,
		)
	}
	episodeID := c.Params("id")
	if !primitive.IsValidObjectID(episodeID) {
		return nil, nil, common.NewError(
			common.ErrCodeValidationFormat,
			fmt.Sprintf("ID '%s' không đúng định dạng MongoDB ObjectID (phải là chuỗi hex 24 ký tự)", episodeID),
			common.StatusBadRequest,
			nil,
		)
	}

	pID, _ := primitive.ObjectIDFromHex(projectID)
	project, err := h.projectService.FindProject(c.Context(), pID)
	if err != nil {
		return nil, nil, err
	}
	if err := tenant.Authorize(project, username); err != nil {
		return nil, nil, err
	}

	eID, _ := primitive.ObjectIDFromHex(episodeID)
	episode, err := h.episodeService.FindEpisode(c.Context(), project, eID)
	if err != nil {
		return nil, nil, err
	}
	return project, episode, nil
}

// HandleGetEpisode trả về trạng thái đầy đủ của một episode, bao gồm
// sub-document của cả 5 step
func (h *EpisodeHandler) HandleGetEpisode(c fiber.Ctx) error {
	_, episode, err := h.resolveEpisode(c)
	if err != nil {
		WriteResponse(c, nil, err)
		return nil
	}
	WriteResponse(c, episode, nil)
	return nil
}

// HandleRunStep chạy một step pipeline trên episode.
//
// LÝ DO PHẢI TẠO ENDPOINT ĐẶC BIỆT (không thể dùng CRUD chuẩn):
// 1. Kiểm tra thứ tự step (precondition 412) và transition của step FSM.
// 2. Step 1 bất đồng bộ qua job queue, step 2-5 đồng bộ - hai đường hội tụ
//    về cùng post-condition trong orchestrator.
// 3. Step 4/5 gọi dịch vụ ngoài với timeout riêng (504 khi quá hạn).
func (h *EpisodeHandler) HandleRunStep(c fiber.Ctx) error {
	project, episode, err := h.resolveEpisode(c)
	if err != nil {
		WriteResponse(c, nil, err)
		return nil
	}

	step, err := strconv.Atoi(c.Params("step"))
	if err != nil || step < 1 || step > 5 {
		WriteResponse(c, nil, common.NewError(
			common.ErrCodeValidationInput,
			fmt.Sprintf("Step '%s' không hợp lệ, phải nằm trong khoảng 1..5", c.Params("step")),
			common.StatusBadRequest,
			nil,
		))
		return nil
	}

	var input dto.StepRunInput
	if len(c.Body()) > 0 {
		if err := ParseBody(c, &input); err != nil {
			WriteResponse(c, nil, err)
			return nil
		}
	}

	result, err := h.orchestrator.RunStep(c.Context(), project, episode, step, pipeline.StepInput{
		ResetCycle: input.ResetCycle,
		Params:     input.Params,
	})
	if err != nil {
		WriteResponse(c, nil, err)
		return nil
	}

	response := fiber.Map{"episode": result.Episode}
	if result.JobID != "" {
		response["jobId"] = result.JobID
	}
	WriteResponse(c, response, nil)
	return nil
}

// HandleVoiceAssignments gán giọng thủ công cho episode (override step 5).
// Hội tụ về cùng post-condition với đường gán giọng tự động.
func (h *EpisodeHandler) HandleVoiceAssignments(c fiber.Ctx) error {
	project, episode, err := h.resolveEpisode(c)
	if err != nil {
		WriteResponse(c, nil, err)
		return nil
	}

	var input dto.VoiceAssignmentsInput
	if err := ParseBody(c, &input); err != nil {
		WriteResponse(c, nil, err)
		return nil
	}

	assignments := make([]pipeline.VoiceAssignment, 0, len(input.Assignments))
	for _, a := range input.Assignments {
		assignments = append(assignments, pipeline.VoiceAssignment{
			Character: a.Character,
			VoiceID:   a.VoiceID,
			Notes:     a.Notes,
		})
	}

	updated, err := h.orchestrator.ApplyManualVoiceAssignments(c.Context(), project, episode, assignments)
	WriteResponse(c, updated, err)
	return nil
}

// HandleSeedScenes ghi các scene documents ban đầu vào collection
// dialogue của episode từ kịch bản đã bóc tách.
//
// LÝ DO PHẢI TẠO ENDPOINT ĐẶC BIỆT (không thể dùng CRUD chuẩn):
// 1. Dialogue number được server cấp từ (projectNumber, episodeNumber,
//    scene, line) - client không bao giờ tự đặt số.
// 2. Ghi theo kiểu upsert từng sceneNumber - gửi lại cùng kịch bản là
//    idempotent, không nhân đôi scene.
// 3. Chỉ transcriber (hoặc admin) của project mới được seed kịch bản.
func (h *EpisodeHandler) HandleSeedScenes(c fiber.Ctx) error {
	username, _ := c.Locals("username").(string)

	project, episode, err := h.resolveEpisode(c)
	if err != nil {
		WriteResponse(c, nil, err)
		return nil
	}

	if !dialogue.ActorAllowed(project, username, dialogue.ActionTranscribe) {
		WriteResponse(c, nil, common.NewError(
			common.ErrCodeAuthRole,
			fmt.Sprintf("Người dùng '%s' không có quyền seed kịch bản trong project '%s'", username, project.Slug),
			common.StatusUnauthorized,
			nil,
		))
		return nil
	}

	var input dto.SceneSeedInput
	if err := ParseBody(c, &input); err != nil {
		WriteResponse(c, nil, err)
		return nil
	}

	seeds := make([]dialogue.SceneSeed, 0, len(input.Scenes))
	for _, scene := range input.Scenes {
		lines := make([]dialogue.LineSeed, 0, len(scene.Lines))
		for _, line := range scene.Lines {
			lines = append(lines, dialogue.LineSeed{
				Line:      line.Line,
				Character: line.Character,
				Original:  line.Original,
				TimeIn:    line.TimeIn,
				TimeOut:   line.TimeOut,
			})
		}
		seeds = append(seeds, dialogue.SceneSeed{SceneNumber: scene.SceneNumber, Lines: lines})
	}

	scenes, err := dialogue.BuildScenes(project.ProjectNumber, episode.Number, seeds)
	if err != nil {
		WriteResponse(c, nil, err)
		return nil
	}

	if err := h.dialogueService.SeedScenes(c.Context(), project, episode.CollectionName, scenes); err != nil {
		WriteResponse(c, nil, err)
		return nil
	}

	dialogueCount := 0
	for _, s := range scenes {
		dialogueCount += len(s.Dialogues)
	}
	WriteResponse(c, fiber.Map{
		"sceneCount":    len(scenes),
		"dialogueCount": dialogueCount,
	}, nil)
	return nil
}

// HandleListEpisodes trả về tất cả episodes của một project
func (h *EpisodeHandler) HandleListEpisodes(c fiber.Ctx) error {
	username, _ := c.Locals("username").(string)

	projectID := c.Query("projectId")
	if !primitive.IsValidObjectID(projectID) {
		WriteResponse(c, nil, common.NewError(
			common.ErrCodeValidationFormat,
			fmt.Sprintf("Query param projectId '%s' không đúng định dạng MongoDB ObjectID", projectID),
			common.StatusBadRequest,
			nil,
		))
		return nil
	}

	pID, _ := primitive.ObjectIDFromHex(projectID)
	project, err := h.projectService.FindProject(c.Context(), pID)
	if err != nil {
		WriteResponse(c, nil, err)
		return nil
	}
	if err := tenant.Authorize(project, username); err != nil {
		WriteResponse(c, nil, err)
		return nil
	}

	episodes, err := h.episodeService.ListEpisodes(c.Context(), project)
	if err != nil {
		WriteResponse(c, nil, err)
		return nil
	}
	if episodes == nil {
		episodes = []models.Episode{}
	}
	WriteResponse(c, episodes, nil)
	return nil
}

// HandleDeleteEpisode xóa episode cùng collection dialogue của nó
func (h *EpisodeHandler) HandleDeleteEpisode(c fiber.Ctx) error {
	username, _ := c.Locals("username").(string)

	project, episode, err := h.resolveEpisode(c)
	if err != nil {
		WriteResponse(c, nil, err)
		return nil
	}

	if !project.HasAssignment(username, models.RoleAdmin) {
		WriteResponse(c, nil, common.NewError(
			common.ErrCodeAuthRole,
			fmt.Sprintf("Người dùng '%s' không có quyền xóa episode trong project '%s'", username, project.Slug),
			common.StatusUnauthorized,
			nil,
		))
		return nil
	}

	err = h.episodeService.DeleteEpisode(c.Context(), project, episode)
	WriteResponse(c, nil, err)
	return nil
}
