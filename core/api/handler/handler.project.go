// Package handler chứa các handler xử lý request HTTP cho quản lý project lồng tiếng
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"dub_studio/core/api/dto"
	models "dub_studio/core/api/models/mongodb"
	"dub_studio/core/api/services"
	"dub_studio/core/common"
	"dub_studio/core/logger"
	"dub_studio/core/storage"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProjectHandler xử lý các request liên quan đến project
type ProjectHandler struct {
	*BaseHandler[models.Project, dto.ProjectCreateMeta, dto.ProjectUpdateInput]
	projectService *services.ProjectService
	episodeService *services.EpisodeService
	uploads        *storage.Coordinator
}

// NewProjectHandler tạo một instance mới của ProjectHandler
func NewProjectHandler(projectService *services.ProjectService, episodeService *services.EpisodeService, uploads *storage.Coordinator) *ProjectHandler {
	return &ProjectHandler{
		BaseHandler:    NewBaseHandler[models.Project, dto.ProjectCreateMeta, dto.ProjectUpdateInput](projectService),
		projectService: projectService,
		episodeService: episodeService,
		uploads:        uploads,
	}
}

// episodeFailure ghi nhận một file video không xử lý được khi tạo project.
// Các file còn lại vẫn được xử lý bình thường (cô lập lỗi theo từng file).
type episodeFailure struct {
	FileName string `json:"fileName"`
	Error    string `json:"error"`
}

// HandleCreateProject tạo project mới từ form multipart.
//
// LÝ DO PHẢI TẠO ENDPOINT ĐẶC BIỆT (không thể dùng CRUD chuẩn):
// 1. Input là multipart: phần "metadata" chứa JSON (title, assignments),
//    các phần "videos" chứa N file video - mỗi file sinh một episode.
// 2. Mỗi episode cần: upload video lên storage + tạo collection dialogue
//    trong database tenant + ghi episode document trong transaction.
// 3. Cô lập lỗi theo từng file: một video hỏng không hủy cả project,
//    chỉ các file thành công mới được ghi vào project.
func (h *ProjectHandler) HandleCreateProject(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		username, _ := c.Locals("username").(string)

		form, err := c.MultipartForm()
		if err != nil {
			h.HandleResponse(c, nil, common.NewError(
				common.ErrCodeValidationFormat,
				fmt.Sprintf("Request phải là multipart form. Chi tiết: %v", err),
				common.StatusBadRequest,
				err,
			))
			return nil
		}

		metaValues := form.Value["metadata"]
		if len(metaValues) == 0 {
			h.HandleResponse(c, nil, common.NewError(
				common.ErrCodeValidationInput,
				"Form thiếu phần 'metadata'",
				common.StatusBadRequest,
				nil,
			))
			return nil
		}

		var meta dto.ProjectCreateMeta
		if err := json.Unmarshal([]byte(metaValues[0]), &meta); err != nil {
			h.HandleResponse(c, nil, common.NewError(
				common.ErrCodeValidationFormat,
				fmt.Sprintf("Metadata không đúng định dạng JSON: %v", err),
				common.StatusBadRequest,
				err,
			))
			return nil
		}
		if err := h.validateInput(&meta); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		assignments := make([]models.ProjectAssignment, 0, len(meta.Assignments))
		for _, a := range meta.Assignments {
			assignments = append(assignments, models.ProjectAssignment{
				Username: a.Username,
				Role:     a.Role,
			})
		}

		project, err := h.projectService.CreateProject(c.Context(), meta.Title, assignments, username)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		// Mỗi file video sinh một episode, đánh số theo thứ tự trong form.
		// Cả batch chạy qua pool worker cố định, lỗi của một file không
		// chặn các file còn lại.
		episodes, failures := h.processVideoBatch(c.Context(), project, form.File["videos"])

		// Đọc lại project để trả về danh sách episode summaries mới nhất
		refreshed, err := h.projectService.FindProject(c.Context(), project.ID)
		if err != nil {
			refreshed = project
		}

		h.HandleResponse(c, fiber.Map{
			"project":  refreshed,
			"episodes": episodes,
			"failures": failures,
		}, nil)
		return nil
	})
}

// Số lần thử tối đa cho một part khi upload batch
const maxPartAttempts = 3

// processVideoBatch xử lý cả batch video qua một pool worker cố định
// (UploadWorkerCount). Kết quả giữ nguyên thứ tự file trong form; mỗi
// slot chỉ do đúng một worker ghi nên không cần lock.
func (h *ProjectHandler) processVideoBatch(ctx context.Context, project *models.Project, files []*multipart.FileHeader) ([]models.Episode, []episodeFailure) {
	type outcome struct {
		episode *models.Episode
		failure *episodeFailure
	}
	outcomes := make([]outcome, len(files))

	storage.RunBatch(h.uploads.Workers(), len(files), func(i int) {
		number := i + 1
		fileHeader := files[i]
		defer func() {
			// Panic của một file cũng chỉ đánh hỏng file đó
			if r := recover(); r != nil {
				outcomes[i] = outcome{failure: &episodeFailure{
					FileName: fileHeader.Filename,
					Error:    fmt.Sprintf("panic khi xử lý video: %v", r),
				}}
			}
		}()

		episode, err := h.createEpisodeFromFile(ctx, project, number, fileHeader)
		if err != nil {
			logger.GetAppLogger().WithFields(logrus.Fields{
				"projectId": project.ID.Hex(),
				"fileName":  fileHeader.Filename,
				"number":    number,
			}).Warnf("Không xử lý được video khi tạo project: %v", err)
			outcomes[i] = outcome{failure: &episodeFailure{
				FileName: fileHeader.Filename,
				Error:    err.Error(),
			}}
			return
		}
		outcomes[i] = outcome{episode: episode}
	})

	episodes := make([]models.Episode, 0, len(files))
	failures := make([]episodeFailure, 0)
	for _, o := range outcomes {
		switch {
		case o.episode != nil:
			episodes = append(episodes, *o.episode)
		case o.failure != nil:
			failures = append(failures, *o.failure)
		}
	}
	return episodes, failures
}

// createEpisodeFromFile upload một file video lên storage rồi tạo episode.
// File được chia thành các part theo UploadPartSizeMB, mỗi part retry
// riêng khi lỗi tạm thời. Upload trước, ghi database sau - nếu tạo episode
// thất bại thì xóa object vừa upload để không để rác trên storage.
func (h *ProjectHandler) createEpisodeFromFile(ctx context.Context, project *models.Project, number int, fileHeader *multipart.FileHeader) (*models.Episode, error) {
	name := strings.TrimSuffix(fileHeader.Filename, filepath.Ext(fileHeader.Filename))
	if name == "" {
		name = fmt.Sprintf("Episode %d", number)
	}
	objectKey := fmt.Sprintf("videos/%s/Ep_%02d%s", project.Slug, number, filepath.Ext(fileHeader.Filename))

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("không mở được file upload: %w", err)
	}
	defer file.Close()

	sizes := storage.PartSizes(fileHeader.Size, h.uploads.PartSize())
	session, err := h.uploads.InitUpload(ctx, objectKey, len(sizes), fileHeader.Size)
	if err != nil {
		return nil, err
	}

	offset := int64(0)
	for idx, size := range sizes {
		if err := h.uploadPartWithRetry(ctx, session.UploadID, idx+1, file, offset, size); err != nil {
			_ = h.uploads.AbortUpload(ctx, session.UploadID)
			return nil, err
		}
		offset += size
	}
	if _, err := h.uploads.CompleteUpload(ctx, session.UploadID); err != nil {
		_ = h.uploads.AbortUpload(ctx, session.UploadID)
		return nil, err
	}

	episode, err := h.episodeService.CreateEpisode(ctx, project, name, number, objectKey)
	if err != nil {
		// Object đã upload không còn episode nào tham chiếu
		_ = h.uploads.RemoveObject(ctx, objectKey)
		return nil, err
	}
	return episode, nil
}

// uploadPartWithRetry upload một part từ vùng [offset, offset+size) của
// file, retry với backoff khi lỗi. Reader đọc theo offset nên mỗi lần
// retry gửi lại đúng dữ liệu của part đó.
func (h *ProjectHandler) uploadPartWithRetry(ctx context.Context, uploadID string, partNumber int, file io.ReaderAt, offset int64, size int64) error {
	backoff := time.Second
	var lastErr error
	for attempt := 1; attempt <= maxPartAttempts; attempt++ {
		reader := io.NewSectionReader(file, offset, size)
		if _, lastErr = h.uploads.UploadChunk(ctx, uploadID, partNumber, reader, size); lastErr == nil {
			return nil
		}
		if attempt == maxPartAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return lastErr
}

// HandleDeleteProject xóa project theo kiểu cascade.
//
// LÝ DO PHẢI TẠO ENDPOINT ĐẶC BIỆT (không thể dùng CRUD chuẩn):
// 1. Cascade: drop database tenant + xóa video objects + xóa document.
// 2. Chỉ admin của project mới được xóa - kiểm tra assignments.
func (h *ProjectHandler) HandleDeleteProject(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		username, _ := c.Locals("username").(string)

		project, err := h.findProjectFromParams(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		if !project.HasAssignment(username, models.RoleAdmin) {
			h.HandleResponse(c, nil, common.NewError(
				common.ErrCodeAuthRole,
				fmt.Sprintf("Người dùng '%s' không có quyền xóa project '%s'", username, project.Slug),
				common.StatusUnauthorized,
				nil,
			))
			return nil
		}

		err = h.projectService.DeleteProject(c.Context(), project)
		h.HandleResponse(c, nil, err)
		return nil
	})
}

// findProjectFromParams đọc và validate :id rồi tải project tương ứng
func (h *ProjectHandler) findProjectFromParams(c fiber.Ctx) (*models.Project, error) {
	id := c.Params("id")
	if !primitive.IsValidObjectID(id) {
		return nil, common.NewError(
			common.ErrCodeValidationFormat,
			fmt.Sprintf("ID '%s' không đúng định dạng MongoDB ObjectID (phải là chuỗi hex 24 ký tự)", id),
			common.StatusBadRequest,
			nil,
		)
	}
	objID, _ := primitive.ObjectIDFromHex(id)
	return h.projectService.FindProject(c.Context(), objID)
}
