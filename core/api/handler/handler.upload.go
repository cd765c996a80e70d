// Package handler chứa các handler xử lý request HTTP cho upload video nhiều part
package handler

import (
	"bytes"
	"fmt"
	"strconv"

	"dub_studio/core/api/dto"
	"dub_studio/core/common"
	"dub_studio/core/storage"

	"github.com/gofiber/fiber/v3"
)

// UploadHandler xử lý các request upload video theo phiên nhiều part.
// Phiên upload chỉ sống trong bộ nhớ process - client phải init lại nếu
// server restart giữa chừng.
type UploadHandler struct {
	uploads *storage.Coordinator
}

// NewUploadHandler tạo một instance mới của UploadHandler
func NewUploadHandler(uploads *storage.Coordinator) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

// HandleInit khởi tạo một phiên upload mới và trả về uploadId
func (h *UploadHandler) HandleInit(c fiber.Ctx) error {
	var input dto.UploadInitInput
	if err := ParseBody(c, &input); err != nil {
		WriteResponse(c, nil, err)
		return nil
	}

	session, err := h.uploads.InitUpload(c.Context(), input.ObjectKey, input.TotalParts, input.TotalSize)
	if err != nil {
		WriteResponse(c, nil, err)
		return nil
	}

	WriteResponse(c, fiber.Map{
		"uploadId":   session.UploadID,
		"objectKey":  session.ObjectKey,
		"totalParts": session.TotalParts,
	}, nil)
	return nil
}

// HandleChunk nhận một part của phiên upload.
// uploadId và partNumber qua query, dữ liệu part là raw body.
// Gửi lại cùng partNumber sẽ ghi đè part cũ (idempotent cho retry).
func (h *UploadHandler) HandleChunk(c fiber.Ctx) error {
	uploadID := c.Query("uploadId")
	if uploadID == "" {
		WriteResponse(c, nil, common.NewError(
			common.ErrCodeValidationInput,
			"Query param uploadId không được để trống",
			common.StatusBadRequest,
			nil,
		))
		return nil
	}

	partNumber, err := strconv.Atoi(c.Query("partNumber"))
	if err != nil || partNumber < 1 {
		WriteResponse(c, nil, common.NewError(
			common.ErrCodeValidationInput,
			fmt.Sprintf("Query param partNumber '%s' không hợp lệ, phải là số nguyên >= 1", c.Query("partNumber")),
			common.StatusBadRequest,
			nil,
		))
		return nil
	}

	body := c.Body()
	if len(body) == 0 {
		WriteResponse(c, nil, common.NewError(
			common.ErrCodeValidationInput,
			"Body của part không được rỗng",
			common.StatusBadRequest,
			nil,
		))
		return nil
	}

	part, err := h.uploads.UploadChunk(c.Context(), uploadID, partNumber, bytes.NewReader(body), int64(len(body)))
	if err != nil {
		WriteResponse(c, nil, err)
		return nil
	}

	received, total, _ := h.uploads.Progress(uploadID)
	WriteResponse(c, fiber.Map{
		"partNumber": part.PartNumber,
		"received":   received,
		"total":      total,
	}, nil)
	return nil
}

// HandleComplete hoàn tất phiên upload.
// Thiếu part nào trả về 400 kèm missingParts - phiên vẫn sống để client
// gửi bù phần thiếu rồi complete lại.
func (h *UploadHandler) HandleComplete(c fiber.Ctx) error {
	var input dto.UploadCompleteInput
	if err := ParseBody(c, &input); err != nil {
		WriteResponse(c, nil, err)
		return nil
	}

	objectKey, err := h.uploads.CompleteUpload(c.Context(), input.UploadID)
	if err != nil {
		WriteResponse(c, nil, err)
		return nil
	}

	WriteResponse(c, fiber.Map{"objectKey": objectKey}, nil)
	return nil
}

// HandleAbort hủy phiên upload và dọn các part đã nhận trên storage.
// Hủy một phiên không tồn tại là no-op thành công (idempotent).
func (h *UploadHandler) HandleAbort(c fiber.Ctx) error {
	var input dto.UploadAbortInput
	if err := ParseBody(c, &input); err != nil {
		WriteResponse(c, nil, err)
		return nil
	}

	err := h.uploads.AbortUpload(c.Context(), input.UploadID)
	WriteResponse(c, nil, err)
	return nil
}
