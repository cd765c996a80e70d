package dto

// UploadInitInput khởi tạo một phiên upload nhiều part
type UploadInitInput struct {
	ObjectKey  string `json:"objectKey" validate:"required,min=1,max=512"`
	TotalParts int    `json:"totalParts" validate:"required,min=1,max=10000"`
	TotalSize  int64  `json:"totalSize" validate:"required,min=1"`
}

// UploadCompleteInput hoàn tất một phiên upload.
// Thiếu part nào server trả về danh sách missingParts trong details.
type UploadCompleteInput struct {
	UploadID string `json:"uploadId" validate:"required,uuid4"`
}

// UploadAbortInput hủy một phiên upload và dọn các part đã nhận
type UploadAbortInput struct {
	UploadID string `json:"uploadId" validate:"required,uuid4"`
}
