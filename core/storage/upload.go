package storage

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"dub_studio/config"
	"dub_studio/core/common"
	"dub_studio/core/logger"
	"dub_studio/core/registry"
	"dub_studio/core/utility"

	"github.com/google/uuid"
)

// UploadSession theo dõi một phiên multipart upload đang diễn ra.
// Session chỉ sống trong bộ nhớ của process; server restart thì client
// phải init lại phiên upload.
type UploadSession struct {
	UploadID   string // ID phiên upload, cấp cho client (UUID)
	RemoteID   string // Upload ID phía object storage
	ObjectKey  string // Key của object đích trong bucket
	TotalParts int    // Tổng số parts client đã khai báo
	CreatedAt  int64  // UnixMilli

	mu    sync.Mutex
	parts map[int]PartInfo // các parts đã nhận, key là partNumber
}

// receivedParts trả về danh sách parts đã nhận, sắp theo partNumber.
func (s *UploadSession) receivedParts() []PartInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PartInfo, 0, len(s.parts))
	for _, p := range s.parts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PartNumber < out[j].PartNumber })
	return out
}

// missingParts trả về các partNumber còn thiếu trong dải 1..TotalParts.
func (s *UploadSession) missingParts() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var missing []int
	for n := 1; n <= s.TotalParts; n++ {
		if _, ok := s.parts[n]; !ok {
			missing = append(missing, n)
		}
	}
	return missing
}

// Coordinator điều phối các phiên multipart upload: giới hạn số part
// upload song song, giữ danh sách part đã nhận và kiểm tra tính liên tục
// trước khi hoàn tất.
type Coordinator struct {
	api      MultipartAPI
	bucket   string
	maxBytes int64
	partSize int64
	sessions *registry.Registry[*UploadSession]
	sem      chan struct{} // semaphore giới hạn số part upload đồng thời
}

// NewCoordinator khởi tạo coordinator từ cấu hình server.
func NewCoordinator(api MultipartAPI, c *config.Configuration) *Coordinator {
	workers := c.UploadWorkerCount
	if workers <= 0 {
		workers = 3
	}
	partSizeMB := c.UploadPartSizeMB
	if partSizeMB <= 0 {
		partSizeMB = 8
	}
	return &Coordinator{
		api:      api,
		bucket:   c.Storage_Bucket,
		maxBytes: int64(c.UploadMaxVideoMB) * 1024 * 1024,
		partSize: int64(partSizeMB) * 1024 * 1024,
		sessions: registry.NewRegistry[*UploadSession](),
		sem:      make(chan struct{}, workers),
	}
}

// PartSize trả về kích thước một part (bytes) mà caller dùng để chia
// file khi upload.
func (co *Coordinator) PartSize() int64 {
	return co.partSize
}

// Workers trả về số upload được phép chạy song song trong một batch.
func (co *Coordinator) Workers() int {
	return cap(co.sem)
}

// InitUpload mở một phiên multipart upload mới cho object đích.
// totalSize chỉ dùng để chặn sớm file vượt giới hạn; gap check cuối cùng
// dựa trên totalParts.
func (co *Coordinator) InitUpload(ctx context.Context, objectKey string, totalParts int, totalSize int64) (*UploadSession, error) {
	if objectKey == "" || totalParts <= 0 {
		return nil, common.NewError(
			common.ErrCodeValidationInput,
			"objectKey và totalParts là bắt buộc, totalParts phải > 0",
			common.StatusBadRequest,
			nil,
		)
	}
	if co.maxBytes > 0 && totalSize > co.maxBytes {
		return nil, common.NewError(
			common.ErrCodeValidationInput,
			fmt.Sprintf("Kích thước video %s vượt giới hạn %s", utility.FormatBytes(uint64(totalSize)), utility.FormatBytes(uint64(co.maxBytes))),
			common.StatusBadRequest,
			nil,
		)
	}

	remoteID, err := co.api.NewMultipartUpload(ctx, co.bucket, objectKey)
	if err != nil {
		return nil, err
	}

	session := &UploadSession{
		UploadID:   uuid.New().String(),
		RemoteID:   remoteID,
		ObjectKey:  objectKey,
		TotalParts: totalParts,
		CreatedAt:  utility.CurrentTimeInMilli(),
		parts:      make(map[int]PartInfo),
	}
	if _, err := co.sessions.Register(session.UploadID, session); err != nil {
		return nil, err
	}

	logger.GetAppLogger().WithFields(map[string]interface{}{
		"uploadId":   session.UploadID,
		"objectKey":  objectKey,
		"totalParts": totalParts,
	}).Info("Đã khởi tạo phiên multipart upload")
	return session, nil
}

// UploadChunk upload một part của phiên. Số part upload đồng thời bị giới
// hạn bởi semaphore; gửi lại cùng partNumber sẽ ghi đè part cũ (idempotent).
func (co *Coordinator) UploadChunk(ctx context.Context, uploadID string, partNumber int, data io.Reader, size int64) (PartInfo, error) {
	session, ok := co.sessions.Get(uploadID)
	if !ok {
		return PartInfo{}, common.ErrUploadNotFound
	}
	if partNumber < 1 || partNumber > session.TotalParts {
		return PartInfo{}, common.NewError(
			common.ErrCodeValidationInput,
			fmt.Sprintf("partNumber %d nằm ngoài dải hợp lệ 1..%d", partNumber, session.TotalParts),
			common.StatusBadRequest,
			nil,
		)
	}

	// Chờ slot upload, tôn trọng context của request
	select {
	case co.sem <- struct{}{}:
		defer func() { <-co.sem }()
	case <-ctx.Done():
		return PartInfo{}, common.NewError(
			common.ErrCodeStorageUpload,
			"Request bị hủy khi đang chờ slot upload",
			common.StatusServiceUnavailable,
			nil,
		)
	}

	part, err := co.api.PutObjectPart(ctx, co.bucket, session.ObjectKey, session.RemoteID, partNumber, data, size)
	if err != nil {
		return PartInfo{}, err
	}

	session.mu.Lock()
	session.parts[partNumber] = part
	session.mu.Unlock()
	return part, nil
}

// CompleteUpload hoàn tất phiên upload. Nếu dải parts 1..TotalParts còn
// khoảng trống, trả về ErrIncompleteUpload kèm danh sách part thiếu và
// giữ nguyên session để client upload bù.
func (co *Coordinator) CompleteUpload(ctx context.Context, uploadID string) (string, error) {
	session, ok := co.sessions.Get(uploadID)
	if !ok {
		return "", common.ErrUploadNotFound
	}

	if missing := session.missingParts(); len(missing) > 0 {
		return "", common.NewError(
			common.ErrCodeStorageUpload,
			fmt.Sprintf("Upload chưa đủ parts: thiếu %d/%d parts", len(missing), session.TotalParts),
			common.StatusBadRequest,
			map[string]interface{}{"missingParts": missing},
		)
	}

	key, err := co.api.CompleteMultipartUpload(ctx, co.bucket, session.ObjectKey, session.RemoteID, session.receivedParts())
	if err != nil {
		return "", err
	}

	_, _ = co.sessions.Clear(uploadID, nil)
	logger.GetAppLogger().WithFields(map[string]interface{}{
		"uploadId":  uploadID,
		"objectKey": key,
	}).Info("Đã hoàn tất multipart upload")
	return key, nil
}

// AbortUpload hủy phiên upload và dọn các part đã đẩy lên storage.
// Idempotent: hủy một phiên không tồn tại không phải là lỗi.
func (co *Coordinator) AbortUpload(ctx context.Context, uploadID string) error {
	session, ok := co.sessions.Get(uploadID)
	if !ok {
		return nil
	}
	if err := co.api.AbortMultipartUpload(ctx, co.bucket, session.ObjectKey, session.RemoteID); err != nil {
		return err
	}
	_, _ = co.sessions.Clear(uploadID, nil)
	return nil
}

// Progress trả về tiến độ của một phiên upload (số part đã nhận / tổng).
func (co *Coordinator) Progress(uploadID string) (received int, total int, err error) {
	session, ok := co.sessions.Get(uploadID)
	if !ok {
		return 0, 0, common.ErrUploadNotFound
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	return len(session.parts), session.TotalParts, nil
}

// RemoveObject xóa một object khỏi bucket, dùng khi dọn tài nguyên của
// project bị xóa.
func (co *Coordinator) RemoveObject(ctx context.Context, objectKey string) error {
	return co.api.RemoveObject(ctx, co.bucket, objectKey)
}
