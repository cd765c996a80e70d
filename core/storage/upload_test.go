package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"dub_studio/config"
	"dub_studio/core/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMultipartAPI ghi nhận các lời gọi multipart trong bộ nhớ để test
// coordinator mà không cần object storage thật.
type fakeMultipartAPI struct {
	mu        sync.Mutex
	uploads   map[string][]PartInfo // remoteID -> parts đã nhận
	completed []string              // các objectKey đã complete
	aborted   []string              // các remoteID đã abort
	removed   []string              // các objectKey đã xóa
	nextID    int
}

func newFakeMultipartAPI() *fakeMultipartAPI {
	return &fakeMultipartAPI{uploads: make(map[string][]PartInfo)}
}

func (f *fakeMultipartAPI) NewMultipartUpload(ctx context.Context, bucket string, object string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	remoteID := fmt.Sprintf("remote-%d", f.nextID)
	f.uploads[remoteID] = nil
	return remoteID, nil
}

func (f *fakeMultipartAPI) PutObjectPart(ctx context.Context, bucket string, object string, uploadID string, partNumber int, data io.Reader, size int64) (PartInfo, error) {
	if _, err := io.Copy(io.Discard, data); err != nil {
		return PartInfo{}, err
	}
	part := PartInfo{PartNumber: partNumber, ETag: fmt.Sprintf("etag-%d", partNumber), Size: size}
	f.mu.Lock()
	f.uploads[uploadID] = append(f.uploads[uploadID], part)
	f.mu.Unlock()
	return part, nil
}

func (f *fakeMultipartAPI) CompleteMultipartUpload(ctx context.Context, bucket string, object string, uploadID string, parts []PartInfo) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, object)
	return object, nil
}

func (f *fakeMultipartAPI) AbortMultipartUpload(ctx context.Context, bucket string, object string, uploadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aborted = append(f.aborted, uploadID)
	return nil
}

func (f *fakeMultipartAPI) RemoveObject(ctx context.Context, bucket string, object string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, object)
	return nil
}

func newTestCoordinator(api MultipartAPI) *Coordinator {
	return NewCoordinator(api, &config.Configuration{
		Storage_Bucket:    "videos",
		UploadWorkerCount: 2,
		UploadMaxVideoMB:  1,
	})
}

func TestCoordinator_CauHinhBatch(t *testing.T) {
	co := newTestCoordinator(newFakeMultipartAPI())

	// Cấu hình test không khai báo UploadPartSizeMB nên dùng mặc định 8 MB
	assert.Equal(t, int64(8*1024*1024), co.PartSize())
	assert.Equal(t, 2, co.Workers())

	custom := NewCoordinator(newFakeMultipartAPI(), &config.Configuration{
		Storage_Bucket:    "videos",
		UploadWorkerCount: 5,
		UploadPartSizeMB:  16,
	})
	assert.Equal(t, int64(16*1024*1024), custom.PartSize())
	assert.Equal(t, 5, custom.Workers())
}

func TestCoordinator_UploadFlow(t *testing.T) {
	api := newFakeMultipartAPI()
	co := newTestCoordinator(api)
	ctx := context.Background()

	session, err := co.InitUpload(ctx, "videos/phim_hay/Ep_01.mp4", 3, 3*1024)
	require.NoError(t, err)
	require.NotEmpty(t, session.UploadID)

	for n := 1; n <= 3; n++ {
		_, err := co.UploadChunk(ctx, session.UploadID, n, bytes.NewReader([]byte("data")), 4)
		require.NoError(t, err)
	}

	received, total, err := co.Progress(session.UploadID)
	require.NoError(t, err)
	assert.Equal(t, 3, received)
	assert.Equal(t, 3, total)

	key, err := co.CompleteUpload(ctx, session.UploadID)
	require.NoError(t, err)
	assert.Equal(t, "videos/phim_hay/Ep_01.mp4", key)

	// Session bị dọn sau khi complete
	_, _, err = co.Progress(session.UploadID)
	assert.Error(t, err)
}

func TestCoordinator_CompleteThieuParts(t *testing.T) {
	api := newFakeMultipartAPI()
	co := newTestCoordinator(api)
	ctx := context.Background()

	session, err := co.InitUpload(ctx, "videos/phim_hay/Ep_02.mp4", 4, 4*1024)
	require.NoError(t, err)

	// Chỉ gửi part 1 và 3, để hổng part 2 và 4
	_, err = co.UploadChunk(ctx, session.UploadID, 1, bytes.NewReader([]byte("a")), 1)
	require.NoError(t, err)
	_, err = co.UploadChunk(ctx, session.UploadID, 3, bytes.NewReader([]byte("c")), 1)
	require.NoError(t, err)

	_, err = co.CompleteUpload(ctx, session.UploadID)
	require.Error(t, err)

	// Lỗi phải mang danh sách part thiếu để client upload bù
	var customErr *common.Error
	require.True(t, errors.As(err, &customErr))
	details, ok := customErr.Details.(map[string]interface{})
	require.True(t, ok, "details của lỗi thiếu parts phải là map")
	assert.Equal(t, []int{2, 4}, details["missingParts"])

	// Session vẫn sống, gửi bù rồi complete lại phải thành công
	_, err = co.UploadChunk(ctx, session.UploadID, 2, bytes.NewReader([]byte("b")), 1)
	require.NoError(t, err)
	_, err = co.UploadChunk(ctx, session.UploadID, 4, bytes.NewReader([]byte("d")), 1)
	require.NoError(t, err)

	_, err = co.CompleteUpload(ctx, session.UploadID)
	assert.NoError(t, err)
}

func TestCoordinator_GuiLaiCungPart(t *testing.T) {
	api := newFakeMultipartAPI()
	co := newTestCoordinator(api)
	ctx := context.Background()

	session, err := co.InitUpload(ctx, "videos/phim_hay/Ep_03.mp4", 2, 2*1024)
	require.NoError(t, err)

	// Gửi part 1 hai lần (retry), part cũ bị ghi đè chứ không tính trùng
	_, err = co.UploadChunk(ctx, session.UploadID, 1, bytes.NewReader([]byte("v1")), 2)
	require.NoError(t, err)
	_, err = co.UploadChunk(ctx, session.UploadID, 1, bytes.NewReader([]byte("v2")), 2)
	require.NoError(t, err)

	received, _, err := co.Progress(session.UploadID)
	require.NoError(t, err)
	assert.Equal(t, 1, received, "gửi lại cùng partNumber không được tính thành 2 parts")
}

func TestCoordinator_ValidateInput(t *testing.T) {
	api := newFakeMultipartAPI()
	co := newTestCoordinator(api)
	ctx := context.Background()

	t.Run("Thiếu objectKey hoặc totalParts", func(t *testing.T) {
		_, err := co.InitUpload(ctx, "", 3, 100)
		assert.Error(t, err)
		_, err = co.InitUpload(ctx, "videos/x.mp4", 0, 100)
		assert.Error(t, err)
	})

	t.Run("Video vượt giới hạn kích thước bị chặn sớm", func(t *testing.T) {
		_, err := co.InitUpload(ctx, "videos/to_qua.mp4", 3, 2*1024*1024)
		assert.Error(t, err)
	})

	t.Run("PartNumber ngoài dải khai báo", func(t *testing.T) {
		session, err := co.InitUpload(ctx, "videos/phim_hay/Ep_04.mp4", 2, 1024)
		require.NoError(t, err)

		_, err = co.UploadChunk(ctx, session.UploadID, 0, bytes.NewReader([]byte("x")), 1)
		assert.Error(t, err)
		_, err = co.UploadChunk(ctx, session.UploadID, 3, bytes.NewReader([]byte("x")), 1)
		assert.Error(t, err)
	})

	t.Run("Chunk vào phiên không tồn tại", func(t *testing.T) {
		_, err := co.UploadChunk(ctx, "khong-ton-tai", 1, bytes.NewReader([]byte("x")), 1)
		assert.Error(t, err)
	})
}

func TestCoordinator_Abort(t *testing.T) {
	api := newFakeMultipartAPI()
	co := newTestCoordinator(api)
	ctx := context.Background()

	session, err := co.InitUpload(ctx, "videos/phim_hay/Ep_05.mp4", 2, 1024)
	require.NoError(t, err)
	_, err = co.UploadChunk(ctx, session.UploadID, 1, bytes.NewReader([]byte("x")), 1)
	require.NoError(t, err)

	require.NoError(t, co.AbortUpload(ctx, session.UploadID))
	assert.Len(t, api.aborted, 1, "abort phải gọi xuống storage để dọn parts")

	// Session đã bị xóa, chunk tiếp theo bị từ chối
	_, err = co.UploadChunk(ctx, session.UploadID, 2, bytes.NewReader([]byte("y")), 1)
	assert.Error(t, err)

	// Abort lần nữa là no-op thành công (idempotent)
	assert.NoError(t, co.AbortUpload(ctx, session.UploadID))
	assert.Len(t, api.aborted, 1, "abort phiên đã xóa không được gọi xuống storage lần nữa")

	// Abort phiên chưa từng tồn tại cũng không phải lỗi
	assert.NoError(t, co.AbortUpload(ctx, "khong-ton-tai"))
}
