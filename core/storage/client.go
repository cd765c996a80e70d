// Package storage quản lý việc đẩy video nguồn lên object storage
// (S3-compatible) theo cơ chế multipart upload có điều phối.
package storage

import (
	"context"
	"fmt"
	"io"

	"dub_studio/config"
	"dub_studio/core/common"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// PartInfo mô tả một part đã upload thành công của một phiên multipart.
type PartInfo struct {
	PartNumber int    `json:"partNumber"`
	ETag       string `json:"etag"`
	Size       int64  `json:"size"`
}

// MultipartAPI trừu tượng hóa các thao tác multipart của object storage.
// Interface hẹp để coordinator test được bằng fake, implementation thật
// bọc minio Core API.
type MultipartAPI interface {
	NewMultipartUpload(ctx context.Context, bucket string, object string) (string, error)
	PutObjectPart(ctx context.Context, bucket string, object string, uploadID string, partNumber int, data io.Reader, size int64) (PartInfo, error)
	CompleteMultipartUpload(ctx context.Context, bucket string, object string, uploadID string, parts []PartInfo) (string, error)
	AbortMultipartUpload(ctx context.Context, bucket string, object string, uploadID string) error
	RemoveObject(ctx context.Context, bucket string, object string) error
}

// minioMultipart là implementation MultipartAPI dựa trên minio Core API.
type minioMultipart struct {
	core *minio.Core
}

// NewMultipartAPI khởi tạo client object storage từ cấu hình server.
func NewMultipartAPI(c *config.Configuration) (MultipartAPI, error) {
	core, err := minio.NewCore(c.Storage_Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.Storage_AccessKey, c.Storage_SecretKey, ""),
		Secure: c.Storage_UseSSL,
	})
	if err != nil {
		return nil, common.NewError(
			common.ErrCodeStorage,
			fmt.Sprintf("Không thể khởi tạo storage client tới %s", c.Storage_Endpoint),
			common.StatusServiceUnavailable,
			map[string]interface{}{"error": err.Error()},
		)
	}
	return &minioMultipart{core: core}, nil
}

func (m *minioMultipart) NewMultipartUpload(ctx context.Context, bucket string, object string) (string, error) {
	uploadID, err := m.core.NewMultipartUpload(ctx, bucket, object, minio.PutObjectOptions{})
	if err != nil {
		return "", convertStorageError(err)
	}
	return uploadID, nil
}

func (m *minioMultipart) PutObjectPart(ctx context.Context, bucket string, object string, uploadID string, partNumber int, data io.Reader, size int64) (PartInfo, error) {
	part, err := m.core.PutObjectPart(ctx, bucket, object, uploadID, partNumber, data, size, minio.PutObjectPartOptions{})
	if err != nil {
		return PartInfo{}, convertStorageError(err)
	}
	return PartInfo{
		PartNumber: part.PartNumber,
		ETag:       part.ETag,
		Size:       part.Size,
	}, nil
}

func (m *minioMultipart) CompleteMultipartUpload(ctx context.Context, bucket string, object string, uploadID string, parts []PartInfo) (string, error) {
	completeParts := make([]minio.CompletePart, 0, len(parts))
	for _, p := range parts {
		completeParts = append(completeParts, minio.CompletePart{
			PartNumber: p.PartNumber,
			ETag:       p.ETag,
		})
	}
	info, err := m.core.CompleteMultipartUpload(ctx, bucket, object, uploadID, completeParts, minio.PutObjectOptions{})
	if err != nil {
		return "", convertStorageError(err)
	}
	return info.Key, nil
}

func (m *minioMultipart) AbortMultipartUpload(ctx context.Context, bucket string, object string, uploadID string) error {
	if err := m.core.AbortMultipartUpload(ctx, bucket, object, uploadID); err != nil {
		return convertStorageError(err)
	}
	return nil
}

func (m *minioMultipart) RemoveObject(ctx context.Context, bucket string, object string) error {
	if err := m.core.Client.RemoveObject(ctx, bucket, object, minio.RemoveObjectOptions{}); err != nil {
		return convertStorageError(err)
	}
	return nil
}

// convertStorageError chuyển lỗi từ storage backend về error taxonomy chung.
func convertStorageError(err error) error {
	if err == nil {
		return nil
	}
	return common.NewError(
		common.ErrCodeStorageUpload,
		"Object storage không khả dụng",
		common.StatusServiceUnavailable,
		map[string]interface{}{"error": err.Error()},
	)
}
