package services

import (
	"context"
	"fmt"

	models "dub_studio/core/api/models/mongodb"
	"dub_studio/core/common"
	"dub_studio/core/global"
	"dub_studio/core/utility"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// JobService là cấu trúc chứa các phương thức liên quan đến Job Queue
type JobService struct {
	*BaseServiceMongoImpl[models.Job]
}

// NewJobService tạo mới JobService
func NewJobService() (*JobService, error) {
	collection, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.Jobs)
	if !exist {
		return nil, fmt.Errorf("failed to get jobs collection: %v", common.ErrNotFound)
	}

	return &JobService{
		BaseServiceMongoImpl: NewBaseServiceMongo[models.Job](collection),
	}, nil
}

// FindOneByJobID tìm job theo jobId (UUID cấp cho client)
func (s *JobService) FindOneByJobID(ctx context.Context, jobID string) (models.Job, error) {
	return s.FindOne(ctx, bson.M{"jobId": jobID}, nil)
}

// ClaimNext chọn và giành quyền xử lý job tiếp theo một cách atomic.
// Job được chọn khi: status="queued" hoặc "active" quá lâu (stale - worker
// có thể bị crash), và nextRetryAt là null hoặc đã đến thời điểm retry.
// Trả về ErrNotFound khi không còn job nào sẵn sàng.
func (s *JobService) ClaimNext(ctx context.Context, staleMinutes int) (models.Job, error) {
	now := utility.CurrentTimeInMilli()
	staleThreshold := now - int64(staleMinutes)*60*1000

	filter := bson.M{
		"$and": []bson.M{
			{
				"$or": []bson.M{
					{"status": models.JobStatusQueued},
					{
						"status":    models.JobStatusActive,
						"updatedAt": bson.M{"$lt": staleThreshold}, // Jobs active quá lâu
					},
				},
			},
			{
				"$or": []bson.M{
					{"nextRetryAt": nil},                 // Chưa có nextRetryAt (lần đầu)
					{"nextRetryAt": bson.M{"$lte": now}}, // Đã đến thời điểm retry
				},
			},
		},
	}

	update := bson.M{
		"$set": bson.M{
			"status":    models.JobStatusActive,
			"startedAt": now,
			"updatedAt": now,
		},
		"$inc": bson.M{"attempt": 1},
	}

	opts := options.FindOneAndUpdate().
		SetSort(bson.M{"createdAt": 1}).
		SetReturnDocument(options.After)

	var job models.Job
	err := s.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&job)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return job, common.ErrNotFound
		}
		return job, common.ConvertMongoError(err)
	}
	return job, nil
}

// CleanupCompleted xóa các jobs completed quá hạn retention (giờ) và
// trim số lượng completed vượt quá giới hạn keepRecent (giữ mới nhất).
func (s *JobService) CleanupCompleted(ctx context.Context, olderThanHours int, keepRecent int) (int64, error) {
	cutoff := utility.CurrentTimeInMilli() - int64(olderThanHours)*60*60*1000

	result, err := s.collection.DeleteMany(ctx, bson.M{
		"status":     models.JobStatusCompleted,
		"finishedAt": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, common.ConvertMongoError(err)
	}
	removed := result.DeletedCount

	// Trim: giữ lại tối đa keepRecent jobs completed mới nhất
	count, err := s.collection.CountDocuments(ctx, bson.M{"status": models.JobStatusCompleted})
	if err != nil {
		return removed, common.ConvertMongoError(err)
	}
	if excess := count - int64(keepRecent); excess > 0 {
		opts := options.Find().
			SetSort(bson.M{"finishedAt": 1}).
			SetLimit(excess).
			SetProjection(bson.M{"_id": 1})
		cursor, err := s.collection.Find(ctx, bson.M{"status": models.JobStatusCompleted}, opts)
		if err != nil {
			return removed, common.ConvertMongoError(err)
		}
		defer cursor.Close(ctx)

		var ids []interface{}
		for cursor.Next(ctx) {
			var doc struct {
				ID interface{} `bson:"_id"`
			}
			if err := cursor.Decode(&doc); err != nil {
				continue
			}
			ids = append(ids, doc.ID)
		}
		if len(ids) > 0 {
			trimResult, err := s.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
			if err != nil {
				return removed, common.ConvertMongoError(err)
			}
			removed += trimResult.DeletedCount
		}
	}

	return removed, nil
}

// CleanupFailed xóa các jobs failed đã quá hạn retention (ngày)
func (s *JobService) CleanupFailed(ctx context.Context, daysOld int) (int64, error) {
	cutoff := utility.CurrentTimeInMilli() - int64(daysOld)*24*60*60*1000

	result, err := s.collection.DeleteMany(ctx, bson.M{
		"status":    models.JobStatusFailed,
		"updatedAt": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, common.ConvertMongoError(err)
	}
	return result.DeletedCount, nil
}
