package services

import (
	"context"
	"errors"
	"fmt"

	models "dub_studio/core/api/models/mongodb"
	"dub_studio/core/common"
	"dub_studio/core/global"
	"dub_studio/core/tenant"
	"dub_studio/core/utility"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// EpisodeService là cấu trúc chứa các phương thức liên quan đến Episode.
// Episodes nằm trong database tenant của từng project nên mọi thao tác
// đều resolve collection qua tenant router thay vì giữ một collection cố định.
type EpisodeService struct {
	projects *ProjectService
}

// NewEpisodeService tạo mới EpisodeService
func NewEpisodeService(projects *ProjectService) *EpisodeService {
	return &EpisodeService{projects: projects}
}

// episodes trả về base service trên collection episodes của project.
func (s *EpisodeService) episodes(ctx context.Context, project *models.Project) (*BaseServiceMongoImpl[models.Episode], error) {
	coll, err := tenant.ResolveEpisodesCollection(ctx, project)
	if err != nil {
		return nil, err
	}
	return NewBaseServiceMongo[models.Episode](coll), nil
}

// CreateEpisode tạo episode mới cùng collection dialogue của nó.
// Episode document và episode summary trên Project được ghi trong cùng
// một transaction để crash giữa chừng không để lại Project trỏ tới
// episode tạo dở.
func (s *EpisodeService) CreateEpisode(ctx context.Context, project *models.Project, name string, number int, videoKey string) (*models.Episode, error) {
	if number < 1 || number > 99 {
		return nil, common.NewError(
			common.ErrCodeValidationInput,
			fmt.Sprintf("Số episode %d nằm ngoài dải hợp lệ 1..99", number),
			common.StatusBadRequest,
			nil,
		)
	}

	collectionName := tenant.CollectionNameFor(project.Slug, number)

	// Tạo collection dialogue trước (idempotent) - collection rỗng không
	// gây hại nếu transaction bên dưới thất bại
	if _, err := tenant.ResolveCollection(ctx, project, collectionName); err != nil {
		return nil, err
	}

	svc, err := s.episodes(ctx, project)
	if err != nil {
		return nil, err
	}

	episode := models.Episode{
		ProjectID:      project.ID,
		Name:           name,
		Number:         number,
		Status:         models.EpisodeStatusUploaded,
		Step:           1,
		Step1:          models.StepState{Status: models.StepStatusPending},
		Step2:          models.StepState{Status: models.StepStatusPending},
		Step3:          models.StepState{Status: models.StepStatusPending},
		Step4:          models.StepState{Status: models.StepStatusPending},
		Step5:          models.StepState{Status: models.StepStatusPending},
		VideoKey:       videoKey,
		CollectionName: collectionName,
	}

	session, err := global.MongoDB_Session.StartSession()
	if err != nil {
		return nil, common.ConvertMongoError(err)
	}
	defer session.EndSession(ctx)

	var created models.Episode
	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		created, err = svc.InsertOne(sessCtx, episode)
		if err != nil {
			return nil, err
		}

		summary := models.EpisodeSummary{
			EpisodeID:      created.ID,
			Name:           created.Name,
			Number:         created.Number,
			CollectionName: created.CollectionName,
			VideoKey:       created.VideoKey,
			Status:         created.Status,
		}
		if err := s.projects.AddEpisodeSummary(sessCtx, project.ID, summary); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		if errors.Is(err, common.ErrMongoDuplicate) {
			return nil, common.NewError(
				common.ErrCodeDatabaseQuery,
				fmt.Sprintf("Episode với collection '%s' đã tồn tại trong project", collectionName),
				common.StatusConflict,
				nil,
			)
		}
		return nil, err
	}
	return &created, nil
}

// FindEpisode tìm episode theo ID trong database tenant của project.
func (s *EpisodeService) FindEpisode(ctx context.Context, project *models.Project, id primitive.ObjectID) (*models.Episode, error) {
	svc, err := s.episodes(ctx, project)
	if err != nil {
		return nil, err
	}
	episode, err := svc.FindOneById(ctx, id)
	if err != nil {
		return nil, err
	}
	return &episode, nil
}

// ListEpisodes trả về tất cả episodes của project.
func (s *EpisodeService) ListEpisodes(ctx context.Context, project *models.Project) ([]models.Episode, error) {
	svc, err := s.episodes(ctx, project)
	if err != nil {
		return nil, err
	}
	return svc.Find(ctx, bson.M{"projectId": project.ID}, nil)
}

// SaveStep ghi sub-document của một step và cập nhật status/step counter
// của Episode trong cùng một update. Đồng thời đồng bộ status vào
// episode summary trên Project (best effort).
func (s *EpisodeService) SaveStep(ctx context.Context, project *models.Project, episodeID primitive.ObjectID, step int, state models.StepState, episodeStatus string, currentStep int) (*models.Episode, error) {
	field := models.StepFieldName(step)
	if field == "" {
		return nil, common.ErrInvalidInput
	}

	svc, err := s.episodes(ctx, project)
	if err != nil {
		return nil, err
	}

	updateData := UpdateData{
		Set: map[string]interface{}{
			field:       state,
			"status":    episodeStatus,
			"step":      currentStep,
			"updatedAt": utility.CurrentTimeInMilli(),
		},
	}
	updated, err := svc.UpdateById(ctx, episodeID, updateData)
	if err != nil {
		return nil, err
	}

	// Summary trên Project chỉ là bản chiếu - lỗi đồng bộ không chặn pipeline
	_ = s.projects.UpdateEpisodeSummaryStatus(ctx, project.ID, episodeID, episodeStatus)

	return &updated, nil
}

// ResetPipeline đưa Episode về trạng thái sẵn sàng chạy lại từ step 1:
// mọi step về pending, step counter về 1, status về uploaded.
func (s *EpisodeService) ResetPipeline(ctx context.Context, project *models.Project, episodeID primitive.ObjectID) (*models.Episode, error) {
	svc, err := s.episodes(ctx, project)
	if err != nil {
		return nil, err
	}

	pending := models.StepState{Status: models.StepStatusPending}
	updateData := UpdateData{
		Set: map[string]interface{}{
			"step1":     pending,
			"step2":     pending,
			"step3":     pending,
			"step4":     pending,
			"step5":     pending,
			"step":      1,
			"status":    models.EpisodeStatusUploaded,
			"updatedAt": utility.CurrentTimeInMilli(),
		},
	}
	updated, err := svc.UpdateById(ctx, episodeID, updateData)
	if err != nil {
		return nil, err
	}

	_ = s.projects.UpdateEpisodeSummaryStatus(ctx, project.ID, episodeID, models.EpisodeStatusUploaded)
	return &updated, nil
}

// DeleteEpisode xóa episode và collection dialogue của nó, đồng thời gỡ
// summary khỏi Project trong cùng một transaction.
func (s *EpisodeService) DeleteEpisode(ctx context.Context, project *models.Project, episode *models.Episode) error {
	svc, err := s.episodes(ctx, project)
	if err != nil {
		return err
	}

	session, err := global.MongoDB_Session.StartSession()
	if err != nil {
		return common.ConvertMongoError(err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		if err := svc.DeleteById(sessCtx, episode.ID); err != nil {
			return nil, err
		}
		pull := bson.M{
			"$pull": bson.M{"episodes": bson.M{"episodeId": episode.ID}},
			"$set":  bson.M{"updatedAt": utility.CurrentTimeInMilli()},
		}
		if _, err := s.projects.Collection().UpdateOne(sessCtx, bson.M{"_id": project.ID}, pull); err != nil {
			return nil, common.ConvertMongoError(err)
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	// Drop collection dialogue ngoài transaction (DDL không nằm trong
	// transaction của MongoDB)
	db, err := tenant.ResolveDatabase(project)
	if err != nil {
		return err
	}
	if err := db.Collection(episode.CollectionName).Drop(ctx); err != nil {
		return common.ConvertMongoError(err)
	}
	_, _ = global.RegistryCollections.Clear(project.DatabaseName+"/"+episode.CollectionName, nil)
	return nil
}
