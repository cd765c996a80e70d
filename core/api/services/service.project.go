package services

import (
	"context"
	"errors"
	"fmt"

	models "dub_studio/core/api/models/mongodb"
	"dub_studio/core/common"
	"dub_studio/core/global"
	"dub_studio/core/logger"
	"dub_studio/core/tenant"
	"dub_studio/core/utility"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ObjectRemover xóa một object khỏi storage, dùng khi cascade delete project.
type ObjectRemover interface {
	RemoveObject(ctx context.Context, objectKey string) error
}

// ProjectService là cấu trúc chứa các phương thức liên quan đến Project
type ProjectService struct {
	*BaseServiceMongoImpl[models.Project]
	objects ObjectRemover
}

// NewProjectService tạo mới ProjectService.
// objects có thể nil khi không cần cascade delete storage (ví dụ trong tests).
func NewProjectService(objects ObjectRemover) (*ProjectService, error) {
	collection, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.Projects)
	if !exist {
		return nil, fmt.Errorf("failed to get projects collection: %v", common.ErrNotFound)
	}

	return &ProjectService{
		BaseServiceMongoImpl: NewBaseServiceMongo[models.Project](collection),
		objects:              objects,
	}, nil
}

// nextProjectNumber cấp số thứ tự project tiếp theo (max + 1).
// Số này là prefix ổn định của mọi dialogue number trong project.
func (s *ProjectService) nextProjectNumber(ctx context.Context) (int, error) {
	opts := options.FindOne().SetSort(bson.M{"projectNumber": -1})
	last, err := s.FindOne(ctx, bson.M{}, opts)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return 1, nil
		}
		return 0, err
	}
	return last.ProjectNumber + 1, nil
}

// maxProjectNumberAttempts giới hạn số lần cấp lại projectNumber khi hai
// request tạo project đồng thời tranh nhau cùng một số.
const maxProjectNumberAttempts = 3

// CreateProject tạo project mới với slug chuẩn hóa từ title và
// databaseName bất biến dub_<slug>. Trùng databaseName trả về Conflict
// (unique index đảm bảo kể cả khi hai request tạo đồng thời). Trùng
// projectNumber là race cấp số giữa hai request - cấp lại số và insert lại.
func (s *ProjectService) CreateProject(ctx context.Context, title string, assignments []models.ProjectAssignment, createdBy string) (*models.Project, error) {
	slug := utility.SanitizeSlug(title)
	if slug == "" {
		return nil, common.NewError(
			common.ErrCodeValidationInput,
			"Title không chứa ký tự hợp lệ nào để tạo slug",
			common.StatusBadRequest,
			nil,
		)
	}

	for attempt := 1; attempt <= maxProjectNumberAttempts; attempt++ {
		projectNumber, err := s.nextProjectNumber(ctx)
		if err != nil {
			return nil, err
		}

		project := models.Project{
			Title:         title,
			Slug:          slug,
			DatabaseName:  tenant.DatabaseNameFor(slug),
			ProjectNumber: projectNumber,
			Episodes:      []models.EpisodeSummary{},
			Assignments:   assignments,
			Status:        models.ProjectStatusInitializing,
			CreatedBy:     createdBy,
		}

		created, err := s.InsertOne(ctx, project)
		if err == nil {
			return &created, nil
		}
		if !errors.Is(err, common.ErrMongoDuplicate) {
			return nil, err
		}
		// Index nào fired quyết định cách phản hồi: projectNumber là race
		// cấp số (cấp lại và thử tiếp), còn lại là trùng databaseName thật
		if common.DuplicateKeyIndex(err) != "projectNumber_unique" {
			return nil, common.NewError(
				common.ErrCodeDatabaseQuery,
				fmt.Sprintf("Project với database name '%s' đã tồn tại", project.DatabaseName),
				common.StatusConflict,
				nil,
			)
		}
	}

	return nil, common.NewError(
		common.ErrCodeDatabaseQuery,
		"Không thể cấp projectNumber sau nhiều lần thử, vui lòng thử lại",
		common.StatusConflict,
		nil,
	)
}

// FindProject tìm project theo ID, trả về con trỏ để dùng với tenant router.
func (s *ProjectService) FindProject(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	project, err := s.FindOneById(ctx, id)
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// FindProjectByNumber tìm project theo projectNumber - prefix của mọi
// dialogue number, dùng để route request dialogue về đúng tenant.
func (s *ProjectService) FindProjectByNumber(ctx context.Context, number int) (*models.Project, error) {
	project, err := s.FindOne(ctx, bson.M{"projectNumber": number}, nil)
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// AddEpisodeSummary thêm summary của một episode vừa tạo vào project và
// chuyển project sang trạng thái in_progress.
func (s *ProjectService) AddEpisodeSummary(ctx context.Context, projectID primitive.ObjectID, summary models.EpisodeSummary) error {
	updateData := UpdateData{
		Set: map[string]interface{}{
			"status":    models.ProjectStatusInProgress,
			"updatedAt": utility.CurrentTimeInMilli(),
		},
		Push: map[string]interface{}{
			"episodes": summary,
		},
	}
	_, err := s.UpdateById(ctx, projectID, updateData)
	return err
}

// UpdateEpisodeSummaryStatus cập nhật status của một episode trong danh
// sách summary của project.
func (s *ProjectService) UpdateEpisodeSummaryStatus(ctx context.Context, projectID primitive.ObjectID, episodeID primitive.ObjectID, status string) error {
	filter := bson.M{"_id": projectID, "episodes.episodeId": episodeID}
	update := UpdateData{
		Set: map[string]interface{}{
			"episodes.$.status": status,
			"updatedAt":         utility.CurrentTimeInMilli(),
		},
	}
	_, err := s.UpdateOne(ctx, filter, update, nil)
	return err
}

// DeleteProject xóa project theo kiểu cascade: drop database tenant, xóa
// các video objects trên storage (lỗi xóa object từng phần được chấp
// nhận và chỉ log), cuối cùng xóa document project và giải phóng các
// handle đã cache.
func (s *ProjectService) DeleteProject(ctx context.Context, project *models.Project) error {
	log := logger.GetAppLogger()

	// Drop database tenant trước - dữ liệu dialogue không còn ý nghĩa
	// khi project bị xóa
	if err := global.MongoDB_Session.Database(project.DatabaseName).Drop(ctx); err != nil {
		return common.ConvertMongoError(err)
	}

	// Xóa video objects - thất bại từng object không chặn việc xóa project
	if s.objects != nil {
		for _, ep := range project.Episodes {
			if ep.VideoKey == "" {
				continue
			}
			if err := s.objects.RemoveObject(ctx, ep.VideoKey); err != nil {
				log.WithFields(map[string]interface{}{
					"projectId": project.ID.Hex(),
					"videoKey":  ep.VideoKey,
				}).Warnf("Không thể xóa video object khi cascade delete: %v", err)
			}
		}
	}

	if err := s.DeleteById(ctx, project.ID); err != nil {
		return err
	}

	tenant.ReleaseProject(project)
	return nil
}
