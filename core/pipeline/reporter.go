package pipeline

import (
	"context"
	"errors"

	models "dub_studio/core/api/models/mongodb"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProjectFinder tra cứu project cho các job đã claim từ queue.
type ProjectFinder interface {
	FindProject(ctx context.Context, id primitive.ObjectID) (*models.Project, error)
}

// EpisodeFinder tra cứu episode trong database tenant của project.
type EpisodeFinder interface {
	FindEpisode(ctx context.Context, project *models.Project, id primitive.ObjectID) (*models.Episode, error)
}

// JobReporter nối kết quả job queue về step sở hữu trên Episode, đi qua
// cùng đường CompleteStep/FailStep với các step đồng bộ để hai đường có
// chung post-condition.
type JobReporter struct {
	orch     *Orchestrator
	projects ProjectFinder
	episodes EpisodeFinder
}

// NewJobReporter tạo mới JobReporter.
func NewJobReporter(orch *Orchestrator, projects ProjectFinder, episodes EpisodeFinder) *JobReporter {
	return &JobReporter{
		orch:     orch,
		projects: projects,
		episodes: episodes,
	}
}

// resolve tra cứu project và episode sở hữu của một job.
func (r *JobReporter) resolve(ctx context.Context, job *models.Job) (*models.Project, *models.Episode, error) {
	project, err := r.projects.FindProject(ctx, job.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	episode, err := r.episodes.FindEpisode(ctx, project, job.EpisodeID)
	if err != nil {
		return nil, nil, err
	}
	return project, episode, nil
}

// ReportJobCompleted đánh dấu step sở hữu completed với output của job.
func (r *JobReporter) ReportJobCompleted(ctx context.Context, job *models.Job, output map[string]interface{}) error {
	project, episode, err := r.resolve(ctx, job)
	if err != nil {
		return err
	}
	_, err = r.orch.CompleteStep(ctx, project, episode, job.Step, output)
	return err
}

// ReportJobFailed ghi lỗi cuối cùng của job lên step sở hữu. FailStep
// luôn trả về lỗi đã phân loại cho caller HTTP; ở đây lỗi đó chỉ xác
// nhận việc ghi đã diễn ra nên không lan tiếp.
func (r *JobReporter) ReportJobFailed(ctx context.Context, job *models.Job, message string) error {
	project, episode, err := r.resolve(ctx, job)
	if err != nil {
		return err
	}
	_ = r.orch.FailStep(ctx, project, episode, job.Step, errors.New(message))
	return nil
}
