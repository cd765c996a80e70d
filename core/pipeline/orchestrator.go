package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"

	models "dub_studio/core/api/models/mongodb"
	"dub_studio/core/common"
	"dub_studio/core/logger"
	"dub_studio/core/notification"
	"dub_studio/core/utility"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EpisodeStore là phần persistence mà orchestrator cần từ episode service.
type EpisodeStore interface {
	// SaveStep ghi sub-document của một step và cập nhật status/step counter
	// của Episode trong cùng một update, trả về Episode sau cập nhật.
	SaveStep(ctx context.Context, project *models.Project, episodeID primitive.ObjectID, step int, state models.StepState, episodeStatus string, currentStep int) (*models.Episode, error)
	// ResetPipeline đưa Episode về trạng thái sẵn sàng chạy lại từ step 1.
	ResetPipeline(ctx context.Context, project *models.Project, episodeID primitive.ObjectID) (*models.Episode, error)
}

// SceneStore là phần đọc/ghi dialogue mà orchestrator cần.
type SceneStore interface {
	ListScenes(ctx context.Context, project *models.Project, collectionName string) ([]models.SceneDoc, error)
	ApplyTranslations(ctx context.Context, project *models.Project, collectionName string, drafts []TranslationDraft) error
}

// JobEnqueuer đẩy công việc bất đồng bộ vào job queue.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, projectID primitive.ObjectID, episodeID primitive.ObjectID, step int, jobType string, payload map[string]interface{}) (string, error)
}

// StepInput là input tùy chọn cho một lần chạy step.
type StepInput struct {
	ResetCycle bool                   // step 3: đưa Episode về sẵn sàng chạy lại từ step 1
	Params     map[string]interface{} // tham số tự do, lưu vào StepState.Input
}

// StepResult là kết quả của một lần chạy step.
type StepResult struct {
	Episode *models.Episode
	JobID   string // khác rỗng khi step được dispatch bất đồng bộ qua job queue
}

// Orchestrator điều phối pipeline 5 bước của Episode. Mỗi lần chạy step
// đều đi qua precondition check và state machine; lỗi được ghi bền vững
// lên sub-document của step, không chỉ log.
type Orchestrator struct {
	episodes   EpisodeStore
	scenes     SceneStore
	queue      JobEnqueuer
	translator *TranslationClient
	voices     *VoiceClient
	sink       notification.Sink
}

// NewOrchestrator khởi tạo orchestrator với đầy đủ dependencies.
func NewOrchestrator(episodes EpisodeStore, scenes SceneStore, queue JobEnqueuer, translator *TranslationClient, voices *VoiceClient, sink notification.Sink) *Orchestrator {
	if sink == nil {
		sink = notification.NopSink{}
	}
	return &Orchestrator{
		episodes:   episodes,
		scenes:     scenes,
		queue:      queue,
		translator: translator,
		voices:     voices,
		sink:       sink,
	}
}

// RunStep chạy step n của một Episode. Step 1 được dispatch bất đồng bộ
// qua job queue (kết quả có JobID); các step còn lại chạy đồng bộ và
// block tới khi step completed hoặc error.
func (o *Orchestrator) RunStep(ctx context.Context, project *models.Project, episode *models.Episode, step int, input StepInput) (*StepResult, error) {
	if err := CheckPrecondition(episode, step); err != nil {
		return nil, err
	}

	current := ""
	if state := episode.StepStateAt(step); state != nil {
		current = state.Status
	}
	if err := CheckStepTransition(current, models.StepStatusProcessing); err != nil {
		return nil, err
	}

	// Đánh dấu step đang chạy trước khi làm bất kỳ việc gì
	processing := models.StepState{
		Status:    models.StepStatusProcessing,
		Input:     input.Params,
		StartedAt: utility.CurrentTimeInMilli(),
	}
	episode, err := o.episodes.SaveStep(ctx, project, episode.ID, step, processing, models.EpisodeStatusProcessing, episode.Step)
	if err != nil {
		return nil, err
	}

	switch step {
	case 1:
		return o.dispatchCleanAudio(ctx, project, episode)
	case 2:
		return o.runPrepareClips(ctx, project, episode)
	case 3:
		return o.runFinalize(ctx, project, episode, input)
	case 4:
		return o.runTranslate(ctx, project, episode)
	case 5:
		return o.runVoiceAssignment(ctx, project, episode)
	}
	return nil, common.ErrInvalidInput
}

// dispatchCleanAudio đẩy job tách/làm sạch audio vào queue. Step giữ
// trạng thái processing cho tới khi job worker hoàn tất (hoặc job thất
// bại hết số lần thử và worker ghi error lên step).
func (o *Orchestrator) dispatchCleanAudio(ctx context.Context, project *models.Project, episode *models.Episode) (*StepResult, error) {
	payload := map[string]interface{}{
		"videoKey":       episode.VideoKey,
		"collectionName": episode.CollectionName,
	}
	jobID, err := o.queue.Enqueue(ctx, project.ID, episode.ID, 1, models.JobTypeCleanAudio, payload)
	if err != nil {
		return nil, o.FailStep(ctx, project, episode, 1, fmt.Errorf("không thể enqueue job clean audio: %w", err))
	}
	return &StepResult{Episode: episode, JobID: jobID}, nil
}

// runPrepareClips cắt video thành các clip theo từng dialogue dựa trên
// timeIn/timeOut đã có trong các scene documents.
func (o *Orchestrator) runPrepareClips(ctx context.Context, project *models.Project, episode *models.Episode) (*StepResult, error) {
	scenes, err := o.scenes.ListScenes(ctx, project, episode.CollectionName)
	if err != nil {
		return nil, o.FailStep(ctx, project, episode, 2, fmt.Errorf("không thể đọc scenes: %w", err))
	}

	clips := make([]map[string]interface{}, 0)
	for _, scene := range scenes {
		for _, d := range scene.Dialogues {
			clips = append(clips, map[string]interface{}{
				"dialogueNumber": d.DialogueNumber,
				"clipKey":        fmt.Sprintf("clips/%s/%s.mp4", episode.CollectionName, d.DialogueNumber),
				"timeIn":         d.TimeIn,
				"timeOut":        d.TimeOut,
			})
		}
	}

	output := map[string]interface{}{
		"clips":     clips,
		"clipCount": len(clips),
	}
	episode, err = o.CompleteStep(ctx, project, episode, 2, output)
	if err != nil {
		return nil, err
	}
	return &StepResult{Episode: episode}, nil
}

// runFinalize là validation pass của step 3: kiểm tra output của step 1
// và step 2 tồn tại. Nếu resetCycle được yêu cầu, đưa Episode về sẵn
// sàng chạy lại từ step 1 thay vì đánh dấu completed.
func (o *Orchestrator) runFinalize(ctx context.Context, project *models.Project, episode *models.Episode, input StepInput) (*StepResult, error) {
	step1 := episode.StepStateAt(1)
	step2 := episode.StepStateAt(2)
	if step1 == nil || len(step1.Output) == 0 || step2 == nil || len(step2.Output) == 0 {
		return nil, o.FailStep(ctx, project, episode, 3, errors.New("output của step 1 hoặc step 2 không tồn tại, không thể finalize"))
	}

	if input.ResetCycle {
		episode, err := o.episodes.ResetPipeline(ctx, project, episode.ID)
		if err != nil {
			return nil, err
		}
		logger.GetAppLogger().WithFields(map[string]interface{}{
			"episodeId": episode.ID.Hex(),
		}).Info("Đã reset Episode về sẵn sàng chạy lại từ step 1")
		return &StepResult{Episode: episode}, nil
	}

	episode, err := o.CompleteStep(ctx, project, episode, 3, map[string]interface{}{"validated": true})
	if err != nil {
		return nil, err
	}
	return &StepResult{Episode: episode}, nil
}

// runTranslate gom các dòng thoại đã có original text, gửi dịch vụ dịch
// thuật và ghi bản dịch nháp ngược vào các scene documents.
func (o *Orchestrator) runTranslate(ctx context.Context, project *models.Project, episode *models.Episode) (*StepResult, error) {
	scenes, err := o.scenes.ListScenes(ctx, project, episode.CollectionName)
	if err != nil {
		return nil, o.FailStep(ctx, project, episode, 4, fmt.Errorf("không thể đọc scenes: %w", err))
	}

	lines := make([]TranslationLine, 0)
	for _, scene := range scenes {
		for _, d := range scene.Dialogues {
			if d.Original == "" {
				continue
			}
			lines = append(lines, TranslationLine{
				DialogueNumber: d.DialogueNumber,
				Character:      d.Character,
				Original:       d.Original,
			})
		}
	}

	drafts, err := o.translator.Translate(ctx, project.ID.Hex(), episode.ID.Hex(), episode.CollectionName, lines)
	if err != nil {
		return nil, o.FailStep(ctx, project, episode, 4, err)
	}

	if err := o.scenes.ApplyTranslations(ctx, project, episode.CollectionName, drafts); err != nil {
		return nil, o.FailStep(ctx, project, episode, 4, fmt.Errorf("không thể ghi bản dịch nháp: %w", err))
	}

	output := map[string]interface{}{
		"lineCount":  len(lines),
		"draftCount": len(drafts),
	}
	episode, err = o.CompleteStep(ctx, project, episode, 4, output)
	if err != nil {
		return nil, err
	}
	return &StepResult{Episode: episode}, nil
}

// runVoiceAssignment rút danh sách nhân vật từ các dialogues, gọi dịch
// vụ gán giọng và ghi mapping character -> voice vào output của step 5.
func (o *Orchestrator) runVoiceAssignment(ctx context.Context, project *models.Project, episode *models.Episode) (*StepResult, error) {
	scenes, err := o.scenes.ListScenes(ctx, project, episode.CollectionName)
	if err != nil {
		return nil, o.FailStep(ctx, project, episode, 5, fmt.Errorf("không thể đọc scenes: %w", err))
	}

	seen := map[string]bool{}
	characters := make([]string, 0)
	for _, scene := range scenes {
		for _, d := range scene.Dialogues {
			if d.Character == "" || seen[d.Character] {
				continue
			}
			seen[d.Character] = true
			characters = append(characters, d.Character)
		}
	}
	sort.Strings(characters)

	assignments, err := o.voices.AssignVoices(ctx, project.ID.Hex(), episode.ID.Hex(), characters)
	if err != nil {
		return nil, o.FailStep(ctx, project, episode, 5, err)
	}

	episode, err = o.completeVoiceStep(ctx, project, episode, assignments, false)
	if err != nil {
		return nil, err
	}
	return &StepResult{Episode: episode}, nil
}

// ApplyManualVoiceAssignments là đường manual override của step 5: người
// dùng submit trực tiếp mapping character -> voice, bỏ qua dịch vụ ngoài.
// Hai đường (tự động và manual) hội tụ về cùng một post-condition.
func (o *Orchestrator) ApplyManualVoiceAssignments(ctx context.Context, project *models.Project, episode *models.Episode, assignments []VoiceAssignment) (*models.Episode, error) {
	if len(assignments) == 0 {
		return nil, common.NewError(
			common.ErrCodeValidationInput,
			"Danh sách voice assignments không được rỗng",
			common.StatusBadRequest,
			nil,
		)
	}
	for i, a := range assignments {
		if a.Character == "" || a.VoiceID == "" {
			return nil, common.NewError(
				common.ErrCodeValidationInput,
				fmt.Sprintf("Assignment thứ %d thiếu character hoặc voiceId", i+1),
				common.StatusBadRequest,
				nil,
			)
		}
	}

	if err := CheckPrecondition(episode, 5); err != nil {
		return nil, err
	}
	current := ""
	if state := episode.StepStateAt(5); state != nil {
		current = state.Status
	}
	if err := CheckStepTransition(current, models.StepStatusProcessing); err != nil {
		return nil, err
	}

	processing := models.StepState{
		Status:    models.StepStatusProcessing,
		Input:     map[string]interface{}{"manual": true},
		StartedAt: utility.CurrentTimeInMilli(),
	}
	episode, err := o.episodes.SaveStep(ctx, project, episode.ID, 5, processing, models.EpisodeStatusProcessing, episode.Step)
	if err != nil {
		return nil, err
	}

	return o.completeVoiceStep(ctx, project, episode, assignments, true)
}

// completeVoiceStep chốt step 5 với mapping giọng - post-condition chung
// của cả đường tự động lẫn manual.
func (o *Orchestrator) completeVoiceStep(ctx context.Context, project *models.Project, episode *models.Episode, assignments []VoiceAssignment, manual bool) (*models.Episode, error) {
	out := make([]map[string]interface{}, 0, len(assignments))
	for _, a := range assignments {
		entry := map[string]interface{}{
			"character": a.Character,
			"voiceId":   a.VoiceID,
		}
		if a.Notes != "" {
			entry["notes"] = a.Notes
		}
		out = append(out, entry)
	}
	output := map[string]interface{}{
		"assignments": out,
		"manual":      manual,
	}
	return o.CompleteStep(ctx, project, episode, 5, output)
}

// CompleteStep đánh dấu step completed, ghi output và tiến step counter
// của Episode nếu step vừa hoàn thành là step hiện tại. Job worker của
// step 1 cũng đi qua đường này để hai đường đồng bộ/bất đồng bộ có cùng
// post-condition.
func (o *Orchestrator) CompleteStep(ctx context.Context, project *models.Project, episode *models.Episode, step int, output map[string]interface{}) (*models.Episode, error) {
	state := models.StepState{
		Status:     models.StepStatusCompleted,
		Output:     output,
		FinishedAt: utility.CurrentTimeInMilli(),
	}
	if prev := episode.StepStateAt(step); prev != nil {
		state.Input = prev.Input
		state.StartedAt = prev.StartedAt
	}

	currentStep := episode.Step
	if step >= currentStep {
		currentStep = step + 1
	}

	updated, err := o.episodes.SaveStep(ctx, project, episode.ID, step, state, models.EpisodeStatusProcessing, currentStep)
	if err != nil {
		return nil, err
	}

	o.sink.Publish(ctx, notification.Event{
		Type:      notification.EventStepCompleted,
		ProjectID: project.ID.Hex(),
		EpisodeID: episode.ID.Hex(),
		Step:      step,
	})
	return updated, nil
}

// FailStep ghi lỗi bền vững lên sub-document của step, đặt Episode về
// trạng thái error và trả về lỗi đã được phân loại cho caller. Step
// counter không tiến - Episode vẫn retry được từ step lỗi. Nếu cause đã
// thuộc error taxonomy (ví dụ UpstreamTimeout), nó được trả về nguyên
// vẹn để HTTP status đúng với loại lỗi.
func (o *Orchestrator) FailStep(ctx context.Context, project *models.Project, episode *models.Episode, step int, cause error) error {
	message := cause.Error()
	state := models.StepState{
		Status:     models.StepStatusError,
		Error:      message,
		FinishedAt: utility.CurrentTimeInMilli(),
	}
	if prev := episode.StepStateAt(step); prev != nil {
		state.Input = prev.Input
		state.StartedAt = prev.StartedAt
	}

	if _, err := o.episodes.SaveStep(ctx, project, episode.ID, step, state, models.EpisodeStatusError, episode.Step); err != nil {
		logger.GetAppLogger().WithFields(map[string]interface{}{
			"episodeId": episode.ID.Hex(),
			"step":      step,
		}).Errorf("Không thể ghi trạng thái lỗi của step: %v", err)
	}

	o.sink.Publish(ctx, notification.Event{
		Type:      notification.EventStepFailed,
		ProjectID: project.ID.Hex(),
		EpisodeID: episode.ID.Hex(),
		Step:      step,
		Message:   message,
	})

	var cerr *common.Error
	if errors.As(cause, &cerr) {
		return cause
	}
	return common.NewError(
		common.ErrCodeBusinessState,
		message,
		common.StatusBadGateway,
		map[string]interface{}{"step": step},
	)
}
