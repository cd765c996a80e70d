package dialogue

import (
	"testing"

	models "dub_studio/core/api/models/mongodb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestDetectAction(t *testing.T) {
	t.Run("Verdict flag nào cũng suy ra review", func(t *testing.T) {
		for _, p := range []UpdatePatch{
			{Approved: true},
			{RevisionRequested: true},
			{NeedsReRecord: true},
			{DirectorNotes: strPtr("làm lại câu này")},
		} {
			action, err := DetectAction(p)
			require.NoError(t, err)
			assert.Equal(t, ActionReview, action)
		}
	})

	t.Run("Field voice suy ra voice_over", func(t *testing.T) {
		action, err := DetectAction(UpdatePatch{VoiceOverUrl: strPtr("https://cdn/take1.wav")})
		require.NoError(t, err)
		assert.Equal(t, ActionVoiceOver, action)
	})

	t.Run("Field dịch suy ra translate", func(t *testing.T) {
		action, err := DetectAction(UpdatePatch{Translated: strPtr("Xin chào")})
		require.NoError(t, err)
		assert.Equal(t, ActionTranslate, action)
	})

	t.Run("Field lời thoại gốc suy ra transcribe", func(t *testing.T) {
		action, err := DetectAction(UpdatePatch{Original: strPtr("Hello"), TimeIn: strPtr("00:00:01.000")})
		require.NoError(t, err)
		assert.Equal(t, ActionTranscribe, action)
	})

	t.Run("Review thắng khi patch trộn nhiều loại field", func(t *testing.T) {
		// Director có thể vừa sửa notes vừa approve trong cùng request
		action, err := DetectAction(UpdatePatch{Translated: strPtr("Xin chào"), Approved: true})
		require.NoError(t, err)
		assert.Equal(t, ActionReview, action)
	})

	t.Run("Voice_over thắng translate khi không có verdict", func(t *testing.T) {
		action, err := DetectAction(UpdatePatch{Translated: strPtr("Xin chào"), VoiceOverNotes: strPtr("take 2")})
		require.NoError(t, err)
		assert.Equal(t, ActionVoiceOver, action)
	})

	t.Run("Patch rỗng là input không hợp lệ", func(t *testing.T) {
		_, err := DetectAction(UpdatePatch{})
		assert.Error(t, err)
	})
}

func TestResolveReviewStatus(t *testing.T) {
	t.Run("Ưu tiên needs-rerecord cao nhất", func(t *testing.T) {
		status, err := ResolveReviewStatus(ReviewVerdict{Approved: true, RevisionRequested: true, NeedsReRecord: true})
		require.NoError(t, err)
		assert.Equal(t, models.DialogueStatusNeedsReRecord, status)
	})

	t.Run("Revision-requested thắng approved", func(t *testing.T) {
		status, err := ResolveReviewStatus(ReviewVerdict{Approved: true, RevisionRequested: true})
		require.NoError(t, err)
		assert.Equal(t, models.DialogueStatusRevisionRequested, status)
	})

	t.Run("Chỉ approved", func(t *testing.T) {
		status, err := ResolveReviewStatus(ReviewVerdict{Approved: true})
		require.NoError(t, err)
		assert.Equal(t, models.DialogueStatusApproved, status)
	})

	t.Run("Verdict rỗng là lỗi", func(t *testing.T) {
		_, err := ResolveReviewStatus(ReviewVerdict{})
		assert.Error(t, err)
	})
}

func TestCheckTransition(t *testing.T) {
	t.Run("Transcribe từ pending và re-entrant từ transcribed", func(t *testing.T) {
		assert.NoError(t, CheckTransition(models.DialogueStatusPending, ActionTranscribe))
		assert.NoError(t, CheckTransition(models.DialogueStatusTranscribed, ActionTranscribe))
	})

	t.Run("Translate yêu cầu đã transcribed", func(t *testing.T) {
		assert.Error(t, CheckTransition(models.DialogueStatusPending, ActionTranslate))
		assert.NoError(t, CheckTransition(models.DialogueStatusTranscribed, ActionTranslate))
	})

	t.Run("Trạng thái revision mở lại vòng sản xuất", func(t *testing.T) {
		assert.NoError(t, CheckTransition(models.DialogueStatusRevisionRequested, ActionTranscribe))
		assert.NoError(t, CheckTransition(models.DialogueStatusNeedsReRecord, ActionTranslate))
	})

	t.Run("Voice over yêu cầu đã translated hoặc approved", func(t *testing.T) {
		assert.Error(t, CheckTransition(models.DialogueStatusTranscribed, ActionVoiceOver))
		assert.NoError(t, CheckTransition(models.DialogueStatusTranslated, ActionVoiceOver))
		assert.NoError(t, CheckTransition(models.DialogueStatusApproved, ActionVoiceOver))
	})

	t.Run("Review không chạy được trên dialogue chưa dịch", func(t *testing.T) {
		assert.Error(t, CheckTransition(models.DialogueStatusPending, ActionReview))
		assert.Error(t, CheckTransition(models.DialogueStatusTranscribed, ActionReview))
		assert.NoError(t, CheckTransition(models.DialogueStatusVoiceOverAdded, ActionReview))
	})
}

func TestRoleAllowed(t *testing.T) {
	t.Run("Role khớp action", func(t *testing.T) {
		assert.True(t, RoleAllowed(ActionTranscribe, models.RoleTranscriber))
		assert.True(t, RoleAllowed(ActionTranslate, models.RoleTranslator))
		assert.True(t, RoleAllowed(ActionVoiceOver, models.RoleVoiceArtist))
		assert.True(t, RoleAllowed(ActionReview, models.RoleDirector))
		assert.True(t, RoleAllowed(ActionReview, models.RoleSeniorDirector))
	})

	t.Run("Role không khớp bị từ chối", func(t *testing.T) {
		assert.False(t, RoleAllowed(ActionReview, models.RoleTranscriber))
		assert.False(t, RoleAllowed(ActionTranscribe, models.RoleVoiceArtist))
	})

	t.Run("Admin được phép mọi action", func(t *testing.T) {
		for _, action := range []Action{ActionTranscribe, ActionTranslate, ActionVoiceOver, ActionReview} {
			assert.True(t, RoleAllowed(action, models.RoleAdmin))
		}
	})
}

func TestActorAllowed(t *testing.T) {
	project := &models.Project{
		Slug: "phim_hay",
		Assignments: []models.ProjectAssignment{
			{Username: "an", Role: models.RoleTranscriber},
			{Username: "binh", Role: models.RoleDirector},
			{Username: "chi", Role: models.RoleAdmin},
		},
	}

	assert.True(t, ActorAllowed(project, "an", ActionTranscribe))
	assert.False(t, ActorAllowed(project, "an", ActionReview), "transcriber không được review")
	assert.True(t, ActorAllowed(project, "binh", ActionReview))
	assert.True(t, ActorAllowed(project, "chi", ActionVoiceOver), "admin được phép mọi action")
	assert.False(t, ActorAllowed(project, "dung", ActionTranscribe), "người ngoài project bị từ chối")
}
