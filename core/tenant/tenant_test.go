package tenant

import (
	"testing"

	models "dub_studio/core/api/models/mongodb"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseNameFor(t *testing.T) {
	assert.Equal(t, "dub_phim_hay", DatabaseNameFor("phim_hay"))
	assert.Equal(t, "dub_drama2024", DatabaseNameFor("drama2024"))
}

func TestCollectionNameFor(t *testing.T) {
	// Số episode phải được zero-pad 2 chữ số để khớp với dialogue number
	assert.Equal(t, "phim_hay_Ep_01", CollectionNameFor("phim_hay", 1))
	assert.Equal(t, "phim_hay_Ep_12", CollectionNameFor("phim_hay", 12))
}

func TestValidateCollectionName(t *testing.T) {
	t.Run("Tên hợp lệ", func(t *testing.T) {
		assert.NoError(t, ValidateCollectionName("phim_hay_Ep_01"))
		assert.NoError(t, ValidateCollectionName("drama2024_Ep_99"))
	})

	t.Run("Tên không hợp lệ phải bị từ chối", func(t *testing.T) {
		invalid := []string{
			"",
			"phim_hay",          // thiếu hậu tố _Ep_NN
			"phim_hay_Ep_1",     // số episode thiếu zero-padding
			"phim_hay_Ep_123",   // số episode quá 2 chữ số
			"Phim_Hay_Ep_01",    // slug phải lowercase
			"phim-hay_Ep_01",    // slug không được chứa dấu gạch ngang
			"phim_hay_ep_01",    // hậu tố phân biệt hoa thường
			"phim_hay_Ep_01 ",   // khoảng trắng cuối
		}
		for _, name := range invalid {
			assert.Error(t, ValidateCollectionName(name), "tên '%s' phải bị từ chối", name)
		}
	})
}

func TestAuthorize(t *testing.T) {
	project := &models.Project{
		Slug: "phim_hay",
		Assignments: []models.ProjectAssignment{
			{Username: "an", Role: models.RoleTranscriber},
			{Username: "binh", Role: models.RoleAdmin},
		},
	}

	t.Run("Thành viên được phép, bất kỳ role nào", func(t *testing.T) {
		assert.NoError(t, Authorize(project, "an"))
		assert.NoError(t, Authorize(project, "binh"))
	})

	t.Run("Người ngoài project bị từ chối", func(t *testing.T) {
		assert.Error(t, Authorize(project, "chi"))
		assert.Error(t, Authorize(project, ""))
	})

	t.Run("Project nil là lỗi", func(t *testing.T) {
		assert.Error(t, Authorize(nil, "an"))
	})
}
