package utility

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeSlug(t *testing.T) {
	cases := []struct {
		name  string
		title string
		want  string
	}{
		{"Title thường", "Phim Hay", "phim_hay"},
		{"Chữ hoa bị hạ xuống", "DRAMA 2024", "drama_2024"},
		{"Nhiều ký tự đặc biệt liền nhau gộp thành một gạch dưới", "Phim -- Hay!!! (Phần 2)", "phim_hay_ph_n_2"},
		{"Khoảng trắng đầu cuối bị bỏ", "  Phim Hay  ", "phim_hay"},
		{"Ký tự đặc biệt ở biên bị cắt", "***Phim Hay***", "phim_hay"},
		{"Chỉ chữ số vẫn giữ nguyên", "2024", "2024"},
		{"Chuỗi rỗng cho ra slug rỗng", "", ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, SanitizeSlug(c.title))
		})
	}

	t.Run("Cùng title luôn cho cùng slug", func(t *testing.T) {
		assert.Equal(t, SanitizeSlug("Phim Hay"), SanitizeSlug("Phim Hay"))
	})
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.0 KB", FormatBytes(1024))
	assert.Equal(t, "1.5 MB", FormatBytes(1536*1024))
	assert.Equal(t, "2.0 GB", FormatBytes(2*1024*1024*1024))
}
