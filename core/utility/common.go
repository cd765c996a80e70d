package utility

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// GoProtect là một hàm bao bọc (wrapper) giúp bảo vệ một hàm khác khỏi bị panic.
// Nếu xảy ra panic trong hàm f(), GoProtect sẽ bắt lại và in ra lỗi thay vì làm chương trình dừng hẳn.
func GoProtect(f func()) {
	defer func() {
		// Sử dụng recover() để bắt lỗi panic nếu có
		if err := recover(); err != nil {
			fmt.Printf("Đã bắt lỗi panic: %v\n", err)
		}
	}()

	// Gọi hàm f() được truyền vào
	f()
}

// UnixMilli dùng để lấy mili giây của thời gian cho trước
// @params - thời gian
// @returns - mili giây của thời gian cho trước
func UnixMilli(t time.Time) int64 {
	return t.Round(time.Millisecond).UnixNano() / (int64(time.Millisecond) / int64(time.Nanosecond))
}

// CurrentTimeInMilli dùng để lấy thời gian hiện tại tính bằng mili giây
// Hàm này sẽ được sử dụng khi cần timestamp hiện tại
// @returns - timestamp hiện tại (tính bằng mili giây)
func CurrentTimeInMilli() int64 {
	return UnixMilli(time.Now())
}

// slugInvalidChars khớp mọi ký tự không phải chữ thường/chữ số
var slugInvalidChars = regexp.MustCompile(`[^a-z0-9]+`)

// SanitizeSlug chuẩn hóa title thành slug dùng cho tên database/collection.
// Quy tắc: lowercase, mọi chuỗi ký tự không phải chữ/số gộp thành một dấu "_",
// bỏ "_" thừa ở đầu và cuối. Cùng một title luôn cho ra cùng một slug.
func SanitizeSlug(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = slugInvalidChars.ReplaceAllString(slug, "_")
	return strings.Trim(slug, "_")
}
