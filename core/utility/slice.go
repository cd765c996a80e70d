package utility

// Contains kiểm tra item có xuất hiện trong slice hay không.
// Dùng cho các danh sách nhỏ (field bị cấm trong filter, toán tử cho phép...),
// không cần tối ưu bằng map.
func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}
