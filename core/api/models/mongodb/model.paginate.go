package models

// PaginateResult chứa kết quả phân trang cho một danh sách documents
type PaginateResult[T any] struct {
	Items     []T   `json:"items"`     // Danh sách items trong trang hiện tại
	Page      int64 `json:"page"`      // Trang hiện tại (bắt đầu từ 1)
	Limit     int64 `json:"limit"`     // Số items tối đa mỗi trang
	ItemCount int64 `json:"itemCount"` // Số items thực tế trong trang
	Total     int64 `json:"total"`     // Tổng số items
	TotalPage int64 `json:"totalPage"` // Tổng số trang
}
