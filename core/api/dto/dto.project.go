package dto

// ProjectAssignmentInput - một cặp (username, role) gán vào project khi tạo
type ProjectAssignmentInput struct {
	Username string `json:"username" validate:"required,min=1,max=100"`
	Role     string `json:"role" validate:"required,oneof=transcriber translator voice_artist director senior_director admin"`
}

// ProjectCreateMeta là phần metadata JSON trong form multipart tạo project.
// Các file video đi kèm trong cùng form, mỗi file sinh một episode.
type ProjectCreateMeta struct {
	Title       string                   `json:"title" validate:"required,min=1,max=200,no_xss"`
	Assignments []ProjectAssignmentInput `json:"assignments" validate:"omitempty,dive"`
}

// ProjectUpdateInput - các field được phép sửa trên project sau khi tạo.
// DatabaseName và slug là bất biến nên không xuất hiện ở đây.
type ProjectUpdateInput struct {
	Title       *string                  `json:"title,omitempty" validate:"omitempty,min=1,max=200,no_xss"`
	Status      *string                  `json:"status,omitempty" validate:"omitempty,oneof=initializing pending in_progress completed on_hold"`
	Assignments []ProjectAssignmentInput `json:"assignments,omitempty" validate:"omitempty,dive"`
}
