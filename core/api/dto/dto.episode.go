package dto

// StepRunInput là body của request chạy một step pipeline.
// Params được đưa nguyên vào Input của step để audit.
type StepRunInput struct {
	ResetCycle bool                   `json:"resetCycle"` // Step 3: đưa pipeline về step 1 thay vì hoàn tất
	Params     map[string]interface{} `json:"params,omitempty"`
}

// SceneSeedLine - một dòng thoại trong kịch bản seed. Số line nằm trong
// dải của dialogue number codec; dialogue number do server cấp.
type SceneSeedLine struct {
	Line      int    `json:"line" validate:"required,min=1,max=999"`
	Character string `json:"character,omitempty"`
	Original  string `json:"original,omitempty"`
	TimeIn    string `json:"timeIn,omitempty"`
	TimeOut   string `json:"timeOut,omitempty"`
}

// SceneSeedScene - một scene trong kịch bản seed
type SceneSeedScene struct {
	SceneNumber int             `json:"sceneNumber" validate:"required,min=1,max=99"`
	Lines       []SceneSeedLine `json:"lines" validate:"dive"`
}

// SceneSeedInput là body của request seed scene documents cho episode
// từ kịch bản đã bóc tách. Chạy lại với cùng kịch bản là idempotent.
type SceneSeedInput struct {
	Scenes []SceneSeedScene `json:"scenes" validate:"required,min=1,dive"`
}

// VoiceAssignmentInput - một cặp nhân vật/giọng trong override thủ công
type VoiceAssignmentInput struct {
	Character string `json:"character" validate:"required,min=1"`
	VoiceID   string `json:"voiceId" validate:"required,min=1"`
	Notes     string `json:"notes,omitempty"`
}

// VoiceAssignmentsInput là body của request gán giọng thủ công (step 5).
// Danh sách rỗng bị từ chối - override phải nói rõ gán gì.
type VoiceAssignmentsInput struct {
	Assignments []VoiceAssignmentInput `json:"assignments" validate:"required,min=1,dive"`
}
