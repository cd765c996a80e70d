package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Trạng thái của Episode
const (
	EpisodeStatusUploaded   = "uploaded"
	EpisodeStatusProcessing = "processing"
	EpisodeStatusError      = "error"
)

// Trạng thái của một pipeline step
const (
	StepStatusPending    = "pending"
	StepStatusProcessing = "processing"
	StepStatusCompleted  = "completed"
	StepStatusError      = "error"
)

// Số step trong pipeline. Step = PipelineStepCount+1 nghĩa là episode đã xong.
const PipelineStepCount = 5

// StepState - trạng thái của một step trong pipeline, lưu dưới dạng
// sub-document trên Episode (step1..step5)
type StepState struct {
	Status     string                 `json:"status" bson:"status"` // pending, processing, completed, error
	Input      map[string]interface{} `json:"input,omitempty" bson:"input,omitempty"`
	Output     map[string]interface{} `json:"output,omitempty" bson:"output,omitempty"`
	Error      string                 `json:"error,omitempty" bson:"error,omitempty"`
	StartedAt  int64                  `json:"startedAt,omitempty" bson:"startedAt,omitempty"`
	FinishedAt int64                  `json:"finishedAt,omitempty" bson:"finishedAt,omitempty"`
}

// Episode - thuộc về đúng một Project, lưu trong collection episodes của
// database tenant. CollectionName là duy nhất trong project và mã hóa số
// episode zero-padded (<slug>_Ep_<NN>) - đây là join key cho dialogue number.
type Episode struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	ProjectID primitive.ObjectID `json:"projectId" bson:"projectId" index:"single:1"`
	Name      string             `json:"name" bson:"name"`
	Number    int                `json:"number" bson:"number"`
	Status    string             `json:"status" bson:"status" index:"single:1"` // uploaded, processing, error
	Step      int                `json:"step" bson:"step"`                      // step hiện tại 1-5, 6 = hoàn thành

	Step1 StepState `json:"step1" bson:"step1"`
	Step2 StepState `json:"step2" bson:"step2"`
	Step3 StepState `json:"step3" bson:"step3"`
	Step4 StepState `json:"step4" bson:"step4"`
	Step5 StepState `json:"step5" bson:"step5"`

	VideoKey       string `json:"videoKey" bson:"videoKey"`                             // object key của video trong storage
	CollectionName string `json:"collectionName" bson:"collectionName" index:"unique"` // <slug>_Ep_<NN>

	CreatedAt int64 `json:"createdAt" bson:"createdAt"`
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"`
}

// StepStateAt trả về con trỏ tới sub-document của step n (1-5).
// Trả về nil nếu n nằm ngoài phạm vi.
func (e *Episode) StepStateAt(n int) *StepState {
	switch n {
	case 1:
		return &e.Step1
	case 2:
		return &e.Step2
	case 3:
		return &e.Step3
	case 4:
		return &e.Step4
	case 5:
		return &e.Step5
	default:
		return nil
	}
}

// StepFieldName trả về tên bson field của step n ("step1".."step5"), dùng khi
// build update document. Trả về chuỗi rỗng nếu n ngoài phạm vi.
func StepFieldName(n int) string {
	switch n {
	case 1:
		return "step1"
	case 2:
		return "step2"
	case 3:
		return "step3"
	case 4:
		return "step4"
	case 5:
		return "step5"
	default:
		return ""
	}
}
