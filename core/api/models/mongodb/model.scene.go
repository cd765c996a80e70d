package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Trạng thái review của một Dialogue
const (
	DialogueStatusPending           = "pending"
	DialogueStatusTranscribed       = "transcribed"
	DialogueStatusTranslated        = "translated"
	DialogueStatusApproved          = "approved"
	DialogueStatusRevisionRequested = "revision-requested"
	DialogueStatusNeedsReRecord     = "needs-rerecord"
	DialogueStatusVoiceOverAdded    = "voice-over-added"
)

// Dialogue - đơn vị review nhỏ nhất, lưu dưới dạng phần tử mảng trong
// SceneDoc. DialogueNumber là khóa composite dạng p.ee.ss.lll
// (episode/scene zero-padded 2 chữ số, line 3 chữ số), duy nhất trong
// project và không bao giờ tái sử dụng.
type Dialogue struct {
	DialogueNumber string `json:"dialogueNumber" bson:"dialogueNumber"`
	Character      string `json:"character,omitempty" bson:"character,omitempty"`

	Original   string `json:"original,omitempty" bson:"original,omitempty"`
	Translated string `json:"translated,omitempty" bson:"translated,omitempty"`
	Adapted    string `json:"adapted,omitempty" bson:"adapted,omitempty"`

	TimeIn  string `json:"timeIn,omitempty" bson:"timeIn,omitempty"`
	TimeOut string `json:"timeOut,omitempty" bson:"timeOut,omitempty"`

	Status string `json:"status" bson:"status"` // pending, transcribed, translated, approved, revision-requested, needs-rerecord, voice-over-added

	VoiceOverUrl      string `json:"voiceOverUrl,omitempty" bson:"voiceOverUrl,omitempty"`
	ProcessedVoiceUrl string `json:"processedVoiceUrl,omitempty" bson:"processedVoiceUrl,omitempty"`

	DirectorNotes  string `json:"directorNotes,omitempty" bson:"directorNotes,omitempty"`
	VoiceOverNotes string `json:"voiceOverNotes,omitempty" bson:"voiceOverNotes,omitempty"`

	RevisionRequested bool `json:"revisionRequested,omitempty" bson:"revisionRequested,omitempty"`
	NeedsReRecord     bool `json:"needsReRecord,omitempty" bson:"needsReRecord,omitempty"`

	UpdatedAt int64  `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
	UpdatedBy string `json:"updatedBy,omitempty" bson:"updatedBy,omitempty"`
}

// SceneDoc - document theo scene trong collection của episode.
// Document chỉ là nhóm lưu trữ; thực thể nghiệp vụ thật là từng phần tử
// Dialogue trong mảng Dialogues.
type SceneDoc struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	SceneNumber int                `json:"sceneNumber" bson:"sceneNumber" index:"single:1"`
	Dialogues   []Dialogue         `json:"dialogues" bson:"dialogues"`

	CreatedAt int64 `json:"createdAt" bson:"createdAt"`
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"`
}
