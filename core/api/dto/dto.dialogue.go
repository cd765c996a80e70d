package dto

// DialogueUpdateInput là patch một request review gửi lên cho dialogue.
// Con trỏ nil nghĩa là field không được gửi - action được suy ra từ tập
// field có mặt (review > voice_over > translate > transcribe).
type DialogueUpdateInput struct {
	Character *string `json:"character,omitempty"`
	Original  *string `json:"original,omitempty"`

	Translated *string `json:"translated,omitempty"`
	Adapted    *string `json:"adapted,omitempty"`

	TimeIn  *string `json:"timeIn,omitempty"`
	TimeOut *string `json:"timeOut,omitempty"`

	VoiceOverUrl      *string `json:"voiceOverUrl,omitempty"`
	ProcessedVoiceUrl *string `json:"processedVoiceUrl,omitempty"`

	DirectorNotes  *string `json:"directorNotes,omitempty"`
	VoiceOverNotes *string `json:"voiceOverNotes,omitempty"`

	// Verdict flags của vòng review - needsReRecord > revisionRequested > approved
	Approved          bool `json:"approved,omitempty"`
	RevisionRequested bool `json:"revisionRequested,omitempty"`
	NeedsReRecord     bool `json:"needsReRecord,omitempty"`
}
