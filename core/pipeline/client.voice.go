package pipeline

import (
	"context"
	"net/http"
	"strings"
	"time"

	"dub_studio/config"
)

// VoiceAssignment là mapping character -> voice do dịch vụ gán giọng trả
// về, hoặc do người dùng submit trực tiếp qua đường manual override.
type VoiceAssignment struct {
	Character string `json:"character"`
	VoiceID   string `json:"voiceId"`
	Notes     string `json:"notes,omitempty"`
}

// voiceRequest là payload gửi dịch vụ gán giọng.
type voiceRequest struct {
	ProjectID  string   `json:"projectId"`
	EpisodeID  string   `json:"episodeId"`
	Characters []string `json:"characters"`
}

// voiceResponse là response của dịch vụ gán giọng.
type voiceResponse struct {
	Assignments []VoiceAssignment `json:"assignments"`
}

// VoiceClient gọi dịch vụ gán giọng ngoài. Timeout mặc định 5 phút.
type VoiceClient struct {
	baseURL string
	client  *http.Client
}

// NewVoiceClient khởi tạo client gán giọng từ cấu hình server.
func NewVoiceClient(c *config.Configuration) *VoiceClient {
	timeout := time.Duration(c.VoiceTimeoutMinutes) * time.Minute
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &VoiceClient{
		baseURL: strings.TrimRight(c.VoiceServiceURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// AssignVoices gửi danh sách nhân vật và nhận về mapping character -> voice.
func (c *VoiceClient) AssignVoices(ctx context.Context, projectID string, episodeID string, characters []string) ([]VoiceAssignment, error) {
	payload := voiceRequest{
		ProjectID:  projectID,
		EpisodeID:  episodeID,
		Characters: characters,
	}
	var resp voiceResponse
	if err := postJSON(ctx, c.client, c.baseURL+"/assign-voices", payload, &resp); err != nil {
		return nil, err
	}
	return resp.Assignments, nil
}
