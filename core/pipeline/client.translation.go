package pipeline

import (
	"context"
	"net/http"
	"strings"
	"time"

	"dub_studio/config"
)

// TranslationLine là một dòng thoại gửi đi dịch.
type TranslationLine struct {
	DialogueNumber string `json:"dialogueNumber"`
	Character      string `json:"character,omitempty"`
	Original       string `json:"original"`
	ClipURL        string `json:"clipUrl,omitempty"`
}

// TranslationDraft là bản dịch nháp trả về cho một dòng thoại.
type TranslationDraft struct {
	DialogueNumber string `json:"dialogueNumber"`
	Translated     string `json:"translated"`
	Adapted        string `json:"adapted,omitempty"`
}

// translationRequest là payload gửi dịch vụ dịch thuật.
type translationRequest struct {
	ProjectID      string            `json:"projectId"`
	EpisodeID      string            `json:"episodeId"`
	CollectionName string            `json:"collectionName"`
	Lines          []TranslationLine `json:"lines"`
}

// translationResponse là response của dịch vụ dịch thuật.
type translationResponse struct {
	Drafts []TranslationDraft `json:"drafts"`
}

// TranslationClient gọi dịch vụ dịch thuật ngoài. Dịch cả một episode có
// thể rất lâu nên timeout mặc định là 30 phút.
type TranslationClient struct {
	baseURL string
	client  *http.Client
}

// NewTranslationClient khởi tạo client dịch thuật từ cấu hình server.
func NewTranslationClient(c *config.Configuration) *TranslationClient {
	timeout := time.Duration(c.TranslationTimeoutMinutes) * time.Minute
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &TranslationClient{
		baseURL: strings.TrimRight(c.TranslationServiceURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Translate gửi danh sách dòng thoại đi dịch và trả về các bản dịch nháp.
// Timeout trả về ErrUpstreamTimeout - caller ghi nhận như một step failure.
func (c *TranslationClient) Translate(ctx context.Context, projectID string, episodeID string, collectionName string, lines []TranslationLine) ([]TranslationDraft, error) {
	payload := translationRequest{
		ProjectID:      projectID,
		EpisodeID:      episodeID,
		CollectionName: collectionName,
		Lines:          lines,
	}
	var resp translationResponse
	if err := postJSON(ctx, c.client, c.baseURL+"/translate", payload, &resp); err != nil {
		return nil, err
	}
	return resp.Drafts, nil
}
