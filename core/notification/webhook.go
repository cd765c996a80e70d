package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"dub_studio/core/logger"
	"dub_studio/core/utility"
)

// WebhookSink gửi sự kiện dưới dạng JSON POST tới một webhook URL.
type WebhookSink struct {
	url    string
	client *http.Client
}

// NewWebhookSink tạo sink webhook. URL rỗng trả về NopSink để caller
// không phải phân nhánh theo cấu hình.
func NewWebhookSink(webhookURL string) Sink {
	if webhookURL == "" {
		return NopSink{}
	}
	return &WebhookSink{
		url:    webhookURL,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Publish gửi sự kiện tới webhook. Mọi lỗi (marshal, mạng, status ngoài 2xx)
// chỉ được log - không bao giờ trả về cho caller.
func (s *WebhookSink) Publish(ctx context.Context, event Event) {
	if event.Timestamp == 0 {
		event.Timestamp = utility.CurrentTimeInMilli()
	}

	jsonData, err := json.Marshal(event)
	if err != nil {
		logger.GetAppLogger().WithField("eventType", event.Type).
			Errorf("Không thể marshal sự kiện notification: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewBuffer(jsonData))
	if err != nil {
		logger.GetAppLogger().WithField("eventType", event.Type).
			Errorf("Không thể tạo request webhook: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		logger.GetAppLogger().WithField("eventType", event.Type).
			Errorf("Gửi webhook thất bại: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.GetAppLogger().WithFields(map[string]interface{}{
			"eventType":  event.Type,
			"statusCode": resp.StatusCode,
		}).Error("Webhook trả về status ngoài dải 2xx")
	}
}
