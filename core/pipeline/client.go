package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"dub_studio/core/common"
)

// postJSON gửi POST JSON tới một dịch vụ ngoài và decode response vào out.
// Timeout (của client hoặc của context) được map về ErrUpstreamTimeout,
// các lỗi mạng khác về ErrUpstreamUnavailable.
func postJSON(ctx context.Context, client *http.Client, url string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return common.NewError(
			common.ErrCodeUpstream,
			fmt.Sprintf("Không thể marshal payload gửi dịch vụ ngoài: %v", err),
			common.StatusInternalServerError,
			nil,
		)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return common.ErrUpstreamUnavailable
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return common.ErrUpstreamTimeout
		}
		return common.ErrUpstreamUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return common.NewError(
			common.ErrCodeUpstream,
			fmt.Sprintf("Dịch vụ ngoài trả về status %d", resp.StatusCode),
			common.StatusBadGateway,
			nil,
		)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return common.NewError(
			common.ErrCodeUpstream,
			fmt.Sprintf("Không thể decode response của dịch vụ ngoài: %v", err),
			common.StatusBadGateway,
			nil,
		)
	}
	return nil
}

// isTimeout nhận diện lỗi timeout từ http client / context.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
