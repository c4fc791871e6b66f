package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"chat-core/domain"
)

// HTTPPushService posts payload batches to an Expo-compatible push
// endpoint. The request context carries the per-batch deadline set by the
// dispatcher.
type HTTPPushService struct {
	client *http.Client
	url    string
	log    *slog.Logger
}

func NewHTTPPushService(client *http.Client, url string, log *slog.Logger) *HTTPPushService {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPPushService{client: client, url: url, log: log}
}

func (s *HTTPPushService) SendBatch(ctx context.Context, payloads []domain.PushPayload) error {
	body, err := json.Marshal(payloads)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("push endpoint returned %s", resp.Status)
	}
	s.log.Debug("push batch accepted", "count", len(payloads))
	return nil
}
