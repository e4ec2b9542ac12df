package queue

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"

	"github.com/flowpulse/flowpulse/internal/core/model"
)

// maxPayloadSize is the ingest endpoint's per-call record limit; larger
// snapshots are delivered in consecutive chunks within one flush.
const maxPayloadSize = 100

// HTTPSender delivers interval batches to the ingest endpoint with a bearer
// credential.
type HTTPSender struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewHTTPSender creates a sender posting to endpoint. The client's timeout
// is governed by the context the queue passes in, not by the http.Client.
func NewHTTPSender(endpoint, token string) *HTTPSender {
	return &HTTPSender{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{},
	}
}

type ingestResponse struct {
	Accepted int    `json:"accepted"`
	Error    string `json:"error,omitempty"`
}

// Send posts the intervals. A non-2xx status is an error so the queue
// retries the same items next cycle.
func (s *HTTPSender) Send(ctx context.Context, intervals []model.ActivityInterval) (int, error) {
	accepted := 0
	for start := 0; start < len(intervals); start += maxPayloadSize {
		end := start + maxPayloadSize
		if end > len(intervals) {
			end = len(intervals)
		}
		n, err := s.sendChunk(ctx, intervals[start:end])
		accepted += n
		if err != nil {
			return accepted, err
		}
	}
	return accepted, nil
}

func (s *HTTPSender) sendChunk(ctx context.Context, intervals []model.ActivityInterval) (int, error) {
	payload, err := sonic.Marshal(intervals)
	if err != nil {
		return 0, fmt.Errorf("marshal batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("build ingest request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("post batch: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("ingest rejected batch: status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var result ingestResponse
	if err := sonic.Unmarshal(body, &result); err != nil {
		// Delivery succeeded even if the count is unreadable.
		return len(intervals), nil
	}
	return result.Accepted, nil
}
