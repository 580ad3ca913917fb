package attribution

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/creatorhub/backend/pkg/queue"
)

// ErrRelay is returned when the attribution relay rejects an event or cannot be reached.
var ErrRelay = errors.New("attribution relay failed")

type relayEvent struct {
	EventName string            `json:"event_name"`
	UserID    string            `json:"user_id"`
	Values    map[string]string `json:"values"`
	Timestamp int64             `json:"timestamp"`
}

// Relay posts events to the attribution endpoint.
type Relay struct {
	url    string
	apiKey string
	client *http.Client
}

// NewRelay creates an attribution relay client.
func NewRelay(url, apiKey string, timeout time.Duration) *Relay {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Relay{url: url, apiKey: apiKey, client: &http.Client{Timeout: timeout}}
}

// Send posts one event.
func (r *Relay) Send(ctx context.Context, ev queue.AttributionPayload) error {
	values := ev.Values
	if values == nil {
		values = map[string]string{}
	}
	body, err := json.Marshal(relayEvent{
		EventName: ev.EventName,
		UserID:    ev.UserID.String(),
		Values:    values,
		Timestamp: ev.At.Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build event request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("X-API-Key", r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRelay, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrRelay, resp.StatusCode)
	}
	return nil
}
