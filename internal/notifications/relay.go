package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrRelay is returned when the push relay rejects a message or cannot be reached.
var ErrRelay = errors.New("push relay failed")

// Message is one push notification addressed to a device.
type Message struct {
	To    string
	Title string
	Body  string
	Tag   string
}

type relayData struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

type relayRequest struct {
	To    string    `json:"to"`
	Sound string    `json:"sound"`
	Title string    `json:"title"`
	Body  string    `json:"body"`
	Data  relayData `json:"data"`
}

// Relay posts push messages to the relay endpoint. A 2xx means the relay
// accepted the message, not that the device received it.
type Relay struct {
	url    string
	sound  string
	client *http.Client
	now    func() time.Time
}

// NewRelay creates a push relay client.
func NewRelay(url, sound string, timeout time.Duration) *Relay {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Relay{
		url:    url,
		sound:  sound,
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

// Send posts one message.
func (r *Relay) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(relayRequest{
		To:    msg.To,
		Sound: r.sound,
		Title: msg.Title,
		Body:  msg.Body,
		Data:  relayData{Type: msg.Tag, Timestamp: r.now().UnixMilli()},
	})
	if err != nil {
		return fmt.Errorf("marshal push: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

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
