package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelay_Send(t *testing.T) {
	var (
		got     map[string]any
		headers http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	relay := NewRelay(srv.URL, "default", time.Second)
	relay.now = func() time.Time { return time.UnixMilli(1700000000123) }

	err := relay.Send(context.Background(), Message{To: "ExponentPushToken[abc]", Title: "Hi", Body: "There", Tag: "campaign_approved"})
	require.NoError(t, err)

	assert.Equal(t, "application/json", headers.Get("Accept"))
	assert.Equal(t, "application/json", headers.Get("Content-Type"))
	assert.Equal(t, "ExponentPushToken[abc]", got["to"])
	assert.Equal(t, "default", got["sound"])
	assert.Equal(t, "Hi", got["title"])
	assert.Equal(t, "There", got["body"])
	data := got["data"].(map[string]any)
	assert.Equal(t, "campaign_approved", data["type"])
	assert.Equal(t, float64(1700000000123), data["timestamp"])
}

func TestRelay_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewRelay(srv.URL, "default", time.Second).Send(context.Background(), Message{To: "x"})
	assert.ErrorIs(t, err, ErrRelay)
}

func TestRelay_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := NewRelay(url, "default", time.Second).Send(context.Background(), Message{To: "x"})
	assert.ErrorIs(t, err, ErrRelay)
}
