package realtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newWsServer(t *testing.T, hub *Hub, snapshot SnapshotFunc) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validate := func(token string) (uuid.UUID, string, error) {
		if token != "good" {
			return uuid.Nil, "", errors.New("bad token")
		}
		return uuid.New(), "creator", nil
	}
	r := gin.New()
	r.GET("/ws", ServeWs(hub, zap.NewNop(), validate, snapshot))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestServeWs_SnapshotThenLiveUpdates(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	topic := CampaignTopic(uuid.New())
	snapshot := func(ctx context.Context, tp string, _ uuid.UUID) (string, any, bool, error) {
		return "campaign_snapshot", map[string]string{"topic": tp}, true, nil
	}
	srv := newWsServer(t, hub, snapshot)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=good&topic=" + topic
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first WSMessage
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "campaign_snapshot", first.Event)
	assert.Equal(t, 1, hub.SubscriberCount(topic))

	hub.Publish(topic, "campaign_updated", map[string]int{"pending": 1})

	var second WSMessage
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, "campaign_updated", second.Event)
	assert.JSONEq(t, `{"pending":1}`, string(second.Data))
}

func TestServeWs_RejectsBadRequests(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	missing := func(context.Context, string, uuid.UUID) (string, any, bool, error) {
		return "", nil, false, nil
	}
	srv := newWsServer(t, hub, missing)
	topic := CampaignTopic(uuid.New())

	cases := map[string]int{
		"/ws?token=good":                     http.StatusBadRequest,
		"/ws?token=good&topic=campaign:nope": http.StatusBadRequest,
		"/ws?token=bad&topic=" + topic:       http.StatusUnauthorized,
		"/ws?token=good&topic=" + topic:      http.StatusNotFound,
	}
	for path, want := range cases {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, want, resp.StatusCode, path)
	}
	assert.Zero(t, hub.SubscriberCount(topic))
}

func TestServeWs_UpdateDuringSnapshotIsDelivered(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	topic := CampaignTopic(uuid.New())
	snapshot := func(ctx context.Context, tp string, _ uuid.UUID) (string, any, bool, error) {
		// a mutation lands while the snapshot is being read
		hub.Publish(tp, "campaign_updated", map[string]int{"pending": 2})
		return "campaign_snapshot", map[string]int{"pending": 2}, true, nil
	}
	srv := newWsServer(t, hub, snapshot)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=good&topic=" + topic
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first, second WSMessage
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, "campaign_updated", first.Event)
	assert.Equal(t, "campaign_snapshot", second.Event)
}

func TestServeWs_SnapshotErrorUnregisters(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	topic := WebinarTopic(uuid.New())
	failing := func(context.Context, string, uuid.UUID) (string, any, bool, error) {
		return "", nil, false, errors.New("db down")
	}
	srv := newWsServer(t, hub, failing)

	resp, err := http.Get(srv.URL + "/ws?token=good&topic=" + topic)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Zero(t, hub.SubscriberCount(topic))
}
