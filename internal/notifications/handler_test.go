package notifications

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorhub/backend/internal/campaigns"
	"github.com/creatorhub/backend/pkg/response"
)

func newTestRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(svc, nil)
	r := gin.New()
	r.POST("/notifications/users/:id", h.SendToUser)
	r.POST("/notifications/campaigns/:id/approved", h.SendToApproved)
	return r
}

func send(r http.Handler, path string, body any) (*httptest.ResponseRecorder, response.Body) {
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(body)
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out response.Body
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestHandler_SendToUser(t *testing.T) {
	ok, noAddr, relayDown := uuid.New(), uuid.New(), uuid.New()
	book := fakeAddressBook{ok: "tok-ok", relayDown: "tok-down"}
	sender := &recordingSender{fail: map[string]bool{"tok-down": true}}
	r := newTestRouter(NewService(book, fakeMembers{}, sender, 0, nil))
	msg := map[string]string{"title": "Hi", "body": "There"}

	cases := []struct {
		name string
		path string
		body any
		want int
	}{
		{"delivered", "/notifications/users/" + ok.String(), msg, http.StatusOK},
		{"no push token", "/notifications/users/" + noAddr.String(), msg, http.StatusConflict},
		{"relay unavailable", "/notifications/users/" + relayDown.String(), msg, http.StatusServiceUnavailable},
		{"bad id", "/notifications/users/nope", msg, http.StatusBadRequest},
		{"missing title", "/notifications/users/" + ok.String(), map[string]string{"body": "x"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, _ := send(r, tc.path, tc.body)
			assert.Equal(t, tc.want, w.Code)
		})
	}
	assert.Len(t, sender.sent, 2)
}

func TestHandler_SendToApproved(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	msg := map[string]string{"title": "Brief", "body": "Updated"}

	t.Run("counts only", func(t *testing.T) {
		r := newTestRouter(NewService(fakeAddressBook{a: "tok-a"}, fakeMembers{approved: []uuid.UUID{a, b}}, &recordingSender{}, 2, nil))
		w, body := send(r, "/notifications/campaigns/"+uuid.NewString()+"/approved", msg)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, map[string]any{"recipients": 2.0, "sent": 1.0, "failed": 1.0}, body.Data)
	})
	t.Run("unknown campaign", func(t *testing.T) {
		r := newTestRouter(NewService(fakeAddressBook{}, fakeMembers{err: campaigns.ErrCampaignNotFound}, &recordingSender{}, 0, nil))
		w, _ := send(r, "/notifications/campaigns/"+uuid.NewString()+"/approved", msg)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
