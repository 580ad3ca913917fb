package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestWebinar_Phase(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	live := &Webinar{StartsAt: now.Add(-10 * time.Minute), EndsAt: now.Add(10 * time.Minute)}
	upcoming := &Webinar{StartsAt: now.Add(time.Hour), EndsAt: now.Add(2 * time.Hour)}
	ended := &Webinar{StartsAt: now.Add(-2 * time.Hour), EndsAt: now.Add(-time.Hour)}

	assert.Equal(t, PhaseLive, live.Phase(now))
	assert.Equal(t, PhaseUpcoming, upcoming.Phase(now))
	assert.Equal(t, PhaseEnded, ended.Phase(now))
}

func TestWebinar_Phase_Boundaries(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	w := &Webinar{StartsAt: start, EndsAt: start.Add(time.Hour)}

	assert.Equal(t, PhaseLive, w.Phase(start))
	assert.Equal(t, PhaseLive, w.Phase(start.Add(time.Hour)))
	assert.Equal(t, PhaseEnded, w.Phase(start.Add(time.Hour+time.Nanosecond)))
}

func TestWebinar_View(t *testing.T) {
	me, other := uuid.New(), uuid.New()
	now := time.Now()
	w := &Webinar{StartsAt: now.Add(time.Hour), EndsAt: now.Add(2 * time.Hour), Joined: []uuid.UUID{other, me}}

	v := w.View(me, now)
	assert.True(t, v.Going)
	assert.Equal(t, 2, v.JoinedCount)
	assert.Equal(t, PhaseUpcoming, v.Phase)

	assert.False(t, w.View(uuid.New(), now).Going)
}
