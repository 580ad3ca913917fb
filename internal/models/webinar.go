package models

import (
	"time"

	"github.com/google/uuid"
)

// WebinarPhase is derived from the clock on every read and never stored.
type WebinarPhase string

const (
	PhaseUpcoming WebinarPhase = "upcoming"
	PhaseLive     WebinarPhase = "live"
	PhaseEnded    WebinarPhase = "ended"
)

// Webinar represents a scheduled webinar session hosted on an external platform.
type Webinar struct {
	ID          uuid.UUID   `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	StartsAt    time.Time   `json:"starts_at"`
	EndsAt      time.Time   `json:"ends_at"`
	JoinURL     string      `json:"join_url"`
	Platform    string      `json:"platform"`
	Joined      []uuid.UUID `json:"joined"`
	CreatedBy   uuid.UUID   `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Phase projects the webinar's state at now. The window is inclusive on both ends.
func (w *Webinar) Phase(now time.Time) WebinarPhase {
	switch {
	case now.Before(w.StartsAt):
		return PhaseUpcoming
	case now.After(w.EndsAt):
		return PhaseEnded
	}
	return PhaseLive
}

// HasJoined reports whether userID RSVP'd.
func (w *Webinar) HasJoined(userID uuid.UUID) bool {
	for _, id := range w.Joined {
		if id == userID {
			return true
		}
	}
	return false
}

// WebinarView is a Webinar with its projected phase for API responses.
type WebinarView struct {
	Webinar
	Phase       WebinarPhase `json:"phase"`
	Going       bool         `json:"going"`
	JoinedCount int          `json:"joined_count"`
}

// View projects w for the viewing user at now.
func (w *Webinar) View(userID uuid.UUID, now time.Time) WebinarView {
	return WebinarView{
		Webinar:     *w,
		Phase:       w.Phase(now),
		Going:       w.HasJoined(userID),
		JoinedCount: len(w.Joined),
	}
}
