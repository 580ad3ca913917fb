package campaigns

import (
	"strings"

	"github.com/google/uuid"

	"github.com/creatorhub/backend/internal/models"
)

// Project builds the applied/approved/rejected view from member rows.
// List order follows the order of members.
func Project(campaignID uuid.UUID, members []models.Member) models.Membership {
	m := models.Membership{
		CampaignID: campaignID,
		Applied:    []uuid.UUID{},
		Approved:   []uuid.UUID{},
		Rejected:   []uuid.UUID{},
	}
	for _, mem := range members {
		switch mem.Status {
		case models.MemberPending:
			m.Applied = append(m.Applied, mem.UserID)
		case models.MemberApproved:
			m.Approved = append(m.Approved, mem.UserID)
		case models.MemberRejected:
			m.Rejected = append(m.Rejected, mem.UserID)
		}
	}
	m.Counts = models.Counts{
		Pending:  len(m.Applied),
		Approved: len(m.Approved),
		Rejected: len(m.Rejected),
		Total:    len(m.Applied) + len(m.Approved) + len(m.Rejected),
	}
	return m
}

// Live strips m down to what any subscriber may see.
func Live(m models.Membership) models.CampaignLive {
	return models.CampaignLive{CampaignID: m.CampaignID, Counts: m.Counts}
}

// StatusOf reports userID's standing in m: approved wins over rejected,
// which wins over pending.
func StatusOf(m models.Membership, userID uuid.UUID) models.MemberStatus {
	switch {
	case contains(m.Approved, userID):
		return models.MemberApproved
	case contains(m.Rejected, userID):
		return models.MemberRejected
	case contains(m.Applied, userID):
		return models.MemberPending
	}
	return models.MemberNone
}

func contains(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// Filter is the list predicate for campaigns. Zero fields match everything.
type Filter struct {
	Status models.CampaignStatus
	Query  string
}

// Match reports whether c passes the filter. Query matches title or
// description, case-insensitively.
func (f Filter) Match(c *models.Campaign) bool {
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.Title), q) ||
		strings.Contains(strings.ToLower(c.Description), q)
}

// Apply returns the campaigns in list that match f, preserving order.
func (f Filter) Apply(list []models.Campaign) []models.Campaign {
	out := make([]models.Campaign, 0, len(list))
	for i := range list {
		if f.Match(&list[i]) {
			out = append(out, list[i])
		}
	}
	return out
}
