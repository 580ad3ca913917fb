package campaigns

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/creatorhub/backend/internal/models"
	"github.com/creatorhub/backend/pkg/queue"
)

type memberKey struct {
	campaignID uuid.UUID
	userID     uuid.UUID
}

type fakeMember struct {
	models.Member
	seq int
}

// fakeStore is an in-memory Store. Transact serializes callers the way
// the row lock does in Postgres.
type fakeStore struct {
	txMu      sync.Mutex
	mu        sync.Mutex
	campaigns map[uuid.UUID]models.Campaign
	members   map[memberKey]fakeMember
	seq       int
	putErr    error
}

var _ Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		campaigns: make(map[uuid.UUID]models.Campaign),
		members:   make(map[memberKey]fakeMember),
	}
}

func (s *fakeStore) addCampaign(limit *int) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.campaigns[id] = models.Campaign{ID: id, Title: "Launch", Status: models.CampaignActive, ApplicantCap: limit}
	return id
}

func (s *fakeStore) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(ctx)
}

func (s *fakeStore) GetCampaign(_ context.Context, id uuid.UUID) (*models.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return nil, ErrCampaignNotFound
	}
	return &c, nil
}

func (s *fakeStore) LockCampaign(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	return s.GetCampaign(ctx, id)
}

func (s *fakeStore) ListCampaigns(context.Context) ([]models.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]models.Campaign, 0, len(s.campaigns))
	for _, c := range s.campaigns {
		list = append(list, c)
	}
	return list, nil
}

func (s *fakeStore) CreateCampaign(_ context.Context, c *models.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	s.campaigns[c.ID] = *c
	return nil
}

func (s *fakeStore) update(id uuid.UUID, fn func(c *models.Campaign)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return ErrCampaignNotFound
	}
	fn(&c)
	s.campaigns[id] = c
	return nil
}

func (s *fakeStore) UpdateStatus(_ context.Context, id uuid.UUID, status models.CampaignStatus) error {
	return s.update(id, func(c *models.Campaign) { c.Status = status })
}

func (s *fakeStore) SetBriefURL(_ context.Context, id uuid.UUID, url string) error {
	return s.update(id, func(c *models.Campaign) { c.BriefURL = &url })
}

func (s *fakeStore) SetSubmissionURL(_ context.Context, id uuid.UUID, url string) error {
	return s.update(id, func(c *models.Campaign) { c.SubmissionURL = &url })
}

func (s *fakeStore) DeleteCampaign(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.campaigns[id]; !ok {
		return ErrCampaignNotFound
	}
	delete(s.campaigns, id)
	for k := range s.members {
		if k.campaignID == id {
			delete(s.members, k)
		}
	}
	return nil
}

func (s *fakeStore) ListMembers(_ context.Context, campaignID uuid.UUID) ([]models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []fakeMember
	for k, m := range s.members {
		if k.campaignID == campaignID {
			rows = append(rows, m)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	out := make([]models.Member, len(rows))
	for i, r := range rows {
		out[i] = r.Member
	}
	return out, nil
}

func (s *fakeStore) GetMemberStatus(_ context.Context, campaignID, userID uuid.UUID) (models.MemberStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[memberKey{campaignID, userID}]
	if !ok {
		return models.MemberNone, nil
	}
	return m.Status, nil
}

func (s *fakeStore) CountMembers(_ context.Context, campaignID uuid.UUID, status models.MemberStatus) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, m := range s.members {
		if k.campaignID == campaignID && m.Status == status {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) PutMember(_ context.Context, campaignID, userID uuid.UUID, status models.MemberStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	if _, ok := s.campaigns[campaignID]; !ok {
		return ErrCampaignNotFound
	}
	k := memberKey{campaignID, userID}
	if cur, ok := s.members[k]; ok && cur.Status == status {
		return nil
	}
	s.seq++
	s.members[k] = fakeMember{
		Member: models.Member{CampaignID: campaignID, UserID: userID, Status: status, UpdatedAt: time.Now()},
		seq:    s.seq,
	}
	return nil
}

func (s *fakeStore) ListByUser(_ context.Context, userID uuid.UUID) ([]models.UserCampaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.UserCampaign
	for k, m := range s.members {
		if k.userID == userID {
			out = append(out, models.UserCampaign{Campaign: s.campaigns[k.campaignID], MyStatus: m.Status})
		}
	}
	return out, nil
}

type published struct {
	topic string
	event string
	data  models.CampaignLive
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
}

func (p *fakePublisher) Publish(topic, event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{topic: topic, event: event, data: payload.(models.CampaignLive)})
}

func (p *fakePublisher) last() published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.msgs[len(p.msgs)-1]
}

type fakeOutbox struct {
	mu   sync.Mutex
	jobs []queue.PushPayload
	err  error
}

func (o *fakeOutbox) EnqueuePush(_ context.Context, p queue.PushPayload) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.jobs = append(o.jobs, p)
	return nil
}
