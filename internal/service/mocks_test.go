package service_test

import (
	"fmt"
	"sync"
	"time"

	appErrors "github.com/lumeocrm/campaign-service/internal/errors"
	"github.com/lumeocrm/campaign-service/internal/model"
	"github.com/lumeocrm/campaign-service/internal/repository"
)

// ---- in-memory campaign repository ----

type memCampaignRepo struct {
	mu             sync.Mutex
	campaigns      map[string]*model.Campaign
	progressWrites []int
}

func newMemCampaignRepo(campaigns ...*model.Campaign) *memCampaignRepo {
	repo := &memCampaignRepo{campaigns: map[string]*model.Campaign{}}
	for _, c := range campaigns {
		repo.campaigns[c.ID] = c
	}
	return repo
}

func (m *memCampaignRepo) Create(c *model.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = fmt.Sprintf("campaign-%d", len(m.campaigns)+1)
	}
	if c.Status == "" {
		c.Status = model.StatusDraft
	}
	c.CreatedAt = time.Now()
	m.campaigns[c.ID] = c
	return nil
}

func (m *memCampaignRepo) Update(c *model.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.campaigns[c.ID]
	if !ok {
		return appErrors.NewCampaignNotFound(c.ID)
	}
	c.Status = existing.Status
	c.SentCount = existing.SentCount
	m.campaigns[c.ID] = c
	return nil
}

func (m *memCampaignRepo) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.campaigns, id)
	return nil
}

func (m *memCampaignRepo) GetByID(id string) (*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	copy := *c
	return &copy, nil
}

func (m *memCampaignRepo) ListCampaigns(offset, limit int, campaignType, status string) ([]*model.Campaign, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.Campaign{}
	for _, c := range m.campaigns {
		if campaignType != "" && string(c.Type) != campaignType {
			continue
		}
		if status != "" && string(c.Status) != status {
			continue
		}
		copy := *c
		out = append(out, &copy)
	}
	return out, len(out), nil
}

func (m *memCampaignRepo) ListDueScheduled(asOf time.Time) ([]*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.Campaign{}
	for _, c := range m.campaigns {
		if c.Status == model.StatusScheduled && c.ScheduledAt != nil && !c.ScheduledAt.After(asOf) {
			copy := *c
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (m *memCampaignRepo) MarkSending(id string, totalRecipients int, from ...model.Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if c.Status == s {
			c.Status = model.StatusSending
			c.TotalRecipients = totalRecipients
			return true, nil
		}
	}
	return false, nil
}

func (m *memCampaignRepo) UpdateStatus(id string, status model.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.campaigns[id]; ok {
		c.Status = status
	}
	return nil
}

func (m *memCampaignRepo) UpdateProgress(id string, sentCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.campaigns[id]; ok && c.Status == model.StatusSending {
		c.SentCount = sentCount
		m.progressWrites = append(m.progressWrites, sentCount)
	}
	return nil
}

func (m *memCampaignRepo) ReleaseSending(id string, to model.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.campaigns[id]; ok && c.Status == model.StatusSending {
		c.Status = to
	}
	return nil
}

func (m *memCampaignRepo) FinishRun(id string, status model.Status, sentCount int, sentAt *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok || c.Status != model.StatusSending {
		return false, nil
	}
	c.Status = status
	c.SentCount = sentCount
	c.SentAt = sentAt
	return true, nil
}

func (m *memCampaignRepo) IncrementOpened(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.campaigns[id]; ok {
		c.OpenedCount++
	}
	return nil
}

func (m *memCampaignRepo) IncrementClicked(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.campaigns[id]; ok {
		c.ClickedCount++
	}
	return nil
}

func (m *memCampaignRepo) ProgressWrites() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int{}, m.progressWrites...)
}

var _ repository.CampaignRepositoryInterface = (*memCampaignRepo)(nil)

// ---- in-memory send-outcome repository ----

type memOutcomeRepo struct {
	mu      sync.Mutex
	batches [][]model.SendOutcome
}

func (m *memOutcomeRepo) RecordBatch(campaignID string, outcomes []model.SendOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, outcomes)
	return nil
}

func (m *memOutcomeRepo) AttemptedIDs(campaignID string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	attempted := map[string]bool{}
	for _, batch := range m.batches {
		for _, o := range batch {
			if o.CampaignID == campaignID {
				attempted[o.RecipientID] = true
			}
		}
	}
	return attempted, nil
}

func (m *memOutcomeRepo) Stats(campaignID string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := map[string]int{
		model.OutcomeSent:     0,
		model.OutcomeFailed:   0,
		model.OutcomeDegraded: 0,
	}
	for _, batch := range m.batches {
		for _, o := range batch {
			if o.CampaignID == campaignID {
				stats[o.Status]++
			}
		}
	}
	return stats, nil
}

func (m *memOutcomeRepo) DeleteByCampaign(campaignID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = nil
	return nil
}

func (m *memOutcomeRepo) BatchSizes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	sizes := make([]int, len(m.batches))
	for i, b := range m.batches {
		sizes[i] = len(b)
	}
	return sizes
}

var _ repository.SendOutcomeRepositoryInterface = (*memOutcomeRepo)(nil)

// ---- in-memory recipient / segment repositories ----

type memRecipientRepo struct {
	recipients []model.Recipient
}

func (m *memRecipientRepo) GetByID(id string) (*model.Recipient, error) {
	for _, r := range m.recipients {
		if r.ID == id {
			copy := r
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *memRecipientRepo) GetByIDs(ids []string) ([]model.Recipient, error) {
	wanted := map[string]bool{}
	for _, id := range ids {
		wanted[id] = true
	}
	out := []model.Recipient{}
	for _, r := range m.recipients {
		if wanted[r.ID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRecipientRepo) ListByCriteria(criteria model.SegmentCriteria) ([]model.Recipient, error) {
	out := []model.Recipient{}
	for _, r := range m.recipients {
		if matchesCriteria(r, criteria) {
			out = append(out, r)
		}
	}
	return out, nil
}

func matchesCriteria(r model.Recipient, criteria model.SegmentCriteria) bool {
	for field, value := range criteria.FieldEquals {
		if r.MergeFields[field] != value {
			return false
		}
	}
	for _, tag := range criteria.HasTags {
		found := false
		for _, t := range r.Tags {
			if t == tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (m *memRecipientRepo) ListAll() ([]model.Recipient, error) {
	return append([]model.Recipient{}, m.recipients...), nil
}

var _ repository.RecipientRepositoryInterface = (*memRecipientRepo)(nil)

type memSegmentRepo struct {
	segments map[string]*model.Segment
}

func (m *memSegmentRepo) Create(s *model.Segment) error {
	if m.segments == nil {
		m.segments = map[string]*model.Segment{}
	}
	m.segments[s.ID] = s
	return nil
}

func (m *memSegmentRepo) GetByID(id string) (*model.Segment, error) {
	s, ok := m.segments[id]
	if !ok {
		return nil, nil
	}
	return s, nil
}

func (m *memSegmentRepo) ListAll() ([]model.Segment, error) {
	out := []model.Segment{}
	for _, s := range m.segments {
		out = append(out, *s)
	}
	return out, nil
}

var _ repository.SegmentRepositoryInterface = (*memSegmentRepo)(nil)

// ---- scripted transport ----

// stubTransport records every send and delegates the outcome to fail/err
// lookups keyed by recipient address.
type stubTransport struct {
	mu       sync.Mutex
	calls    map[string]int
	order    []string
	failFor  map[string]error
	onSend   func(totalCalls int)
	totalCnt int
}

func newStubTransport() *stubTransport {
	return &stubTransport{
		calls:   map[string]int{},
		failFor: map[string]error{},
	}
}

func (t *stubTransport) Send(to, subject, body, fromAddress, fromName string) error {
	t.mu.Lock()
	t.calls[to]++
	t.order = append(t.order, to)
	t.totalCnt++
	total := t.totalCnt
	onSend := t.onSend
	err := t.failFor[to]
	t.mu.Unlock()

	if onSend != nil {
		onSend(total)
	}
	return err
}

func (t *stubTransport) callsFor(to string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls[to]
}

func (t *stubTransport) totalCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalCnt
}

// ---- helpers ----

func makeRecipients(n int) []model.Recipient {
	out := make([]model.Recipient, n)
	for i := range out {
		out[i] = model.Recipient{
			ID:    fmt.Sprintf("r-%03d", i+1),
			Email: fmt.Sprintf("r%03d@example.com", i+1),
			Phone: fmt.Sprintf("+2547000000%02d", i+1),
			MergeFields: map[string]string{
				"firstName": fmt.Sprintf("User%d", i+1),
			},
		}
	}
	return out
}

func recipientIDs(recipients []model.Recipient) []string {
	ids := make([]string, len(recipients))
	for i, r := range recipients {
		ids[i] = r.ID
	}
	return ids
}
