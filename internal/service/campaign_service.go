package service

import (
	"fmt"
	"log"
	"strings"
	"time"

	appErrors "github.com/lumeocrm/campaign-service/internal/errors"
	"github.com/lumeocrm/campaign-service/internal/model"
	"github.com/lumeocrm/campaign-service/internal/queue"
	"github.com/lumeocrm/campaign-service/internal/repository"
)

const campaignRunsTopic = "campaign_runs"

type CampaignService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	OutcomeRepo  repository.SendOutcomeRepositoryInterface
	Resolver     *RecipientResolver
	Dispatcher   *Dispatcher
	// Queue, when set, makes sendNow enqueue the run for a worker instead of
	// executing it in the calling goroutine.
	Queue queue.Queue
}

// SendReceipt is returned by SendNow / Resume.
type SendReceipt struct {
	CampaignID      string       `json:"campaign_id"`
	Status          model.Status `json:"status"`
	TotalRecipients int          `json:"total_recipients"`
	Tally           *Tally       `json:"tally,omitempty"`
}

type CampaignDetails struct {
	*model.Campaign
	Stats map[string]int `json:"stats"`
}

// ====================== Authoring ======================

func (s *CampaignService) CreateCampaign(c *model.Campaign) error {
	if c.Type == "" {
		c.Type = model.TypeEmail
	}
	if c.Type != model.TypeEmail && c.Type != model.TypeSMS {
		return fmt.Errorf("unknown campaign type: %s", c.Type)
	}
	if strings.TrimSpace(c.BodyTemplate) == "" {
		return fmt.Errorf("body template cannot be empty")
	}
	c.Status = model.StatusDraft
	if c.ScheduledAt != nil {
		c.Status = model.StatusScheduled
	}

	// totalRecipients is computed at authoring time and re-stamped when a
	// run actually starts
	recipients, err := s.Resolver.Resolve(c.RecipientSpec, time.Now())
	if err != nil {
		return err
	}
	c.TotalRecipients = len(recipients)

	return s.CampaignRepo.Create(c)
}

// UpdateCampaign applies content/recipient edits. Only draft and paused
// campaigns are editable; sending acts as a lock.
func (s *CampaignService) UpdateCampaign(c *model.Campaign) error {
	current, err := s.CampaignRepo.GetByID(c.ID)
	if err != nil {
		return err
	}
	if current.Status != model.StatusDraft && current.Status != model.StatusPaused {
		return fmt.Errorf("campaign in status %s cannot be edited", current.Status)
	}

	recipients, err := s.Resolver.Resolve(c.RecipientSpec, time.Now())
	if err != nil {
		return err
	}
	c.TotalRecipients = len(recipients)

	return s.CampaignRepo.Update(c)
}

func (s *CampaignService) DeleteCampaign(id string) error {
	c, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return err
	}
	if c.Status == model.StatusSending {
		return fmt.Errorf("campaign is sending and cannot be deleted")
	}
	if err := s.OutcomeRepo.DeleteByCampaign(id); err != nil {
		return err
	}
	return s.CampaignRepo.Delete(id)
}

// ====================== Lifecycle operations ======================

// SendNow moves a draft or scheduled campaign into sending and dispatches the
// run. A resolution failure surfaces before any status change; a lost claim
// (e.g. two concurrent sendNow calls) is an InvalidTransitionError.
func (s *CampaignService) SendNow(id string) (*SendReceipt, error) {
	c, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := CheckTransition(c.Status, model.StatusSending); err != nil {
		return nil, err
	}
	if c.Status == model.StatusPaused {
		return s.Resume(id)
	}

	recipients, err := s.Resolver.Resolve(c.RecipientSpec, time.Now())
	if err != nil {
		return nil, err
	}

	claimed, err := s.CampaignRepo.MarkSending(id, len(recipients), model.StatusDraft, model.StatusScheduled)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, appErrors.NewInvalidTransition(c.Status, model.StatusSending)
	}

	return s.dispatchRun(id, len(recipients), c.Status)
}

// Resume restarts a paused campaign. Recipients are re-resolved and every
// recipient with a persisted outcome from the earlier chunks is skipped.
func (s *CampaignService) Resume(id string) (*SendReceipt, error) {
	c, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if c.Status != model.StatusPaused {
		return nil, appErrors.NewInvalidTransition(c.Status, model.StatusSending)
	}

	recipients, err := s.Resolver.Resolve(c.RecipientSpec, time.Now())
	if err != nil {
		return nil, err
	}
	total := len(recipients)
	if total < c.SentCount {
		// the pool shrank below what was already sent; keep the invariant
		// sentCount <= totalRecipients intact
		total = c.SentCount
	}

	claimed, err := s.CampaignRepo.MarkSending(id, total, model.StatusPaused)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, appErrors.NewInvalidTransition(c.Status, model.StatusSending)
	}

	return s.dispatchRun(id, total, model.StatusPaused)
}

func (s *CampaignService) dispatchRun(id string, total int, prior model.Status) (*SendReceipt, error) {
	receipt := &SendReceipt{
		CampaignID:      id,
		Status:          model.StatusSending,
		TotalRecipients: total,
	}

	if s.Queue != nil {
		if err := s.Queue.Publish(campaignRunsTopic, id); err != nil {
			// no worker will ever pick this run up, so hand the claim back
			// instead of leaving the campaign stuck in sending
			if rerr := s.CampaignRepo.ReleaseSending(id, prior); rerr != nil {
				log.Println("⚠️ failed to release claim after enqueue failure:", rerr)
			} else {
				receipt.Status = prior
			}
			return receipt, err
		}
		return receipt, nil
	}

	tally, err := s.ExecuteRun(id)
	if err != nil {
		return receipt, err
	}
	fresh, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return receipt, err
	}
	receipt.Status = fresh.Status
	receipt.Tally = tally
	return receipt, nil
}

// ExecuteRun performs the dispatch for a campaign already claimed into
// sending. It is called inline by sendNow/resume when no queue is configured,
// and by the queue worker otherwise.
func (s *CampaignService) ExecuteRun(id string) (*Tally, error) {
	c, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if c.Status != model.StatusSending {
		// stale job: the campaign was cancelled (or otherwise moved on)
		// between enqueue and execution
		log.Printf("skipping run for campaign %s in status %s", id, c.Status)
		return nil, nil
	}

	// recipients are resolved fresh at the start of every run
	recipients, err := s.Resolver.Resolve(c.RecipientSpec, time.Now())
	if err != nil {
		// the recipient spec became unresolvable after the claim (segment deleted
		// mid-flight); the run cannot proceed
		if _, ferr := s.CampaignRepo.FinishRun(id, model.StatusFailed, c.SentCount, nil); ferr != nil {
			log.Println("⚠️ failed to mark campaign failed:", ferr)
		}
		return nil, err
	}

	attempted, err := s.OutcomeRepo.AttemptedIDs(id)
	if err != nil {
		return nil, err
	}
	if len(attempted) > 0 {
		remaining := recipients[:0]
		for _, rec := range recipients {
			if !attempted[rec.ID] {
				remaining = append(remaining, rec)
			}
		}
		recipients = remaining
	}

	tally, state := s.Dispatcher.Run(c, recipients, c.SentCount)
	finalCount := c.SentCount + tally.Succeeded

	var applied bool
	switch state {
	case RunPaused:
		applied, err = s.CampaignRepo.FinishRun(id, model.StatusPaused, finalCount, nil)
	case RunCancelled:
		applied, err = s.CampaignRepo.FinishRun(id, model.StatusCancelled, finalCount, nil)
	default:
		// every recipient was attempted; the run is recorded as sent even
		// when individual sends failed
		now := time.Now()
		applied, err = s.CampaignRepo.FinishRun(id, model.StatusSent, finalCount, &now)
	}
	if err != nil {
		return &tally, err
	}
	if !applied {
		// the campaign left sending while the run was in flight; whatever
		// status the other writer set stands
		log.Printf("campaign %s already left sending; keeping its status", id)
	}
	return &tally, nil
}

// Pause stops an in-flight run at the next chunk boundary. The current chunk
// always finishes first.
func (s *CampaignService) Pause(id string) error {
	c, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return err
	}
	if err := CheckTransition(c.Status, model.StatusPaused); err != nil {
		return err
	}

	if s.Dispatcher.RequestPause(id) {
		// the running dispatcher persists the paused status when it stops
		return nil
	}
	// no active run in this process (e.g. restart mid-run); flip directly
	return s.CampaignRepo.UpdateStatus(id, model.StatusPaused)
}

// Cancel is legal from every non-terminal state and stops further dispatch.
func (s *CampaignService) Cancel(id string) error {
	c, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return err
	}
	if err := CheckTransition(c.Status, model.StatusCancelled); err != nil {
		return err
	}

	if c.Status == model.StatusSending && s.Dispatcher.RequestCancel(id) {
		return nil
	}
	return s.CampaignRepo.UpdateStatus(id, model.StatusCancelled)
}

// ====================== Reads ======================

func (s *CampaignService) ListCampaigns(page, pageSize int, campaignType, status string) ([]model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.CampaignRepo.ListCampaigns(offset, pageSize, campaignType, status)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}

	return campaigns, pagination, nil
}

func (s *CampaignService) GetCampaignDetails(id string) (*CampaignDetails, error) {
	c, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	stats, err := s.OutcomeRepo.Stats(id)
	if err != nil {
		return nil, err
	}
	return &CampaignDetails{Campaign: c, Stats: stats}, nil
}

// RenderPreview renders the campaign templates for one concrete recipient,
// optionally with an override body template.
func (s *CampaignService) RenderPreview(campaignID, recipientID string, overrideBody *string) (subject, body string, err error) {
	c, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return "", "", err
	}

	rec, err := s.Resolver.RecipientRepo.GetByID(recipientID)
	if err != nil {
		return "", "", err
	}
	if rec == nil {
		return "", "", fmt.Errorf("recipient not found")
	}

	bodyTemplate := c.BodyTemplate
	if overrideBody != nil && strings.TrimSpace(*overrideBody) != "" {
		bodyTemplate = *overrideBody
	}
	if strings.TrimSpace(bodyTemplate) == "" {
		return "", "", fmt.Errorf("template cannot be empty")
	}

	sender := c.Sender()
	return RenderTemplate(c.SubjectTemplate, *rec, sender, ""),
		RenderTemplate(bodyTemplate, *rec, sender, ""),
		nil
}

// ====================== Engagement tracking ======================

func (s *CampaignService) TrackOpen(campaignID string) error {
	return s.CampaignRepo.IncrementOpened(campaignID)
}

func (s *CampaignService) TrackClick(campaignID string) error {
	return s.CampaignRepo.IncrementClicked(campaignID)
}
