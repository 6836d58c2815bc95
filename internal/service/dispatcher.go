package service

import (
	"errors"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	appErrors "github.com/lumeocrm/campaign-service/internal/errors"
	"github.com/lumeocrm/campaign-service/internal/model"
	"github.com/lumeocrm/campaign-service/internal/repository"
	"github.com/lumeocrm/campaign-service/internal/transport"
)

const (
	DefaultBatchSize       = 20
	DefaultInterBatchDelay = 500 * time.Millisecond
)

// Tally is the aggregate result of one dispatcher run.
type Tally struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// RunState says how a run ended: completed all chunks, or stopped at a chunk
// boundary because of a pause/cancel request.
type RunState int

const (
	RunCompleted RunState = iota
	RunPaused
	RunCancelled
)

// runControl carries the cooperative pause/cancel flags for one in-flight
// run. The dispatcher only reads them between chunks; an in-flight chunk is
// always allowed to finish.
type runControl struct {
	pause  atomic.Bool
	cancel atomic.Bool
}

// Dispatcher fans a recipient list out in fixed-size chunks. Sends within a
// chunk run concurrently; the next chunk never starts before every send of
// the previous one has resolved. Progress is persisted once per chunk.
type Dispatcher struct {
	CampaignRepo    repository.CampaignRepositoryInterface
	OutcomeRepo     repository.SendOutcomeRepositoryInterface
	Transport       transport.Transport
	BatchSize       int
	InterBatchDelay time.Duration

	mu     sync.Mutex
	active map[string]*runControl
}

func NewDispatcher(campaignRepo repository.CampaignRepositoryInterface, outcomeRepo repository.SendOutcomeRepositoryInterface, tr transport.Transport, batchSize int, delay time.Duration) *Dispatcher {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	if delay < 0 {
		delay = DefaultInterBatchDelay
	}
	return &Dispatcher{
		CampaignRepo:    campaignRepo,
		OutcomeRepo:     outcomeRepo,
		Transport:       tr,
		BatchSize:       batchSize,
		InterBatchDelay: delay,
		active:          map[string]*runControl{},
	}
}

// RequestPause signals the active run for a campaign, if any. The current
// chunk finishes before the run stops.
func (d *Dispatcher) RequestPause(campaignID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	ctrl, ok := d.active[campaignID]
	if ok {
		ctrl.pause.Store(true)
	}
	return ok
}

// RequestCancel signals the active run for a campaign, if any.
func (d *Dispatcher) RequestCancel(campaignID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	ctrl, ok := d.active[campaignID]
	if ok {
		ctrl.cancel.Store(true)
	}
	return ok
}

func (d *Dispatcher) register(campaignID string) *runControl {
	d.mu.Lock()
	defer d.mu.Unlock()
	ctrl := &runControl{}
	d.active[campaignID] = ctrl
	return ctrl
}

func (d *Dispatcher) unregister(campaignID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.active, campaignID)
}

type sendResult struct {
	recipientID string
	status      string
	errMsg      string
}

// Run processes recipients for the campaign starting from startCount already
// persisted successes. It returns the tally for this run plus how the run
// ended; the caller owns the terminal status transition.
func (d *Dispatcher) Run(campaign *model.Campaign, recipients []model.Recipient, startCount int) (Tally, RunState) {
	ctrl := d.register(campaign.ID)
	defer d.unregister(campaign.ID)

	batchSize := d.BatchSize
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}

	tally := Tally{}
	sentCount := startCount
	sender := campaign.Sender()

	for start := 0; start < len(recipients); start += batchSize {
		// pause/cancel are only observed here, at chunk boundaries
		if ctrl.cancel.Load() {
			return tally, RunCancelled
		}
		if ctrl.pause.Load() {
			return tally, RunPaused
		}
		if state, stopped := d.externalStop(campaign.ID); stopped {
			return tally, state
		}

		end := start + batchSize
		if end > len(recipients) {
			end = len(recipients)
		}
		chunk := recipients[start:end]
		results := make([]sendResult, len(chunk))

		var wg sync.WaitGroup
		for i, rec := range chunk {
			address := rec.AddressFor(campaign.Type)
			if !validAddress(address, campaign.Type) {
				// counted as a failure without ever touching the transport
				results[i] = sendResult{recipientID: rec.ID, status: model.OutcomeFailed, errMsg: "missing or malformed address"}
				continue
			}

			wg.Add(1)
			go func(i int, rec model.Recipient, address string) {
				defer wg.Done()
				subject := RenderTemplate(campaign.SubjectTemplate, rec, sender, "")
				body := RenderTemplate(campaign.BodyTemplate, rec, sender, "")

				err := d.Transport.Send(address, subject, body, campaign.SenderAddress, campaign.SenderName)
				switch {
				case err == nil:
					results[i] = sendResult{recipientID: rec.ID, status: model.OutcomeSent}
				case errors.Is(err, transport.ErrUnavailable):
					results[i] = sendResult{recipientID: rec.ID, status: model.OutcomeDegraded, errMsg: err.Error()}
				default:
					results[i] = sendResult{recipientID: rec.ID, status: model.OutcomeFailed, errMsg: err.Error()}
				}
			}(i, rec, address)
		}
		wg.Wait()

		// aggregate strictly after the fan-in barrier; nothing in the send
		// goroutines touches shared counters
		outcomes := make([]model.SendOutcome, 0, len(chunk))
		chunkSucceeded := 0
		for _, res := range results {
			outcomes = append(outcomes, model.SendOutcome{
				CampaignID:  campaign.ID,
				RecipientID: res.recipientID,
				Status:      res.status,
				LastError:   res.errMsg,
			})
			if res.status == model.OutcomeSent {
				chunkSucceeded++
			}
		}

		tally.Attempted += len(chunk)
		tally.Succeeded += chunkSucceeded
		tally.Failed += len(chunk) - chunkSucceeded
		sentCount += chunkSucceeded

		if err := d.OutcomeRepo.RecordBatch(campaign.ID, outcomes); err != nil {
			log.Println("⚠️ failed to record chunk outcomes:", err)
		}
		if err := d.CampaignRepo.UpdateProgress(campaign.ID, sentCount); err != nil {
			log.Println("⚠️ failed to persist campaign progress:", err)
		}

		if end < len(recipients) && d.InterBatchDelay > 0 {
			time.Sleep(d.InterBatchDelay)
		}
	}

	return tally, RunCompleted
}

// externalStop re-reads the campaign row between chunks. A pause or cancel
// issued on another node only shows up there, never in the local control
// flags, so the row is the source of truth once a run is under way.
func (d *Dispatcher) externalStop(campaignID string) (RunState, bool) {
	current, err := d.CampaignRepo.GetByID(campaignID)
	if err != nil {
		var notFound *appErrors.ErrCampaignNotFound
		if errors.As(err, &notFound) {
			log.Println("⚠️ campaign deleted mid-run:", campaignID)
			return RunCancelled, true
		}
		log.Println("⚠️ failed to re-read campaign status:", err)
		return RunCompleted, false
	}
	switch current.Status {
	case model.StatusSending:
		return RunCompleted, false
	case model.StatusPaused:
		return RunPaused, true
	default:
		return RunCancelled, true
	}
}

func validAddress(address string, t model.CampaignType) bool {
	if t == model.TypeSMS {
		digits := 0
		for _, r := range address {
			if r >= '0' && r <= '9' {
				digits++
			}
		}
		return digits >= 7
	}
	return strings.Count(address, "@") == 1 && !strings.ContainsAny(address, " \t")
}
