package service

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	appErrors "github.com/lumeocrm/campaign-service/internal/errors"
)

// Scheduler fires scheduled campaigns whose scheduled_at has passed. It runs
// once a minute; SendNow's claim makes double-firing harmless when several
// nodes poll the same table.
type Scheduler struct {
	Campaigns *CampaignService
	cron      *cron.Cron
}

func NewScheduler(campaigns *CampaignService) *Scheduler {
	return &Scheduler{
		Campaigns: campaigns,
		cron:      cron.New(),
	}
}

func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc("* * * * *", s.fireDue)
	if err != nil {
		return err
	}
	s.cron.Start()
	log.Println("⏰ Campaign scheduler started")
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) fireDue() {
	due, err := s.Campaigns.CampaignRepo.ListDueScheduled(time.Now())
	if err != nil {
		log.Println("⚠️ failed to list due campaigns:", err)
		return
	}

	for _, c := range due {
		if _, err := s.Campaigns.SendNow(c.ID); err != nil {
			// a lost claim means another node picked it up first
			if _, lost := err.(*appErrors.InvalidTransitionError); lost {
				continue
			}
			log.Printf("⚠️ failed to fire scheduled campaign %s: %v", c.ID, err)
		}
	}
}
