package model

import "time"

// Outcome statuses persisted per recipient per campaign.
const (
	OutcomeSent     = "sent"
	OutcomeFailed   = "failed"
	OutcomeDegraded = "degraded" // transport unreachable, delivery unknown
)

type SendOutcome struct {
	ID          int       `db:"id" json:"id"`
	CampaignID  string    `db:"campaign_id" json:"campaign_id"`
	RecipientID string    `db:"recipient_id" json:"recipient_id"`
	Status      string    `db:"status" json:"status"`
	LastError   string    `db:"last_error,omitempty" json:"last_error,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
