package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type CampaignType string

const (
	TypeEmail CampaignType = "email"
	TypeSMS   CampaignType = "sms"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
	StatusSending   Status = "sending"
	StatusSent      Status = "sent"
	StatusPaused    Status = "paused"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// SenderIdentity is the from-identity for email campaigns.
type SenderIdentity struct {
	DisplayName string `json:"display_name"`
	Address     string `json:"address"`
}

// RecipientSpec is either an explicit id list or a saved segment reference.
// Exactly one of the two fields is expected to be set.
type RecipientSpec struct {
	RecipientIDs []string `json:"recipient_ids,omitempty"`
	SegmentID    string   `json:"segment_id,omitempty"`
}

// Value / Scan let the recipient spec live in a jsonb column.
func (s RecipientSpec) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *RecipientSpec) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	case nil:
		*s = RecipientSpec{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into RecipientSpec", src)
}

type Campaign struct {
	ID              string        `db:"id" json:"id"`
	Name            string        `db:"name" json:"name"`
	Type            CampaignType  `db:"type" json:"type"`
	Status          Status        `db:"status" json:"status"`
	SubjectTemplate string        `db:"subject_template" json:"subject_template"`
	BodyTemplate    string        `db:"body_template" json:"body_template"`
	SenderName      string        `db:"sender_name" json:"sender_name"`
	SenderAddress   string        `db:"sender_address" json:"sender_address"`
	RecipientSpec   RecipientSpec `db:"recipient_spec" json:"recipient_spec"`
	TotalRecipients int           `db:"total_recipients" json:"total_recipients"`
	SentCount       int           `db:"sent_count" json:"sent_count"`
	OpenedCount     int           `db:"opened_count" json:"opened_count"`
	ClickedCount    int           `db:"clicked_count" json:"clicked_count"`
	ScheduledAt     *time.Time    `db:"scheduled_at" json:"scheduled_at,omitempty"`
	SentAt          *time.Time    `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       *time.Time    `db:"updated_at" json:"updated_at,omitempty"`
}

func (c *Campaign) Sender() SenderIdentity {
	return SenderIdentity{DisplayName: c.SenderName, Address: c.SenderAddress}
}
