package appErrors

import (
	"fmt"

	"github.com/lumeocrm/campaign-service/internal/model"
)

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID string
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %s not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id string) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ResolutionError means a recipient spec could not be resolved, e.g. the
// referenced segment was deleted. The run aborts before any sends.
type ResolutionError struct {
	SegmentID string
	Reason    string
}

func (e *ResolutionError) Error() string {
	if e.SegmentID != "" {
		return fmt.Sprintf("cannot resolve recipients: segment %s: %s", e.SegmentID, e.Reason)
	}
	return fmt.Sprintf("cannot resolve recipients: %s", e.Reason)
}

func NewResolutionError(segmentID, reason string) error {
	return &ResolutionError{SegmentID: segmentID, Reason: reason}
}

// InvalidTransitionError means the requested lifecycle transition is not
// legal from the campaign's current status. No side effects occur.
type InvalidTransitionError struct {
	From model.Status
	To   model.Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid campaign transition: %s -> %s", e.From, e.To)
}

func NewInvalidTransition(from, to model.Status) error {
	return &InvalidTransitionError{From: from, To: to}
}
