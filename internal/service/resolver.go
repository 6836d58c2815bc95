package service

import (
	"time"

	appErrors "github.com/lumeocrm/campaign-service/internal/errors"
	"github.com/lumeocrm/campaign-service/internal/model"
	"github.com/lumeocrm/campaign-service/internal/repository"
)

// RecipientResolver turns a campaign's recipient spec into the concrete
// recipient list for one send run. Resolution happens fresh at the start (or
// resumption) of every run; the result is never persisted on the campaign.
type RecipientResolver struct {
	RecipientRepo repository.RecipientRepositoryInterface
	SegmentRepo   repository.SegmentRepositoryInterface
}

// Resolve returns the recipients matching spec as of now. Explicit ids that
// no longer exist are dropped silently; a missing segment is a
// ResolutionError. Order is the store's natural order and is stable within
// one call.
func (rr *RecipientResolver) Resolve(spec model.RecipientSpec, asOf time.Time) ([]model.Recipient, error) {
	if spec.SegmentID != "" {
		segment, err := rr.SegmentRepo.GetByID(spec.SegmentID)
		if err != nil {
			return nil, err
		}
		if segment == nil {
			return nil, appErrors.NewResolutionError(spec.SegmentID, "segment not found")
		}
		return rr.RecipientRepo.ListByCriteria(segment.Criteria)
	}

	if len(spec.RecipientIDs) == 0 {
		return nil, appErrors.NewResolutionError("", "recipient spec is empty")
	}
	return rr.RecipientRepo.GetByIDs(spec.RecipientIDs)
}
