package service

import (
	appErrors "github.com/lumeocrm/campaign-service/internal/errors"
	"github.com/lumeocrm/campaign-service/internal/model"
)

// Campaign lifecycle. draft is initial; sent, cancelled and failed are
// terminal and nothing leaves them.
var legalTransitions = map[model.Status][]model.Status{
	model.StatusDraft:     {model.StatusSending, model.StatusScheduled, model.StatusCancelled},
	model.StatusScheduled: {model.StatusSending, model.StatusCancelled},
	model.StatusSending:   {model.StatusSent, model.StatusPaused, model.StatusFailed, model.StatusCancelled},
	model.StatusPaused:    {model.StatusSending, model.StatusCancelled},
	model.StatusSent:      {},
	model.StatusCancelled: {},
	model.StatusFailed:    {},
}

func IsTerminal(s model.Status) bool {
	return s == model.StatusSent || s == model.StatusCancelled || s == model.StatusFailed
}

func CanTransition(from, to model.Status) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition returns an InvalidTransitionError when the edge from -> to
// is not part of the lifecycle.
func CheckTransition(from, to model.Status) error {
	if !CanTransition(from, to) {
		return appErrors.NewInvalidTransition(from, to)
	}
	return nil
}
