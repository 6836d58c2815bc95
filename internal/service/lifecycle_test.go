package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/lumeocrm/campaign-service/internal/errors"
	"github.com/lumeocrm/campaign-service/internal/model"
	"github.com/lumeocrm/campaign-service/internal/service"
)

var allStatuses = []model.Status{
	model.StatusDraft, model.StatusScheduled, model.StatusSending,
	model.StatusSent, model.StatusPaused, model.StatusCancelled, model.StatusFailed,
}

func TestCancelLegalFromEveryNonTerminalState(t *testing.T) {
	for _, from := range allStatuses {
		if service.IsTerminal(from) {
			continue
		}
		assert.NoError(t, service.CheckTransition(from, model.StatusCancelled), "cancel from %s", from)
	}
}

func TestNoTransitionLeavesTerminalStates(t *testing.T) {
	for _, from := range []model.Status{model.StatusSent, model.StatusCancelled, model.StatusFailed} {
		for _, to := range allStatuses {
			err := service.CheckTransition(from, to)
			assert.Error(t, err, "%s -> %s should be rejected", from, to)
			assert.IsType(t, &appErrors.InvalidTransitionError{}, err)
		}
	}
}

func TestLifecycleEdges(t *testing.T) {
	legal := []struct{ from, to model.Status }{
		{model.StatusDraft, model.StatusSending},
		{model.StatusDraft, model.StatusScheduled},
		{model.StatusDraft, model.StatusCancelled},
		{model.StatusScheduled, model.StatusSending},
		{model.StatusScheduled, model.StatusCancelled},
		{model.StatusSending, model.StatusSent},
		{model.StatusSending, model.StatusPaused},
		{model.StatusSending, model.StatusFailed},
		{model.StatusPaused, model.StatusSending},
	}
	for _, tc := range legal {
		assert.True(t, service.CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	illegal := []struct{ from, to model.Status }{
		{model.StatusDraft, model.StatusSent},
		{model.StatusDraft, model.StatusPaused},
		{model.StatusScheduled, model.StatusPaused},
		{model.StatusPaused, model.StatusSent},
		{model.StatusPaused, model.StatusScheduled},
		{model.StatusSending, model.StatusDraft},
		{model.StatusSending, model.StatusScheduled},
	}
	for _, tc := range illegal {
		assert.False(t, service.CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}
