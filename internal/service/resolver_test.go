package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/lumeocrm/campaign-service/internal/errors"
	"github.com/lumeocrm/campaign-service/internal/model"
	"github.com/lumeocrm/campaign-service/internal/service"
)

func testResolver() (*service.RecipientResolver, *memRecipientRepo, *memSegmentRepo) {
	recipientRepo := &memRecipientRepo{
		recipients: []model.Recipient{
			{ID: "r-1", Email: "alice@example.com", Tags: []string{"customer", "nairobi"},
				MergeFields: map[string]string{"location": "Nairobi"}},
			{ID: "r-2", Email: "bob@example.com", Tags: []string{"customer"},
				MergeFields: map[string]string{"location": "Mombasa"}},
			{ID: "r-3", Email: "carol@example.com", Tags: []string{"lead", "nairobi"},
				MergeFields: map[string]string{"location": "Nairobi"}},
		},
	}
	segmentRepo := &memSegmentRepo{segments: map[string]*model.Segment{
		"seg-nairobi-customers": {
			ID: "seg-nairobi-customers",
			Criteria: model.SegmentCriteria{
				FieldEquals: map[string]string{"location": "Nairobi"},
				HasTags:     []string{"customer"},
			},
		},
	}}
	return &service.RecipientResolver{RecipientRepo: recipientRepo, SegmentRepo: segmentRepo}, recipientRepo, segmentRepo
}

func TestResolveExplicitIDsDropsMissing(t *testing.T) {
	resolver, _, _ := testResolver()

	spec := model.RecipientSpec{RecipientIDs: []string{"r-1", "r-gone", "r-3"}}
	recipients, err := resolver.Resolve(spec, time.Now())

	require.NoError(t, err)
	assert.Equal(t, []string{"r-1", "r-3"}, recipientIDs(recipients))
}

func TestResolveIsDeterministicWithinOneCall(t *testing.T) {
	resolver, _, _ := testResolver()
	spec := model.RecipientSpec{RecipientIDs: []string{"r-3", "r-1", "r-2"}}

	first, err := resolver.Resolve(spec, time.Now())
	require.NoError(t, err)
	second, err := resolver.Resolve(spec, time.Now())
	require.NoError(t, err)

	assert.Equal(t, recipientIDs(first), recipientIDs(second))
}

func TestResolveSegmentCriteria(t *testing.T) {
	resolver, _, _ := testResolver()

	spec := model.RecipientSpec{SegmentID: "seg-nairobi-customers"}
	recipients, err := resolver.Resolve(spec, time.Now())

	require.NoError(t, err)
	// r-2 is not in Nairobi, r-3 is not a customer
	assert.Equal(t, []string{"r-1"}, recipientIDs(recipients))
}

func TestResolveDeletedSegmentFails(t *testing.T) {
	resolver, _, segmentRepo := testResolver()
	delete(segmentRepo.segments, "seg-nairobi-customers")

	_, err := resolver.Resolve(model.RecipientSpec{SegmentID: "seg-nairobi-customers"}, time.Now())

	require.Error(t, err)
	assert.IsType(t, &appErrors.ResolutionError{}, err)
}

func TestResolveEmptySpecFails(t *testing.T) {
	resolver, _, _ := testResolver()

	_, err := resolver.Resolve(model.RecipientSpec{}, time.Now())

	require.Error(t, err)
	assert.IsType(t, &appErrors.ResolutionError{}, err)
}
