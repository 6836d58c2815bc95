package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lumeocrm/campaign-service/internal/model"
	"github.com/lumeocrm/campaign-service/internal/repository"
)

// SegmentHandler exposes saved-filter CRUD used by campaign authoring.
type SegmentHandler struct {
	SegmentRepo   repository.SegmentRepositoryInterface
	RecipientRepo repository.RecipientRepositoryInterface
}

func (h *SegmentHandler) CreateSegment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string                `json:"name"`
		Criteria model.SegmentCriteria `json:"criteria"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	segment := &model.Segment{Name: body.Name, Criteria: body.Criteria}
	if err := h.SegmentRepo.Create(segment); err != nil {
		http.Error(w, "failed to create segment: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(segment)
}

func (h *SegmentHandler) ListSegments(w http.ResponseWriter, r *http.Request) {
	segments, err := h.SegmentRepo.ListAll()
	if err != nil {
		http.Error(w, "failed to fetch segments: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"data": segments})
}

// PreviewSegment returns the recipients a segment currently matches, so the
// UI can show a live count before a campaign is sent.
func (h *SegmentHandler) PreviewSegment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	segment, err := h.SegmentRepo.GetByID(id)
	if err != nil {
		http.Error(w, "failed to fetch segment: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if segment == nil {
		http.Error(w, "segment not found", http.StatusNotFound)
		return
	}

	recipients, err := h.RecipientRepo.ListByCriteria(segment.Criteria)
	if err != nil {
		http.Error(w, "failed to evaluate segment: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"segment_id":  segment.ID,
		"match_count": len(recipients),
		"data":        recipients,
	})
}
