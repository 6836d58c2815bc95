package handler

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lumeocrm/campaign-service/internal/service"
)

// TrackingHandler serves the open-pixel and click-redirect endpoints embedded
// in rendered emails. Counter updates are best effort: tracking must never
// break the recipient's experience.
type TrackingHandler struct {
	Service *service.CampaignService
}

// transparent 1x1 GIF
var trackingPixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

func (h *TrackingHandler) TrackOpen(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "id")
	if err := h.Service.TrackOpen(campaignID); err != nil {
		log.Println("⚠️ failed to record open:", err)
	}

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(trackingPixel)
}

func (h *TrackingHandler) TrackClick(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "id")
	target := r.URL.Query().Get("u")
	if target == "" {
		http.Error(w, "missing target url", http.StatusBadRequest)
		return
	}

	if err := h.Service.TrackClick(campaignID); err != nil {
		log.Println("⚠️ failed to record click:", err)
	}

	http.Redirect(w, r, target, http.StatusFound)
}
