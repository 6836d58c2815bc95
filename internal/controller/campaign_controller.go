package controller

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/lumeocrm/campaign-service/internal/errors"
	"github.com/lumeocrm/campaign-service/internal/model"
	"github.com/lumeocrm/campaign-service/internal/service"
)

type CampaignController struct {
	CampaignService *service.CampaignService
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch err.(type) {
	case *appErrors.ErrCampaignNotFound:
		status = http.StatusNotFound
	case *appErrors.ResolutionError:
		status = http.StatusUnprocessableEntity
	case *appErrors.InvalidTransitionError:
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type campaignBody struct {
	Name            string              `json:"name"`
	Type            string              `json:"type"`
	SubjectTemplate string              `json:"subject_template"`
	BodyTemplate    string              `json:"body_template"`
	SenderName      string              `json:"sender_name"`
	SenderAddress   string              `json:"sender_address"`
	RecipientSpec   model.RecipientSpec `json:"recipient_spec"`
	ScheduledAt     *string             `json:"scheduled_at"`
}

func (b *campaignBody) toModel() (*model.Campaign, error) {
	c := &model.Campaign{
		Name:            b.Name,
		Type:            model.CampaignType(b.Type),
		SubjectTemplate: b.SubjectTemplate,
		BodyTemplate:    b.BodyTemplate,
		SenderName:      b.SenderName,
		SenderAddress:   b.SenderAddress,
		RecipientSpec:   b.RecipientSpec,
	}
	if b.ScheduledAt != nil {
		t, err := time.Parse(time.RFC3339, *b.ScheduledAt)
		if err != nil {
			return nil, err
		}
		c.ScheduledAt = &t
	}
	return c, nil
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body campaignBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	campaign, err := body.toModel()
	if err != nil {
		http.Error(w, "invalid scheduled_at: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := c.CampaignService.CreateCampaign(campaign); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, campaign)
}

func (c *CampaignController) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	var body campaignBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	campaign, err := body.toModel()
	if err != nil {
		http.Error(w, "invalid scheduled_at: "+err.Error(), http.StatusBadRequest)
		return
	}
	campaign.ID = chi.URLParam(r, "id")

	if err := c.CampaignService.UpdateCampaign(campaign); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, campaign)
}

func (c *CampaignController) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := c.CampaignService.DeleteCampaign(id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	page := intQuery(r, "page", 1)
	pageSize := intQuery(r, "page_size", 20)
	campaignType := r.URL.Query().Get("type")
	status := r.URL.Query().Get("status")

	campaigns, pagination, err := c.CampaignService.ListCampaigns(page, pageSize, campaignType, status)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":       campaigns,
		"pagination": pagination,
	})
}

func (c *CampaignController) GetCampaignDetails(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	details, err := c.CampaignService.GetCampaignDetails(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (c *CampaignController) SendCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	receipt, err := c.CampaignService.SendNow(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, receipt)
}

func (c *CampaignController) PauseCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := c.CampaignService.Pause(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"campaign_id": id, "status": "pausing"})
}

func (c *CampaignController) ResumeCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	receipt, err := c.CampaignService.Resume(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, receipt)
}

func (c *CampaignController) CancelCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := c.CampaignService.Cancel(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"campaign_id": id, "status": string(model.StatusCancelled)})
}

func (c *CampaignController) PersonalizedPreview(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "id")

	var body struct {
		RecipientID      string  `json:"recipient_id"`
		OverrideTemplate *string `json:"override_template"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	subject, rendered, err := c.CampaignService.RenderPreview(campaignID, body.RecipientID, body.OverrideTemplate)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rendered_subject": subject,
		"rendered_message": rendered,
		"recipient_id":     body.RecipientID,
	})
}

func intQuery(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
