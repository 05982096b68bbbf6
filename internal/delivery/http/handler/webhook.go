package handler

import (
	"encoding/json"
	"net/http"

	"github.com/user/scrapex-service/internal/delivery/http/middleware"
	"github.com/user/scrapex-service/internal/delivery/http/request"
	"github.com/user/scrapex-service/internal/delivery/http/response"
)

func (h *Handler) HandleCreateWebhook(w http.ResponseWriter, r *http.Request) {
	var req request.CreateWebhookRequest
	if !h.decode(w, r, &req) {
		return
	}

	hook, err := h.Webhooks.Register(r.Context(), middleware.UserID(r.Context()), req.URL, req.Events)
	if err != nil {
		h.writeError(w, r, "register webhook", err)
		return
	}
	response.JSON(w, http.StatusCreated, hook)
}

func (h *Handler) HandleListWebhooks(w http.ResponseWriter, r *http.Request) {
	hooks, err := h.Webhooks.List(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, "list webhooks", err)
		return
	}
	response.JSON(w, http.StatusOK, response.WebhookListResponse{Webhooks: hooks})
}

func (h *Handler) HandleTriggerWebhook(w http.ResponseWriter, r *http.Request) {
	var req request.TriggerWebhookRequest
	if !h.decode(w, r, &req) {
		return
	}

	var data any
	if len(req.Data) > 0 {
		data = req.Data
	} else {
		data = json.RawMessage("{}")
	}

	summary, err := h.Webhooks.Dispatch(r.Context(), middleware.UserID(r.Context()), req.Event, data)
	if err != nil {
		h.writeError(w, r, "trigger webhook", err)
		return
	}
	response.JSON(w, http.StatusOK, summary)
}

func (h *Handler) HandleCRMSync(w http.ResponseWriter, r *http.Request) {
	var req request.CRMSyncRequest
	if !h.decode(w, r, &req) {
		return
	}

	summary, err := h.CRM.SyncLeads(r.Context(), req.Leads)
	if err != nil {
		h.writeError(w, r, "sync leads", err)
		return
	}
	response.JSON(w, http.StatusOK, summary)
}

func (h *Handler) HandleExportSheets(w http.ResponseWriter, r *http.Request) {
	var req request.ExportSheetsRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.CRM.ExportRows(r.Context(), req.Rows)
	if err != nil {
		h.writeError(w, r, "export rows", err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}
