package handler

import (
	"net/http"

	"github.com/user/scrapex-service/internal/delivery/http/request"
	"github.com/user/scrapex-service/internal/delivery/http/response"
)

func (h *Handler) HandleScrapeFacility(w http.ResponseWriter, r *http.Request) {
	var req request.ScrapeFacilityRequest
	if !h.decode(w, r, &req) {
		return
	}

	facility, err := h.Facilities.Scrape(r.Context(), req.URL)
	if err != nil {
		h.writeError(w, r, "scrape facility", err)
		return
	}
	response.JSON(w, http.StatusOK, facility)
}

func (h *Handler) HandleAuditRevenue(w http.ResponseWriter, r *http.Request) {
	var req request.AuditRevenueRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.Facilities.Audit(r.Context(), req.URL, req.Facility)
	if err != nil {
		h.writeError(w, r, "audit revenue", err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

func (h *Handler) HandlePredictLeadScore(w http.ResponseWriter, r *http.Request) {
	var req request.PredictLeadRequest
	if !h.decode(w, r, &req) {
		return
	}

	prediction, err := h.Leads.Predict(r.Context(), req.Facility)
	if err != nil {
		h.writeError(w, r, "predict lead score", err)
		return
	}
	response.JSON(w, http.StatusOK, prediction)
}

func (h *Handler) HandleBulkPredictLeads(w http.ResponseWriter, r *http.Request) {
	var req request.BulkPredictRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.Leads.BulkPredict(r.Context(), req.Facilities)
	if err != nil {
		h.writeError(w, r, "bulk predict leads", err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

func (h *Handler) HandleCallScript(w http.ResponseWriter, r *http.Request) {
	var req request.CallScriptRequest
	if !h.decode(w, r, &req) {
		return
	}

	script, err := h.Leads.CallScript(r.Context(), req.FacilityName, req.Analysis)
	if err != nil {
		h.writeError(w, r, "generate call script", err)
		return
	}
	response.JSON(w, http.StatusOK, script)
}

func (h *Handler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req request.VerifyEmailRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.Email.Verify(r.Context(), req.Email)
	if err != nil {
		h.writeError(w, r, "verify email", err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}
