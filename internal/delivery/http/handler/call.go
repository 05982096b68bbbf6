package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/user/scrapex-service/internal/delivery/http/middleware"
	"github.com/user/scrapex-service/internal/delivery/http/request"
	"github.com/user/scrapex-service/internal/delivery/http/response"
	"github.com/user/scrapex-service/internal/usecase"
)

const retellSignatureHeader = "x-retell-signature"

func (h *Handler) HandleComplianceCheck(w http.ResponseWriter, r *http.Request) {
	var req request.ComplianceCheckRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.Calls.CheckCompliance(req.PhoneNumber, req.Timezone)
	if err != nil {
		h.writeError(w, r, "check compliance", err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

func (h *Handler) HandleTriggerCall(w http.ResponseWriter, r *http.Request) {
	var req request.TriggerCallRequest
	if !h.decode(w, r, &req) {
		return
	}

	call, err := h.Calls.Trigger(r.Context(), middleware.UserID(r.Context()), usecase.TriggerCallInput{
		FacilityName: req.FacilityName,
		PhoneNumber:  req.PhoneNumber,
		Timezone:     req.Timezone,
		Script:       req.Script,
		Analysis:     req.Analysis,
		Metadata:     req.Metadata,
	})
	if err != nil {
		h.writeError(w, r, "trigger call", err)
		return
	}
	response.JSON(w, http.StatusOK, response.CallResponse{Success: true, Call: call})
}

// HandleRetellWebhook is unauthenticated; the signature header is the only
// proof of origin, so the raw body must reach the usecase untouched.
func (h *Handler) HandleRetellWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	call, err := h.Calls.HandleRetellEvent(r.Context(), body, r.Header.Get(retellSignatureHeader))
	if err != nil {
		h.writeError(w, r, "handle retell event", err)
		return
	}
	response.JSON(w, http.StatusOK, response.CallResponse{Success: true, Call: call})
}

func (h *Handler) HandleCallHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.Calls.History(r.Context(), middleware.UserID(r.Context()), r.URL.Query().Get("facility_name"))
	if err != nil {
		h.writeError(w, r, "load call history", err)
		return
	}
	response.JSON(w, http.StatusOK, history)
}

func (h *Handler) HandleCallStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Calls.Statistics(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, "load call statistics", err)
		return
	}
	response.JSON(w, http.StatusOK, stats)
}
