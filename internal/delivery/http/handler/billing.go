package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/user/scrapex-service/internal/delivery/http/middleware"
	"github.com/user/scrapex-service/internal/delivery/http/request"
	"github.com/user/scrapex-service/internal/delivery/http/response"
)

func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	var req request.CheckoutRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.Billing.Checkout(r.Context(), middleware.UserID(r.Context()), req.Plan, req.Provider)
	if err != nil {
		h.writeError(w, r, "create checkout", err)
		return
	}
	response.JSON(w, http.StatusCreated, result)
}

func (h *Handler) HandleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	payment, err := h.Billing.Verify(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "verify payment", err)
		return
	}
	response.JSON(w, http.StatusOK, payment)
}

func (h *Handler) HandleListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.Billing.List(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, "list payments", err)
		return
	}
	response.JSON(w, http.StatusOK, response.PaymentListResponse{Payments: payments})
}

func (h *Handler) HandleCreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req request.CreateAPIKeyRequest
	if !h.decode(w, r, &req) {
		return
	}

	key, err := h.APIKeys.Create(r.Context(), middleware.UserID(r.Context()), req.Name)
	if err != nil {
		h.writeError(w, r, "create api key", err)
		return
	}
	response.JSON(w, http.StatusCreated, key)
}

func (h *Handler) HandleListAPIKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.APIKeys.List(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, "list api keys", err)
		return
	}
	response.JSON(w, http.StatusOK, response.APIKeyListResponse{APIKeys: keys})
}

func (h *Handler) HandleRevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	if err := h.APIKeys.Revoke(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, "revoke api key", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
