package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/user/scrapex-service/internal/delivery/http/middleware"
	"github.com/user/scrapex-service/internal/delivery/http/request"
	"github.com/user/scrapex-service/internal/delivery/http/response"
	"github.com/user/scrapex-service/internal/usecase"
)

func (h *Handler) HandleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req request.SubmitJobRequest
	if !h.decode(w, r, &req) {
		return
	}

	job, err := h.Jobs.Submit(r.Context(), middleware.UserID(r.Context()), usecase.SubmitJobInput{
		URL:        req.URL,
		ScrapeType: req.ScrapeType,
		Schedule:   req.Schedule,
		Force:      req.Force,
	})
	if err != nil {
		h.writeError(w, r, "submit job", err)
		return
	}

	response.JSON(w, http.StatusAccepted, response.SubmitJobResponse{
		Status:  "success",
		Message: "URL submitted for scraping",
		JobID:   job.ID,
		Job:     job,
	})
}

func (h *Handler) HandleBulkSubmitJobs(w http.ResponseWriter, r *http.Request) {
	var req request.BulkJobRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.Jobs.SubmitBulk(r.Context(), middleware.UserID(r.Context()), req.URLs, req.ScrapeType)
	if err != nil {
		h.writeError(w, r, "submit bulk jobs", err)
		return
	}
	response.JSON(w, http.StatusAccepted, response.BulkSubmitResponse{Status: "success", BulkSubmitResult: result})
}

func (h *Handler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.Jobs.Get(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "get job", err)
		return
	}
	response.JSON(w, http.StatusOK, job)
}

func (h *Handler) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.Error(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	jobs, err := h.Jobs.List(r.Context(), middleware.UserID(r.Context()), r.URL.Query().Get("status"), limit)
	if err != nil {
		h.writeError(w, r, "list jobs", err)
		return
	}
	response.JSON(w, http.StatusOK, response.JobListResponse{Jobs: jobs, Count: len(jobs)})
}

func (h *Handler) HandleRerunJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.Jobs.Rerun(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "rerun job", err)
		return
	}
	response.JSON(w, http.StatusAccepted, response.SubmitJobResponse{
		Status:  "success",
		Message: "Job re-queued",
		JobID:   job.ID,
		Job:     job,
	})
}
