package v1alpha1

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/newsreel/newsreel/internal/service"
	"github.com/newsreel/newsreel/internal/store/model"
)

type CreateJobRequest struct {
	Topic        string `json:"topic"`
	Language     string `json:"language"`
	TargetLength int    `json:"targetLength"`
	AutoPublish  bool   `json:"autoPublish"`
}

func (h *ServiceHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	job, err := h.jobSrv.CreateJob(r.Context(), service.CreateJobForm{
		Topic:        req.Topic,
		Language:     req.Language,
		TargetLength: req.TargetLength,
		AutoPublish:  req.AutoPublish,
	})
	if err != nil {
		switch err.(type) {
		case *service.ErrInvalidJob:
			renderError(w, r, http.StatusBadRequest, err.Error())
		default:
			renderError(w, r, http.StatusInternalServerError, err.Error())
		}
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, jobToReply(job))
}

func (h *ServiceHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := h.jobSrv.GetJob(r.Context(), id)
	if err != nil {
		switch err.(type) {
		case *service.ErrResourceNotFound:
			renderError(w, r, http.StatusNotFound, err.Error())
		default:
			renderError(w, r, http.StatusInternalServerError, err.Error())
		}
		return
	}

	render.JSON(w, r, jobToReply(job))
}

func (h *ServiceHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	filter := &service.JobFilter{}
	if status := r.URL.Query().Get("status"); status != "" {
		s := model.JobStatus(status)
		filter.Status = &s
	}
	if topic := r.URL.Query().Get("topic"); topic != "" {
		filter.Topic = &topic
	}

	jobs, err := h.jobSrv.ListJobs(r.Context(), filter)
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	replies := make([]JobReply, 0, len(jobs))
	for i := range jobs {
		replies = append(replies, jobToReply(&jobs[i]))
	}
	render.JSON(w, r, replies)
}

func (h *ServiceHandler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid job id")
		return
	}

	if err := h.jobSrv.DeleteJob(r.Context(), id); err != nil {
		switch err.(type) {
		case *service.ErrResourceNotFound:
			renderError(w, r, http.StatusNotFound, err.Error())
		case *service.ErrJobNotDeletable:
			renderError(w, r, http.StatusConflict, err.Error())
		default:
			renderError(w, r, http.StatusInternalServerError, err.Error())
		}
		return
	}

	render.NoContent(w, r)
}
