package v1alpha1

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/newsreel/newsreel/internal/service"
	"github.com/newsreel/newsreel/internal/store/model"
	"github.com/newsreel/newsreel/pkg/requestid"
)

// ServiceHandler translates HTTP requests into service calls. It holds no
// business logic of its own.
type ServiceHandler struct {
	jobSrv        *service.JobService
	automationSrv *service.AutomationService
}

func NewServiceHandler(jobSrv *service.JobService, automationSrv *service.AutomationService) *ServiceHandler {
	return &ServiceHandler{
		jobSrv:        jobSrv,
		automationSrv: automationSrv,
	}
}

func (h *ServiceHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", h.CreateJob)
			r.Get("/", h.ListJobs)
			r.Get("/{id}", h.GetJob)
			r.Delete("/{id}", h.DeleteJob)
		})
		r.Route("/automation", func(r chi.Router) {
			r.Post("/sync", h.TriggerSync)
			r.Post("/pause", h.PauseAutomation)
			r.Post("/resume", h.ResumeAutomation)
			r.Get("/status", h.AutomationStatus)
		})
	})
}

type ErrorReply struct {
	Message   string  `json:"message"`
	RequestId *string `json:"requestId,omitempty"`
}

func renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorReply{Message: message, RequestId: requestid.FromContextPtr(r.Context())})
}

type PublicationReply struct {
	Platform        string     `json:"platform"`
	PlatformVideoId string     `json:"platformVideoId,omitempty"`
	Status          string     `json:"status"`
	Error           *string    `json:"error,omitempty"`
	PublishedAt     *time.Time `json:"publishedAt,omitempty"`
}

type JobReply struct {
	Id           uuid.UUID          `json:"id"`
	Topic        string             `json:"topic"`
	Language     string             `json:"language"`
	TargetLength int                `json:"targetLength"`
	AutoPublish  bool               `json:"autoPublish"`
	Status       string             `json:"status"`
	Progress     int                `json:"progress"`
	Error        *string            `json:"error,omitempty"`
	VideoUrl     *string            `json:"videoUrl,omitempty"`
	Publications []PublicationReply `json:"publications,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

func jobToReply(job *model.Job) JobReply {
	reply := JobReply{
		Id:           job.ID,
		Topic:        job.Topic,
		Language:     job.Language,
		TargetLength: job.TargetLength,
		AutoPublish:  job.AutoPublish,
		Status:       string(job.Status),
		Progress:     job.Progress,
		Error:        job.Error,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
	}
	if job.VideoAsset != nil {
		url := job.VideoAsset.URL
		reply.VideoUrl = &url
	}
	for _, p := range job.Publications {
		reply.Publications = append(reply.Publications, PublicationReply{
			Platform:        p.Platform,
			PlatformVideoId: p.PlatformVideoID,
			Status:          string(p.Status),
			Error:           p.Error,
			PublishedAt:     p.PublishedAt,
		})
	}
	return reply
}
