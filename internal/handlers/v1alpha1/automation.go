package v1alpha1

import (
	"net/http"

	"github.com/go-chi/render"
)

type AutomationStatusReply struct {
	Paused bool `json:"paused"`
}

func (h *ServiceHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	h.automationSrv.TriggerSync(r.Context())
	render.JSON(w, r, map[string]string{"status": "sync triggered"})
}

func (h *ServiceHandler) PauseAutomation(w http.ResponseWriter, r *http.Request) {
	h.automationSrv.Pause()
	render.JSON(w, r, AutomationStatusReply{Paused: true})
}

func (h *ServiceHandler) ResumeAutomation(w http.ResponseWriter, r *http.Request) {
	h.automationSrv.Resume()
	render.JSON(w, r, AutomationStatusReply{Paused: false})
}

func (h *ServiceHandler) AutomationStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, AutomationStatusReply{Paused: h.automationSrv.Paused()})
}
