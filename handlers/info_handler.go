package handlers

import (
	"net/http"

	"github.com/upb/voiceme/utils"
)

// ServiceName and Version identify the API on GET /
const (
	ServiceName = "VoiceMe API"
	Version     = "2.0.0"
)

// InfoResponse describes the service
type InfoResponse struct {
	Name      string            `json:"name"`
	Version   string            `json:"version"`
	Status    string            `json:"status"`
	Endpoints map[string]string `json:"endpoints"`
}

// HandleInfo handles GET /
func HandleInfo(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, InfoResponse{
		Name:    ServiceName,
		Version: Version,
		Status:  "operational",
		Endpoints: map[string]string{
			"health":  "/health",
			"ready":   "/readyz",
			"ask":     "/ask",
			"metrics": "/metrics",
		},
	})
}
