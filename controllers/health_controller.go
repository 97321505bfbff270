package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Kubolab-io/takkapp-v1-sub000/services"
	"github.com/Kubolab-io/takkapp-v1-sub000/utils"
)

type HealthController struct {
	matching  *services.MatchingService
	startTime time.Time
}

type healthResponse struct {
	Status        string  `json:"status"`
	Uptime        string  `json:"uptime"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	EpochID       string  `json:"epoch_id"`
}

func NewHealthController(matching *services.MatchingService) *HealthController {
	return &HealthController{
		matching:  matching,
		startTime: time.Now(),
	}
}

func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(hc.startTime)
	utils.WriteJSONResponse(w, http.StatusOK, healthResponse{
		Status:        "healthy",
		Uptime:        formatDuration(uptime),
		UptimeSeconds: uptime.Seconds(),
		EpochID:       hc.matching.CurrentEpochID(),
	})
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}
