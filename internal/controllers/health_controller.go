package controllers

import (
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"gmd/internal/services"
)

type HealthController struct {
	coordinator services.CoordinatorServiceInterface
	startTime   time.Time
}

type healthResponse struct {
	Status              string  `json:"status"`
	Uptime              string  `json:"uptime"`
	UptimeSeconds       float64 `json:"uptime_seconds"`
	SnapshotAvailable   bool    `json:"snapshot_available"`
	ConsecutiveFailures int     `json:"consecutive_failures"`
	ReauthRequired      bool    `json:"reauth_required"`
}

func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	st := hc.coordinator.Status()
	uptime := time.Since(hc.startTime)
	resp := healthResponse{
		Status:              "ok",
		Uptime:              formatDuration(uptime),
		UptimeSeconds:       uptime.Seconds(),
		SnapshotAvailable:   st.Available,
		ConsecutiveFailures: st.ConsecutiveFailures,
		ReauthRequired:      st.ReauthRequired,
	}

	gson, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}

func NewHealthController(coordinator services.CoordinatorServiceInterface) *HealthController {
	return &HealthController{
		coordinator: coordinator,
		startTime:   time.Now(),
	}
}
