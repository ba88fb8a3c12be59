package handlers

import "net/http"

type indexResponse struct {
	Message            string            `json:"message"`
	AvailableEndpoints map[string]string `json:"available_endpoints"`
}

var endpoints = map[string]string{
	"create_appointment": "POST /api/appointments",
	"get_appointments":   "GET /api/admin/appointments",
	"update_status":      "PATCH /api/admin/appointments/{id}",
	"delete_appointment": "DELETE /api/admin/appointments/{id}",
	"realtime_updates":   "GET /api/admin/updates",
	"health_check":       "GET /health",
}

// Index lists the public API. Mounted on "GET /{$}".
func Index(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, indexResponse{
		Message:            "Barber Shop API is running",
		AvailableEndpoints: endpoints,
	})
}
