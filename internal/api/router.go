package api

import (
	"net/http"
	"os"
	"strings"

	"github.com/rs/cors"
)

// NewRouter wires the study endpoints and wraps them in CORS
func NewRouter(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/study/topics/{topicID}/start", h.StartSession)
	mux.HandleFunc("POST /api/study/sessions/{sessionID}/grade", h.GradeItem)
	mux.HandleFunc("POST /api/study/sessions/{sessionID}/pause", h.PauseSession)
	mux.HandleFunc("GET /api/study/overview", h.GetOverview)

	mux.HandleFunc("GET /api/topics", h.GetTopics)
	mux.HandleFunc("GET /api/topics/{topicID}/items", h.GetTopicItems)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins(),
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Learner-ID", "Accept", "Origin"},
		MaxAge:         86400,
	})

	return corsHandler.Handler(mux)
}

func allowedOrigins() []string {
	raw := os.Getenv("ALLOWED_ORIGINS")
	if raw == "" {
		return []string{"http://localhost:3000"}
	}
	origins := strings.Split(raw, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return origins
}
