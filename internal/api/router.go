package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the handler set with the standard middleware chain.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/config", h.Config)
		r.Get("/config/details", h.ConfigDetails)
		r.Post("/config/save", h.SaveConfig)
		r.Post("/test_connections", h.TestConnections)

		r.Post("/crawl", h.Crawl)
		r.Post("/pipeline", h.Pipeline)
		r.Get("/progress", h.Progress)
		r.Get("/progress/stream", h.ProgressStream)

		r.Post("/generate_report", h.GenerateReport)
		r.Post("/send_report", h.SendReport)
		r.Post("/save_report", h.SaveReport)
		r.Post("/generate_poster", h.GeneratePoster)
		r.Post("/send_poster", h.SendPoster)

		r.Get("/list_files", h.ListFiles)
		r.Get("/files/{filename}", h.File)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
