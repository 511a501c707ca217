package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/kdimtricp/faik/internal/logging"
)

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(log.WithField("component", "http")))
	r.Use(middleware.Recoverer)

	r.Get("/", HomeHandler)
	r.Get("/ping", PingHandler)

	r.Get("/model-status", app.ModelStatusHandler)
	r.Get("/model-info", app.ModelInfoHandler)
	r.Post("/analyze-audio", app.AnalyzeAudioHandler)
	r.Post("/debug-audio", app.DebugAudioHandler)

	r.Route("/analyses", func(r chi.Router) {
		r.Get("/", app.ListAnalysesHandler)
		r.Get("/{id}", app.GetAnalysisHandler)
		r.Get("/{id}/audio", app.AnalysisAudioHandler)
	})

	return r
}
