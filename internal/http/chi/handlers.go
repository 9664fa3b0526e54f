package chi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
	"github.com/minutesapp/minutes-pipeline/events"
	"github.com/minutesapp/minutes-pipeline/pipeline"
	"github.com/minutesapp/minutes-pipeline/webhook"
)

// Handlers sets up the webhook API routes.
// baseCtx is the server lifetime context; accepted events are processed
// on it rather than on the request context, which dies with the response.
func Handlers(baseCtx context.Context, processor *webhook.Processor, pipe *pipeline.Service, registry *events.Loader, metricsHandler http.Handler) *chi.Mux {
	logger := httplog.NewLogger("minutes-webhook-api", httplog.Options{
		JSON: true,
	})

	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Liveness
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/webhook", func(r chi.Router) {
		r.Post("/meeting-ended", postMeetingEnded(baseCtx, processor, pipe, registry).ServeHTTP)
		r.Get("/meeting-ended", getMeetingEnded(processor, registry).ServeHTTP)
	})

	return r
}
