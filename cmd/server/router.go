package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/threadcraft-api/internal/api"
	apiMiddleware "github.com/phrazzld/threadcraft-api/internal/api/middleware"
)

// setupRouter creates the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))
	r.Use(app.metrics.Middleware)

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)
	generationHandler := api.NewGenerationHandler(app.sessions, app.logger)
	attachmentHandler := api.NewAttachmentHandler(app.sessions, app.logger)
	historyHandler := api.NewHistoryHandler(app.sessions, app.logger)
	streamHandler := api.NewStreamHandler(app.sessions, app.hub, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		r.Use(app.limiter.Handler)

		r.Get("/me", historyHandler.Me)

		r.Get("/session", generationHandler.GetSession)
		r.Put("/session/content-type", generationHandler.SelectContentType)
		r.Post("/generations", generationHandler.Generate)

		r.Post("/attachments", attachmentHandler.Upload)
		r.Delete("/attachments/{index}", attachmentHandler.Remove)

		r.Get("/history", historyHandler.List)
		r.Post("/history/{id}/select", historyHandler.Select)

		r.Get("/notifications/ws", streamHandler.Stream)
	})

	r.Handle("/metrics", app.metrics.Handler())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
