package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kavinsood/kite/internal/config"
	"github.com/kavinsood/kite/internal/middleware"
	"github.com/kavinsood/kite/internal/service"
)

type Handler struct {
	Router chi.Router
}

// NewHandler wires the remote note store routes.
func NewHandler(
	noteService *service.NoteService,
	logger *zap.SugaredLogger,
	cfg *config.Config,
) *Handler {
	r := chi.NewRouter()

	r.Use(middleware.WithGzip)
	r.Use(middleware.WithLogging)
	r.Use(middleware.WithRateLimit(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst))
	r.Use(middleware.WithBucket)

	noteHandler := NewNoteHandler(noteService, logger)

	r.Get("/api/notes", noteHandler.List)
	r.Get("/api/note/{id}", noteHandler.Get)
	r.Post("/api/save", noteHandler.Save)
	r.Post("/api/delete", noteHandler.Delete)

	// Unmatched API routes are a hard 404; anything else falls through to
	// the frontend assets with an SPA fallback.
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		if strings.HasPrefix(req.URL.Path, "/api/") {
			http.NotFound(w, req)
			return
		}
		serveAssets(cfg.AssetsDir, w, req)
	})

	return &Handler{Router: r}
}
