// Package webapi exposes the digitization service over HTTP.
//
// All endpoints live under /api and speak JSON, except the content and
// download endpoints which serve the processed files themselves. Errors
// are returned as {"error": "..."} with a matching status code.
package webapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mvillars/docuforge/convert"
	"github.com/mvillars/docuforge/events"
	"github.com/mvillars/docuforge/registry"
)

// Pinger checks provider reachability with a given API key. Satisfied
// by *openrouter.Client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config configures the HTTP service.
type Config struct {
	Store     *registry.Store
	Converter *convert.Converter
	// UploadRoot is the file-store root; uploads and processed outputs
	// live beneath it.
	UploadRoot string
	// MaxUploadBytes caps a single multipart request body.
	MaxUploadBytes int64
	// TempDir hosts scratch space for merge operations.
	TempDir string
	// NewPinger builds a provider client for the settings test endpoint.
	NewPinger func(apiKey string) Pinger
	// Events is optional; nil disables event logging.
	Events *events.Logger
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Service is the HTTP boundary of the application.
type Service struct {
	store  *registry.Store
	conv   *convert.Converter
	cfg    Config
	logger *slog.Logger
}

// New creates the HTTP service.
func New(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 64 << 20
	}
	return &Service{store: cfg.Store, conv: cfg.Converter, cfg: cfg, logger: cfg.Logger}
}

// Router builds the chi router with all endpoints registered.
func (s *Service) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/projects", func(r chi.Router) {
			r.Post("/", s.handleProjectCreate)
			r.Get("/", s.handleProjectList)
			r.Get("/{id}", s.handleProjectGet)
			r.Delete("/{id}", s.handleProjectDelete)
			r.Post("/{id}/documents", s.handleDocumentUpload)
			r.Post("/{id}/process", s.handleProcess)
		})

		r.Route("/documents", func(r chi.Router) {
			r.Get("/{id}", s.handleDocumentGet)
			r.Get("/{id}/content", s.handleDocumentContent)
			r.Get("/{id}/download", s.handleDocumentDownload)
			r.Delete("/{id}", s.handleDocumentDelete)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", s.handleSettingsGet)
			r.Post("/", s.handleSettingsUpdate)
			r.Post("/test", s.handleSettingsTest)
		})

		r.Post("/merge/pdfs", s.handleMergePDFs)
		r.Post("/merge/images", s.handleMergeImages)
	})

	return r
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ValidationError marks a client-side input problem; handlers map it to
// a 400 response.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respond(w, status, map[string]string{"error": msg})
}

func (s *Service) logEvent(ctx context.Context, eventType, entityType, entityID string, success bool) {
	if s.cfg.Events == nil {
		return
	}
	s.cfg.Events.Log(ctx, events.Event{
		Type:       eventType,
		EntityType: entityType,
		EntityID:   entityID,
		Success:    success,
	})
}
