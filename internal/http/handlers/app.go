package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"materials/internal/domain"
	"materials/internal/infra"
	"materials/internal/materials"
)

// MaterialService is the material core as seen by the HTTP layer.
type MaterialService interface {
	List(ctx context.Context, rawScope string) ([]domain.Material, error)
	Upload(ctx context.Context, rawScope string, upload materials.Upload) (*domain.Material, error)
	Generate(ctx context.Context, projectID string, in materials.GenerateInput) (*materials.GenerateResult, error)
	Delete(ctx context.Context, id string) (string, error)
}

// Pinger reports database reachability for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	Materials      MaterialService
	DB             Pinger
	Logger         infra.Logger
	MaxUploadBytes int64
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]any{
		"error": map[string]string{"code": errCode, "message": message},
	})
}

// fail maps a core error onto its HTTP status and error code.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		a.error(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
		return
	}

	msg := domain.MessageOf(err)
	switch domain.KindOf(err) {
	case domain.KindInvalidInput:
		a.error(w, http.StatusBadRequest, "bad_request", msg)
	case domain.KindNotFound:
		a.error(w, http.StatusNotFound, "not_found", msg)
	case domain.KindUnavailable:
		a.error(w, http.StatusServiceUnavailable, "ai_service_error", msg)
	default:
		a.Logger.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("handlers: request failed")
		a.error(w, http.StatusInternalServerError, "internal", msg)
	}
}
