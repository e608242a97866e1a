// File: internal/server/handlers.go
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xkilldash9x/handoff/internal/prompts"
	"github.com/xkilldash9x/handoff/internal/runner"
	"github.com/xkilldash9x/handoff/internal/script"
	"github.com/xkilldash9x/handoff/internal/service"
)

// maxBodyBytes caps request bodies; scripts and prompts are small text documents.
const maxBodyBytes = 1 << 20

// Handlers serves the session and prompt API.
type Handlers struct {
	log      *zap.Logger
	sessions Sessions
	prompts  Prompts
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(logger *zap.Logger, sessions Sessions, prompts Prompts) *Handlers {
	return &Handlers{
		log:      logger.Named("handlers"),
		sessions: sessions,
		prompts:  prompts,
	}
}

// RegisterRoutes mounts /healthz and the /api/v1 routes on r.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.HandleHealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", h.HandleListSessions)
			r.Post("/", h.HandleCreateSession)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", h.HandleGetSession)
				r.Put("/", h.HandleUpdateSession)
				r.Delete("/", h.HandleDeleteSession)
				r.Post("/start", h.HandleStartSession)
				r.Post("/resume", h.HandleResumeSession)
				r.Post("/reset", h.HandleResetSession)
			})
		})
		r.Route("/prompts", func(r chi.Router) {
			r.Get("/", h.HandleListPrompts)
			r.Post("/", h.HandleSavePrompt)
			r.Get("/{name}", h.HandleLoadPrompt)
		})
		r.Get("/scripts/example", h.HandleExampleScript)
	})
}

// HandleHealthCheck confirms the server is responsive.
func (h *Handlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// -- Sessions --

func (h *Handlers) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	recs, err := h.sessions.List(r.Context())
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithSuccess(w, http.StatusOK, recs)
}

func (h *Handlers) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Script == "" {
		req.Script = script.DefaultScript
	}
	rec, err := h.sessions.Create(r.Context(), req.Script, req.Prompt)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.log.Info("Session created via API.", zap.String("session_id", rec.ID))
	h.respondWithSuccess(w, http.StatusCreated, rec)
}

func (h *Handlers) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	rec, err := h.sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithSuccess(w, http.StatusOK, rec)
}

func (h *Handlers) HandleUpdateSession(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if !h.decode(w, r, &req) {
		return
	}
	rec, err := h.sessions.Update(r.Context(), chi.URLParam(r, "sessionID"), req.Script, req.Prompt)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithSuccess(w, http.StatusOK, rec)
}

func (h *Handlers) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		h.respondWithError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleStartSession runs the session until it pauses, completes or aborts.
// The response carries the resulting snapshot even when the run failed.
func (h *Handlers) HandleStartSession(w http.ResponseWriter, r *http.Request) {
	rec, err := h.sessions.Start(r.Context(), chi.URLParam(r, "sessionID"))
	h.respondWithRun(w, rec, err)
}

func (h *Handlers) HandleResumeSession(w http.ResponseWriter, r *http.Request) {
	rec, err := h.sessions.Resume(r.Context(), chi.URLParam(r, "sessionID"))
	h.respondWithRun(w, rec, err)
}

func (h *Handlers) HandleResetSession(w http.ResponseWriter, r *http.Request) {
	rec, err := h.sessions.Reset(r.Context(), chi.URLParam(r, "sessionID"))
	h.respondWithRun(w, rec, err)
}

// -- Prompts --

func (h *Handlers) HandleListPrompts(w http.ResponseWriter, r *http.Request) {
	names, err := h.prompts.List()
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithSuccess(w, http.StatusOK, names)
}

func (h *Handlers) HandleSavePrompt(w http.ResponseWriter, r *http.Request) {
	var req PromptRequest
	if !h.decode(w, r, &req) {
		return
	}
	name, err := h.prompts.Save(req.Name, req.Content)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithSuccess(w, http.StatusCreated, PromptResponse{Name: name, Content: req.Content})
}

func (h *Handlers) HandleLoadPrompt(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	content, err := h.prompts.Load(name)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithSuccess(w, http.StatusOK, PromptResponse{Name: prompts.SanitizeName(name), Content: content})
}

func (h *Handlers) HandleExampleScript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(script.DefaultScript))
}

// -- Responses --

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	// Only JSON bodies are accepted, so cross-site form and text/plain posts
	// cannot reach a handler without a preflight.
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		h.respondWithStatus(w, http.StatusUnsupportedMediaType, "error", nil, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.respondWithStatus(w, http.StatusBadRequest, "error", nil, fmt.Sprintf("Invalid request body: %v", err))
		return false
	}
	return true
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var verr *script.ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, prompts.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, prompts.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, runner.ErrAwaitingUser), errors.Is(err, service.ErrSessionBusy),
		errors.Is(err, runner.ErrInterrupted):
		return http.StatusConflict
	case errors.Is(err, service.ErrResetQueued):
		return http.StatusAccepted
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) respondWithRun(w http.ResponseWriter, rec interface{}, err error) {
	if errors.Is(err, service.ErrResetQueued) {
		h.respondWithSuccess(w, http.StatusAccepted, rec)
		return
	}
	if err != nil {
		code := statusFor(err)
		if code == http.StatusNotFound {
			rec = nil
		}
		h.respondWithStatus(w, code, "error", rec, err.Error())
		return
	}
	h.respondWithSuccess(w, http.StatusOK, rec)
}

func (h *Handlers) respondWithError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		h.log.Error("Request failed.", zap.Error(err))
	}
	h.respondWithStatus(w, code, "error", nil, err.Error())
}

func (h *Handlers) respondWithSuccess(w http.ResponseWriter, statusCode int, data interface{}) {
	h.respondWithStatus(w, statusCode, "success", data, "")
}

func (h *Handlers) respondWithStatus(w http.ResponseWriter, statusCode int, status string, data interface{}, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	resp := APIResponse{Status: status, Data: data, Error: message}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.Error("Failed to encode response", zap.Error(err))
	}
}
