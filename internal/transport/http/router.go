package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"faceread-quiz-service/internal/app"
	"faceread-quiz-service/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	CORSOrigins []string
	Logger      logrus.FieldLogger
}

// NewRouter mounts the websocket endpoint and the cache admin API.
func NewRouter(service *app.QuizService, opts RouterOptions) http.Handler {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	ws := NewWSHandler(service, opts.Logger)
	admin := &adminHandler{service: service, log: opts.Logger}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/ws", ws.ServeWS)

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(middleware.Timeout(30 * time.Second))
		v1.Get("/cache", admin.cacheStatus)
		v1.Delete("/cache", admin.invalidateAll)
		v1.Delete("/cache/{lang}", admin.invalidateLanguage)
		v1.Post("/cache/preload", admin.preload)
		v1.Get("/sessions/{sessionID}", admin.session)
	})
	return r
}

type adminHandler struct {
	service *app.QuizService
	log     logrus.FieldLogger
}

func (h *adminHandler) cacheStatus(w http.ResponseWriter, r *http.Request) {
	entries := h.service.CacheStatus()
	if entries == nil {
		entries = []domain.CacheEntry{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *adminHandler) invalidateAll(w http.ResponseWriter, r *http.Request) {
	h.service.InvalidateCache("")
	h.log.Info("question cache invalidated")
	w.WriteHeader(http.StatusNoContent)
}

func (h *adminHandler) invalidateLanguage(w http.ResponseWriter, r *http.Request) {
	lang, err := domain.ParseLanguage(chi.URLParam(r, "lang"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	h.service.InvalidateCache(lang)
	h.log.WithField("language", lang).Info("question cache invalidated")
	w.WriteHeader(http.StatusNoContent)
}

type preloadEntry struct {
	Language  domain.Language `json:"language"`
	Count     int             `json:"count"`
	FromCache bool            `json:"fromCache"`
	LoadTime  string          `json:"loadTime"`
}

func (h *adminHandler) preload(w http.ResponseWriter, r *http.Request) {
	results := h.service.Preload(r.Context())
	out := make([]preloadEntry, 0, len(results))
	for _, res := range results {
		out = append(out, preloadEntry{
			Language:  res.Language,
			Count:     len(res.Questions),
			FromCache: res.FromCache,
			LoadTime:  res.LoadTime.String(),
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"loaded": out})
}

func (h *adminHandler) session(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrSessionNotFound) {
			status = http.StatusNotFound
		}
		respondError(w, status, err)
		return
	}
	respondJSON(w, http.StatusOK, newStateView(session.ID(), session.Snapshot(), resultFor(session)))
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, errorPayload{Message: err.Error()})
}
