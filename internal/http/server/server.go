// Package server exposes the generated dashboard and a small JSON API over
// the persisted listing store. It is read-only except for cache
// administration, which sits behind the admin session token.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/auth"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/cache"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/config"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/logger"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/models"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/store"
)

type Server struct {
	config    *config.Config
	auth      *auth.Service
	snapshots cache.Cache
	router    *chi.Mux
	log       *logger.Logger
}

func New(cfg *config.Config, snapshots cache.Cache, log *logger.Logger) *Server {
	s := &Server{
		config:    cfg,
		auth:      auth.NewService(cfg.Auth.SessionSecret, cfg.Auth.AdminTokenHash),
		snapshots: snapshots,
		router:    chi.NewRouter(),
		log:       log,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(s.recoverMiddleware)
	s.router.Use(s.securityHeadersMiddleware)
	s.router.Use(s.requestLogMiddleware)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Get("/api/listings", s.handleListings)
	s.router.Get("/api/changes", s.handleChanges)
	s.router.Get("/api/summary", s.handleSummary)
	s.router.Post("/api/login", s.handleLogin)

	s.router.Group(func(r chi.Router) {
		r.Use(s.adminMiddleware)
		r.Get("/api/cache/stats", s.handleCacheStats)
		r.Post("/api/cache/cleanup", s.handleCacheCleanup)
	})

	// Everything else is the published dashboard.
	fileServer := http.FileServer(http.Dir(s.config.Report.Directory))
	s.router.Handle("/*", fileServer)
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("panic serving request",
					"path", r.URL.Path,
					"panic", rec,
					"stack", string(debug.Stack()))
				respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start).String())
	})
}

// adminMiddleware requires a valid admin session JWT on the Authorization
// header.
func (s *Server) adminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r)
		if !ok {
			respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing_token"})
			return
		}
		if _, err := s.auth.ValidateSession(token); err != nil {
			respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListings returns the persisted listings, optionally filtered by
// ?source= and ?search_term=.
func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	listings, err := s.loadStore(w)
	if err != nil {
		return
	}

	sourceFilter := r.URL.Query().Get("source")
	termFilter := r.URL.Query().Get("search_term")

	filtered := make([]*models.Listing, 0, len(listings))
	for _, l := range listings {
		if sourceFilter != "" {
			source, ok := models.ParseSource(sourceFilter)
			if !ok || l.Source != source {
				continue
			}
		}
		if termFilter != "" && l.SearchTerm != termFilter {
			continue
		}
		filtered = append(filtered, l)
	}

	respondJSON(w, http.StatusOK, filtered)
}

// handleChanges streams the latest run's changes.json artifact.
func (s *Server) handleChanges(w http.ResponseWriter, _ *http.Request) {
	path := filepath.Join(s.config.Report.Directory, "changes.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			respondJSON(w, http.StatusNotFound, map[string]string{"error": "no_run_yet"})
			return
		}
		s.log.Error("reading run changes", "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type summaryResponse struct {
	TotalListings int                   `json:"total_listings"`
	BySource      map[models.Source]int `json:"by_source"`
	BikesTracked  int                   `json:"bikes_tracked"`
	LastUpdated   *models.WallTime      `json:"last_updated,omitempty"`
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	listings, err := s.loadStore(w)
	if err != nil {
		return
	}

	summary := summaryResponse{
		TotalListings: len(listings),
		BySource:      make(map[models.Source]int),
	}
	terms := make(map[string]bool)
	for _, l := range listings {
		summary.BySource[l.Source]++
		terms[l.SearchTerm] = true
	}
	summary.BikesTracked = len(terms)

	if info, err := os.Stat(s.config.Store.Path); err == nil {
		stamp := models.NewWallTime(info.ModTime())
		summary.LastUpdated = &stamp
	}

	respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_json"})
		return
	}

	if err := s.auth.VerifyAdminToken(payload.Token); err != nil {
		if errors.Is(err, auth.ErrNoTokenConfigured) {
			respondJSON(w, http.StatusForbidden, map[string]string{"error": "no_admin_token_configured"})
			return
		}
		respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_credentials"})
		return
	}

	session, err := s.auth.GenerateSession()
	if err != nil {
		s.log.Error("generating session", "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"session": session})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.snapshots.Stats(r.Context())
	if err != nil {
		s.log.Error("reading cache stats", "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCacheCleanup(w http.ResponseWriter, r *http.Request) {
	if err := s.snapshots.ClearExpired(r.Context()); err != nil {
		s.log.Error("clearing expired snapshots", "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
		return
	}
	stats, err := s.snapshots.Stats(r.Context())
	if err != nil {
		s.log.Error("reading cache stats", "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// loadStore reads the persisted store and returns its listings sorted by
// id. On failure the response has already been written.
func (s *Server) loadStore(w http.ResponseWriter) ([]*models.Listing, error) {
	persisted, err := store.Load(s.config.Store.Path)
	if err != nil {
		s.log.Error("loading listing store", "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "store_unreadable"})
		return nil, err
	}

	listings := make([]*models.Listing, 0, len(persisted))
	for _, l := range persisted {
		listings = append(listings, l)
	}
	sort.Slice(listings, func(i, j int) bool { return listings[i].ID < listings[j].ID })
	return listings, nil
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
