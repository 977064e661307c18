package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"imdbratings/internal/config"
	"imdbratings/internal/contentid"
	"imdbratings/internal/logging"
	"imdbratings/internal/ratings"
	"imdbratings/internal/ratingsapi"
	"imdbratings/internal/resolver"
	"imdbratings/internal/services"
)

const maxRequestBytes = 1 << 20

// Resolver produces the rating shown for a content id.
type Resolver interface {
	Resolve(ctx context.Context, rawID string, contentType contentid.ContentType) (resolver.Result, error)
}

// Cache is the shared response cache exposed under /api/cache.
type Cache interface {
	CacheGet(ctx context.Context, key string) ([]byte, bool, error)
	CachePut(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// CacheCleaner is implemented by caches that can drop expired entries.
type CacheCleaner interface {
	CacheCleanup(ctx context.Context) (int64, error)
}

// Deps are the collaborators behind the routes. Cache may be nil, which
// disables the cache endpoints.
type Deps struct {
	Catalog  ratings.Catalog
	Cache    Cache
	Resolver Resolver
}

// Server holds the HTTP handlers.
type Server struct {
	catalog  ratings.Catalog
	cache    Cache
	resolver Resolver
	display  DisplayOptions
	cacheTTL time.Duration
	backend  string
	logger   *slog.Logger
	handler  http.Handler
}

// NewServer builds the handler tree.
func NewServer(cfg *config.Config, deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		catalog:  deps.Catalog,
		cache:    deps.Cache,
		resolver: deps.Resolver,
		display:  DefaultDisplayOptions(cfg.Addon),
		cacheTTL: cfg.CacheTTL(),
		backend:  cfg.Store.Backend,
		logger:   logging.NewComponentLogger(logger, "api-server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/rating/{id}", s.handleRating)
	mux.HandleFunc("GET /api/episode/{series}/{season}/{episode}", s.handleEpisode)
	mux.HandleFunc("GET /api/episode/id/{id}", s.handleEpisodeByID)
	mux.HandleFunc("GET /api/kitsu-mapping", s.handleListMappings)
	mux.HandleFunc("GET /api/kitsu-mapping/{id}", s.handleGetMapping)
	mux.HandleFunc("POST /api/kitsu-mapping", s.handlePutMapping)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/stats/cache", s.handleStats)
	mux.HandleFunc("GET /api/cache/{key}", s.handleCacheGet)
	mux.HandleFunc("POST /api/cache", s.handleCachePut)
	mux.HandleFunc("DELETE /api/cache/cleanup", s.handleCacheCleanup)
	mux.HandleFunc("/", s.handleAddon)

	s.handler = requestIDMiddleware(corsMiddleware(s.logRequests(mux)))
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "OK",
		Time:    time.Now().UTC().Format(time.RFC3339),
		Version: AddonVersion,
		Store:   s.backend,
	})
}

func (s *Server) handleRating(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !strings.HasPrefix(id, "tt") {
		s.writeError(w, http.StatusBadRequest, `invalid id: must start with "tt"`)
		return
	}
	rec, err := s.catalog.GetRating(r.Context(), id)
	if err != nil {
		s.writeFailure(w, r, "rating lookup failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, ratingsapi.NewRatingResponse(rec))
}

func (s *Server) handleEpisode(w http.ResponseWriter, r *http.Request) {
	series := r.PathValue("series")
	if !strings.HasPrefix(series, "tt") {
		s.writeError(w, http.StatusBadRequest, `invalid series id: must start with "tt"`)
		return
	}
	season, seasonErr := strconv.Atoi(r.PathValue("season"))
	episode, episodeErr := strconv.Atoi(r.PathValue("episode"))
	if seasonErr != nil || episodeErr != nil || season < 0 || episode < 0 {
		s.writeError(w, http.StatusBadRequest, "season and episode must be non-negative integers")
		return
	}
	rec, err := s.catalog.GetEpisodeRating(r.Context(), series, season, episode)
	if err != nil {
		s.writeFailure(w, r, "episode lookup failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, ratingsapi.NewEpisodeResponse(rec, season, episode))
}

func (s *Server) handleEpisodeByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !strings.HasPrefix(id, "tt") {
		s.writeError(w, http.StatusBadRequest, `invalid episode id: must start with "tt"`)
		return
	}
	rec, err := s.catalog.GetEpisodeRatingByID(r.Context(), id)
	if err != nil {
		s.writeFailure(w, r, "episode lookup failed", err)
		return
	}
	if rec.EpisodeID == "" {
		rec.EpisodeID = id
	}
	s.writeJSON(w, http.StatusOK, ratingsapi.NewEpisodeIDResponse(rec))
}

func (s *Server) handleGetMapping(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if !strings.Contains(id, ":") {
		id = "kitsu:" + id
	}
	m, err := s.catalog.GetMapping(r.Context(), id)
	if err != nil {
		s.writeFailure(w, r, "mapping lookup failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, ratingsapi.NewMappingPayload(m))
}

func (s *Server) handleListMappings(w http.ResponseWriter, r *http.Request) {
	mappings, err := s.catalog.ListMappings(r.Context())
	if err != nil {
		s.writeFailure(w, r, "mapping list failed", err)
		return
	}
	list := ratingsapi.MappingList{Mappings: make([]ratingsapi.MappingPayload, 0, len(mappings))}
	for _, m := range mappings {
		list.Mappings = append(list.Mappings, ratingsapi.NewMappingPayload(m))
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handlePutMapping(w http.ResponseWriter, r *http.Request) {
	var payload ratingsapi.MappingPayload
	if err := decodeBody(r, &payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	m := payload.Mapping()
	if m.ForeignID == "" || m.IMDbID == "" {
		s.writeError(w, http.StatusBadRequest, "missing foreignId or imdbId")
		return
	}
	if err := s.catalog.PutMapping(r.Context(), m); err != nil {
		s.writeFailure(w, r, "mapping write failed", err)
		return
	}
	stored, err := s.catalog.GetMapping(r.Context(), m.ForeignID)
	if err != nil {
		stored = m
	}
	s.writeJSON(w, http.StatusCreated, ratingsapi.NewMappingPayload(stored))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.catalog.Stats(r.Context())
	if err != nil {
		s.writeFailure(w, r, "stats failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCacheGet(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		s.writeError(w, http.StatusNotImplemented, "cache not available")
		return
	}
	key := r.PathValue("key")
	data, ok, err := s.cache.CacheGet(r.Context(), key)
	if err != nil {
		s.writeFailure(w, r, "cache read failed", err)
		return
	}
	if !ok {
		s.writeError(w, http.StatusNotFound, "cache miss")
		return
	}
	if !json.Valid(data) {
		s.writeError(w, http.StatusInternalServerError, "invalid cached data format")
		return
	}
	s.writeJSON(w, http.StatusOK, ratingsapi.CacheEntry{Key: key, Data: data, Cached: true})
}

func (s *Server) handleCachePut(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		s.writeError(w, http.StatusNotImplemented, "cache not available")
		return
	}
	var entry ratingsapi.CacheEntry
	if err := decodeBody(r, &entry); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(entry.Key) == "" || len(entry.Data) == 0 || string(entry.Data) == "null" {
		s.writeError(w, http.StatusBadRequest, "missing key or data")
		return
	}
	ttl := s.cacheTTL
	if entry.TTLSeconds > 0 {
		ttl = time.Duration(entry.TTLSeconds) * time.Second
	}
	if err := s.cache.CachePut(r.Context(), entry.Key, entry.Data, ttl); err != nil {
		s.writeFailure(w, r, "cache write failed", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, ratingsapi.CacheEntry{Key: entry.Key, TTLSeconds: int(ttl / time.Second), Cached: true})
}

func (s *Server) handleCacheCleanup(w http.ResponseWriter, r *http.Request) {
	cleaner, ok := s.cache.(CacheCleaner)
	if !ok {
		s.writeError(w, http.StatusNotImplemented, "cache cleanup not available")
		return
	}
	deleted, err := cleaner.CacheCleanup(r.Context())
	if err != nil {
		s.writeFailure(w, r, "cache cleanup failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, CleanupResponse{Deleted: deleted})
}

// handleAddon serves the addon routes, which clients may address with an
// /api or /stremio prefix.
func (s *Server) handleAddon(w http.ResponseWriter, r *http.Request) {
	path := cleanAddonPath(r.URL.Path)
	switch {
	case path == "/manifest.json" && isRead(r):
		s.writeJSON(w, http.StatusOK, NewManifest())
	case path == "/health" && isRead(r):
		s.handleHealth(w, r)
	case strings.HasPrefix(path, "/stream/") && isRead(r):
		s.handleStream(w, r, path)
	default:
		s.writeJSON(w, http.StatusNotFound, NotFoundResponse{
			Error:              "not found",
			Path:               path,
			AvailableEndpoints: []string{"/manifest.json", "/stream/{type}/{id}.json", "/health"},
		})
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request, path string) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		s.writeError(w, http.StatusNotFound, "invalid stream request format")
		return
	}
	id := strings.TrimSuffix(parts[2], ".json")

	opts, err := ParseDisplayOptions(r.URL.Query().Get("config"), s.display)
	if err != nil {
		s.log(r).Debug("ignoring display options", logging.Error(err))
	}

	contentType, ok := contentid.ParseContentType(parts[1])
	if !ok {
		s.writeJSON(w, http.StatusOK, StreamResponse{Streams: []Stream{}})
		return
	}
	result, err := s.resolver.Resolve(r.Context(), id, contentType)
	if err != nil {
		s.log(r).Debug("stream request for unknown id", logging.String(logging.FieldContentID, id), logging.Error(err))
		s.writeJSON(w, http.StatusOK, StreamResponse{Streams: []Stream{}})
		return
	}
	s.writeJSON(w, http.StatusOK, StreamResponse{Streams: []Stream{FormatStream(result, opts)}})
}

func cleanAddonPath(path string) string {
	for _, prefix := range []string{"/api", "/stremio"} {
		if rest, ok := strings.CutPrefix(path, prefix); ok && (rest == "" || strings.HasPrefix(rest, "/")) {
			path = rest
			break
		}
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

func isRead(r *http.Request) bool {
	return r.Method == http.MethodGet || r.Method == http.MethodHead
}

func decodeBody(r *http.Request, dest any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	return dec.Decode(dest)
}

// writeFailure maps err onto a status. Not-found and validation failures
// are expected and only logged at debug.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := services.HTTPStatus(err)
	switch {
	case errors.Is(err, ratings.ErrNotFound) || errors.Is(err, services.ErrNotFound):
		s.writeError(w, status, "not found")
		return
	case status == http.StatusBadRequest:
		s.writeError(w, status, err.Error())
		return
	}
	logging.WarnWithContext(s.log(r), msg, "api_request_failed",
		logging.Error(err),
		logging.String("path", r.URL.Path),
		logging.String(logging.FieldErrorHint, "check the rating store"),
		logging.String(logging.FieldImpact, "request failed"))
	s.writeError(w, status, msg)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ratingsapi.ErrorResponse{Error: message})
}

func (s *Server) log(r *http.Request) *slog.Logger {
	return logging.WithContext(r.Context(), s.logger)
}
