package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/kensa/internal/config"
	"github.com/hyperjump/kensa/internal/models"
	"github.com/hyperjump/kensa/internal/search"
	"github.com/hyperjump/kensa/internal/storage"
	"go.uber.org/zap"
)

type searchResponse struct {
	Query   string               `json:"query"`
	Results []models.ScoredChunk `json:"results"`
}

type historyResponse struct {
	Runs   []*models.ReviewRun `json:"runs"`
	Total  int64               `json:"total"`
	Offset int                 `json:"offset"`
	Limit  int                 `json:"limit"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ret := s.currentRetriever()
	if ret == nil {
		s.respondError(w, http.StatusServiceUnavailable, "no index loaded; run `kensa build` first")
		return
	}
	st := ret.Index().Status(s.config.Storage.IndexPath)

	paths := []string{s.config.Storage.IndexPath}
	for _, p := range []string{s.config.Storage.KeywordIndexPath, s.config.Storage.HistoryPath} {
		if config.Enabled(p) {
			paths = append(paths, p)
		}
	}
	if bytes, err := storage.DiskUsageBytes(paths...); err == nil {
		st.DiskUsageBytes = bytes
	}
	if s.history != nil {
		if n, err := s.history.CountRuns(r.Context()); err == nil {
			st.ReviewRuns = n
		} else {
			s.logger.Warn("status: count runs failed", zap.Error(err))
		}
	}
	s.respondJSON(w, http.StatusOK, st)
}

// handleRetrieve is pure semantic retrieval, the same ranking the review path uses.
func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}
	req.Keyword, req.Hybrid = false, false
	s.runSearch(w, r, req)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}
	s.runSearch(w, r, req)
}

func (s *Server) decodeQuery(w http.ResponseWriter, r *http.Request) (*models.RetrieveRequest, bool) {
	var req models.RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if err := req.Validate(s.config.TopK, maxResults); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return &req, true
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, req *models.RetrieveRequest) {
	ret := s.currentRetriever()
	if ret == nil {
		s.respondError(w, http.StatusServiceUnavailable, "no index loaded; run `kensa build` first")
		return
	}
	s.logger.Debug("search request", zap.String("query", req.Query), zap.Int("limit", req.Limit),
		zap.Bool("keyword", req.Keyword), zap.Bool("hybrid", req.Hybrid))
	results, err := ret.Search(r.Context(), req)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	if results == nil {
		results = []models.ScoredChunk{}
	}
	s.respondJSON(w, http.StatusOK, searchResponse{Query: req.Query, Results: results})
}

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.respondError(w, http.StatusNotImplemented, "review history not enabled")
		return
	}
	offset := intParam(r, "offset", 0)
	limit := intParam(r, "limit", 20)
	if limit == 0 {
		limit = 20
	}
	if limit > maxResults {
		limit = maxResults
	}
	runs, err := s.history.ListRuns(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("history: list runs failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := s.history.CountRuns(r.Context())
	if err != nil {
		s.logger.Error("history: count runs failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []*models.ReviewRun{}
	}
	s.respondJSON(w, http.StatusOK, historyResponse{Runs: runs, Total: total, Offset: offset, Limit: limit})
}

func (s *Server) handleHistoryGet(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.respondError(w, http.StatusNotImplemented, "review history not enabled")
		return
	}
	id := chi.URLParam(r, "id")
	run, err := s.history.GetRun(r.Context(), id)
	if errors.Is(err, storage.ErrRunNotFound) {
		s.respondError(w, http.StatusNotFound, "review run not found")
		return
	}
	if err != nil {
		s.logger.Error("history: get run failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, run)
}

// statusFor maps a search error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, search.ErrNoKeywordIndex):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func intParam(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 0 {
		return def
	}
	return v
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
