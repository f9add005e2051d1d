package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yourusername/parlay-edge/internal/engine"
	"github.com/yourusername/parlay-edge/internal/models"
	"github.com/yourusername/parlay-edge/internal/parlay"
	"github.com/yourusername/parlay-edge/internal/provider"
	"github.com/yourusername/parlay-edge/internal/report"
	"github.com/yourusername/parlay-edge/internal/search"
	"github.com/yourusername/parlay-edge/internal/service"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// PropsResponse is the /nfl/props body.
type PropsResponse struct {
	Count int           `json:"count"`
	Books []string      `json:"books"`
	Date  string        `json:"date,omitempty"`
	Props []models.Prop `json:"props"`
}

// ParlaysResponse is the /nfl/parlays body.
type ParlaysResponse struct {
	Date        string         `json:"date,omitempty"`
	PropsScored int            `json:"props_scored"`
	Summary     report.Summary `json:"summary"`
}

// handleEvents lists the slate's games.
// Query params: date
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date", err)
		return
	}

	events, err := s.source.FetchEvents(r.Context(), date)
	if err != nil {
		s.respondUpstreamError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(events),
		"events": events,
	})
}

// handleProps returns normalized player props.
// Query params: date, books
func (s *Server) handleProps(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date", err)
		return
	}
	books := s.booksParam(r)

	props, err := s.source.FetchProps(r.Context(), date, books)
	if err != nil {
		s.respondUpstreamError(w, err)
		return
	}
	if props == nil {
		props = []models.Prop{}
	}

	respondJSON(w, http.StatusOK, PropsResponse{
		Count: len(props),
		Books: books,
		Date:  date,
		Props: props,
	})
}

// handleParlays scores the live slate and searches it for parlays without
// persisting the result.
// Query params: date, books, top_n, min_edge, max_legs, method, stake, format
func (s *Server) handleParlays(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date", err)
		return
	}

	cfg, err := engineOverrides(r, s.svc.EngineConfig())
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid engine parameter", err)
		return
	}

	stake := s.svc.Stake()
	if raw := r.URL.Query().Get("stake"); raw != "" {
		stake, err = decimal.NewFromString(raw)
		if err != nil || !stake.IsPositive() {
			respondError(w, http.StatusBadRequest, "invalid stake", fmt.Errorf("stake %q must be a positive amount", raw))
			return
		}
	}

	eval, err := s.svc.Evaluate(r.Context(), date, s.booksParam(r), cfg)
	if err != nil {
		s.respondUpstreamError(w, err)
		return
	}

	summary := report.Summarize(uuid.New(), s.now(), eval.Run.Result, stake)
	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(report.GenerateMarkdownReport(summary)))
		return
	}

	respondJSON(w, http.StatusOK, ParlaysResponse{
		Date:        date,
		PropsScored: len(eval.Props),
		Summary:     summary,
	})
}

// handleLatestRecommendation returns the most recent scheduled run.
func (s *Server) handleLatestRecommendation(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.Latest(r.Context())
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// handleRecommendation returns a stored run by id.
func (s *Server) handleRecommendation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid run id", err)
		return
	}

	summary, err := s.svc.Run(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// handleRecommendationHistory lists stored runs, newest first.
// Query params: limit
func (s *Server) handleRecommendationHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 10)
	if limit > 100 {
		limit = 100
	}

	summaries, err := s.svc.History(r.Context(), limit)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(summaries),
		"runs":  summaries,
	})
}

// handleParlayHistory lists the stored runs that recommended a parlay.
func (s *Server) handleParlayHistory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid parlay id", err)
		return
	}

	summaries, err := s.svc.ParlayHistory(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(summaries),
		"runs":  summaries,
	})
}

func (s *Server) booksParam(r *http.Request) []string {
	raw := r.URL.Query().Get("books")
	if raw == "" {
		return s.svc.Books()
	}
	var books []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			books = append(books, strings.ToLower(b))
		}
	}
	return books
}

func parseDate(r *http.Request) (string, error) {
	date := r.URL.Query().Get("date")
	if date == "" {
		return "", nil
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return "", fmt.Errorf("date %q must be YYYY-MM-DD", date)
	}
	return date, nil
}

// engineOverrides applies per-request query overrides to a copy of cfg.
func engineOverrides(r *http.Request, cfg engine.Config) (engine.Config, error) {
	q := r.URL.Query()

	if raw := q.Get("top_n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 50 {
			return cfg, fmt.Errorf("top_n %q must be between 1 and 50", raw)
		}
		cfg.TopN = n
	}
	if raw := q.Get("min_edge"); raw != "" {
		edge, err := strconv.ParseFloat(raw, 64)
		if err != nil || edge < 0 || edge >= 1 {
			return cfg, fmt.Errorf("min_edge %q must be in [0, 1)", raw)
		}
		cfg.MinEdge = edge
	}
	if raw := q.Get("max_legs"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < parlay.MinLegs || n > parlay.MaxLegs {
			return cfg, fmt.Errorf("max_legs %q must be %d or %d", raw, parlay.MinLegs, parlay.MaxLegs)
		}
		cfg.MaxLegs = n
		if cfg.MinLegs > n {
			cfg.MinLegs = n
		}
	}
	if raw := q.Get("method"); raw != "" {
		if raw != parlay.JointPairwise && raw != parlay.JointMonteCarlo {
			return cfg, fmt.Errorf("method %q must be %s or %s", raw, parlay.JointPairwise, parlay.JointMonteCarlo)
		}
		cfg.JointMethod = raw
	}
	if err := cfg.Search().Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// upstreamStatus maps provider and engine failures onto HTTP statuses.
func upstreamStatus(err error) (int, string) {
	switch {
	case errors.Is(err, provider.ErrMissingAPIKey):
		return http.StatusServiceUnavailable, "Missing SGO_API_KEY in environment."
	case errors.Is(err, provider.ErrRateLimitExceeded):
		return http.StatusTooManyRequests, "SGO API rate limit exceeded"
	case errors.Is(err, provider.ErrCircuitOpen):
		return http.StatusServiceUnavailable, "SGO API temporarily unavailable"
	case errors.Is(err, provider.ErrAuthenticationFailed):
		return http.StatusBadGateway, "SGO API rejected credentials"
	case errors.Is(err, provider.ErrNotFound):
		return http.StatusNotFound, "SGO API resource not found"
	case errors.Is(err, provider.ErrInvalidData),
		errors.Is(err, provider.ErrServerError),
		errors.Is(err, provider.ErrNetworkError):
		return http.StatusBadGateway, "SGO API error"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	case errors.Is(err, search.ErrInvalidConfig):
		return http.StatusBadRequest, "invalid engine parameter"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (s *Server) respondUpstreamError(w http.ResponseWriter, err error) {
	status, message := upstreamStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).WithField("status", status).Warn("Request failed")
	}
	respondError(w, status, message, err)
}

func (s *Server) respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		respondError(w, http.StatusNotFound, "recommendation not found", nil)
	case errors.Is(err, service.ErrNoRepository):
		respondError(w, http.StatusNotImplemented, "recommendation history disabled", err)
	default:
		s.logger.WithError(err).Error("Recommendation store query failed")
		respondError(w, http.StatusInternalServerError, "failed to read recommendations", err)
	}
}

func parseIntParam(r *http.Request, param string, defaultValue int) int {
	valueStr := r.URL.Query().Get(param)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil || value < 1 {
		return defaultValue
	}

	return value
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Detail = err.Error()
	}
	respondJSON(w, status, resp)
}
