// Package service wires the provider, engine, store and publishers into
// recommendation runs.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/parlay-edge/internal/engine"
	"github.com/yourusername/parlay-edge/internal/logger"
	"github.com/yourusername/parlay-edge/internal/models"
	"github.com/yourusername/parlay-edge/internal/provider"
	"github.com/yourusername/parlay-edge/internal/publish"
	"github.com/yourusername/parlay-edge/internal/report"
	"github.com/yourusername/parlay-edge/internal/repository"
	"github.com/yourusername/parlay-edge/internal/search"
)

// ErrNoRepository is returned by history lookups when no store is configured.
var ErrNoRepository = errors.New("recommendation store not configured")

// RecommendationConfig holds the dependencies of a RecommendationService.
// Repository and Publisher are optional.
type RecommendationConfig struct {
	Source       provider.Source
	Projections  provider.ProjectionSource
	Engine       *engine.Engine
	EngineConfig engine.Config
	Books        []string
	Repository   repository.RecommendationRepository
	Publisher    publish.Publisher
	Logger       *logrus.Logger
	Stake        decimal.Decimal
}

// Evaluation is one scoring and search pass over freshly fetched props.
type Evaluation struct {
	Date  string
	Props []models.Prop
	Run   engine.Run
}

// RecommendationService fetches props, runs the engine and distributes the result.
type RecommendationService struct {
	source      provider.Source
	projections provider.ProjectionSource
	engine      *engine.Engine
	cfg         engine.Config
	books       []string
	repo        repository.RecommendationRepository
	publisher   publish.Publisher
	logger      *logrus.Logger
	audit       *logger.AuditLogger
	stake       decimal.Decimal
	metrics     *RefreshMetrics
	now         func() time.Time

	mu     sync.RWMutex
	latest *report.Summary
}

// NewRecommendationService creates a new recommendation service
func NewRecommendationService(cfg RecommendationConfig) (*RecommendationService, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("odds source is required")
	}
	if cfg.Projections == nil {
		return nil, fmt.Errorf("projection source is required")
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	eng := cfg.Engine
	if eng == nil {
		eng = engine.New(log)
	}
	stake := cfg.Stake
	if !stake.IsPositive() {
		stake = report.DefaultStake
	}
	if _, err := search.NewSearcher(cfg.EngineConfig.Search(), nil); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}

	return &RecommendationService{
		source:      cfg.Source,
		projections: cfg.Projections,
		engine:      eng,
		cfg:         cfg.EngineConfig,
		books:       cfg.Books,
		repo:        cfg.Repository,
		publisher:   cfg.Publisher,
		logger:      log,
		audit:       logger.NewAuditLogger(log),
		stake:       stake,
		metrics:     NewRefreshMetrics(),
		now:         time.Now,
	}, nil
}

// EngineConfig returns a copy of the configured engine settings.
func (s *RecommendationService) EngineConfig() engine.Config {
	return s.cfg
}

// Books returns the configured sportsbooks.
func (s *RecommendationService) Books() []string {
	return append([]string(nil), s.books...)
}

// Stake returns the stake summaries are quoted at.
func (s *RecommendationService) Stake() decimal.Decimal {
	return s.stake
}

// Metrics returns the refresh counters.
func (s *RecommendationService) Metrics() RefreshMetrics {
	return s.metrics.Snapshot()
}

// Evaluate fetches props for date and runs the engine with cfg. Nothing is
// persisted or published. Empty books falls back to the configured books.
func (s *RecommendationService) Evaluate(ctx context.Context, date string, books []string, cfg engine.Config) (Evaluation, error) {
	if len(books) == 0 {
		books = s.books
	}

	props, err := s.source.FetchProps(ctx, date, books)
	if err != nil {
		return Evaluation{}, fmt.Errorf("failed to fetch props: %w", err)
	}

	projections, err := s.projections.Projections(ctx)
	if err != nil {
		return Evaluation{}, fmt.Errorf("failed to load projections: %w", err)
	}

	run, err := s.engine.Evaluate(ctx, props, projections, cfg)
	if err != nil {
		return Evaluation{}, fmt.Errorf("failed to evaluate props: %w", err)
	}

	return Evaluation{Date: date, Props: props, Run: run}, nil
}

// Refresh runs a full recommendation pass with the configured settings:
// evaluate, persist, publish, then remember the summary as the latest.
// A persistence failure fails the refresh; publish failures are logged only.
func (s *RecommendationService) Refresh(ctx context.Context, date string) (report.Summary, error) {
	started := s.metrics.start()

	eval, err := s.Evaluate(ctx, date, s.books, s.cfg)
	if err != nil {
		s.metrics.RecordError()
		return report.Summary{}, err
	}

	result := eval.Run.Result
	runID := uuid.New()
	generatedAt := s.now().UTC()
	summary := report.Summarize(runID, generatedAt, result, s.stake)

	for i, p := range result.Parlays {
		s.audit.LogRecommendation(runID.String(), p.ID.String(), i+1, p.Size(),
			p.JointHitProbability, p.EV, string(p.CorrelationRisk), generatedAt)
	}

	if s.repo != nil {
		if err := s.persist(ctx, runID, generatedAt, eval); err != nil {
			s.metrics.RecordError()
			s.metrics.RecordPersistError()
			return report.Summary{}, err
		}
		s.audit.LogRunPersisted(runID.String(), summary.Status, len(summary.Parlays))
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, summary); err != nil {
			s.metrics.RecordPublishError()
			s.logger.WithError(err).WithField("run_id", runID.String()).Warn("Failed to publish recommendation run")
		}
	}

	s.mu.Lock()
	s.latest = &summary
	s.mu.Unlock()

	s.metrics.finish(started, len(eval.Props), len(summary.Parlays))
	s.logger.WithFields(logrus.Fields{
		"run_id":  runID.String(),
		"status":  summary.Status,
		"props":   len(eval.Props),
		"parlays": len(summary.Parlays),
	}).Info("Recommendation refresh completed")

	return summary, nil
}

func (s *RecommendationService) persist(ctx context.Context, runID uuid.UUID, createdAt time.Time, eval Evaluation) error {
	config, err := json.Marshal(s.cfg)
	if err != nil {
		return fmt.Errorf("failed to encode engine config: %w", err)
	}

	result := eval.Run.Result
	run := &models.RecommendationRun{
		ID:           runID,
		CreatedAt:    createdAt,
		Status:       string(result.Status),
		Message:      result.Message,
		PropsScored:  len(eval.Props),
		AcceptedLegs: result.AcceptedLegs,
		Combinations: result.CombinationsEvaluated,
		Config:       config,
		Parlays:      result.Parlays,
	}
	if err := s.repo.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("failed to persist recommendation run: %w", err)
	}
	return nil
}

// Latest returns the summary of the most recent refresh. When this process has
// not refreshed yet, the newest stored run is used.
func (s *RecommendationService) Latest(ctx context.Context) (report.Summary, error) {
	s.mu.RLock()
	latest := s.latest
	s.mu.RUnlock()
	if latest != nil {
		return *latest, nil
	}

	if s.repo == nil {
		return report.Summary{}, models.ErrNotFound
	}
	runs, err := s.repo.GetLatest(ctx, 1)
	if err != nil {
		return report.Summary{}, err
	}
	if len(runs) == 0 {
		return report.Summary{}, models.ErrNotFound
	}
	return SummaryFromRun(runs[0], s.stake), nil
}

// Run returns a stored run as a summary.
func (s *RecommendationService) Run(ctx context.Context, id uuid.UUID) (report.Summary, error) {
	if s.repo == nil {
		return report.Summary{}, ErrNoRepository
	}
	run, err := s.repo.GetRun(ctx, id)
	if err != nil {
		return report.Summary{}, err
	}
	return SummaryFromRun(run, s.stake), nil
}

// History returns the most recent stored runs, newest first.
func (s *RecommendationService) History(ctx context.Context, limit int) ([]report.Summary, error) {
	if s.repo == nil {
		return nil, ErrNoRepository
	}
	runs, err := s.repo.GetLatest(ctx, limit)
	if err != nil {
		return nil, err
	}
	summaries := make([]report.Summary, 0, len(runs))
	for _, run := range runs {
		summaries = append(summaries, SummaryFromRun(run, s.stake))
	}
	return summaries, nil
}

// ParlayHistory returns every stored run that recommended the parlay.
func (s *RecommendationService) ParlayHistory(ctx context.Context, parlayID uuid.UUID) ([]report.Summary, error) {
	if s.repo == nil {
		return nil, ErrNoRepository
	}
	runs, err := s.repo.GetParlayHistory(ctx, parlayID)
	if err != nil {
		return nil, err
	}
	summaries := make([]report.Summary, 0, len(runs))
	for _, run := range runs {
		summaries = append(summaries, SummaryFromRun(run, s.stake))
	}
	return summaries, nil
}

// SummaryFromRun rebuilds a summary from a stored run. Ranks follow the
// stored order.
func SummaryFromRun(run *models.RecommendationRun, stake decimal.Decimal) report.Summary {
	result := search.Result{
		Parlays:               run.Parlays,
		Status:                search.Status(run.Status),
		Message:               run.Message,
		AcceptedLegs:          run.AcceptedLegs,
		CombinationsEvaluated: run.Combinations,
		Qualifying:            len(run.Parlays),
	}
	return report.Summarize(run.ID, run.CreatedAt, result, stake)
}
