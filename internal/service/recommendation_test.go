package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/parlay-edge/internal/engine"
	"github.com/yourusername/parlay-edge/internal/models"
	"github.com/yourusername/parlay-edge/internal/provider"
	"github.com/yourusername/parlay-edge/internal/report"
	"github.com/yourusername/parlay-edge/internal/search"
)

// MockSource mocks the odds provider
type MockSource struct {
	mock.Mock
}

func (m *MockSource) FetchEvents(ctx context.Context, date string) ([]provider.Event, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]provider.Event), args.Error(1)
}

func (m *MockSource) FetchProps(ctx context.Context, date string, books []string) ([]models.Prop, error) {
	args := m.Called(ctx, date, books)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Prop), args.Error(1)
}

func (m *MockSource) Name() string {
	return "mock"
}

// MockRecommendationRepository mocks the recommendation store
type MockRecommendationRepository struct {
	mock.Mock
}

func (m *MockRecommendationRepository) SaveRun(ctx context.Context, run *models.RecommendationRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRecommendationRepository) GetRun(ctx context.Context, id uuid.UUID) (*models.RecommendationRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RecommendationRun), args.Error(1)
}

func (m *MockRecommendationRepository) GetLatest(ctx context.Context, limit int) ([]*models.RecommendationRun, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RecommendationRun), args.Error(1)
}

func (m *MockRecommendationRepository) GetParlayHistory(ctx context.Context, parlayID uuid.UUID) ([]*models.RecommendationRun, error) {
	args := m.Called(ctx, parlayID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RecommendationRun), args.Error(1)
}

// MockPublisher mocks a recommendation sink
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, summary report.Summary) error {
	args := m.Called(ctx, summary)
	return args.Error(0)
}

func (m *MockPublisher) Name() string {
	return "mock"
}

func slate() ([]models.Prop, []models.Projection) {
	props := []models.Prop{
		{Player: "Josh Allen", Position: models.PositionQB, Market: models.MarketPassYards, Line: 255.5, Direction: models.DirectionOver, Odds: -110, Game: "BUF@MIA", Team: "BUF"},
		{Player: "Stefon Diggs", Position: models.PositionWR, Market: models.MarketRecYards, Line: 68.5, Direction: models.DirectionOver, Odds: -115, Game: "BUF@MIA", Team: "BUF"},
		{Player: "Dawson Knox", Position: models.PositionTE, Market: models.MarketReceptions, Line: 2.5, Direction: models.DirectionOver, Odds: 110, Game: "BUF@MIA", Team: "BUF"},
		{Player: "Tyreek Hill", Position: models.PositionWR, Market: models.MarketRecYards, Line: 85.5, Direction: models.DirectionOver, Odds: -110, Game: "BUF@MIA", Team: "MIA"},
		{Player: "Raheem Mostert", Position: models.PositionRB, Market: models.MarketRushYards, Line: 60.5, Direction: models.DirectionOver, Odds: -110, Game: "BUF@MIA", Team: "MIA", Opponent: "BUF"},
	}
	projections := provider.StaticProjections{
		{Player: "Josh Allen", Market: models.MarketPassYards, Mean: 285, StdDev: 45},
		{Player: "Stefon Diggs", Market: models.MarketRecYards, Mean: 84, StdDev: 24},
		{Player: "Dawson Knox", Market: models.MarketReceptions, Mean: 3.6},
		{Player: "Tyreek Hill", Market: models.MarketRecYards, Mean: 102, StdDev: 30},
		{Player: "Raheem Mostert", Market: models.MarketRushYards, Mean: 74, StdDev: 22},
	}
	return props, projections
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestService(t *testing.T, source provider.Source, repo *MockRecommendationRepository, pub *MockPublisher, log *logrus.Logger) *RecommendationService {
	t.Helper()
	_, projections := slate()
	cfg := RecommendationConfig{
		Source:       source,
		Projections:  provider.StaticProjections(projections),
		EngineConfig: engine.DefaultConfig(),
		Books:        []string{"draftkings", "fanduel"},
		Logger:       log,
	}
	if repo != nil {
		cfg.Repository = repo
	}
	if pub != nil {
		cfg.Publisher = pub
	}
	svc, err := NewRecommendationService(cfg)
	require.NoError(t, err)
	return svc
}

func TestNewRecommendationServiceValidatesDependencies(t *testing.T) {
	_, err := NewRecommendationService(RecommendationConfig{})
	assert.Error(t, err)

	_, err = NewRecommendationService(RecommendationConfig{Source: &MockSource{}})
	assert.Error(t, err)

	bad := engine.DefaultConfig()
	bad.MinLegs = 2
	_, err = NewRecommendationService(RecommendationConfig{
		Source:       &MockSource{},
		Projections:  provider.StaticProjections{},
		EngineConfig: bad,
	})
	assert.ErrorIs(t, err, search.ErrInvalidConfig)
}

func TestEvaluateUsesRequestBooksAndConfig(t *testing.T) {
	props, _ := slate()
	source := &MockSource{}
	source.On("FetchProps", mock.Anything, "2025-10-19", []string{"betmgm"}).Return(props, nil)

	svc := newTestService(t, source, nil, nil, quietLogger())

	strict := engine.DefaultConfig()
	strict.MinEdge = 0.5
	eval, err := svc.Evaluate(context.Background(), "2025-10-19", []string{"betmgm"}, strict)
	require.NoError(t, err)

	assert.Len(t, eval.Props, len(props))
	assert.Equal(t, search.StatusNoQualifyingParlay, eval.Run.Result.Status)
	source.AssertExpectations(t)
}

func TestEvaluateWrapsProviderErrors(t *testing.T) {
	source := &MockSource{}
	source.On("FetchProps", mock.Anything, "", []string{"draftkings", "fanduel"}).Return(nil, provider.ErrRateLimitExceeded)

	svc := newTestService(t, source, nil, nil, quietLogger())
	_, err := svc.Evaluate(context.Background(), "", nil, svc.EngineConfig())
	assert.ErrorIs(t, err, provider.ErrRateLimitExceeded)
}

func TestRefreshPersistsPublishesAndRemembers(t *testing.T) {
	props, _ := slate()
	source := &MockSource{}
	source.On("FetchProps", mock.Anything, "", mock.Anything).Return(props, nil)

	repo := &MockRecommendationRepository{}
	repo.On("SaveRun", mock.Anything, mock.MatchedBy(func(run *models.RecommendationRun) bool {
		return run.ID != uuid.Nil && run.Status == "ok" && run.PropsScored == len(props) &&
			len(run.Parlays) > 0 && bytes.Contains(run.Config, []byte(`"min_edge":0.03`))
	})).Return(nil)

	pub := &MockPublisher{}
	pub.On("Publish", mock.Anything, mock.AnythingOfType("report.Summary")).Return(nil)

	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	svc := newTestService(t, source, repo, pub, log)
	summary, err := svc.Refresh(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, "ok", summary.Status)
	require.NotEmpty(t, summary.Parlays)
	assert.Equal(t, 1, summary.Parlays[0].Rank)
	assert.True(t, summary.Parlays[0].Stake.Equal(decimal.NewFromInt(100)))

	latest, err := svc.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, summary.RunID, latest.RunID)

	assert.Contains(t, buf.String(), "Parlay recommended")
	assert.Contains(t, buf.String(), "Recommendation run persisted")

	m := svc.Metrics()
	assert.Equal(t, 1, m.Refreshes)
	assert.Equal(t, 1, m.Successful)
	assert.Equal(t, len(summary.Parlays), m.LastParlays)

	repo.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestRefreshFailsWhenPersistenceFails(t *testing.T) {
	props, _ := slate()
	source := &MockSource{}
	source.On("FetchProps", mock.Anything, "", mock.Anything).Return(props, nil)

	repo := &MockRecommendationRepository{}
	repo.On("SaveRun", mock.Anything, mock.Anything).Return(errors.New("connection reset"))
	repo.On("GetLatest", mock.Anything, 1).Return([]*models.RecommendationRun{}, nil)

	pub := &MockPublisher{}

	svc := newTestService(t, source, repo, pub, quietLogger())
	_, err := svc.Refresh(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)

	_, err = svc.Latest(context.Background())
	assert.ErrorIs(t, err, models.ErrNotFound)

	m := svc.Metrics()
	assert.Equal(t, 1, m.Errors)
	assert.Equal(t, 1, m.PersistErrors)
}

func TestRefreshToleratesPublishFailure(t *testing.T) {
	props, _ := slate()
	source := &MockSource{}
	source.On("FetchProps", mock.Anything, "", mock.Anything).Return(props, nil)

	pub := &MockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("redis: READONLY"))

	svc := newTestService(t, source, nil, pub, quietLogger())
	summary, err := svc.Refresh(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "ok", summary.Status)
	assert.Equal(t, 1, svc.Metrics().PublishErrors)
}

func TestLatestFallsBackToStore(t *testing.T) {
	runID := uuid.New()
	stored := &models.RecommendationRun{
		ID:           runID,
		CreatedAt:    time.Date(2025, 10, 19, 16, 0, 0, 0, time.UTC),
		Status:       "no_qualifying_parlay",
		Message:      "no combination cleared the joint-hit floor",
		AcceptedLegs: 2,
	}
	repo := &MockRecommendationRepository{}
	repo.On("GetLatest", mock.Anything, 1).Return([]*models.RecommendationRun{stored}, nil)
	repo.On("GetRun", mock.Anything, runID).Return(stored, nil)

	svc := newTestService(t, &MockSource{}, repo, nil, quietLogger())

	latest, err := svc.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, runID, latest.RunID)
	assert.Equal(t, "no_qualifying_parlay", latest.Status)
	assert.Empty(t, latest.Parlays)

	got, err := svc.Run(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, stored.Message, got.Message)
}

func TestHistoryRequiresStore(t *testing.T) {
	svc := newTestService(t, &MockSource{}, nil, nil, quietLogger())

	_, err := svc.History(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNoRepository)
	_, err = svc.Run(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNoRepository)
	_, err = svc.ParlayHistory(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNoRepository)
	_, err = svc.Latest(context.Background())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSummaryFromRunRanksInStoredOrder(t *testing.T) {
	props, projections := slate()
	run, err := engine.New(quietLogger()).Evaluate(context.Background(), props, projections, engine.DefaultConfig())
	require.NoError(t, err)
	require.NotEmpty(t, run.Result.Parlays)

	stored := &models.RecommendationRun{
		ID:      uuid.New(),
		Status:  string(run.Result.Status),
		Parlays: run.Result.Parlays,
	}
	summary := SummaryFromRun(stored, report.DefaultStake)
	require.Len(t, summary.Parlays, len(run.Result.Parlays))
	for i, p := range summary.Parlays {
		assert.Equal(t, i+1, p.Rank)
		assert.Equal(t, run.Result.Parlays[i].ID, p.ID)
	}
}
