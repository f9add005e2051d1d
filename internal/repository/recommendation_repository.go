package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/yourusername/parlay-edge/internal/database"
	"github.com/yourusername/parlay-edge/internal/models"
)

// PostgresRecommendationRepository implements RecommendationRepository for PostgreSQL
type PostgresRecommendationRepository struct {
	db *database.DB
}

// NewPostgresRecommendationRepository creates a new recommendation repository
func NewPostgresRecommendationRepository(db *database.DB) RecommendationRepository {
	return &PostgresRecommendationRepository{db: db}
}

const parlayColumns = `id, rank, legs, pairs, joint_hit, independent_hit, payout_multiplier, ev,
		       mean_abs_correlation, correlation_risk, same_game`

// SaveRun inserts a run and its parlays in one transaction
func (r *PostgresRecommendationRepository) SaveRun(ctx context.Context, run *models.RecommendationRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	config := run.Config
	if len(config) == 0 {
		config = json.RawMessage("{}")
	}

	rows := make([]parlayRow, len(run.Parlays))
	for i, p := range run.Parlays {
		row, err := encodeParlay(p, i+1)
		if err != nil {
			return err
		}
		rows[i] = row
	}

	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		runQuery := `
			INSERT INTO recommendation_runs (id, created_at, status, message, props_scored, accepted_legs, combinations, config)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		if _, err := tx.Exec(ctx, runQuery,
			run.ID, run.CreatedAt, run.Status, run.Message, run.PropsScored, run.AcceptedLegs, run.Combinations, []byte(config),
		); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("recommendation run %s: %w", run.ID, models.ErrDuplicateKey)
			}
			return fmt.Errorf("failed to create recommendation run: %w", err)
		}

		parlayQuery := `
			INSERT INTO recommended_parlays (run_id, ` + parlayColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`
		batch := &pgx.Batch{}
		for _, row := range rows {
			batch.Queue(parlayQuery,
				run.ID, row.ID, row.Rank, row.Legs, row.Pairs, row.JointHit, row.IndependentHit,
				row.PayoutMultiplier, row.EV, row.MeanAbsCorrelation, row.CorrelationRisk, row.SameGame,
			)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert recommended parlays: %w", err)
		}
		return nil
	})
}

// GetRun retrieves a run with its parlays in rank order
func (r *PostgresRecommendationRepository) GetRun(ctx context.Context, id uuid.UUID) (*models.RecommendationRun, error) {
	query := `
		SELECT id, created_at, status, message, props_scored, accepted_legs, combinations, config
		FROM recommendation_runs WHERE id = $1
	`

	run, err := scanRun(r.db.GetPool().QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recommendation run: %w", err)
	}

	parlays, err := r.parlaysForRun(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Parlays = parlays
	return run, nil
}

// GetLatest retrieves the most recent runs, newest first, with their parlays
func (r *PostgresRecommendationRepository) GetLatest(ctx context.Context, limit int) ([]*models.RecommendationRun, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT id, created_at, status, message, props_scored, accepted_legs, combinations, config
		FROM recommendation_runs
		ORDER BY created_at DESC
		LIMIT $1
	`

	runs, err := r.queryRuns(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	for _, run := range runs {
		parlays, err := r.parlaysForRun(ctx, run.ID)
		if err != nil {
			return nil, err
		}
		run.Parlays = parlays
	}
	return runs, nil
}

// GetParlayHistory returns every run that recommended the parlay, newest first.
// Each returned run carries only that parlay.
func (r *PostgresRecommendationRepository) GetParlayHistory(ctx context.Context, parlayID uuid.UUID) ([]*models.RecommendationRun, error) {
	query := `
		SELECT r.id, r.created_at, r.status, r.message, r.props_scored, r.accepted_legs, r.combinations, r.config
		FROM recommendation_runs r
		JOIN recommended_parlays p ON p.run_id = r.id
		WHERE p.id = $1
		ORDER BY r.created_at DESC
	`

	runs, err := r.queryRuns(ctx, query, parlayID)
	if err != nil {
		return nil, err
	}

	parlayQuery := `SELECT ` + parlayColumns + ` FROM recommended_parlays WHERE run_id = $1 AND id = $2`
	for _, run := range runs {
		row, err := scanParlayRow(r.db.GetPool().QueryRow(ctx, parlayQuery, run.ID, parlayID))
		if err != nil {
			return nil, fmt.Errorf("failed to get recommended parlay: %w", err)
		}
		p, err := row.decode()
		if err != nil {
			return nil, err
		}
		run.Parlays = []models.Parlay{p}
	}
	return runs, nil
}

func (r *PostgresRecommendationRepository) queryRuns(ctx context.Context, query string, args ...interface{}) ([]*models.RecommendationRun, error) {
	rows, err := r.db.GetPool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendation runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.RecommendationRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recommendation run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recommendation runs: %w", err)
	}
	return runs, nil
}

func (r *PostgresRecommendationRepository) parlaysForRun(ctx context.Context, runID uuid.UUID) ([]models.Parlay, error) {
	query := `SELECT ` + parlayColumns + ` FROM recommended_parlays WHERE run_id = $1 ORDER BY rank`

	rows, err := r.db.GetPool().Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommended parlays: %w", err)
	}
	defer rows.Close()

	parlays := []models.Parlay{}
	for rows.Next() {
		row, err := scanParlayRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recommended parlay: %w", err)
		}
		p, err := row.decode()
		if err != nil {
			return nil, err
		}
		parlays = append(parlays, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recommended parlays: %w", err)
	}
	return parlays, nil
}

// isUniqueViolation reports a Postgres unique_violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func scanRun(row pgx.Row) (*models.RecommendationRun, error) {
	run := &models.RecommendationRun{}
	var config []byte
	if err := row.Scan(
		&run.ID, &run.CreatedAt, &run.Status, &run.Message, &run.PropsScored, &run.AcceptedLegs, &run.Combinations, &config,
	); err != nil {
		return nil, err
	}
	run.Config = json.RawMessage(config)
	return run, nil
}

// parlayRow is the column form of a recommended parlay.
type parlayRow struct {
	ID                 uuid.UUID
	Rank               int
	Legs               []byte
	Pairs              []byte
	JointHit           float64
	IndependentHit     float64
	PayoutMultiplier   float64
	EV                 float64
	MeanAbsCorrelation float64
	CorrelationRisk    string
	SameGame           bool
}

func scanParlayRow(row pgx.Row) (parlayRow, error) {
	var pr parlayRow
	err := row.Scan(
		&pr.ID, &pr.Rank, &pr.Legs, &pr.Pairs, &pr.JointHit, &pr.IndependentHit, &pr.PayoutMultiplier, &pr.EV,
		&pr.MeanAbsCorrelation, &pr.CorrelationRisk, &pr.SameGame,
	)
	return pr, err
}

func encodeParlay(p models.Parlay, rank int) (parlayRow, error) {
	legs, err := json.Marshal(p.Legs)
	if err != nil {
		return parlayRow{}, fmt.Errorf("failed to encode parlay legs: %w", err)
	}
	pairs := p.Pairs
	if pairs == nil {
		pairs = []models.CorrelationPair{}
	}
	pairsJSON, err := json.Marshal(pairs)
	if err != nil {
		return parlayRow{}, fmt.Errorf("failed to encode parlay pairs: %w", err)
	}
	return parlayRow{
		ID:                 p.ID,
		Rank:               rank,
		Legs:               legs,
		Pairs:              pairsJSON,
		JointHit:           p.JointHitProbability,
		IndependentHit:     p.IndependentProbability,
		PayoutMultiplier:   p.PayoutMultiplier,
		EV:                 p.EV,
		MeanAbsCorrelation: p.MeanAbsCorrelation,
		CorrelationRisk:    string(p.CorrelationRisk),
		SameGame:           p.SameGame,
	}, nil
}

func (pr parlayRow) decode() (models.Parlay, error) {
	p := models.Parlay{
		ID:                     pr.ID,
		IndependentProbability: pr.IndependentHit,
		JointHitProbability:    pr.JointHit,
		PayoutMultiplier:       pr.PayoutMultiplier,
		EV:                     pr.EV,
		MeanAbsCorrelation:     pr.MeanAbsCorrelation,
		CorrelationRisk:        models.RiskLabel(pr.CorrelationRisk),
		SameGame:               pr.SameGame,
	}
	if err := json.Unmarshal(pr.Legs, &p.Legs); err != nil {
		return models.Parlay{}, fmt.Errorf("failed to decode parlay legs: %w", err)
	}
	if len(pr.Pairs) > 0 {
		if err := json.Unmarshal(pr.Pairs, &p.Pairs); err != nil {
			return models.Parlay{}, fmt.Errorf("failed to decode parlay pairs: %w", err)
		}
	}
	return p, nil
}
