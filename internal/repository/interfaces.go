package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/yourusername/parlay-edge/internal/models"
)

// RecommendationRepository defines persistence for recommendation runs and their parlays
type RecommendationRepository interface {
	SaveRun(ctx context.Context, run *models.RecommendationRun) error
	GetRun(ctx context.Context, id uuid.UUID) (*models.RecommendationRun, error)
	GetLatest(ctx context.Context, limit int) ([]*models.RecommendationRun, error)
	GetParlayHistory(ctx context.Context, parlayID uuid.UUID) ([]*models.RecommendationRun, error)
}
