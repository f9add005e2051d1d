package repository

import (
	"fmt"

	"github.com/yourusername/parlay-edge/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Recommendation RecommendationRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Recommendation: NewPostgresRecommendationRepository(db),
	}, nil
}
