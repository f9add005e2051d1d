package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/yourusername/parlay-edge/internal/models"
)

var projectionValidator = validator.New()

// ProjectionSource supplies the projections props are scored against.
type ProjectionSource interface {
	Projections(ctx context.Context) ([]models.Projection, error)
}

// FileProjections re-reads a projections file on every call so edits are picked up between runs.
type FileProjections struct {
	Path string
}

// Projections loads the file.
func (f FileProjections) Projections(ctx context.Context) ([]models.Projection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadProjections(f.Path)
}

// StaticProjections serves a fixed set of projections.
type StaticProjections []models.Projection

// Projections returns a copy of the set.
func (s StaticProjections) Projections(ctx context.Context) ([]models.Projection, error) {
	return append([]models.Projection(nil), s...), nil
}

// LoadProjections reads a JSON array of projections from disk.
func LoadProjections(path string) ([]models.Projection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read projections file %s: %w", path, err)
	}
	return ParseProjections(data)
}

// ParseProjections decodes and validates projections. Entries naming an
// unsupported market or carrying negative statistics are rejected.
func ParseProjections(data []byte) ([]models.Projection, error) {
	var projections []models.Projection
	if err := json.Unmarshal(data, &projections); err != nil {
		return nil, fmt.Errorf("%w: projections: %v", ErrInvalidData, err)
	}

	for i, p := range projections {
		if err := projectionValidator.Struct(p); err != nil {
			return nil, fmt.Errorf("%w: projection %d: %v", ErrInvalidData, i, err)
		}
		if !p.Market.Valid() {
			return nil, fmt.Errorf("%w: projection %d: unsupported market %q", ErrInvalidData, i, p.Market)
		}
		if p.Mean < 0 || p.StdDev < 0 || p.Rate < 0 || p.Touches < 0 || p.TDRate < 0 {
			return nil, fmt.Errorf("%w: projection %d: negative statistic for %s", ErrInvalidData, i, p.Player)
		}
	}
	return projections, nil
}

// LoadProps reads a JSON array of normalized props, the format `parlayctl props` writes.
func LoadProps(path string) ([]models.Prop, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read props file %s: %w", path, err)
	}

	var props []models.Prop
	if err := json.Unmarshal(data, &props); err != nil {
		return nil, fmt.Errorf("%w: props: %v", ErrInvalidData, err)
	}
	for i, p := range props {
		if err := projectionValidator.Struct(p); err != nil {
			return nil, fmt.Errorf("%w: prop %d: %v", ErrInvalidData, i, err)
		}
	}
	return props, nil
}
