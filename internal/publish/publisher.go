// Package publish fans recommendation runs out to live subscribers.
package publish

import (
	"context"
	"errors"
	"fmt"

	"github.com/yourusername/parlay-edge/internal/logger"
	"github.com/yourusername/parlay-edge/internal/metrics"
	"github.com/yourusername/parlay-edge/internal/report"
)

// Publisher delivers a recommendation run to one sink.
type Publisher interface {
	Publish(ctx context.Context, summary report.Summary) error
	Name() string
}

// Multi publishes to every sink. A failing sink does not stop the others.
type Multi struct {
	sinks []Publisher
	audit *logger.AuditLogger
}

// NewMulti creates a fan-out publisher. nil sinks are skipped.
func NewMulti(audit *logger.AuditLogger, sinks ...Publisher) *Multi {
	m := &Multi{audit: audit}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Name returns the sink name
func (m *Multi) Name() string {
	return "multi"
}

// Len returns the number of sinks.
func (m *Multi) Len() int {
	return len(m.sinks)
}

// Publish sends the summary to every sink and joins their errors.
func (m *Multi) Publish(ctx context.Context, summary report.Summary) error {
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.Publish(ctx, summary); err != nil {
			metrics.RecordPublishFailure(sink.Name())
			if m.audit != nil {
				m.audit.LogPublishFailure(summary.RunID.String(), sink.Name(), err)
			}
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}
