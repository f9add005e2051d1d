package logger

import (
	"github.com/sirupsen/logrus"
)

// EngineLogger provides dedicated logging for scoring and search runs.
type EngineLogger struct {
	*logrus.Entry
}

// NewEngineLogger creates a new engine logger.
func NewEngineLogger(baseLogger *logrus.Logger) *EngineLogger {
	return &EngineLogger{
		Entry: baseLogger.WithField("component", "engine"),
	}
}

// LogScoringRun logs a completed leg scoring pass.
func (el *EngineLogger) LogScoringRun(propsScored, legsAccepted int, durationMs float64) {
	el.WithFields(logrus.Fields{
		"props_scored":        propsScored,
		"legs_accepted":       legsAccepted,
		"legs_rejected":       propsScored - legsAccepted,
		"scoring_duration_ms": durationMs,
	}).Info("Leg scoring completed")
}

// LogLegRejected logs why a single leg was rejected.
func (el *EngineLogger) LogLegRejected(player, market string, odds int, edge float64, reason, detail string) {
	el.WithFields(logrus.Fields{
		"player": player,
		"market": market,
		"odds":   odds,
		"edge":   edge,
		"reason": reason,
		"detail": detail,
	}).Debug("Leg rejected")
}

// LogSearchRun logs a completed parlay search.
func (el *EngineLogger) LogSearchRun(acceptedLegs, combinations, qualifying, returned int, bestEV, durationMs float64) {
	el.WithFields(logrus.Fields{
		"accepted_legs":      acceptedLegs,
		"combinations":       combinations,
		"qualifying":         qualifying,
		"returned":           returned,
		"best_ev":            bestEV,
		"search_duration_ms": durationMs,
	}).Info("Parlay search completed")
}

// LogNoQualifyingParlay logs a search that produced nothing above the floors.
func (el *EngineLogger) LogNoQualifyingParlay(acceptedLegs, combinations int, message string) {
	el.WithFields(logrus.Fields{
		"accepted_legs": acceptedLegs,
		"combinations":  combinations,
		"status":        "no_qualifying_parlay",
	}).Warn(message)
}
