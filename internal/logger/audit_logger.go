package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// AuditLogger provides dedicated audit trail logging for recommendations.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogRecommendation logs one recommended parlay.
func (al *AuditLogger) LogRecommendation(runID, parlayID string, rank, legs int, jointHit, ev float64, risk string, timestamp time.Time) {
	al.WithFields(logrus.Fields{
		"run_id":    runID,
		"parlay_id": parlayID,
		"rank":      rank,
		"legs":      legs,
		"joint_hit": jointHit,
		"ev":        ev,
		"risk":      risk,
		"timestamp": timestamp.Unix(),
	}).Info("Parlay recommended")
}

// LogRunPersisted logs a run saved to the recommendation store.
func (al *AuditLogger) LogRunPersisted(runID, status string, parlays int) {
	al.WithFields(logrus.Fields{
		"run_id":  runID,
		"status":  status,
		"parlays": parlays,
	}).Info("Recommendation run persisted")
}

// LogPublishFailure logs a failed fan-out to subscribers.
func (al *AuditLogger) LogPublishFailure(runID, sink string, err error) {
	al.WithFields(logrus.Fields{
		"run_id": runID,
		"sink":   sink,
	}).WithError(err).Error("Recommendation publish failed")
}
