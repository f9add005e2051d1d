package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() (*logrus.Logger, *bytes.Buffer) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)
	return log, buf
}

func parseLogOutput(buf *bytes.Buffer) map[string]interface{} {
	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	if err != nil {
		return nil
	}
	return logEntry
}

func TestNewLoggerLevelAndFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	log := newLogger(buf, "debug", "production")
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	log.Info("hello")
	entry := parseLogOutput(buf)
	require.NotNil(t, entry)
	assert.Equal(t, "hello", entry["msg"])
}

func TestNewLoggerInvalidLevelDefaultsToInfo(t *testing.T) {
	log := newLogger(&bytes.Buffer{}, "chatty", "development")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	_, isText := log.Formatter.(*logrus.TextFormatter)
	assert.True(t, isText)
}

func TestEngineLoggerScoringRun(t *testing.T) {
	log, buf := setupTestLogger()
	engineLogger := NewEngineLogger(log)

	engineLogger.LogScoringRun(40, 12, 3.5)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "engine", logEntry["component"])
	assert.Equal(t, float64(28), logEntry["legs_rejected"])
}

func TestEngineLoggerLegRejected(t *testing.T) {
	log, buf := setupTestLogger()
	engineLogger := NewEngineLogger(log)

	engineLogger.LogLegRejected("Josh Allen", "player_pass_tds", -187, -0.031, "edge_below_minimum", "edge -0.0310 below 0.0300")

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "edge_below_minimum", logEntry["reason"])
	assert.Equal(t, "debug", logEntry["level"])
}

func TestEngineLoggerNoQualifyingParlay(t *testing.T) {
	log, buf := setupTestLogger()
	engineLogger := NewEngineLogger(log)

	engineLogger.LogNoQualifyingParlay(2, 0, "nothing cleared the floors")

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "no_qualifying_parlay", logEntry["status"])
	assert.Equal(t, "warning", logEntry["level"])
}

func TestProviderLoggerRequest(t *testing.T) {
	log, buf := setupTestLogger()
	providerLogger := NewProviderLogger(log, "SportsGameOdds")

	providerLogger.LogRequest("/events", 200, true, 12)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "SportsGameOdds", logEntry["provider"])
	assert.Equal(t, true, logEntry["cache_hit"])
}

func TestProviderLoggerInvalidOdds(t *testing.T) {
	log, buf := setupTestLogger()
	providerLogger := NewProviderLogger(log, "SportsGameOdds")

	providerLogger.LogInvalidOdds("Khalil Shakir", "player_receptions", "draftkings", "bad")

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "warning", logEntry["level"])
	assert.Equal(t, "Khalil Shakir", logEntry["player"])
	assert.Equal(t, "bad", logEntry["odds"])
}

func TestAuditLoggerRecommendation(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	auditLogger.LogRecommendation(
		"run_1",
		"parlay_1",
		1,
		3,
		0.27,
		18.4,
		"Low",
		time.Date(2024, 9, 8, 17, 0, 0, 0, time.UTC),
	)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "parlay_1", logEntry["parlay_id"])
	assert.Equal(t, "audit", logEntry["component"])
}

func TestAuditLoggerPublishFailure(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	auditLogger.LogPublishFailure("run_1", "redis", errors.New("connection refused"))

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "connection refused", logEntry["error"])
}

func BenchmarkEngineLoggerLegRejected(b *testing.B) {
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})
	log.SetLevel(logrus.DebugLevel)
	engineLogger := NewEngineLogger(log)

	for i := 0; i < b.N; i++ {
		engineLogger.LogLegRejected("Josh Allen", "player_pass_tds", -187, -0.031, "edge_below_minimum", "")
	}
}
