package logger

import (
	"github.com/sirupsen/logrus"
)

// ProviderLogger provides dedicated logging for odds-provider calls.
type ProviderLogger struct {
	*logrus.Entry
}

// NewProviderLogger creates a new provider logger.
func NewProviderLogger(baseLogger *logrus.Logger, provider string) *ProviderLogger {
	return &ProviderLogger{
		Entry: baseLogger.WithFields(logrus.Fields{
			"component": "provider",
			"provider":  provider,
		}),
	}
}

// LogRequest logs a completed provider request.
func (pl *ProviderLogger) LogRequest(endpoint string, statusCode int, cacheHit bool, latencyMs float64) {
	pl.WithFields(logrus.Fields{
		"endpoint":    endpoint,
		"status_code": statusCode,
		"cache_hit":   cacheHit,
		"latency_ms":  latencyMs,
	}).Debug("Provider request completed")
}

// LogPropsNormalized logs how many raw odds entries became props.
func (pl *ProviderLogger) LogPropsNormalized(events, rawOdds, props, dropped, invalidOdds int) {
	pl.WithFields(logrus.Fields{
		"events":       events,
		"raw_odds":     rawOdds,
		"props":        props,
		"dropped":      dropped,
		"invalid_odds": invalidOdds,
	}).Info("Provider props normalized")
}

// LogInvalidOdds logs a quote kept with odds that scoring will reject.
func (pl *ProviderLogger) LogInvalidOdds(player, market, book, raw string) {
	pl.WithFields(logrus.Fields{
		"player": player,
		"market": market,
		"book":   book,
		"odds":   raw,
	}).Warn("Provider quote has invalid odds")
}

// LogCircuitStateChange logs circuit breaker transitions.
func (pl *ProviderLogger) LogCircuitStateChange(name, from, to string) {
	pl.WithFields(logrus.Fields{
		"breaker": name,
		"from":    from,
		"to":      to,
	}).Warn("Provider circuit breaker state changed")
}
