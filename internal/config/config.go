// Package config provides configuration management for the parlay-edge application.
package config

import (
	"fmt"
	"time"

	"github.com/yourusername/parlay-edge/internal/engine"
	"github.com/yourusername/parlay-edge/internal/models"
	"github.com/yourusername/parlay-edge/internal/probability"
)

// Config represents the complete application configuration
type Config struct {
	App      AppConfig      `mapstructure:"app" validate:"required"`
	Engine   EngineConfig   `mapstructure:"engine" validate:"required"`
	Provider ProviderConfig `mapstructure:"provider" validate:"required"`
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Metrics  MetricsConfig  `mapstructure:"metrics" validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Publish  PublishConfig  `mapstructure:"publish"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// EngineConfig represents leg scoring and parlay search thresholds
type EngineConfig struct {
	MinEdge              float64            `mapstructure:"min_edge" validate:"gte=0,lt=1"`
	MaxJuice             int                `mapstructure:"max_juice" validate:"required,lte=-100"`
	MinLegs              int                `mapstructure:"min_legs" validate:"required,min=3,max=4"`
	MaxLegs              int                `mapstructure:"max_legs" validate:"required,min=3,max=4"`
	JointHitFloor3       float64            `mapstructure:"joint_hit_floor_3" validate:"gte=0,lt=1"`
	JointHitFloor4       float64            `mapstructure:"joint_hit_floor_4" validate:"gte=0,lt=1"`
	TopN                 int                `mapstructure:"top_n" validate:"required,gt=0,lte=50"`
	QuestionableFade     float64            `mapstructure:"questionable_fade" validate:"gte=0,lte=1"`
	WindThresholdMPH     float64            `mapstructure:"wind_threshold_mph" validate:"gte=0"`
	WindDamping          float64            `mapstructure:"wind_damping" validate:"gte=0,lt=1"`
	MaxPoolPerGame       int                `mapstructure:"max_pool_per_game" validate:"required,gt=0"`
	IncludeCrossGame     bool               `mapstructure:"include_cross_game"`
	MaxCrossGamePool     int                `mapstructure:"max_cross_game_pool" validate:"required,gt=0"`
	JointMethod          string             `mapstructure:"joint_method" validate:"required,jointmethod"`
	MonteCarloSamples    int                `mapstructure:"monte_carlo_samples" validate:"gte=0"`
	MonteCarloSeed       uint64             `mapstructure:"monte_carlo_seed"`
	CorrelationOverrides map[string]float64 `mapstructure:"correlation_overrides" validate:"dive,keys,relationship,endkeys,gte=-1,lte=1"`
	Workers              int                `mapstructure:"workers" validate:"required,gt=0"`
}

// ProviderConfig represents the SportsGameOdds API configuration
type ProviderConfig struct {
	Name                         string   `mapstructure:"name" validate:"required"`
	BaseURL                      string   `mapstructure:"base_url" validate:"required,url"`
	APIKey                       string   `mapstructure:"api_key"`
	Sport                        string   `mapstructure:"sport" validate:"required"`
	Books                        []string `mapstructure:"books" validate:"required,min=1,books"`
	TimeoutSeconds               int      `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	RetryAttempts                int      `mapstructure:"retry_attempts" validate:"gte=0"`
	RateLimitPerSecond           float64  `mapstructure:"rate_limit_per_second" validate:"required,gt=0"`
	CacheTTLSeconds              int      `mapstructure:"cache_ttl_seconds" validate:"required,gt=0"`
	CircuitBreakerFailures       int      `mapstructure:"circuit_breaker_failures" validate:"required,gt=0"`
	CircuitBreakerTimeoutSeconds int      `mapstructure:"circuit_breaker_timeout_seconds" validate:"required,gt=0"`
	ProjectionsPath              string   `mapstructure:"projections_path"`
}

// ServerConfig represents the HTTP API configuration
type ServerConfig struct {
	Port                int      `mapstructure:"port" validate:"required,min=1,max=65535"`
	ReadTimeoutSeconds  int      `mapstructure:"read_timeout_seconds" validate:"required,gt=0"`
	WriteTimeoutSeconds int      `mapstructure:"write_timeout_seconds" validate:"required,gt=0"`
	AllowedOrigins      []string `mapstructure:"allowed_origins"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host" validate:"required_if=Enabled true"`
	Port           int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name           string `mapstructure:"name" validate:"required_if=Enabled true"`
	User           string `mapstructure:"user" validate:"required_if=Enabled true"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections int    `mapstructure:"max_connections" validate:"omitempty,gt=0"`
	MinConnections int    `mapstructure:"min_connections" validate:"omitempty,gte=0"`
}

// ScheduleConfig represents the periodic refresh job
type ScheduleConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	IntervalSeconds int  `mapstructure:"interval_seconds" validate:"omitempty,gte=30"`
}

// PublishConfig represents recommendation fan-out sinks
type PublishConfig struct {
	Websocket bool   `mapstructure:"websocket"`
	RedisURL  string `mapstructure:"redis_url" validate:"omitempty,url"`
	Stream    string `mapstructure:"stream"`
	MaxLen    int64  `mapstructure:"max_len" validate:"omitempty,gt=0"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// ProviderTimeout returns the per-request provider timeout.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Provider.TimeoutSeconds) * time.Second
}

// ScheduleInterval returns the refresh interval.
func (c *Config) ScheduleInterval() time.Duration {
	return time.Duration(c.Schedule.IntervalSeconds) * time.Second
}

// ToEngineConfig converts the engine section to the engine's value type.
func (e EngineConfig) ToEngineConfig() engine.Config {
	overrides := make(map[models.Relationship]float64, len(e.CorrelationOverrides))
	for rel, c := range e.CorrelationOverrides {
		overrides[models.Relationship(rel)] = c
	}
	return engine.Config{
		MinEdge:        e.MinEdge,
		MaxJuice:       e.MaxJuice,
		MinLegs:        e.MinLegs,
		MaxLegs:        e.MaxLegs,
		JointHitFloor3: e.JointHitFloor3,
		JointHitFloor4: e.JointHitFloor4,
		TopN:           e.TopN,
		Adjustments: probability.Adjustments{
			QuestionableFade: e.QuestionableFade,
			WindThresholdMPH: e.WindThresholdMPH,
			WindDamping:      e.WindDamping,
		},
		MaxPoolPerGame:       e.MaxPoolPerGame,
		IncludeCrossGame:     e.IncludeCrossGame,
		MaxCrossGamePool:     e.MaxCrossGamePool,
		JointMethod:          e.JointMethod,
		MonteCarloSamples:    e.MonteCarloSamples,
		MonteCarloSeed:       e.MonteCarloSeed,
		CorrelationOverrides: overrides,
		Workers:              e.Workers,
	}
}
