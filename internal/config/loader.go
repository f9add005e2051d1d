package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/yourusername/parlay-edge/internal/parlay"
)

const envPrefix = "PARLAY_EDGE"

// Load reads and parses the configuration from file and environment variables
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	// Read the configuration file
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()

	// Expand environment variables in the configuration (${VAR} syntax)
	expanded := os.ExpandEnv(string(data))
	if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional fields.
// A missing file is not an error: defaults and environment variables are used.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	v := newViper()
	setDefaults(v)

	// Read and expand the configuration file if it exists
	if data, err := os.ReadFile(configPath); err == nil {
		expanded := os.ExpandEnv(string(data))
		if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// ReloadFromEnv reloads the configuration from the path in PARLAY_EDGE_CONFIG_PATH, if set.
func ReloadFromEnv(cfg *Config) error {
	if envPath := os.Getenv(envPrefix + "_CONFIG_PATH"); envPath != "" {
		newCfg, err := LoadWithDefaults(envPath)
		if err != nil {
			return err
		}
		*cfg = *newCfg
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	// PARLAY_EDGE_ENGINE_MIN_EDGE overrides engine.min_edge
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "parlay-edge")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("engine.min_edge", 0.03)
	v.SetDefault("engine.max_juice", -180)
	v.SetDefault("engine.min_legs", parlay.MinLegs)
	v.SetDefault("engine.max_legs", parlay.MaxLegs)
	v.SetDefault("engine.joint_hit_floor_3", 0.18)
	v.SetDefault("engine.joint_hit_floor_4", 0.12)
	v.SetDefault("engine.top_n", 3)
	v.SetDefault("engine.questionable_fade", 0.25)
	v.SetDefault("engine.wind_threshold_mph", 15)
	v.SetDefault("engine.wind_damping", 0.10)
	v.SetDefault("engine.max_pool_per_game", 20)
	v.SetDefault("engine.include_cross_game", true)
	v.SetDefault("engine.max_cross_game_pool", 12)
	v.SetDefault("engine.joint_method", parlay.JointPairwise)
	v.SetDefault("engine.monte_carlo_samples", parlay.DefaultSamples)
	v.SetDefault("engine.monte_carlo_seed", 42)
	v.SetDefault("engine.workers", 4)

	v.SetDefault("provider.name", "SportsGameOdds")
	v.SetDefault("provider.base_url", "https://api.sportsgameodds.com")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.sport", "nfl")
	v.SetDefault("provider.books", []string{"draftkings", "fanduel"})
	v.SetDefault("provider.timeout_seconds", 10)
	v.SetDefault("provider.retry_attempts", 3)
	v.SetDefault("provider.rate_limit_per_second", 2)
	v.SetDefault("provider.cache_ttl_seconds", 60)
	v.SetDefault("provider.circuit_breaker_failures", 5)
	v.SetDefault("provider.circuit_breaker_timeout_seconds", 30)
	v.SetDefault("provider.projections_path", "")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 30)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_connections", 1)

	v.SetDefault("schedule.enabled", false)
	v.SetDefault("schedule.interval_seconds", 300)

	v.SetDefault("publish.websocket", true)
	v.SetDefault("publish.redis_url", "")
	v.SetDefault("publish.stream", "parlays.recommended")
	v.SetDefault("publish.max_len", 1000)
}
