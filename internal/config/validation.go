package config

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/yourusername/parlay-edge/internal/models"
	"github.com/yourusername/parlay-edge/internal/parlay"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	// Register custom validation functions
	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("books", validateBooks)
	_ = v.RegisterValidation("jointmethod", validateJointMethod)
	_ = v.RegisterValidation("relationship", validateRelationship)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	// Additional cross-field validations
	if err := validateCrossField(cfg); err != nil {
		return err
	}

	return nil
}

// validateEnvironment validates the environment field
func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

// validateLogLevel validates the log level field
func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// bookPattern matches sportsbook identifiers such as "draftkings" or "betmgm"
var bookPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// validateBooks validates sportsbook identifiers
func validateBooks(fl validator.FieldLevel) bool {
	books, ok := fl.Field().Interface().([]string)
	if !ok || len(books) == 0 {
		return false
	}
	for _, book := range books {
		if !bookPattern.MatchString(book) {
			return false
		}
	}
	return true
}

// validateJointMethod validates the joint probability estimator name
func validateJointMethod(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case parlay.JointPairwise, parlay.JointMonteCarlo:
		return true
	default:
		return false
	}
}

// validateRelationship validates correlation override keys
func validateRelationship(fl validator.FieldLevel) bool {
	switch models.Relationship(fl.Field().String()) {
	case models.RelSamePlayer, models.RelQBPassCatcher, models.RelRBOwnQB,
		models.RelSameTeamUnrelated, models.RelOpposingSameGame, models.RelDifferentGames:
		return true
	default:
		return false
	}
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	if cfg.Engine.MinLegs > cfg.Engine.MaxLegs {
		return fmt.Errorf("engine min_legs cannot exceed max_legs")
	}

	// A longer parlay never needs a higher hit floor than a shorter one
	if cfg.Engine.JointHitFloor4 > cfg.Engine.JointHitFloor3 {
		return fmt.Errorf("engine joint_hit_floor_4 cannot exceed joint_hit_floor_3")
	}

	if cfg.Engine.JointMethod == parlay.JointMonteCarlo && cfg.Engine.MonteCarloSamples < 1000 {
		return fmt.Errorf("monte_carlo joint method requires at least 1000 samples")
	}

	if cfg.Schedule.Enabled && cfg.Schedule.IntervalSeconds == 0 {
		return fmt.Errorf("schedule interval_seconds is required when the schedule is enabled")
	}

	if cfg.Database.MinConnections > cfg.Database.MaxConnections {
		return fmt.Errorf("min_connections cannot exceed max_connections")
	}

	// Validate production environment requirements
	if cfg.IsProduction() {
		if cfg.Database.Enabled && cfg.Database.SSLMode == "disable" {
			return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
		}
		if cfg.Provider.APIKey == "" {
			return fmt.Errorf("production environment requires a provider api_key")
		}
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var errMsg string
	for _, fieldError := range validationErrors {
		field := fieldError.StructField()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required", "required_if":
			errMsg += fmt.Sprintf("- Field '%s' is required\n", field)
		case "url":
			errMsg += fmt.Sprintf("- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "min", "max":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "books":
			errMsg += fmt.Sprintf("- Field '%s' must list lowercase sportsbook ids, got '%v'\n", field, value)
		case "jointmethod":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: %s, %s\n", field, parlay.JointPairwise, parlay.JointMonteCarlo)
		case "relationship":
			errMsg += fmt.Sprintf("- Field '%s' has unknown relationship '%v'\n", field, value)
		case "oneof":
			errMsg += fmt.Sprintf("- Field '%s' has invalid value '%v'\n", field, value)
		default:
			errMsg += fmt.Sprintf("- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", errMsg)
}

// ValidateEnvironment validates environment-specific requirements
func ValidateEnvironment(cfg *Config) error {
	if cfg.IsProduction() {
		// Production should not run against placeholder credentials
		if isTestCredential(cfg.Provider.APIKey) {
			return fmt.Errorf("production environment should not use a test provider api_key")
		}
	}
	return nil
}

// isTestCredential checks if a credential looks like a test credential
func isTestCredential(credential string) bool {
	testPatterns := []string{
		"test", "demo", "example", "placeholder", "YOUR_",
	}

	for _, pattern := range testPatterns {
		if match, _ := regexp.MatchString("(?i)"+pattern, credential); match {
			return true
		}
	}

	return false
}
