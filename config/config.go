package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSettingsPath is used when no settings path is given
const DefaultSettingsPath = "config/settings.yaml"

// VerificationSettings controls how faces and passwords are checked
type VerificationSettings struct {
	// FaceTolerance is the maximum Euclidean distance at which two encodings match
	FaceTolerance float64 `yaml:"faceTolerance"`
	// BcryptCost is the work factor used when hashing new passwords
	BcryptCost int `yaml:"bcryptCost"`
	// MaxImageBytes caps the decoded size of an uploaded face image
	MaxImageBytes int `yaml:"maxImageBytes"`
}

// RateLimitSettings controls per-client throttling of the verification endpoints
type RateLimitSettings struct {
	Enabled     bool          `yaml:"enabled"`
	MaxRequests int           `yaml:"maxRequests"`
	Window      time.Duration `yaml:"window"`
}

// TokenSettings controls the verification tokens issued after a successful check
type TokenSettings struct {
	Issuer string        `yaml:"issuer"`
	TTL    time.Duration `yaml:"ttl"`
}

// Settings holds the identity service configuration
type Settings struct {
	Verification VerificationSettings `yaml:"verification"`
	RateLimit    RateLimitSettings    `yaml:"rateLimit"`
	Token        TokenSettings        `yaml:"token"`
}

// DefaultSettings returns the settings used when no file is present.
// A face tolerance of 0.5 is stricter than the usual 0.6 for 128-d encodings.
func DefaultSettings() *Settings {
	return &Settings{
		Verification: VerificationSettings{
			FaceTolerance: 0.5,
			BcryptCost:    10,
			MaxImageBytes: 5 << 20,
		},
		RateLimit: RateLimitSettings{
			Enabled:     true,
			MaxRequests: 30,
			Window:      time.Minute,
		},
		Token: TokenSettings{
			Issuer: "lysa-identity",
			TTL:    5 * time.Minute,
		},
	}
}

// LoadSettings loads settings from a YAML file and applies environment overrides.
// If the file is not found, defaults are used.
func LoadSettings(path string) (*Settings, error) {
	if path == "" {
		path = DefaultSettingsPath
	}

	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, settings); err != nil {
			return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
		}
	case os.IsNotExist(err):
		slog.Info("Settings file not found, using defaults", "path", path)
	default:
		return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}

	settings.applyEnv()

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// applyEnv overrides file values with environment variables when they are set
func (s *Settings) applyEnv() {
	s.Verification.FaceTolerance = GetEnvFloatOrDefault("FACE_TOLERANCE", s.Verification.FaceTolerance)
	s.Verification.BcryptCost = GetEnvIntOrDefault("BCRYPT_COST", s.Verification.BcryptCost)
	s.Verification.MaxImageBytes = GetEnvIntOrDefault("MAX_IMAGE_BYTES", s.Verification.MaxImageBytes)
	s.RateLimit.Enabled = GetEnvBoolOrDefault("RATE_LIMIT_ENABLED", s.RateLimit.Enabled)
	s.RateLimit.MaxRequests = GetEnvIntOrDefault("RATE_LIMIT_MAX_REQUESTS", s.RateLimit.MaxRequests)
	s.RateLimit.Window = GetEnvDurationOrDefault("RATE_LIMIT_WINDOW", s.RateLimit.Window)
	s.Token.Issuer = GetEnvOrDefault("VERIFICATION_TOKEN_ISSUER", s.Token.Issuer)
	s.Token.TTL = GetEnvDurationOrDefault("VERIFICATION_TOKEN_TTL", s.Token.TTL)
}

// Validate rejects settings the service cannot run with
func (s *Settings) Validate() error {
	if s.Verification.FaceTolerance <= 0 {
		return fmt.Errorf("faceTolerance must be positive, got %v", s.Verification.FaceTolerance)
	}
	if s.Verification.BcryptCost < 4 || s.Verification.BcryptCost > 31 {
		return fmt.Errorf("bcryptCost must be between 4 and 31, got %d", s.Verification.BcryptCost)
	}
	if s.Verification.MaxImageBytes <= 0 {
		return fmt.Errorf("maxImageBytes must be positive, got %d", s.Verification.MaxImageBytes)
	}
	if s.RateLimit.Enabled && (s.RateLimit.MaxRequests <= 0 || s.RateLimit.Window <= 0) {
		return fmt.Errorf("rate limit requires positive maxRequests and window")
	}
	if s.Token.TTL <= 0 {
		return fmt.Errorf("token ttl must be positive, got %s", s.Token.TTL)
	}
	return nil
}

// GetEnvOrDefault returns the environment variable value or a default
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvIntOrDefault parses an integer environment variable or returns the default
func GetEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
		slog.Warn("Invalid integer in environment, using default", "key", key, "value", value, "default", defaultValue)
	}
	return defaultValue
}

// GetEnvFloatOrDefault parses a float environment variable or returns the default
func GetEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
		slog.Warn("Invalid float in environment, using default", "key", key, "value", value, "default", defaultValue)
	}
	return defaultValue
}

// GetEnvDurationOrDefault parses a duration such as "30s" or "5m" or returns the default
func GetEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
		slog.Warn("Invalid duration in environment, using default", "key", key, "value", value, "default", defaultValue)
	}
	return defaultValue
}

// GetEnvBoolOrDefault accepts true/1/yes/on as true and anything else as false
func GetEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	value = strings.ToLower(strings.TrimSpace(value))
	return value == "true" || value == "1" || value == "yes" || value == "on"
}
