package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/AlibekovAA/givematch-portal/internal/common/constants"
	commonerrors "github.com/AlibekovAA/givematch-portal/internal/common/errors"
)

type PortalConfig struct {
	HTTPPort                string        `validate:"required,numeric"`
	JWTSecret               string        `validate:"required"`
	AdminRole               string        `validate:"required"`
	DatabaseURL             string        `validate:"omitempty,url"`
	UpstreamBaseURL         string        `validate:"required,url"`
	UpstreamTimeout         time.Duration `validate:"gt=0"`
	RequestTimeout          time.Duration `validate:"gt=0"`
	CircuitBreakerThreshold int32         `validate:"gt=0"`
	CircuitBreakerTimeout   time.Duration `validate:"gt=0"`
	CircuitBreakerReset     time.Duration `validate:"gt=0"`
	NotifyTTL               time.Duration `validate:"gt=0"`
	NotifyCapacity          int           `validate:"gt=0"`
	SnapshotMaxAge          time.Duration `validate:"gt=0"`
	Realtime                RealtimeConfig
}

type RealtimeConfig struct {
	BaseURL    string          `validate:"required,url"`
	AuthMode   string          `validate:"oneof=none query header"`
	Token      string          `validate:"required_unless=AuthMode none"`
	PingPeriod time.Duration   `validate:"gte=0"`
	PongWait   time.Duration   `validate:"gte=0"`
	Policy     PolicyConfig    `validate:"required"`
	Channels   []ChannelConfig `validate:"min=1,dive"`
}

type PolicyConfig struct {
	MaxAttempts int           `yaml:"max_attempts" validate:"gte=0"`
	BaseDelay   time.Duration `yaml:"base_delay" validate:"gt=0"`
	Multiplier  float64       `yaml:"multiplier" validate:"gte=1"`
	MaxDelay    time.Duration `yaml:"max_delay" validate:"gtefield=BaseDelay"`
}

// PolicyOverride holds per-channel policy fields. Nil fields inherit from the
// realtime default, so an explicit zero (max_attempts: 0) is kept.
type PolicyOverride struct {
	MaxAttempts *int           `yaml:"max_attempts"`
	BaseDelay   *time.Duration `yaml:"base_delay"`
	Multiplier  *float64       `yaml:"multiplier"`
	MaxDelay    *time.Duration `yaml:"max_delay"`
}

type ChannelConfig struct {
	Name   string          `yaml:"name" validate:"required,alphanum"`
	Path   string          `yaml:"path"`
	URL    string          `yaml:"url" validate:"omitempty,url"`
	Policy *PolicyOverride `yaml:"policy" validate:"-"`
}

// Endpoint resolves the channel address: an explicit URL wins, otherwise the
// realtime base URL joined with the channel path (default /ws/<name>/).
func (c ChannelConfig) Endpoint(baseURL string) string {
	if c.URL != "" {
		return c.URL
	}
	path := c.Path
	if path == "" {
		path = "/ws/" + c.Name + "/"
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// EffectivePolicy applies the per-channel override on top of fallback.
func (c ChannelConfig) EffectivePolicy(fallback PolicyConfig) PolicyConfig {
	p := fallback
	if c.Policy == nil {
		return p
	}
	if c.Policy.MaxAttempts != nil {
		p.MaxAttempts = *c.Policy.MaxAttempts
	}
	if c.Policy.BaseDelay != nil {
		p.BaseDelay = *c.Policy.BaseDelay
	}
	if c.Policy.Multiplier != nil {
		p.Multiplier = *c.Policy.Multiplier
	}
	if c.Policy.MaxDelay != nil {
		p.MaxDelay = *c.Policy.MaxDelay
	}
	return p
}

func DefaultChannels() []ChannelConfig {
	return []ChannelConfig{
		{Name: constants.ChannelDashboard, Path: "/ws/dashboard/"},
		{Name: constants.ChannelDonations, Path: "/ws/donations/"},
	}
}

func LoadPortalConfig() (PortalConfig, error) {
	jwtSecret, err := mustEnv("JWT_SECRET")
	if err != nil {
		return PortalConfig{}, err
	}

	if err := validateJWTSecret(jwtSecret); err != nil {
		return PortalConfig{}, err
	}

	upstreamURL, err := mustEnv("UPSTREAM_BASE_URL")
	if err != nil {
		return PortalConfig{}, err
	}

	cfg := PortalConfig{
		HTTPPort:                getEnv("PORTAL_HTTP_PORT", constants.DefaultPortalHTTPPort),
		JWTSecret:               jwtSecret,
		AdminRole:               getEnv("PORTAL_ADMIN_ROLE", "admin"),
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		UpstreamBaseURL:         upstreamURL,
		UpstreamTimeout:         getDurationEnv("UPSTREAM_TIMEOUT", constants.DefaultUpstreamTimeout),
		RequestTimeout:          getDurationEnv("PORTAL_REQUEST_TIMEOUT", constants.DefaultRequestTimeout),
		CircuitBreakerThreshold: int32(getIntEnv("UPSTREAM_BREAKER_THRESHOLD", constants.DefaultCircuitBreakerThreshold)),
		CircuitBreakerTimeout:   getDurationEnv("UPSTREAM_BREAKER_TIMEOUT", constants.DefaultCircuitBreakerTimeout),
		CircuitBreakerReset:     getDurationEnv("UPSTREAM_BREAKER_RESET", constants.DefaultCircuitBreakerReset),
		NotifyTTL:               getDurationEnv("NOTIFY_TTL", constants.DefaultNotifyTTL),
		NotifyCapacity:          getIntEnv("NOTIFY_CAPACITY", constants.DefaultNotifyCapacity),
		SnapshotMaxAge:          getDurationEnv("SNAPSHOT_MAX_AGE", constants.DefaultSnapshotMaxAge),
		Realtime: RealtimeConfig{
			BaseURL:    getEnv("REALTIME_BASE_URL", defaultRealtimeBase(upstreamURL)),
			AuthMode:   strings.ToLower(getEnv("REALTIME_AUTH_MODE", constants.DefaultRealtimeAuthMode)),
			Token:      getEnv("REALTIME_TOKEN", ""),
			PingPeriod: getDurationEnv("REALTIME_PING_PERIOD", constants.DefaultRealtimePingEvery),
			PongWait:   getDurationEnv("REALTIME_PONG_WAIT", constants.DefaultRealtimePongWait),
			Policy: PolicyConfig{
				MaxAttempts: getIntEnv("REALTIME_MAX_ATTEMPTS", constants.DefaultRealtimeMaxAttempts),
				BaseDelay:   getDurationEnv("REALTIME_BASE_DELAY", constants.DefaultRealtimeBaseDelay),
				Multiplier:  getFloatEnv("REALTIME_MULTIPLIER", constants.DefaultRealtimeMultiplier),
				MaxDelay:    getDurationEnv("REALTIME_MAX_DELAY", constants.DefaultRealtimeMaxDelay),
			},
			Channels: DefaultChannels(),
		},
	}

	if path := getEnv("REALTIME_CHANNELS_FILE", ""); path != "" {
		channels, err := LoadChannelsFile(path)
		if err != nil {
			return PortalConfig{}, err
		}
		cfg.Realtime.Channels = channels
	}

	if err := Validate(cfg); err != nil {
		return PortalConfig{}, err
	}

	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func Validate(cfg PortalConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return commonerrors.ErrInvalidConfig.WithCause(err)
	}
	for _, ch := range cfg.Realtime.Channels {
		if ch.Policy == nil {
			continue
		}
		if err := validate.Struct(ch.EffectivePolicy(cfg.Realtime.Policy)); err != nil {
			return commonerrors.ErrInvalidConfig.WithCause(fmt.Errorf("channel %s: %w", ch.Name, err))
		}
	}
	return nil
}

// defaultRealtimeBase maps http(s)://host to ws(s)://host so a single
// UPSTREAM_BASE_URL is enough for local setups.
func defaultRealtimeBase(upstream string) string {
	switch {
	case strings.HasPrefix(upstream, "https://"):
		return "wss://" + strings.TrimPrefix(upstream, "https://")
	case strings.HasPrefix(upstream, "http://"):
		return "ws://" + strings.TrimPrefix(upstream, "http://")
	default:
		return upstream
	}
}

func validateJWTSecret(secret string) error {
	if len(secret) < constants.JWTSecretMinLength {
		return commonerrors.ErrInvalidJWTSecret.WithCause(fmt.Errorf("got %d bytes", len(secret)))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func mustEnv(key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", commonerrors.ErrMissingRequiredEnv.WithCause(fmt.Errorf("%s", key))
	}
	return v, nil
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getIntEnv(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getFloatEnv(key string, fallback float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
