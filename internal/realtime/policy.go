package realtime

import (
	"math"
	"time"

	"github.com/AlibekovAA/givematch-portal/internal/common/config"
)

// ReconnectPolicy is the backoff schedule for a channel. Delay(n) is
// min(BaseDelay * Multiplier^n, MaxDelay).
type ReconnectPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
}

func PolicyFromConfig(c config.PolicyConfig) ReconnectPolicy {
	return ReconnectPolicy{
		MaxAttempts: c.MaxAttempts,
		BaseDelay:   c.BaseDelay,
		Multiplier:  c.Multiplier,
		MaxDelay:    c.MaxDelay,
	}
}

func (p ReconnectPolicy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt))
	if p.MaxDelay > 0 && (math.IsInf(d, 0) || math.IsNaN(d) || d >= float64(p.MaxDelay)) {
		return p.MaxDelay
	}
	if d >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}
