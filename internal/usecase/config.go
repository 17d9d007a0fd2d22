package usecase

import (
	"fmt"
	"time"

	"github.com/andreyk/breakout_bot/internal/domain"
)

// TimeOfDay is a session-local wall-clock instant.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var t TimeOfDay
	if _, err := fmt.Sscanf(s, "%d:%d", &t.Hour, &t.Minute); err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
	}
	return t, nil
}

// On places the time of day on the given calendar day.
func (t TimeOfDay) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, day.Location())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// StrategyConfig holds the immutable parameters of one engine run.
type StrategyConfig struct {
	Name string

	StopLossPercent    float64
	TakeProfitPercent  float64 // tier 1
	TakeProfitPercent2 float64
	TakeProfitPercent3 float64
	BreakoutPercent    float64
	ReentryPercent     float64 // accepted for compatibility, entries sit on the range boundary

	SessionOpen  TimeOfDay // morning range window start
	Cutoff       TimeOfDay // range window end, detection active after this
	EveningStart TimeOfDay // pending entries are swept from here on
	ForcedExit   TimeOfDay // time-window exit check

	// Instruments of this class are skipped when the morning range is at
	// least VolatileRangeLimit wide.
	VolatileClass      string
	VolatileRangeLimit float64

	// CascadeAllTiers extends the tier cascade: any tier's profit close
	// ratchets every surviving higher tier. Off reproduces the classic
	// behavior where only a tier-1 close ratchets tier 2.
	CascadeAllTiers bool

	CancelConfirmTimeout time.Duration
	CancelRetryLimit     int

	Volumes          map[string]float64 // per-symbol entry volume
	LoadActiveTrades bool
}

func (c *StrategyConfig) applyDefaults() {
	if c.Name == "" {
		c.Name = "BDown"
	}
	if c.SessionOpen == (TimeOfDay{}) {
		c.SessionOpen = TimeOfDay{Hour: 10}
	}
	if c.EveningStart == (TimeOfDay{}) {
		c.EveningStart = TimeOfDay{Hour: 19}
	}
	if c.ForcedExit == (TimeOfDay{}) {
		c.ForcedExit = TimeOfDay{Hour: 23, Minute: 35}
	}
	if c.VolatileRangeLimit == 0 {
		c.VolatileRangeLimit = 200
	}
	if c.CancelConfirmTimeout == 0 {
		c.CancelConfirmTimeout = 10 * time.Second
	}
	if c.CancelRetryLimit == 0 {
		c.CancelRetryLimit = 3
	}
}

func (c *StrategyConfig) takeProfitFor(tier domain.Tier) float64 {
	switch tier {
	case domain.Tier2:
		return c.TakeProfitPercent2
	case domain.Tier3:
		return c.TakeProfitPercent3
	default:
		return c.TakeProfitPercent
	}
}
