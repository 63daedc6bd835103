package solver

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lox/bodegabrawl/internal/equilibrium"
)

// Schedule controls how worker strides are ordered against the
// cards-remaining levels.
type Schedule uint8

const (
	// ScheduleStride gives every worker one stride over the whole index
	// space; missing dependencies are waited for by polling.
	ScheduleStride Schedule = iota
	// ScheduleLevel strides over one cards-remaining level at a time and
	// waits for all workers before starting the next level.
	ScheduleLevel
)

func (s Schedule) String() string {
	switch s {
	case ScheduleStride:
		return "stride"
	case ScheduleLevel:
		return "level"
	default:
		return "unknown"
	}
}

// ParseSchedule parses "stride" or "level".
func ParseSchedule(input string) (Schedule, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "", "stride":
		return ScheduleStride, nil
	case "level":
		return ScheduleLevel, nil
	default:
		return ScheduleStride, fmt.Errorf("unknown schedule %q", input)
	}
}

// Config aggregates parameters that control a solve run.
type Config struct {
	Workers          int
	PollInterval     time.Duration
	ProgressInterval time.Duration
	Schedule         Schedule
	Tolerance        float64
	FailureDir       string
}

// Validate ensures the parameters are safe to use.
func (c Config) Validate() error {
	if c.Workers <= 0 {
		return errors.New("workers must be > 0")
	}
	if c.PollInterval <= 0 {
		return errors.New("poll interval must be > 0")
	}
	if c.ProgressInterval <= 0 {
		return errors.New("progress interval must be > 0")
	}
	if c.Schedule > ScheduleLevel {
		return errors.New("invalid schedule")
	}
	if c.Tolerance < 0 {
		return errors.New("tolerance cannot be negative")
	}
	if c.FailureDir == "" {
		return errors.New("failure directory is required")
	}
	return nil
}

// DefaultConfig returns the settings used for full-size runs.
func DefaultConfig() Config {
	return Config{
		Workers:          40,
		PollInterval:     100 * time.Millisecond,
		ProgressInterval: 5 * time.Second,
		Schedule:         ScheduleStride,
		Tolerance:        equilibrium.DefaultTolerance,
		FailureDir:       "failures",
	}
}
