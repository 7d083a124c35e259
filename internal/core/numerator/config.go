package numerator

import (
	"fmt"
	"time"
)

// Strategy selects how numbers are drawn from the sequence.
type Strategy int

const (
	// StrategyStrict increments the stored counter for every number. No gaps
	// unless the caller fails after drawing.
	StrategyStrict Strategy = iota

	// StrategyCached reserves RangeSize values at once and serves them from
	// memory. A restart loses the unused rest of the range.
	StrategyCached
)

// Options tune number generation.
type Options struct {
	Strategy Strategy
	// RangeSize for StrategyCached. Zero means 50.
	RangeSize int64
}

func DefaultOptions() *Options {
	return &Options{Strategy: StrategyStrict}
}

// Period is the interval after which a sequence restarts at 1.
type Period string

const (
	PeriodYear  Period = "year"
	PeriodMonth Period = "month"
	PeriodNever Period = "never"
)

const defaultPadWidth = 5

// Config describes the numbers of one document type.
type Config struct {
	Prefix      string // "PO", "RV", "PRD"
	IncludeYear bool
	PadWidth    int
	ResetPeriod Period
}

// DefaultConfig yields yearly sequences such as RV-2026-00001.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		IncludeYear: true,
		PadWidth:    defaultPadWidth,
		ResetPeriod: PeriodYear,
	}
}

// SequenceKey is the storage key of the counter backing cfg in the given period.
func (cfg Config) SequenceKey(period time.Time) string {
	switch cfg.ResetPeriod {
	case PeriodMonth:
		return cfg.Prefix + "_" + period.Format("2006_01")
	case PeriodYear:
		return cfg.Prefix + "_" + period.Format("2006")
	default:
		return cfg.Prefix
	}
}

// Format renders a counter value as a document number.
func (cfg Config) Format(period time.Time, num int64) string {
	width := cfg.PadWidth
	if width <= 0 {
		width = defaultPadWidth
	}
	if !cfg.IncludeYear {
		return fmt.Sprintf("%s-%0*d", cfg.Prefix, width, num)
	}
	return fmt.Sprintf("%s-%s-%0*d", cfg.Prefix, period.Format("2006"), width, num)
}
