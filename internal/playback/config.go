package playback

import "time"

// Config tunes how aggressively a session recovers from playback failures.
// None of the values are protocol requirements.
type Config struct {
	MaxRecoveryAttempts int
	RecreateThreshold   int
	BackoffStep         time.Duration
	SettleDelay         time.Duration
	RebuildDelay        time.Duration
	ShortPauseLimit     int
	PrematureWindow     time.Duration
	// PrematurePosition is in seconds of media time.
	PrematurePosition float64
	PollInterval      time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxRecoveryAttempts: 4,
		RecreateThreshold:   3,
		BackoffStep:         300 * time.Millisecond,
		SettleDelay:         450 * time.Millisecond,
		RebuildDelay:        200 * time.Millisecond,
		ShortPauseLimit:     2,
		PrematureWindow:     4 * time.Second,
		PrematurePosition:   2,
		PollInterval:        500 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxRecoveryAttempts <= 0 {
		c.MaxRecoveryAttempts = d.MaxRecoveryAttempts
	}
	if c.RecreateThreshold <= 0 {
		c.RecreateThreshold = d.RecreateThreshold
	}
	if c.BackoffStep <= 0 {
		c.BackoffStep = d.BackoffStep
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = d.SettleDelay
	}
	if c.RebuildDelay <= 0 {
		c.RebuildDelay = d.RebuildDelay
	}
	if c.ShortPauseLimit <= 0 {
		c.ShortPauseLimit = d.ShortPauseLimit
	}
	if c.PrematureWindow <= 0 {
		c.PrematureWindow = d.PrematureWindow
	}
	if c.PrematurePosition <= 0 {
		c.PrematurePosition = d.PrematurePosition
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	return c
}
