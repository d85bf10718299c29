package config

import (
    "log"
    "time"

    "github.com/iliyamo/restaurant-reservation/internal/booking"
)

// BookingConfig tunes the reservation engine and its sweeper.
type BookingConfig struct {
    Policy        booking.ConfirmPolicy
    LockTimeout   time.Duration
    MaxWindow     time.Duration
    SweepEnabled  bool
    SweepSchedule string // cron expression, e.g. "@every 5m" or "*/10 * * * *"
}

// LoadBookingConfig reads BOOKING_* and SWEEP_* variables.  An unknown
// confirmation policy is fatal rather than silently falling back.
func LoadBookingConfig() BookingConfig {
    raw := envStr("BOOKING_CONFIRM_POLICY", string(booking.PolicyAuto))
    policy, err := booking.ParseConfirmPolicy(raw)
    if err != nil {
        log.Fatalf("invalid BOOKING_CONFIRM_POLICY: %v", err)
    }
    cfg := BookingConfig{
        Policy:        policy,
        LockTimeout:   envDur("BOOKING_LOCK_TIMEOUT", booking.DefaultLockTimeout),
        MaxWindow:     envDur("BOOKING_MAX_WINDOW", 6*time.Hour),
        SweepEnabled:  envBool("SWEEP_ENABLED", true),
        SweepSchedule: envStr("SWEEP_SCHEDULE", "@every 5m"),
    }
    if cfg.LockTimeout <= 0 {
        cfg.LockTimeout = booking.DefaultLockTimeout
    }
    if cfg.MaxWindow < 0 {
        cfg.MaxWindow = 0
    }
    return cfg
}
