package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// StringFromEnv returns the trimmed value of key, or def when unset.
func StringFromEnv(key string, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func IntFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// BoolFromEnv accepts 1/true/yes/y (case-insensitive) as true.
func BoolFromEnv(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

func IsProduction() bool {
	return strings.EqualFold(os.Getenv("GO_ENV"), "production")
}

// OverdueSweepInterval is how often the background sweep flips unpaid payments to Overdue.
//
// Set via env:
// - OVERDUE_SWEEP_INTERVAL_MINUTES (default 60, 0 disables the ticker)
func OverdueSweepInterval() time.Duration {
	return time.Duration(IntFromEnv("OVERDUE_SWEEP_INTERVAL_MINUTES", 60)) * time.Minute
}

// PaymentEventsEnabled turns on publishing of payment status events to Pub/Sub.
//
// Set via env:
// - PAYMENT_EVENTS_TOPIC=<topic name>
func PaymentEventsEnabled() bool {
	return strings.TrimSpace(os.Getenv("PAYMENT_EVENTS_TOPIC")) != ""
}

func PhoneDefaultRegion() string {
	return strings.ToUpper(StringFromEnv("PHONE_DEFAULT_REGION", "RU"))
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
