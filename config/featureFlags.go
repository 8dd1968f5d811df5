package config

import (
	"os"
	"strings"
	"time"
)

// ReportCacheEnabled turns on the Redis report cache.
//
// Set via env:
// - ENABLE_REPORT_CACHE=true
func ReportCacheEnabled() bool {
	return boolFromEnv("ENABLE_REPORT_CACHE")
}

// ReportCacheTTL defaults to 60s.
func ReportCacheTTL() time.Duration {
	secs := intFromEnv("REPORT_CACHE_TTL_SECONDS", 60)
	if secs <= 0 {
		secs = 60
	}
	return time.Duration(secs) * time.Second
}

// ReportSlowThreshold is the duration after which a report is logged as slow.
// REPORT_SLOW_MS=0 disables slow logging.
func ReportSlowThreshold() time.Duration {
	return time.Duration(intFromEnv("REPORT_SLOW_MS", 1500)) * time.Millisecond
}

// ReportLocation is the time zone in which report buckets and date bounds are evaluated.
//
// Set via env:
// - REPORT_TIMEZONE=Asia/Karachi (default UTC)
func ReportLocation() *time.Location {
	name := strings.TrimSpace(os.Getenv("REPORT_TIMEZONE"))
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// PhoneCountryCode is the default region used to parse phone numbers without a
// leading "+".
func PhoneCountryCode() string {
	v := strings.ToUpper(strings.TrimSpace(os.Getenv("PHONE_COUNTRY_CODE")))
	if v == "" {
		return "PK"
	}
	return v
}

func SkipMigrations() bool {
	return boolFromEnv("SKIP_MIGRATIONS")
}

// StorageProvider is "local" (default) or "gcs".
func StorageProvider() string {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("STORAGE_PROVIDER")))
	if v == "" {
		return "local"
	}
	return v
}

func UploadDir() string {
	if v := strings.TrimSpace(os.Getenv("UPLOAD_DIR")); v != "" {
		return v
	}
	return "uploads"
}

// LedgerTopic is the Pub/Sub topic for ledger events. Empty disables publishing.
func LedgerTopic() string {
	return strings.TrimSpace(os.Getenv("PUBSUB_LEDGER_TOPIC"))
}
