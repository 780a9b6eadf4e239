// Package appconfig loads the tunables listed in spec.md §6 ("Configuration")
// through viper, the way src/config/config.go loads the teacher's settings.
package appconfig

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds every recognized tuning knob for the cache core.
type Config struct {
	// DefaultTTL is the TTL applied to production cache and index keys
	// after a shadow generation is renamed into place (I5).
	DefaultTTL time.Duration `mapstructure:"default_ttl" validate:"gt=0"`

	// LockTTL bounds how long a warm may hold the per-data-source lock.
	LockTTL time.Duration `mapstructure:"lock_ttl" validate:"gt=0"`

	// PipelineBatch is the number of operations flushed per pipeline
	// round-trip during shadow population.
	PipelineBatch int `mapstructure:"pipeline_batch" validate:"gt=0"`

	// MgetBatch is the number of keys requested per MGET call.
	MgetBatch int `mapstructure:"mget_batch" validate:"gt=0"`

	// ScanCount is the COUNT hint passed to every SCAN call.
	ScanCount int `mapstructure:"scan_count" validate:"gt=0"`

	// MaxScanPages caps SCAN cursor iterations per phase, guarding
	// against a cursor that never returns to 0.
	MaxScanPages int `mapstructure:"max_scan_pages" validate:"gt=0"`

	// MaxEntryBytes caps the serialized size of a single value blob.
	MaxEntryBytes int64 `mapstructure:"max_entry_bytes" validate:"gt=0"`

	// AllowedSchemas is the allow-list a data source's configured schema
	// must appear in before the warmer will build SQL against it.
	AllowedSchemas []string `mapstructure:"allowed_schemas" validate:"required,min=1"`

	// CompressionThreshold is the serialized blob size, in bytes, at or
	// above which the KV adapter zstd-compresses before SET.
	CompressionThreshold int64 `mapstructure:"compression_threshold" validate:"gte=0"`

	// TempKeyTTL bounds query-time temp keys (§3 "Temporary keys").
	TempKeyTTL time.Duration `mapstructure:"temp_key_ttl" validate:"gt=0"`

	// InvalidationBatch is the batch size used when deleting master
	// index members and SCAN-discovered index keys.
	InvalidationBatch int `mapstructure:"invalidation_batch" validate:"gt=0"`
}

// Default returns the configuration spec.md §6 names as defaults.
func Default() Config {
	return Config{
		DefaultTTL:            48 * time.Hour,
		LockTTL:               300 * time.Second,
		PipelineBatch:         5000,
		MgetBatch:             10000,
		ScanCount:             1000,
		MaxScanPages:          1000,
		MaxEntryBytes:         100 * 1024 * 1024,
		AllowedSchemas:        []string{"public", "analytics"},
		CompressionThreshold:  64 * 1024,
		TempKeyTTL:            10 * time.Second,
		InvalidationBatch:     1000,
	}
}

// Load reads configuration from the given viper instance, falling back to
// Default() for anything unset, then validates the result.
func Load(v *viper.Viper) (Config, error) {
	def := Default()
	if v == nil {
		v = viper.New()
	}
	v.SetDefault("default_ttl", def.DefaultTTL)
	v.SetDefault("lock_ttl", def.LockTTL)
	v.SetDefault("pipeline_batch", def.PipelineBatch)
	v.SetDefault("mget_batch", def.MgetBatch)
	v.SetDefault("scan_count", def.ScanCount)
	v.SetDefault("max_scan_pages", def.MaxScanPages)
	v.SetDefault("max_entry_bytes", def.MaxEntryBytes)
	v.SetDefault("allowed_schemas", def.AllowedSchemas)
	v.SetDefault("compression_threshold", def.CompressionThreshold)
	v.SetDefault("temp_key_ttl", def.TempKeyTTL)
	v.SetDefault("invalidation_batch", def.InvalidationBatch)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("appconfig: unmarshal: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return Config{}, fmt.Errorf("appconfig: invalid configuration: %w", err)
	}
	return cfg, nil
}
