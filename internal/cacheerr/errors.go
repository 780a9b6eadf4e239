// Package cacheerr defines the error taxonomy from spec.md §7, shared by
// every component so callers can type-switch on failure reasons regardless
// of which layer produced them.
package cacheerr

import "errors"

var (
	// ErrStoreUnavailable wraps a connection/IO failure talking to the KV
	// store. Never retried inside the adapter; the caller decides.
	ErrStoreUnavailable = errors.New("cache: store unavailable")

	// ErrPipeline indicates at least one operation in a pipelined batch
	// failed, even though the pipeline itself executed.
	ErrPipeline = errors.New("cache: pipeline operation failed")

	// ErrConfig covers a missing data-source config, a schema absent from
	// the allow-list, or a malformed table name.
	ErrConfig = errors.New("cache: invalid data source configuration")

	// ErrSourceDB wraps a failure fetching rows from the external
	// analytics database.
	ErrSourceDB = errors.New("cache: source database fetch failed")

	// ErrSerialization wraps a JSON encode/decode failure.
	ErrSerialization = errors.New("cache: serialization failed")

	// ErrEntryTooLarge indicates a blob exceeded maxEntryBytes.
	ErrEntryTooLarge = errors.New("cache: entry exceeds maximum size")

	// ErrScanCeilingExceeded indicates a SCAN loop exceeded maxScanPages.
	ErrScanCeilingExceeded = errors.New("cache: scan exceeded page ceiling")

	// ErrInvalidFilter covers a batch query spanning mixed data sources,
	// or a filter missing required fields.
	ErrInvalidFilter = errors.New("cache: invalid filter")
)
