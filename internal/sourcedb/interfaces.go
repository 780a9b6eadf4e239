// Package sourcedb defines the two external contracts spec.md places
// outside this system's scope — the analytics fact-table database and the
// configuration service that names which schema/table backs each data
// source — plus reference adapters for each so the rest of the module has
// something real to drive in tests and the demo CLI.
package sourcedb

import "context"

// ColumnMapping names the source columns the warmer consults beyond the
// fixed measure/practice_uid/provider_uid trio. TimePeriodField is the
// column grouped on as the tuple's frequency.
type ColumnMapping struct {
	TimePeriodField string `json:"timePeriodField" yaml:"timePeriodField"`
}

// DataSourceConfig is what GetDataSourceConfig returns: enough to compose
// (and allow-list) a `SELECT * FROM schema.table`.
type DataSourceConfig struct {
	Schema        string        `json:"schema" yaml:"schema"`
	Table         string        `json:"table" yaml:"table"`
	ColumnMapping ColumnMapping `json:"columnMapping" yaml:"columnMapping"`
}

// ConfigProvider is the external configuration service contract
// (spec.md §4.C step 2 / §4.A "consumed, not implemented").
type ConfigProvider interface {
	GetDataSourceConfig(ctx context.Context, dataSourceID int64) (DataSourceConfig, error)
}

// Fetcher is the external analytics database contract (spec.md §4.A):
// FetchAll(dataSourceId) → rows. Row values are left as any since blobs are
// opaque to the cache core beyond the handful of fields the warmer groups
// on (spec.md's REDESIGN FLAGS, "dynamic row typing").
type Fetcher interface {
	FetchAll(ctx context.Context, dataSourceID int64, schema, table string) ([]map[string]interface{}, error)
}
