// Package query implements the Query Engine component of spec.md §4.D:
// building an index-set plan from a filter, resolving it to a matching-key
// list via set intersection/union, and materializing the matching blobs
// via a chunked MGET.
package query

import (
	"fmt"

	"github.com/insano70/bcos-sub009/internal/cacheerr"
)

// Filter is the public query contract. DataSourceID, Measure, and
// Frequency are required; PracticeUIDs/ProviderUIDs narrow the result.
type Filter struct {
	DataSourceID int64   `validate:"required"`
	Measure      string  `validate:"required"`
	Frequency    string  `validate:"required"`
	PracticeUIDs []int64 `validate:"omitempty,dive,gt=0"`
	ProviderUIDs []int64 `validate:"omitempty,dive,gt=0"`
}

// Row is one flattened, decoded record from a matching blob.
type Row map[string]interface{}

func (f Filter) validate() error {
	if f.DataSourceID == 0 || f.Measure == "" || f.Frequency == "" {
		return fmt.Errorf("query: filter missing required field: %w", cacheerr.ErrInvalidFilter)
	}
	return nil
}
