package query

import (
	"context"
	"fmt"
	"sync"

	"github.com/insano70/bcos-sub009/internal/cacheerr"
)

// BatchQuery implements spec.md §4.D's batch contract: every filter must
// share dataSourceId and frequency; otherwise the call reports misuse and
// returns nothing. Matching filters run concurrently and are aggregated by
// measure.
func (e *Engine) BatchQuery(ctx context.Context, filters []Filter) (map[string][]Row, error) {
	if len(filters) == 0 {
		return map[string][]Row{}, nil
	}

	dataSourceID := filters[0].DataSourceID
	frequency := filters[0].Frequency
	for _, f := range filters {
		if f.DataSourceID != dataSourceID || f.Frequency != frequency {
			return nil, fmt.Errorf("query: batch filters must share dataSourceId and frequency: %w", cacheerr.ErrInvalidFilter)
		}
	}

	type outcome struct {
		measure string
		rows    []Row
		err     error
	}
	results := make([]outcome, len(filters))

	var wg sync.WaitGroup
	for i, f := range filters {
		wg.Add(1)
		go func(i int, f Filter) {
			defer wg.Done()
			rows, err := e.Query(ctx, f)
			results[i] = outcome{measure: f.Measure, rows: rows, err: err}
		}(i, f)
	}
	wg.Wait()

	aggregated := make(map[string][]Row, len(filters))
	for _, r := range results {
		if r.err != nil {
			e.logger.Warn("query: batch member failed", "measure", r.measure, "error", r.err.Error())
			continue
		}
		aggregated[r.measure] = append(aggregated[r.measure], r.rows...)
	}
	return aggregated, nil
}
