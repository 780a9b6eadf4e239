package warmer

import (
	"fmt"

	"github.com/insano70/bcos-sub009/internal/cachekey"
)

// groupKey is Tuple normalized into a strictly comparable shape so it can
// key a Go map; Tuple itself carries a *int64 which compares by pointer
// identity, not value.
type groupKey struct {
	measure     string
	practiceUID int64
	hasProvider bool
	providerUID int64
	frequency   string
}

func (g groupKey) tuple(dataSourceID int64) cachekey.Tuple {
	t := cachekey.Tuple{
		DataSourceID: dataSourceID,
		Measure:      g.measure,
		PracticeUID:  g.practiceUID,
		Frequency:    g.frequency,
	}
	if g.hasProvider {
		p := g.providerUID
		t.ProviderUID = &p
	}
	return t
}

// groupResult is what grouping rows by tuple produces: the rows per group
// plus the cardinalities the warmer publishes as metadata.
type groupResult struct {
	groups          map[groupKey][]map[string]interface{}
	droppedRows     int
	uniqueMeasures  map[string]struct{}
	uniquePractices map[int64]struct{}
	uniqueProviders map[int64]struct{}
	uniqueFreqs     map[string]struct{}
}

func newGroupResult() *groupResult {
	return &groupResult{
		groups:          make(map[groupKey][]map[string]interface{}),
		uniqueMeasures:  make(map[string]struct{}),
		uniquePractices: make(map[int64]struct{}),
		uniqueProviders: make(map[int64]struct{}),
		uniqueFreqs:     make(map[string]struct{}),
	}
}

// groupRows implements spec.md §4.C step 4: group by tuple, dropping rows
// missing measure/practiceUid/frequency while counting the drop, and
// accumulating cardinalities for the metadata document published at the
// end of a successful warm.
func groupRows(rows []map[string]interface{}, timePeriodField string) *groupResult {
	res := newGroupResult()

	for _, row := range rows {
		measure, ok := asNonEmptyString(row["measure"])
		if !ok {
			res.droppedRows++
			continue
		}
		practiceUID, ok := asInt64(row["practice_uid"])
		if !ok {
			res.droppedRows++
			continue
		}
		frequency, ok := asNonEmptyString(row[timePeriodField])
		if !ok {
			res.droppedRows++
			continue
		}
		providerUID, hasProvider := asNullableInt64(row["provider_uid"])

		key := groupKey{
			measure:     measure,
			practiceUID: practiceUID,
			hasProvider: hasProvider,
			providerUID: providerUID,
			frequency:   frequency,
		}
		res.groups[key] = append(res.groups[key], row)

		res.uniqueMeasures[measure] = struct{}{}
		res.uniquePractices[practiceUID] = struct{}{}
		res.uniqueFreqs[frequency] = struct{}{}
		if hasProvider {
			res.uniqueProviders[providerUID] = struct{}{}
		}
	}
	return res
}

func asNonEmptyString(v interface{}) (string, bool) {
	switch x := v.(type) {
	case string:
		if x == "" {
			return "", false
		}
		return x, true
	case nil:
		return "", false
	default:
		s := fmt.Sprintf("%v", x)
		return s, s != ""
	}
}

func asInt64(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int32:
		return int64(x), true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

// asNullableInt64 treats a nil/missing value as the legal null-provider
// case (spec.md §2: "providerUid = null is a legal value").
func asNullableInt64(v interface{}) (int64, bool) {
	if v == nil {
		return 0, false
	}
	n, ok := asInt64(v)
	if !ok {
		return 0, false
	}
	return n, true
}
