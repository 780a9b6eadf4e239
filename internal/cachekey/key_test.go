package cachekey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64p(v int64) *int64 { return &v }

func TestCacheKeyRoundTrip(t *testing.T) {
	cases := []Tuple{
		{DataSourceID: 1, Measure: "Revenue", PracticeUID: 114, ProviderUID: int64p(501), Frequency: "monthly"},
		{DataSourceID: 1, Measure: "Revenue", PracticeUID: 114, ProviderUID: nil, Frequency: "monthly"},
		{DataSourceID: 42, Measure: "Visits", PracticeUID: 0, ProviderUID: int64p(0), Frequency: "daily"},
	}

	for _, tup := range cases {
		key := CacheKey(tup)
		got, ok := ParseCacheKey(key)
		require.True(t, ok, "key %q should parse", key)
		assert.Equal(t, tup, got)
	}
}

func TestCacheKeyFormat(t *testing.T) {
	tup := Tuple{DataSourceID: 1, Measure: "Revenue", PracticeUID: 114, ProviderUID: int64p(501), Frequency: "monthly"}
	assert.Equal(t, "cache:{ds:1}:m:Revenue:p:114:prov:501:freq:monthly", CacheKey(tup))

	null := tup
	null.ProviderUID = nil
	assert.Equal(t, "cache:{ds:1}:m:Revenue:p:114:prov:*:freq:monthly", CacheKey(null))
}

func TestIndexKeysFormat(t *testing.T) {
	tup := Tuple{DataSourceID: 3, Measure: "M", PracticeUID: 9, ProviderUID: int64p(7), Frequency: "F"}
	idx := IndexKeys(tup)
	assert.Equal(t, "idx:{ds:3}:master", idx[0])
	assert.Equal(t, "idx:{ds:3}:m:M:freq:F", idx[1])
	assert.Equal(t, "idx:{ds:3}:m:M:p:9:freq:F", idx[2])
	assert.Equal(t, "idx:{ds:3}:m:M:freq:F:prov:7", idx[3])
	assert.Equal(t, "idx:{ds:3}:m:M:p:9:prov:7:freq:F", idx[4])
}

func TestShadowKeysShareSuffixWithProduction(t *testing.T) {
	tup := Tuple{DataSourceID: 3, Measure: "M", PracticeUID: 9, ProviderUID: nil, Frequency: "F"}

	cache := CacheKey(tup)
	shadowCache := ShadowCacheKey(tup)
	assert.Equal(t, cache, "cache:"+shadowCache[len("shadow:"):])

	idx := IndexKeys(tup)
	shadowIdx := ShadowIndexKeys(tup)
	for i := range idx {
		assert.Equal(t, idx[i], "idx:"+shadowIdx[i][len("shadow_idx:"):])
	}
}

func TestParseIndexKeyForms(t *testing.T) {
	tup := Tuple{DataSourceID: 5, Measure: "M", PracticeUID: 2, ProviderUID: int64p(3), Frequency: "F"}
	idx := IndexKeys(tup)

	forms := []IndexForm{IndexFormMaster, IndexFormBase, IndexFormPractice, IndexFormProvider, IndexFormFull}
	for i, key := range idx {
		parsed, ok := ParseIndexKey(key)
		require.True(t, ok, "key %q should parse", key)
		assert.Equal(t, forms[i], parsed.Form)
		assert.Equal(t, int64(5), parsed.DataSourceID)
	}
}

func TestIndexPatternsHaveLeadingWildcard(t *testing.T) {
	assert.Equal(t, "*idx:{ds:1}:*", IndexPattern(1))
	assert.Equal(t, "*shadow:{ds:1}:*", ShadowCachePattern(1))
	assert.Equal(t, "*shadow_idx:{ds:1}:*", ShadowIndexPattern(1))
}

func TestLockKey(t *testing.T) {
	assert.Equal(t, "lock:cache:warm:{ds:9}", LockKey(9))
}

func TestTempKeyUniquePerCall(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		k := TempKey(1, TempOpUnion)
		_, dup := seen[k]
		assert.False(t, dup, "duplicate temp key %q", k)
		seen[k] = struct{}{}
	}
}

func TestValidateRejectsReservedCharacters(t *testing.T) {
	bad := Tuple{DataSourceID: 1, Measure: "Rev:enue", PracticeUID: 1, Frequency: "monthly"}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidKeyComponent)

	bad2 := Tuple{DataSourceID: 1, Measure: "Revenue", PracticeUID: 1, Frequency: "{monthly}"}
	assert.ErrorIs(t, bad2.Validate(), ErrInvalidKeyComponent)
}
