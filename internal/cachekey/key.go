package cachekey

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// TempOp names the kind of query-time temp key being created.
type TempOp string

const (
	TempOpUnion     TempOp = "union"
	TempOpIntersect TempOp = "intersect"
	TempOpResult    TempOp = "result"
)

// hashTag returns the cluster hash-tag that pins every key for a data
// source to the same slot (spec.md §3, §4.A).
func hashTag(dataSourceID int64) string {
	return fmt.Sprintf("{ds:%d}", dataSourceID)
}

func cacheSuffix(t Tuple) string {
	return fmt.Sprintf("%s:m:%s:p:%d:prov:%s:freq:%s",
		hashTag(t.DataSourceID), t.Measure, t.PracticeUID, t.ProviderToken(), t.Frequency)
}

// CacheKey builds the canonical production cache key for T.
func CacheKey(t Tuple) string {
	return "cache:" + cacheSuffix(t)
}

// ShadowCacheKey builds the shadow-namespace cache key for T. Its suffix is
// identical to CacheKey's so that after RENAME the key needs no rewriting
// beyond the namespace prefix (spec.md I6).
func ShadowCacheKey(t Tuple) string {
	return "shadow:" + cacheSuffix(t)
}

// MasterIndex is the per-data-source invalidation index.
func MasterIndex(dataSourceID int64) string {
	return fmt.Sprintf("idx:%s:master", hashTag(dataSourceID))
}

// MetadataKey addresses the single last-warm metadata document for D.
func MetadataKey(dataSourceID int64) string {
	return fmt.Sprintf("cache:meta:%s:last_warm", hashTag(dataSourceID))
}

// BaseIndex is the measure+frequency index required by every query.
func BaseIndex(dataSourceID int64, measure, frequency string) string {
	return fmt.Sprintf("idx:%s:m:%s:freq:%s", hashTag(dataSourceID), measure, frequency)
}

// PracticeIndex is the per-practice index.
func PracticeIndex(dataSourceID int64, measure string, practiceUID int64, frequency string) string {
	return fmt.Sprintf("idx:%s:m:%s:p:%d:freq:%s", hashTag(dataSourceID), measure, practiceUID, frequency)
}

// ProviderIndex is the per-provider index. providerToken is "*" for a null
// provider or the decimal provider UID otherwise — see Tuple.ProviderToken.
func ProviderIndex(dataSourceID int64, measure, frequency, providerToken string) string {
	return fmt.Sprintf("idx:%s:m:%s:freq:%s:prov:%s", hashTag(dataSourceID), measure, frequency, providerToken)
}

// FullIndex is the full-combination index: maintained for future use but
// not consulted by the current query plan (spec.md §3).
func FullIndex(dataSourceID int64, measure string, practiceUID int64, providerToken, frequency string) string {
	return fmt.Sprintf("idx:%s:m:%s:p:%d:prov:%s:freq:%s",
		hashTag(dataSourceID), measure, practiceUID, providerToken, frequency)
}

// IndexKeys returns all five production index keys a cache key for T must
// belong to (spec.md I1/I2).
func IndexKeys(t Tuple) [5]string {
	pt := t.ProviderToken()
	return [5]string{
		MasterIndex(t.DataSourceID),
		BaseIndex(t.DataSourceID, t.Measure, t.Frequency),
		PracticeIndex(t.DataSourceID, t.Measure, t.PracticeUID, t.Frequency),
		ProviderIndex(t.DataSourceID, t.Measure, t.Frequency, pt),
		FullIndex(t.DataSourceID, t.Measure, t.PracticeUID, pt, t.Frequency),
	}
}

// ShadowIndexKeys returns the shadow-namespace counterparts of IndexKeys,
// one per production index, with identical suffixes (spec.md I6).
func ShadowIndexKeys(t Tuple) [5]string {
	prod := IndexKeys(t)
	var shadow [5]string
	for i, k := range prod {
		shadow[i] = "shadow_idx:" + strings.TrimPrefix(k, "idx:")
	}
	return shadow
}

// IndexPattern is the SCAN pattern matching every index key for D. The
// leading "*" lets the pattern survive a store-configured global key
// prefix (spec.md §4.A).
func IndexPattern(dataSourceID int64) string {
	return fmt.Sprintf("*idx:%s:*", hashTag(dataSourceID))
}

// ShadowCachePattern is the SCAN pattern matching every shadow cache key
// for D.
func ShadowCachePattern(dataSourceID int64) string {
	return fmt.Sprintf("*shadow:%s:*", hashTag(dataSourceID))
}

// ShadowIndexPattern is the SCAN pattern matching every shadow index key
// for D.
func ShadowIndexPattern(dataSourceID int64) string {
	return fmt.Sprintf("*shadow_idx:%s:*", hashTag(dataSourceID))
}

// LockKey is the distributed warm-lock key for D.
func LockKey(dataSourceID int64) string {
	return fmt.Sprintf("lock:cache:warm:%s", hashTag(dataSourceID))
}

var tempKeySeq uint64

// TempKey builds a query-time temp key. Every call is unique: it combines
// a monotonically increasing counter with a random suffix, per spec.md
// §4.A ("TempKey must be unique per call").
func TempKey(dataSourceID int64, op TempOp) string {
	seq := atomic.AddUint64(&tempKeySeq, 1)
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("temp:%s:%s:%d:%s", hashTag(dataSourceID), op, seq, suffix)
}

var reCacheKey = regexp.MustCompile(`^cache:\{ds:(\d+)\}:m:([^:]+):p:(\d+):prov:(\*|\d+):freq:(.+)$`)

// ParseCacheKey reverses CacheKey. It returns (Tuple{}, false) if key is not
// a well-formed production cache key. ParseCacheKey(CacheKey(T)) == T for
// every legal T (spec.md P6).
func ParseCacheKey(key string) (Tuple, bool) {
	m := reCacheKey.FindStringSubmatch(key)
	if m == nil {
		return Tuple{}, false
	}
	ds, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return Tuple{}, false
	}
	practice, err := strconv.ParseInt(m[3], 10, 64)
	if err != nil {
		return Tuple{}, false
	}
	t := Tuple{
		DataSourceID: ds,
		Measure:      m[2],
		PracticeUID:  practice,
		Frequency:    m[5],
	}
	if m[4] != ProviderLiteral {
		provider, err := strconv.ParseInt(m[4], 10, 64)
		if err != nil {
			return Tuple{}, false
		}
		t.ProviderUID = &provider
	}
	return t, true
}

// IndexForm discriminates which of the five index key shapes ParseIndexKey
// matched.
type IndexForm int

const (
	IndexFormUnknown IndexForm = iota
	IndexFormMaster
	IndexFormBase
	IndexFormPractice
	IndexFormProvider
	IndexFormFull
)

// ParsedIndexKey is the partial tuple recovered from an index key; only the
// fields the matched form actually encodes are populated.
type ParsedIndexKey struct {
	Form         IndexForm
	DataSourceID int64
	Measure      string
	HasPractice  bool
	PracticeUID  int64
	HasProvider  bool
	ProviderUID  *int64 // nil means the null-provider literal "*"
	HasFrequency bool
	Frequency    string
}

var (
	reIdxMaster   = regexp.MustCompile(`^idx:\{ds:(\d+)\}:master$`)
	reIdxFull     = regexp.MustCompile(`^idx:\{ds:(\d+)\}:m:([^:]+):p:(\d+):prov:(\*|\d+):freq:([^:]+)$`)
	reIdxPractice = regexp.MustCompile(`^idx:\{ds:(\d+)\}:m:([^:]+):p:(\d+):freq:([^:]+)$`)
	reIdxProvider = regexp.MustCompile(`^idx:\{ds:(\d+)\}:m:([^:]+):freq:([^:]+):prov:(\*|\d+)$`)
	reIdxBase     = regexp.MustCompile(`^idx:\{ds:(\d+)\}:m:([^:]+):freq:([^:]+)$`)
)

// ParseIndexKey reverses the five index-key builders, returning the partial
// tuple each form encodes.
func ParseIndexKey(key string) (ParsedIndexKey, bool) {
	if m := reIdxMaster.FindStringSubmatch(key); m != nil {
		ds, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return ParsedIndexKey{}, false
		}
		return ParsedIndexKey{Form: IndexFormMaster, DataSourceID: ds}, true
	}
	if m := reIdxFull.FindStringSubmatch(key); m != nil {
		return parsedIndexFrom(IndexFormFull, m[1], m[2], m[3], m[4], m[5], true, true, true)
	}
	if m := reIdxPractice.FindStringSubmatch(key); m != nil {
		return parsedIndexFrom(IndexFormPractice, m[1], m[2], m[3], "", m[4], true, false, true)
	}
	if m := reIdxProvider.FindStringSubmatch(key); m != nil {
		return parsedIndexFrom(IndexFormProvider, m[1], m[2], "", m[4], m[3], false, true, true)
	}
	if m := reIdxBase.FindStringSubmatch(key); m != nil {
		return parsedIndexFrom(IndexFormBase, m[1], m[2], "", "", m[3], false, false, true)
	}
	return ParsedIndexKey{}, false
}

func parsedIndexFrom(form IndexForm, dsStr, measure, practiceStr, providerStr, freq string, hasPractice, hasProvider, hasFreq bool) (ParsedIndexKey, bool) {
	ds, err := strconv.ParseInt(dsStr, 10, 64)
	if err != nil {
		return ParsedIndexKey{}, false
	}
	p := ParsedIndexKey{
		Form:         form,
		DataSourceID: ds,
		Measure:      measure,
		HasPractice:  hasPractice,
		HasProvider:  hasProvider,
		HasFrequency: hasFreq,
		Frequency:    freq,
	}
	if hasPractice {
		practice, err := strconv.ParseInt(practiceStr, 10, 64)
		if err != nil {
			return ParsedIndexKey{}, false
		}
		p.PracticeUID = practice
	}
	if hasProvider && providerStr != ProviderLiteral {
		provider, err := strconv.ParseInt(providerStr, 10, 64)
		if err != nil {
			return ParsedIndexKey{}, false
		}
		p.ProviderUID = &provider
	}
	return p, true
}
