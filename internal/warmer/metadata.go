package warmer

// Metadata is the document published at cachekey.MetadataKey after every
// successful warm. The stats collector's Path A reads it directly; Path B
// is the fallback used when a metadata document predates these fields.
type Metadata struct {
	LastWarmed       string   `json:"lastWarmed"`
	TotalEntries     int      `json:"totalEntries"`
	TotalRows        int      `json:"totalRows"`
	UniqueMeasures   int      `json:"uniqueMeasures"`
	UniquePractices  int      `json:"uniquePractices"`
	UniqueProviders  int      `json:"uniqueProviders"`
	UniqueFrequencies []string `json:"uniqueFrequencies"`
}
