package models

// SourceDescriptor identifies one upstream content provider. Descriptors
// come from the aggregate API's source catalog (or from config overrides)
// and are read-only to the search engine.
type SourceDescriptor struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Endpoint string `json:"endpoint,omitempty"`
}

// QualityInfo carries the measured playback quality for one candidate.
// LoadSpeed is a human-readable magnitude such as "845.2 KB/s" or
// "2.4 MB/s"; probes that have not finished report "测速中..." and
// unreachable streams report "未知".
type QualityInfo struct {
	Quality   string `json:"quality"`
	LoadSpeed string `json:"loadSpeed"`
	PingTime  int    `json:"pingTime"`
}

// SearchResult is one provider's offering for a query: an ordered list
// of episode stream locators plus optional quality measurements.
// Results are immutable once constructed; a newer result for the same
// source replaces the old one only through the aggregation rules in
// services/search.
type SearchResult struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	Poster     string       `json:"poster,omitempty"`
	SourceKey  string       `json:"source"`
	SourceName string       `json:"sourceName"`
	Episodes   []string     `json:"episodes"`
	Year       string       `json:"year,omitempty"`
	Class      string       `json:"class,omitempty"`
	Desc       string       `json:"desc,omitempty"`
	Quality    *QualityInfo `json:"quality,omitempty"`
}

// HasEpisode reports whether the result carries a stream locator at the
// given zero-based episode index.
func (r *SearchResult) HasEpisode(index int) bool {
	return r != nil && index >= 0 && index < len(r.Episodes)
}
