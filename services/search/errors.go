package search

import "errors"

var (
	// ErrNoSourcesConfigured means every provider is disabled (or the
	// catalog is empty) and the search could not even start.
	ErrNoSourcesConfigured = errors.New("no enabled sources configured")

	// ErrNoResultsFound means every queried provider returned zero
	// matching candidates.
	ErrNoResultsFound = errors.New("no source found for this title")

	// ErrFailoverExhausted is returned by ReportPlaybackFailure when no
	// viable alternative source remains. The caller decides what to do;
	// the engine never retries on its own.
	ErrFailoverExhausted = errors.New("no alternative source available")

	// ErrNoActiveSession is returned by operations that require a prior
	// StartSearch.
	ErrNoActiveSession = errors.New("no active search session")

	// ErrUnknownSource is returned when selecting a source key absent
	// from the current result set.
	ErrUnknownSource = errors.New("source not in current result set")
)
