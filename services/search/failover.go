package search

import (
	"log"
	"sort"

	"oriontv/internal/mediarank"
	"oriontv/models"
)

// ReportPlaybackFailure records that playback on sourceKey broke at the
// given episode index and returns the best remaining candidate, or
// ErrFailoverExhausted when nothing viable is left. The reason string is
// diagnostic only. No new session is created; the failed-source set of
// the existing session grows and the selection moves.
//
// Idempotent: reporting the same source twice neither duplicates failed
// entries nor changes the outcome beyond the first exclusion.
func (s *Service) ReportPlaybackFailure(sourceKey string, episodeIndex int, reason string) (*models.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session
	if sess == nil {
		return nil, ErrNoActiveSession
	}

	sess.markFailed(sourceKey)
	log.Printf("[failover] session %s source %s failed at episode %d: %s", sess.id, sourceKey, episodeIndex, reason)

	viable := viableCandidatesLocked(sess, episodeIndex)
	if len(viable) == 0 {
		return nil, ErrFailoverExhausted
	}

	// Stable sort: equal ranks keep arrival order.
	sort.SliceStable(viable, func(i, j int) bool {
		return mediarank.Better(viable[i], viable[j])
	})

	best := viable[0]
	sess.selected = best
	log.Printf("[failover] session %s switching to source %s", sess.id, best.SourceKey)

	out := *best
	return &out, nil
}

// viableCandidatesLocked filters the result set to candidates that are
// not in the failed set and carry an episode at the requested index.
func viableCandidatesLocked(sess *session, episodeIndex int) []*models.SearchResult {
	var viable []*models.SearchResult
	for _, r := range sess.results {
		if _, failed := sess.failed[r.SourceKey]; failed {
			continue
		}
		if !r.HasEpisode(episodeIndex) {
			continue
		}
		viable = append(viable, r)
	}
	return viable
}
