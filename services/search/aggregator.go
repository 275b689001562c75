package search

import "oriontv/models"

// Merge rules. Source keys are unique within a session's result set; the
// first merged result becomes the displayed default when nothing is
// selected yet. Caller holds the service mutex.

// mergeReplace discards the session's result set in favor of the batch.
// Used for the authoritative first result of the preferred-source fast
// path and its synchronous fallback.
func mergeReplace(sess *session, batch []models.SearchResult) {
	sess.results = sess.results[:0]
	sess.index = make(map[string]*models.SearchResult, len(batch))
	sess.selected = nil
	appendBatch(sess, batch)
	selectDefaultLocked(sess)
}

// mergeAppend adds only results whose source key is not already present.
// Pre-existing results are left untouched, so references handed out in
// earlier snapshots remain stable.
func mergeAppend(sess *session, batch []models.SearchResult) {
	appendBatch(sess, batch)
	selectDefaultLocked(sess)
}

func appendBatch(sess *session, batch []models.SearchResult) {
	for i := range batch {
		r := batch[i]
		if r.SourceKey == "" {
			continue
		}
		if _, exists := sess.index[r.SourceKey]; exists {
			continue
		}
		sess.results = append(sess.results, &r)
		sess.index[r.SourceKey] = &r
	}
}

// replaceResult swaps an existing result for an enriched copy with the
// same source key, preserving arrival order. Used by quality probing.
func replaceResult(sess *session, updated *models.SearchResult) {
	cur, ok := sess.index[updated.SourceKey]
	if !ok {
		return
	}
	for i, r := range sess.results {
		if r == cur {
			sess.results[i] = updated
			break
		}
	}
	sess.index[updated.SourceKey] = updated
	if sess.selected == cur {
		sess.selected = updated
	}
}

func selectDefaultLocked(sess *session) {
	if sess.selected == nil && len(sess.results) > 0 {
		sess.selected = sess.results[0]
	}
}
