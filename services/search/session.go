package search

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"oriontv/models"
)

// State describes where a session is in its lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StateSearching State = "searching"
	StateSettled   State = "settled"
	StateCancelled State = "cancelled"
)

// session is the unit of cancellation and result ownership. All fields
// are owned by the Service and mutated only under its mutex; the epoch
// tag identifies stale completions from superseded sessions.
type session struct {
	id        string
	epoch     uint64
	query     string
	preferred string
	videoID   string

	ctx    context.Context
	cancel context.CancelFunc

	results  []*models.SearchResult // arrival order
	index    map[string]*models.SearchResult
	selected *models.SearchResult

	// failed is replaced wholesale on every addition, never mutated in
	// place, so snapshots taken earlier stay valid and the grow-only
	// invariant is checkable by subset assertions.
	failed map[string]struct{}

	loading   bool
	err       error
	state     State
	favorited bool

	settleOnce sync.Once
	settled    chan struct{}
}

func newSession(epoch uint64, query, preferred, videoID string) *session {
	ctx, cancel := context.WithCancel(context.Background())
	return &session{
		id:        uuid.NewString(),
		epoch:     epoch,
		query:     query,
		preferred: preferred,
		videoID:   videoID,
		ctx:       ctx,
		cancel:    cancel,
		index:     make(map[string]*models.SearchResult),
		failed:    make(map[string]struct{}),
		loading:   true,
		state:     StateSearching,
		settled:   make(chan struct{}),
	}
}

// markFailed records a broken source. Idempotent; produces a fresh map so
// previously handed-out snapshots never observe mutation.
func (sess *session) markFailed(sourceKey string) {
	if _, ok := sess.failed[sourceKey]; ok {
		return
	}
	next := make(map[string]struct{}, len(sess.failed)+1)
	for k := range sess.failed {
		next[k] = struct{}{}
	}
	next[sourceKey] = struct{}{}
	sess.failed = next
}

func (sess *session) closeSettled() {
	sess.settleOnce.Do(func() { close(sess.settled) })
}

// Snapshot is a read-only copy of the active session's state.
type Snapshot struct {
	SessionID     string                `json:"sessionId"`
	State         State                 `json:"state"`
	Query         string                `json:"query"`
	Results       []models.SearchResult `json:"results"`
	Selected      *models.SearchResult  `json:"selected,omitempty"`
	Loading       bool                  `json:"loading"`
	Error         string                `json:"error,omitempty"`
	FailedSources []string              `json:"failedSources"`
	Favorited     bool                  `json:"favorited"`
}

// snapshotLocked copies session state. Caller holds the service mutex.
func (sess *session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID:     sess.id,
		State:         sess.state,
		Query:         sess.query,
		Results:       make([]models.SearchResult, 0, len(sess.results)),
		Loading:       sess.loading,
		FailedSources: make([]string, 0, len(sess.failed)),
		Favorited:     sess.favorited,
	}
	for _, r := range sess.results {
		snap.Results = append(snap.Results, *r)
	}
	if sess.selected != nil {
		sel := *sess.selected
		snap.Selected = &sel
	}
	if sess.err != nil {
		snap.Error = sess.err.Error()
	}
	for k := range sess.failed {
		snap.FailedSources = append(snap.FailedSources, k)
	}
	sort.Strings(snap.FailedSources)
	return snap
}
