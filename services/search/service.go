// Package search implements the session manager that aggregates playable
// sources for a title across providers, ranks them, and picks failover
// replacements when a source breaks mid-playback.
package search

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"oriontv/config"
	"oriontv/models"
	"oriontv/services/probe"
	"oriontv/services/provider"
	"oriontv/services/store"
	"oriontv/utils/filter"
)

// ProviderClient performs remote searches and catalog listing.
type ProviderClient interface {
	SearchOne(ctx context.Context, query, sourceKey string) ([]models.SearchResult, error)
	SearchAll(ctx context.Context, query string) ([]models.SearchResult, error)
	ListSources(ctx context.Context) ([]models.SourceDescriptor, error)
}

var _ ProviderClient = (*provider.Client)(nil)

// ResolutionProbe estimates quality for a stream locator.
type ResolutionProbe interface {
	Estimate(ctx context.Context, mediaURL string) (*models.QualityInfo, error)
}

var _ ResolutionProbe = (*probe.Prober)(nil)

// FavoriteChecker reports whether a title is pinned. Best effort: a
// failing or absent checker never alters the search outcome.
type FavoriteChecker interface {
	IsFavorited(sourceKey, videoID string) bool
}

var _ FavoriteChecker = (*store.Service)(nil)

// SettingsLoader supplies the enabled-source filter.
type SettingsLoader interface {
	Load() (config.Settings, error)
}

var _ SettingsLoader = (*config.Manager)(nil)

// SearchRequest asks for a new search session. PreferredSource, when set,
// triggers the fast path (typically from a resumed play record); VideoID
// carries the known title id for the favorite check.
type SearchRequest struct {
	Query           string `json:"query"`
	PreferredSource string `json:"preferredSource,omitempty"`
	VideoID         string `json:"videoId,omitempty"`
}

// Service owns at most one active session. Network calls fan out across
// goroutines, but every state mutation happens under one mutex and is
// epoch-checked, so completions from superseded sessions are inert.
type Service struct {
	mu      sync.Mutex
	epoch   uint64
	session *session

	providers ProviderClient
	prober    ResolutionProbe
	favorites FavoriteChecker
	cfg       SettingsLoader

	providerTimeout  time.Duration
	probeConcurrency int
}

// NewService wires the search engine to its collaborators.
func NewService(cfg SettingsLoader, providers ProviderClient, prober ResolutionProbe, favorites FavoriteChecker) *Service {
	svc := &Service{
		providers:        providers,
		prober:           prober,
		favorites:        favorites,
		cfg:              cfg,
		providerTimeout:  12 * time.Second,
		probeConcurrency: 4,
	}
	if cfg != nil {
		if settings, err := cfg.Load(); err == nil {
			if settings.Search.ProviderTimeoutSeconds > 0 {
				svc.providerTimeout = time.Duration(settings.Search.ProviderTimeoutSeconds) * time.Second
			}
			if settings.Probe.Concurrency > 0 {
				svc.probeConcurrency = settings.Probe.Concurrency
			}
		}
	}
	return svc
}

// StartSearch begins a new session, unconditionally superseding any
// in-flight one, and returns the new session id. Progress is observed
// through Snapshot; Settled exposes completion for callers that wait.
func (s *Service) StartSearch(req SearchRequest) string {
	s.mu.Lock()
	if s.session != nil {
		s.session.cancel()
		if s.session.state == StateSearching {
			s.session.state = StateCancelled
			s.session.loading = false
		}
		s.session.closeSettled()
	}
	s.epoch++
	sess := newSession(s.epoch, req.Query, req.PreferredSource, req.VideoID)
	s.session = sess
	s.mu.Unlock()

	log.Printf("[search] session %s start query=%q preferred=%q", sess.id, req.Query, req.PreferredSource)
	go s.run(sess)
	return sess.id
}

// CancelActiveSearch aborts the current session. Late completions are
// swallowed; cancellation is a state transition, not an error.
func (s *Service) CancelActiveSearch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return
	}
	s.session.cancel()
	if s.session.state == StateSearching {
		s.session.state = StateCancelled
		s.session.loading = false
	}
	s.session.closeSettled()
}

// SelectCandidate switches the displayed candidate to the given source.
func (s *Service) SelectCandidate(sourceKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return ErrNoActiveSession
	}
	cand, ok := s.session.index[sourceKey]
	if !ok {
		return ErrUnknownSource
	}
	s.session.selected = cand
	if s.favorites != nil {
		s.session.favorited = s.favorites.IsFavorited(cand.SourceKey, cand.ID)
	}
	return nil
}

// Snapshot returns a read-only copy of the active session's state.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return Snapshot{State: StateIdle, Results: []models.SearchResult{}, FailedSources: []string{}}
	}
	return s.session.snapshotLocked()
}

// Settled returns a channel closed when the current session finishes
// (settles, errors, or is superseded). With no session it returns an
// already-closed channel.
func (s *Service) Settled() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		done := make(chan struct{})
		close(done)
		return done
	}
	return s.session.settled
}

// apply runs fn under the service mutex only if the session is still the
// live one and has not been cancelled. Returns whether fn ran. This is
// the single gate every completion callback passes through.
func (s *Service) apply(sess *session, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.epoch != s.epoch || sess.ctx.Err() != nil {
		return false
	}
	fn()
	return true
}

func (s *Service) run(sess *session) {
	defer s.settle(sess)

	var err error
	if sess.preferred != "" {
		err = s.runPreferred(sess)
	} else {
		err = s.runFanOut(sess)
	}
	if err != nil {
		// apply refuses the mutation when the session was cancelled, so
		// a superseded session can never surface its error.
		s.apply(sess, func() {
			sess.err = err
			sess.loading = false
		})
		return
	}

	s.enrich(sess)
	s.finishSelection(sess)
}

// runPreferred implements the fast path: one search against the source
// the title last played from, an all-sources reconciliation in the
// background on success, or a synchronous all-sources fallback.
func (s *Service) runPreferred(sess *session) error {
	results, err := s.searchOne(sess.ctx, sess.query, sess.preferred)
	if err == nil && len(results) > 0 {
		applied := s.apply(sess, func() {
			mergeReplace(sess, results)
			sess.loading = false
		})
		if applied {
			log.Printf("[search] session %s fast path hit source=%s results=%d", sess.id, sess.preferred, len(results))
			go s.reconcile(sess)
		}
		return nil
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("[search] session %s preferred source %s failed: %v", sess.id, sess.preferred, err)
	}
	if sess.ctx.Err() != nil {
		return nil
	}

	// Fallback is synchronous: the user must see something before
	// loading clears.
	all, err := s.searchAll(sess.ctx, sess.query)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		log.Printf("[search] session %s all-sources fallback failed: %v", sess.id, err)
		return ErrNoResultsFound
	}
	matches := filter.ExactTitle(all, sess.query)
	if len(matches) == 0 {
		return ErrNoResultsFound
	}
	s.apply(sess, func() {
		mergeReplace(sess, matches)
		sess.loading = false
	})
	return nil
}

// reconcile merges late all-sources results into a fast-path session.
// Append-only: the preferred result is never replaced. Runs in the
// background and is gated by the same epoch as everything else, so a
// superseded session's reconciliation is provably inert.
func (s *Service) reconcile(sess *session) {
	all, err := s.searchAll(sess.ctx, sess.query)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Printf("[search] session %s background reconcile failed: %v", sess.id, err)
		}
		return
	}
	matches := filter.ExactTitle(all, sess.query)
	if applied := s.apply(sess, func() { mergeAppend(sess, matches) }); applied {
		s.enrich(sess)
	}
}

// runFanOut implements the standard path: one concurrent search per
// enabled provider, merging whichever responses arrive first.
func (s *Service) runFanOut(sess *session) error {
	catalog, err := s.providers.ListSources(sess.ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	enabled := catalog
	if s.cfg != nil {
		if settings, cfgErr := s.cfg.Load(); cfgErr == nil {
			enabled = enabled[:0:0]
			for _, src := range catalog {
				if settings.SourceEnabled(src.Key) {
					enabled = append(enabled, src)
				}
			}
		}
	}
	if len(enabled) == 0 {
		return ErrNoSourcesConfigured
	}

	var wg sync.WaitGroup
	for _, src := range enabled {
		wg.Add(1)
		go func(src models.SourceDescriptor) {
			defer wg.Done()
			results, err := s.searchOne(sess.ctx, sess.query, src.Key)
			if err != nil {
				// Per-provider failures never abort siblings.
				if !errors.Is(err, context.Canceled) {
					log.Printf("[search] session %s source %s failed: %v", sess.id, src.Key, err)
				}
				return
			}
			if len(results) == 0 {
				return
			}
			s.apply(sess, func() {
				mergeAppend(sess, results)
				// First provider to return anything unblocks the UI.
				sess.loading = false
			})
		}(src)
	}
	wg.Wait()

	s.mu.Lock()
	empty := sess.epoch == s.epoch && len(sess.results) == 0
	s.mu.Unlock()
	if sess.ctx.Err() != nil {
		return nil
	}
	if empty {
		return ErrNoResultsFound
	}
	return nil
}

// enrich attaches a probed quality estimate to every result lacking one.
// Best effort: probe failures leave the result unranked.
func (s *Service) enrich(sess *session) {
	if s.prober == nil {
		return
	}

	type probeItem struct {
		sourceKey string
		locator   string
	}
	var pending []probeItem
	s.mu.Lock()
	if sess.epoch == s.epoch {
		for _, r := range sess.results {
			if r.Quality == nil && len(r.Episodes) > 0 {
				pending = append(pending, probeItem{sourceKey: r.SourceKey, locator: r.Episodes[0]})
			}
		}
	}
	s.mu.Unlock()
	if len(pending) == 0 {
		return
	}

	p := pool.New().WithContext(sess.ctx).WithMaxGoroutines(s.probeConcurrency)
	for _, item := range pending {
		p.Go(func(ctx context.Context) error {
			qi, err := s.prober.Estimate(ctx, item.locator)
			if err != nil || qi == nil {
				return nil
			}
			s.apply(sess, func() {
				cur, ok := sess.index[item.sourceKey]
				if !ok || cur.Quality != nil {
					return
				}
				updated := *cur
				updated.Quality = qi
				replaceResult(sess, &updated)
			})
			return nil
		})
	}
	_ = p.Wait()
}

// finishSelection picks the default displayed candidate and checks its
// favorite status.
func (s *Service) finishSelection(sess *session) {
	var selected *models.SearchResult
	s.apply(sess, func() {
		selectDefaultLocked(sess)
		if sess.selected != nil {
			sel := *sess.selected
			selected = &sel
		}
	})
	if selected == nil || s.favorites == nil {
		return
	}
	videoID := selected.ID
	if sess.videoID != "" {
		videoID = sess.videoID
	}
	fav := s.favorites.IsFavorited(selected.SourceKey, videoID)
	s.apply(sess, func() { sess.favorited = fav })
}

func (s *Service) settle(sess *session) {
	s.mu.Lock()
	if sess.epoch == s.epoch && sess.state == StateSearching {
		sess.state = StateSettled
		sess.loading = false
	}
	s.mu.Unlock()
	sess.closeSettled()
	log.Printf("[search] session %s settled", sess.id)
}

// searchOne wraps the provider call with the per-provider deadline so
// upstream timeouts surface as deadline errors, distinct from our own
// cancellations.
func (s *Service) searchOne(ctx context.Context, query, sourceKey string) ([]models.SearchResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()
	return s.providers.SearchOne(callCtx, query, sourceKey)
}

func (s *Service) searchAll(ctx context.Context, query string) ([]models.SearchResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()
	return s.providers.SearchAll(callCtx, query)
}
