package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"oriontv/models"
	"oriontv/services/search"
)

type fakeSearchService struct {
	started     []search.SearchRequest
	cancelled   bool
	selected    string
	selectErr   error
	failoverRes *models.SearchResult
	failoverErr error
	snapshot    search.Snapshot
	settled     chan struct{}
}

func (f *fakeSearchService) StartSearch(req search.SearchRequest) string {
	f.started = append(f.started, req)
	return "session-1"
}

func (f *fakeSearchService) CancelActiveSearch() { f.cancelled = true }

func (f *fakeSearchService) SelectCandidate(sourceKey string) error {
	f.selected = sourceKey
	return f.selectErr
}

func (f *fakeSearchService) ReportPlaybackFailure(sourceKey string, episodeIndex int, reason string) (*models.SearchResult, error) {
	return f.failoverRes, f.failoverErr
}

func (f *fakeSearchService) Snapshot() search.Snapshot { return f.snapshot }

func (f *fakeSearchService) Settled() <-chan struct{} {
	if f.settled == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return f.settled
}

type fakeResume struct {
	sourceKey string
	videoID   string
	ok        bool
}

func (f *fakeResume) LastPlayedSource(title string) (string, string, bool) {
	return f.sourceKey, f.videoID, f.ok
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func TestStartSearchValidatesQuery(t *testing.T) {
	svc := &fakeSearchService{}
	h := NewSearchHandler(svc, nil)

	rr := postJSON(t, h.Start, "/api/search/start", map[string]string{"query": "  "})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank query, got %d", rr.Code)
	}
	if len(svc.started) != 0 {
		t.Fatal("no search should start for a blank query")
	}
}

func TestStartSearchReturnsSessionID(t *testing.T) {
	svc := &fakeSearchService{snapshot: search.Snapshot{State: "searching"}}
	h := NewSearchHandler(svc, nil)

	rr := postJSON(t, h.Start, "/api/search/start", map[string]string{
		"query":           "狂飙",
		"preferredSource": "alpha",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.SessionID != "session-1" {
		t.Fatalf("unexpected session id %q", resp.SessionID)
	}
	if svc.started[0].PreferredSource != "alpha" {
		t.Fatalf("preferred source not forwarded: %+v", svc.started[0])
	}
}

func TestStartSearchResumeFillsPreferredSource(t *testing.T) {
	svc := &fakeSearchService{}
	resume := &fakeResume{sourceKey: "beta", videoID: "v42", ok: true}
	h := NewSearchHandler(svc, resume)

	rr := postJSON(t, h.Start, "/api/search/start", map[string]any{
		"query":  "狂飙",
		"resume": true,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rr.Code)
	}
	if svc.started[0].PreferredSource != "beta" || svc.started[0].VideoID != "v42" {
		t.Fatalf("resume lookup not applied: %+v", svc.started[0])
	}
}

func TestStartSearchResumeKeepsExplicitSource(t *testing.T) {
	svc := &fakeSearchService{}
	resume := &fakeResume{sourceKey: "beta", ok: true}
	h := NewSearchHandler(svc, resume)

	postJSON(t, h.Start, "/api/search/start", map[string]any{
		"query":           "狂飙",
		"preferredSource": "alpha",
		"resume":          true,
	})
	if svc.started[0].PreferredSource != "alpha" {
		t.Fatalf("explicit preferred source overridden: %+v", svc.started[0])
	}
}

func TestStartSearchWaitBlocksUntilSettled(t *testing.T) {
	settled := make(chan struct{})
	close(settled)
	svc := &fakeSearchService{settled: settled, snapshot: search.Snapshot{State: "settled"}}
	h := NewSearchHandler(svc, nil)

	rr := postJSON(t, h.Start, "/api/search/start?wait=true", map[string]string{"query": "狂飙"})
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rr.Code)
	}

	var resp struct {
		State search.Snapshot `json:"state"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.State.State != "settled" {
		t.Fatalf("expected settled state in response, got %q", resp.State.State)
	}
}

func TestCancelSearch(t *testing.T) {
	svc := &fakeSearchService{}
	h := NewSearchHandler(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/search/cancel", nil)
	rr := httptest.NewRecorder()
	h.Cancel(rr, req)

	if rr.Code != http.StatusOK || !svc.cancelled {
		t.Fatalf("cancel not forwarded: status=%d cancelled=%v", rr.Code, svc.cancelled)
	}
}

func TestSelectMapsServiceErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"no session", search.ErrNoActiveSession, http.StatusConflict},
		{"unknown source", search.ErrUnknownSource, http.StatusNotFound},
		{"ok", nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeSearchService{selectErr: tt.err}
			h := NewSearchHandler(svc, nil)
			rr := postJSON(t, h.Select, "/api/search/select", map[string]string{"sourceKey": "alpha"})
			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rr.Code)
			}
		})
	}
}

func TestFailoverReturnsReplacement(t *testing.T) {
	svc := &fakeSearchService{
		failoverRes: &models.SearchResult{SourceKey: "gamma", Title: "狂飙"},
	}
	h := NewSearchHandler(svc, nil)

	rr := postJSON(t, h.Failover, "/api/playback/failover", map[string]any{
		"sourceKey":    "alpha",
		"episodeIndex": 3,
		"reason":       "stall",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rr.Code, rr.Body.String())
	}

	var got models.SearchResult
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.SourceKey != "gamma" {
		t.Fatalf("unexpected replacement %+v", got)
	}
}

func TestFailoverExhaustedPayload(t *testing.T) {
	svc := &fakeSearchService{failoverErr: search.ErrFailoverExhausted}
	h := NewSearchHandler(svc, nil)

	rr := postJSON(t, h.Failover, "/api/playback/failover", map[string]any{
		"sourceKey":    "alpha",
		"episodeIndex": 0,
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}

	var resp struct {
		Exhausted bool `json:"exhausted"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Exhausted {
		t.Fatalf("expected exhausted flag in payload: %s", rr.Body.String())
	}
}

func TestFailoverRequiresSourceKey(t *testing.T) {
	svc := &fakeSearchService{}
	h := NewSearchHandler(svc, nil)

	rr := postJSON(t, h.Failover, "/api/playback/failover", map[string]any{"episodeIndex": 1})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}
