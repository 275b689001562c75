package probe

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const masterPlaylist = `#EXTM3U
#EXT-X-STREAM-INF:BANDWIDTH=800000,RESOLUTION=640x480
low/index.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=5000000,RESOLUTION=1920x1080
high/index.m3u8
`

const mediaPlaylist = `#EXTM3U
#EXT-X-TARGETDURATION:10
#EXTINF:10.0,
seg0.ts
#EXTINF:10.0,
seg1.ts
`

func newStreamServer(t *testing.T) *httptest.Server {
	t.Helper()
	segment := bytes.Repeat([]byte{0x47}, 64*1024)
	mux := http.NewServeMux()
	mux.HandleFunc("/master.m3u8", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(masterPlaylist))
	})
	mux.HandleFunc("/low/index.m3u8", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(mediaPlaylist))
	})
	mux.HandleFunc("/media.m3u8", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(mediaPlaylist))
	})
	mux.HandleFunc("/low/seg0.ts", func(w http.ResponseWriter, r *http.Request) {
		w.Write(segment)
	})
	mux.HandleFunc("/seg0.ts", func(w http.ResponseWriter, r *http.Request) {
		w.Write(segment)
	})
	return httptest.NewServer(mux)
}

func TestEstimateMasterPlaylist(t *testing.T) {
	srv := newStreamServer(t)
	defer srv.Close()

	prober := NewProber(nil, 32*1024)
	qi, err := prober.Estimate(context.Background(), srv.URL+"/master.m3u8")
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if qi.Quality != "1080p" {
		t.Fatalf("expected 1080p from the best variant, got %q", qi.Quality)
	}
	if qi.PingTime <= 0 {
		t.Fatalf("expected a ping measurement, got %d", qi.PingTime)
	}
	if !strings.HasSuffix(qi.LoadSpeed, "B/s") {
		t.Fatalf("expected a measured speed, got %q", qi.LoadSpeed)
	}
}

func TestEstimateMediaPlaylist(t *testing.T) {
	srv := newStreamServer(t)
	defer srv.Close()

	prober := NewProber(nil, 32*1024)
	qi, err := prober.Estimate(context.Background(), srv.URL+"/media.m3u8")
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	// A media playlist advertises no resolution.
	if qi.Quality != "unknown" {
		t.Fatalf("expected unknown quality, got %q", qi.Quality)
	}
	if !strings.HasSuffix(qi.LoadSpeed, "B/s") {
		t.Fatalf("expected a measured speed, got %q", qi.LoadSpeed)
	}
}

func TestEstimateUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	prober := NewProber(nil, 32*1024)
	if _, err := prober.Estimate(context.Background(), srv.URL+"/gone.m3u8"); err == nil {
		t.Fatal("expected an error for an unreachable playlist")
	}
}

func TestEstimateEmptyLocator(t *testing.T) {
	prober := NewProber(nil, 0)
	if _, err := prober.Estimate(context.Background(), "  "); !errors.Is(err, ErrEmptyLocator) {
		t.Fatalf("expected ErrEmptyLocator, got %v", err)
	}
}

func TestEstimateHonorsCancellation(t *testing.T) {
	blocked := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer srv.Close()
	defer close(blocked)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	prober := NewProber(nil, 0)
	if _, err := prober.Estimate(ctx, srv.URL+"/master.m3u8"); err == nil {
		t.Fatal("expected an error after cancellation")
	}
}

func TestQualityLabel(t *testing.T) {
	tests := []struct {
		height int
		want   string
	}{
		{2160, "4K"},
		{1440, "2K"},
		{1080, "1080p"},
		{720, "720p"},
		{480, "480p"},
		{360, "SD"},
		{0, "unknown"},
	}
	for _, tt := range tests {
		if got := qualityLabel(tt.height); got != tt.want {
			t.Fatalf("qualityLabel(%d) = %q, want %q", tt.height, got, tt.want)
		}
	}
}
