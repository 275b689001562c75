// Package probe estimates playback quality for a stream locator by
// inspecting its HLS playlist and sampling the first media segment.
package probe

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"oriontv/models"
)

var (
	ErrEmptyLocator = errors.New("empty media locator")
	ErrNoSegment    = errors.New("playlist contains no media segment")
)

var resolutionPattern = regexp.MustCompile(`RESOLUTION=(\d+)x(\d+)`)

// Prober fetches playlists and derives a QualityInfo. All requests honor
// the caller's context so in-flight probes die with their session.
type Prober struct {
	httpClient  *http.Client
	sampleBytes int64
}

// NewProber constructs a prober. sampleBytes bounds how much of the first
// segment is downloaded for the speed estimate.
func NewProber(client *http.Client, sampleBytes int64) *Prober {
	if client == nil {
		client = &http.Client{Timeout: 8 * time.Second}
	}
	if sampleBytes <= 0 {
		sampleBytes = 256 * 1024
	}
	return &Prober{httpClient: client, sampleBytes: sampleBytes}
}

// Estimate probes the given locator. The returned QualityInfo always has
// a quality label; speed falls back to "unknown" when no segment could be
// sampled.
func (p *Prober) Estimate(ctx context.Context, mediaURL string) (*models.QualityInfo, error) {
	mediaURL = strings.TrimSpace(mediaURL)
	if mediaURL == "" {
		return nil, ErrEmptyLocator
	}

	start := time.Now()
	body, err := p.fetch(ctx, mediaURL)
	if err != nil {
		return nil, err
	}
	ping := int(time.Since(start).Milliseconds())
	if ping <= 0 {
		// Sub-millisecond responses still count as a measurement.
		ping = 1
	}

	label, segmentURI, isMaster := parsePlaylist(body)

	// A master playlist points at variant playlists, not segments; follow
	// the first variant to find something downloadable.
	if isMaster && segmentURI != "" {
		variantURL := resolveRef(mediaURL, segmentURI)
		if variantBody, err := p.fetch(ctx, variantURL); err == nil {
			_, segmentURI, _ = parsePlaylist(variantBody)
			mediaURL = variantURL
		} else {
			segmentURI = ""
		}
	}

	speed := "unknown"
	if segmentURI != "" {
		if s, err := p.sampleSpeed(ctx, resolveRef(mediaURL, segmentURI)); err == nil {
			speed = s
		}
	}

	return &models.QualityInfo{Quality: label, LoadSpeed: speed, PingTime: ping}, nil
}

// fetch retrieves a playlist, retrying transient failures. Cancellation
// and deadline expiry abort immediately.
func (p *Prober) fetch(ctx context.Context, rawURL string) (string, error) {
	var body string
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := p.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return fmt.Errorf("playlist fetch: status %s", resp.Status)
			}
			data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			if err != nil {
				return err
			}
			body = string(data)
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(2),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", err
	}
	return body, nil
}

// sampleSpeed downloads up to sampleBytes of a segment and formats the
// observed throughput.
func (p *Prober) sampleSpeed(ctx context.Context, segmentURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, segmentURL, nil)
	if err != nil {
		return "", err
	}
	start := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("segment fetch: status %s", resp.Status)
	}

	n, err := io.Copy(io.Discard, io.LimitReader(resp.Body, p.sampleBytes))
	if err != nil && n == 0 {
		return "", err
	}
	elapsed := time.Since(start).Seconds()
	if elapsed <= 0 || n == 0 {
		return "", ErrNoSegment
	}

	kbps := float64(n) / 1024 / elapsed
	if kbps >= 1024 {
		return fmt.Sprintf("%.1f MB/s", kbps/1024), nil
	}
	return fmt.Sprintf("%.1f KB/s", kbps), nil
}

// parsePlaylist extracts the best advertised resolution label, the first
// referenced URI, and whether the playlist is a master playlist.
func parsePlaylist(body string) (label, firstURI string, isMaster bool) {
	bestHeight := 0
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#EXT-X-STREAM-INF") {
			isMaster = true
			if m := resolutionPattern.FindStringSubmatch(line); m != nil {
				if h, err := strconv.Atoi(m[2]); err == nil && h > bestHeight {
					bestHeight = h
				}
			}
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		if firstURI == "" {
			firstURI = line
		}
	}
	return qualityLabel(bestHeight), firstURI, isMaster
}

func qualityLabel(height int) string {
	switch {
	case height >= 2160:
		return "4K"
	case height >= 1440:
		return "2K"
	case height >= 1080:
		return "1080p"
	case height >= 720:
		return "720p"
	case height >= 480:
		return "480p"
	case height > 0:
		return "SD"
	default:
		return "unknown"
	}
}

// resolveRef resolves a possibly relative playlist reference against its
// parent URL.
func resolveRef(baseURL, ref string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return ref
	}
	rel, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(rel).String()
}
