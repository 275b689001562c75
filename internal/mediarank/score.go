// Package mediarank scores playable candidates so that failover can pick
// the best remaining source without re-querying providers.
package mediarank

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"oriontv/models"
)

// Component weights. Quality and measured speed dominate; ping breaks ties.
const (
	qualityWeight = 0.4
	speedWeight   = 0.4
	pingWeight    = 0.2

	// Speeds at or above 5 MB/s all score 100.
	speedCeilingKBps = 5120.0
)

var qualityScores = map[string]float64{
	"4K":    100,
	"2K":    85,
	"1080p": 75,
	"720p":  60,
	"480p":  40,
	"SD":    20,
}

// resolutionPriority orders quality labels for comparisons where measured
// scores are unavailable on either side.
var resolutionPriority = map[string]int{
	"1080p": 4,
	"720p":  3,
	"480p":  2,
	"360p":  1,
}

var speedPattern = regexp.MustCompile(`^([\d.]+)\s*(KB/s|MB/s)$`)

// speedSentinels are placeholder strings emitted while a probe is still
// running or after it failed; they carry no measurement.
var speedSentinels = map[string]struct{}{
	"unknown":   {},
	"measuring": {},
	"未知":        {},
	"测速中...":    {},
}

// QualityScore maps a quality label to its fixed 0-100 score.
func QualityScore(label string) float64 {
	if s, ok := qualityScores[strings.TrimSpace(label)]; ok {
		return s
	}
	return 30
}

// SpeedScore normalizes a load-speed label ("845.2 KB/s", "2.4MB/s") to
// KB/s, clamps at the ceiling, and scales linearly to 0-100.
func SpeedScore(speed string) float64 {
	speed = strings.TrimSpace(speed)
	if _, sentinel := speedSentinels[speed]; sentinel || speed == "" {
		return 30
	}
	m := speedPattern.FindStringSubmatch(speed)
	if m == nil {
		return 30
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 30
	}
	kbps := value
	if m[2] == "MB/s" {
		kbps = value * 1024
	}
	if kbps > speedCeilingKBps {
		kbps = speedCeilingKBps
	}
	return kbps / speedCeilingKBps * 100
}

// PingScore maps latency to 0-100: full marks at 50 ms or better, zero at
// a second or worse. Missing or non-positive measurements score zero.
func PingScore(pingMillis int) float64 {
	switch {
	case pingMillis <= 0:
		return 0
	case pingMillis <= 50:
		return 100
	case pingMillis >= 1000:
		return 0
	default:
		return (1000 - float64(pingMillis)) / 950 * 100
	}
}

// Score produces the weighted rank for one quality measurement, rounded
// to two decimal places. Pure and deterministic.
func Score(q models.QualityInfo) float64 {
	total := QualityScore(q.Quality)*qualityWeight +
		SpeedScore(q.LoadSpeed)*speedWeight +
		PingScore(q.PingTime)*pingWeight
	return math.Round(total*100) / 100
}

// ResolutionPriority returns the fallback rank for a quality label when a
// measured score is unavailable. Unranked labels return 0.
func ResolutionPriority(label string) int {
	return resolutionPriority[strings.TrimSpace(label)]
}

// Better reports whether candidate a outranks candidate b. When both carry
// measurements the weighted score decides; otherwise both sides fall back
// to the resolution priority table. Equal ranks report false so that a
// stable sort preserves arrival order.
func Better(a, b *models.SearchResult) bool {
	if a.Quality != nil && b.Quality != nil {
		return Score(*a.Quality) > Score(*b.Quality)
	}
	return candidatePriority(a) > candidatePriority(b)
}

func candidatePriority(r *models.SearchResult) int {
	if r.Quality == nil {
		return 0
	}
	return ResolutionPriority(r.Quality.Quality)
}
