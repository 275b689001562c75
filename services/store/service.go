// Package store persists favorites and play records as JSON files.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"oriontv/models"
)

var ErrStorageDirRequired = errors.New("storage directory not provided")

// Service persists the user's favorites and playback history. Writes are
// atomic (temp file + rename); all state is guarded by a single RWMutex.
type Service struct {
	mu       sync.RWMutex
	fs       afero.Fs
	favPath  string
	recPath  string
	favorite map[string]models.Favorite   // "source+videoId" -> favorite
	record   map[string]models.PlayRecord // "source+videoId" -> play record
}

// NewService constructs a store backed by the given filesystem. Tests pass
// an afero memmap fs; production passes afero.NewOsFs().
func NewService(fsys afero.Fs, storageDir string) (*Service, error) {
	if strings.TrimSpace(storageDir) == "" {
		return nil, ErrStorageDirRequired
	}
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if err := fsys.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	svc := &Service{
		fs:       fsys,
		favPath:  filepath.Join(storageDir, "favorites.json"),
		recPath:  filepath.Join(storageDir, "play_records.json"),
		favorite: make(map[string]models.Favorite),
		record:   make(map[string]models.PlayRecord),
	}

	if err := svc.loadFile(svc.favPath, &svc.favorite); err != nil {
		return nil, err
	}
	if err := svc.loadFile(svc.recPath, &svc.record); err != nil {
		return nil, err
	}
	return svc, nil
}

func storageKey(sourceKey, videoID string) string {
	return sourceKey + "+" + videoID
}

// IsFavorited reports whether the given title is pinned.
func (s *Service) IsFavorited(sourceKey, videoID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.favorite[storageKey(sourceKey, videoID)]
	return ok
}

// ToggleFavorite pins or unpins a title and returns the new state.
func (s *Service) ToggleFavorite(fav models.Favorite) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := storageKey(fav.SourceKey, fav.VideoID)
	if _, ok := s.favorite[key]; ok {
		delete(s.favorite, key)
		if err := s.saveFileLocked(s.favPath, s.favorite); err != nil {
			return true, err
		}
		return false, nil
	}

	if fav.SavedAt.IsZero() {
		fav.SavedAt = time.Now()
	}
	s.favorite[key] = fav
	if err := s.saveFileLocked(s.favPath, s.favorite); err != nil {
		return false, err
	}
	return true, nil
}

// ListFavorites returns favorites, most recently saved first.
func (s *Service) ListFavorites() []models.Favorite {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Favorite, 0, len(s.favorite))
	for _, fav := range s.favorite {
		out = append(out, fav)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SavedAt.After(out[j].SavedAt) })
	return out
}

// SavePlayRecord upserts playback progress for a title.
func (s *Service) SavePlayRecord(rec models.PlayRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.PlayedAt.IsZero() {
		rec.PlayedAt = time.Now()
	}
	s.record[storageKey(rec.SourceKey, rec.VideoID)] = rec
	return s.saveFileLocked(s.recPath, s.record)
}

// PlayRecords returns history entries, most recently played first.
func (s *Service) PlayRecords() []models.PlayRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.PlayRecord, 0, len(s.record))
	for _, rec := range s.record {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayedAt.After(out[j].PlayedAt) })
	return out
}

// LastPlayedSource returns the source the given title was last played
// from, feeding the preferred-source fast path on resume.
func (s *Service) LastPlayedSource(title string) (sourceKey, videoID string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best models.PlayRecord
	for _, rec := range s.record {
		if rec.Title != title {
			continue
		}
		if !ok || rec.PlayedAt.After(best.PlayedAt) {
			best = rec
			ok = true
		}
	}
	return best.SourceKey, best.VideoID, ok
}

func (s *Service) loadFile(path string, dst any) error {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		// A corrupt file should not brick startup; start fresh.
		log.Printf("[store] ignoring corrupt file %s: %v", path, err)
	}
	return nil
}

func (s *Service) saveFileLocked(path string, src any) error {
	data, err := json.MarshalIndent(src, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return err
	}
	return s.fs.Rename(tmp, path)
}
