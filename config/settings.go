package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Settings represents the application configuration persisted to disk.
type Settings struct {
	Server  ServerSettings   `json:"server"`
	API     APISettings      `json:"api"`
	Sources []SourceSettings `json:"sources"`
	Search  SearchSettings   `json:"search"`
	Probe   ProbeSettings    `json:"probe"`
	Storage StorageSettings  `json:"storage"`
	Log     LogConfig        `json:"log"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// APISettings points at the aggregate search gateway that fronts the
// individual provider endpoints.
type APISettings struct {
	BaseURL        string `json:"baseUrl"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

// SourceSettings enables or disables one provider and optionally overrides
// its endpoint. Sources absent from this list follow Search.DefaultEnabled.
type SourceSettings struct {
	Key      string `json:"key"`
	Name     string `json:"name,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
	Enabled  bool   `json:"enabled"`
}

type SearchSettings struct {
	ProviderTimeoutSeconds int  `json:"providerTimeoutSeconds"`
	DefaultEnabled         bool `json:"defaultEnabled"` // applies to sources not listed in Sources
}

type ProbeSettings struct {
	Concurrency    int `json:"concurrency"`
	TimeoutSeconds int `json:"timeoutSeconds"`
	SampleBytes    int `json:"sampleBytes"`
}

type StorageSettings struct {
	Directory string `json:"directory"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	File       string `json:"file"`
	MaxSize    int    `json:"maxSize"`
	MaxAge     int    `json:"maxAge"`
	MaxBackups int    `json:"maxBackups"`
	Compress   bool   `json:"compress"`
}

// DefaultSettings returns the configuration written on first start.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{Host: "0.0.0.0", Port: 7788},
		API:    APISettings{BaseURL: "", TimeoutSeconds: 15},
		Search: SearchSettings{ProviderTimeoutSeconds: 12, DefaultEnabled: true},
		Probe:  ProbeSettings{Concurrency: 4, TimeoutSeconds: 8, SampleBytes: 256 * 1024},
		Storage: StorageSettings{
			Directory: "cache",
		},
		Log: LogConfig{
			File:       "",
			MaxSize:    20,
			MaxAge:     14,
			MaxBackups: 3,
			Compress:   true,
		},
	}
}

// SourceEnabled reports whether a source key passes the enabled filter.
func (s Settings) SourceEnabled(key string) bool {
	for _, src := range s.Sources {
		if src.Key == key {
			return src.Enabled
		}
	}
	return s.Search.DefaultEnabled
}

// Manager loads and persists settings.json.
type Manager struct {
	path string
}

func NewManager(configPath string) *Manager {
	return &Manager{path: configPath}
}

// EnsureDir ensures parent directory exists.
func (m *Manager) EnsureDir() error {
	dir := filepath.Dir(m.path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Load reads settings.json from disk or creates defaults if missing.
func (m *Manager) Load() (Settings, error) {
	if m.path == "" {
		return Settings{}, errors.New("config path not set")
	}
	if _, err := os.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		// create with defaults
		defaults := DefaultSettings()
		if err := m.Save(defaults); err != nil {
			return Settings{}, err
		}
		return defaults, nil
	}
	f, err := os.Open(m.path)
	if err != nil {
		return Settings{}, err
	}
	defer f.Close()

	var s Settings
	dec := json.NewDecoder(f)
	if err := dec.Decode(&s); err != nil {
		return Settings{}, err
	}

	// Backfill fields older config files may not carry
	if s.API.TimeoutSeconds <= 0 {
		s.API.TimeoutSeconds = 15
	}
	if s.Search.ProviderTimeoutSeconds <= 0 {
		s.Search.ProviderTimeoutSeconds = 12
	}
	if s.Probe.Concurrency <= 0 {
		s.Probe.Concurrency = 4
	}
	if s.Probe.TimeoutSeconds <= 0 {
		s.Probe.TimeoutSeconds = 8
	}
	if s.Probe.SampleBytes <= 0 {
		s.Probe.SampleBytes = 256 * 1024
	}
	if strings.TrimSpace(s.Storage.Directory) == "" {
		s.Storage.Directory = "cache"
	}

	return s, nil
}

// Save writes settings atomically via a temp file rename.
func (m *Manager) Save(s Settings) error {
	if m.path == "" {
		return errors.New("config path not set")
	}
	if err := m.EnsureDir(); err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, m.path)
}
