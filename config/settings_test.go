package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	mgr := NewManager(path)

	s, err := mgr.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Server.Port != 7788 {
		t.Fatalf("expected default port 7788, got %d", s.Server.Port)
	}
	if !s.Search.DefaultEnabled {
		t.Fatal("expected sources enabled by default")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected settings file written on first load: %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	mgr := NewManager(path)

	s := DefaultSettings()
	s.API.BaseURL = "https://gateway.example"
	s.Sources = []SourceSettings{
		{Key: "alpha", Name: "Alpha", Enabled: true},
		{Key: "beta", Enabled: false},
	}
	if err := mgr.Save(s); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := mgr.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.API.BaseURL != "https://gateway.example" {
		t.Fatalf("unexpected base URL %q", got.API.BaseURL)
	}
	if len(got.Sources) != 2 || got.Sources[0].Key != "alpha" {
		t.Fatalf("sources did not round-trip: %+v", got.Sources)
	}
}

func TestLoadBackfillsMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"server":{"port":9000}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Server.Port != 9000 {
		t.Fatalf("explicit port lost: %d", s.Server.Port)
	}
	if s.Search.ProviderTimeoutSeconds != 12 {
		t.Fatalf("provider timeout not backfilled: %d", s.Search.ProviderTimeoutSeconds)
	}
	if s.Probe.Concurrency != 4 || s.Probe.SampleBytes != 256*1024 {
		t.Fatalf("probe defaults not backfilled: %+v", s.Probe)
	}
	if s.Storage.Directory != "cache" {
		t.Fatalf("storage directory not backfilled: %q", s.Storage.Directory)
	}
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatal("expected an error for corrupt settings")
	}
}

func TestSourceEnabled(t *testing.T) {
	s := DefaultSettings()
	s.Sources = []SourceSettings{
		{Key: "alpha", Enabled: true},
		{Key: "beta", Enabled: false},
	}

	if !s.SourceEnabled("alpha") {
		t.Fatal("listed enabled source should pass")
	}
	if s.SourceEnabled("beta") {
		t.Fatal("listed disabled source should be filtered")
	}
	if !s.SourceEnabled("gamma") {
		t.Fatal("unlisted source should follow DefaultEnabled")
	}

	s.Search.DefaultEnabled = false
	if s.SourceEnabled("gamma") {
		t.Fatal("unlisted source should be filtered when DefaultEnabled is off")
	}
}
