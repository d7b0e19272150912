package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func withConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("APITESTER_CONFIG_DIR", dir)
	return dir
}

func TestDirOverride(t *testing.T) {
	dir := withConfigDir(t)
	if Dir() != dir {
		t.Fatalf("expected override dir %q, got %q", dir, Dir())
	}
	if CollectionsPath() != filepath.Join(dir, "collections.json") {
		t.Fatalf("unexpected collections path %q", CollectionsPath())
	}
	if HistoryDBPath() != filepath.Join(dir, "history.db") {
		t.Fatalf("unexpected history db path %q", HistoryDBPath())
	}
}

func TestLoadSettingsDefaults(t *testing.T) {
	withConfigDir(t)

	settings, handle, err := LoadSettings()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings.Network.TimeoutSeconds != 30 || !*settings.Network.VerifySSL || settings.Network.MaxRedirects != 10 {
		t.Fatalf("unexpected network defaults %+v", settings.Network)
	}
	if settings.History.MaxEntries != 1000 || settings.History.Backend != "json" {
		t.Fatalf("unexpected history defaults %+v", settings.History)
	}
	if handle.Format != SettingsFormatTOML || !strings.HasSuffix(handle.Path, "settings.toml") {
		t.Fatalf("expected toml handle, got %+v", handle)
	}
}

func TestLoadSettingsTOML(t *testing.T) {
	dir := withConfigDir(t)

	content := "[network]\ntimeout_seconds = 5\nverify_ssl = false\n\n[history]\nmax_entries = 50\nbackend = \"sqlite\"\n"
	if err := os.WriteFile(filepath.Join(dir, "settings.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	settings, handle, err := LoadSettings()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings.Network.TimeoutSeconds != 5 || *settings.Network.VerifySSL {
		t.Fatalf("unexpected network settings %+v", settings.Network)
	}
	if settings.History.MaxEntries != 50 || settings.History.Backend != "sqlite" {
		t.Fatalf("unexpected history settings %+v", settings.History)
	}
	// unspecified fields keep defaults
	if settings.Network.MaxRedirects != 10 {
		t.Fatalf("expected default max redirects, got %d", settings.Network.MaxRedirects)
	}
	if handle.Format != SettingsFormatTOML {
		t.Fatalf("expected toml handle, got %+v", handle)
	}
}

func TestLoadSettingsYAMLFallback(t *testing.T) {
	dir := withConfigDir(t)

	content := "network:\n  timeout_seconds: 12\nhistory:\n  backend: sqlite\n"
	if err := os.WriteFile(filepath.Join(dir, "settings.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	settings, handle, err := LoadSettings()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings.Network.TimeoutSeconds != 12 || settings.History.Backend != "sqlite" {
		t.Fatalf("unexpected settings %+v", settings)
	}
	if handle.Format != SettingsFormatYAML || !strings.HasSuffix(handle.Path, "settings.yaml") {
		t.Fatalf("expected yaml handle, got %+v", handle)
	}
}

func TestLoadSettingsInvalidBackendNormalized(t *testing.T) {
	dir := withConfigDir(t)

	content := "[history]\nbackend = \"redis\"\n"
	if err := os.WriteFile(filepath.Join(dir, "settings.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	settings, _, err := LoadSettings()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings.History.Backend != "json" {
		t.Fatalf("expected backend normalized to json, got %q", settings.History.Backend)
	}
}

func TestLoadSettingsCorrupt(t *testing.T) {
	dir := withConfigDir(t)

	if err := os.WriteFile(filepath.Join(dir, "settings.toml"), []byte("{{not toml"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	settings, _, err := LoadSettings()
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if settings.History.MaxEntries != 1000 {
		t.Fatalf("expected defaults on parse failure, got %+v", settings)
	}
}

func TestSaveSettingsRoundTrip(t *testing.T) {
	withConfigDir(t)

	settings := DefaultSettings()
	settings.Network.TimeoutSeconds = 7
	settings.History.Backend = "sqlite"

	handle := SettingsHandle{Path: filepath.Join(Dir(), "settings.toml"), Format: SettingsFormatTOML}
	if err := SaveSettings(settings, handle); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, loadedHandle, err := LoadSettings()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Network.TimeoutSeconds != 7 || loaded.History.Backend != "sqlite" {
		t.Fatalf("round trip mismatch %+v", loaded)
	}
	if loadedHandle.Path != handle.Path {
		t.Fatalf("expected handle %q, got %q", handle.Path, loadedHandle.Path)
	}
}
