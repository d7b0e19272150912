package config

import (
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
	yaml "gopkg.in/yaml.v3"

	"github.com/dev-hans-programmer/postman-clone/internal/errdef"
)

type SettingsFormat int

const (
	SettingsFormatTOML SettingsFormat = iota
	SettingsFormatYAML
)

// SettingsHandle records where settings were read from so a later save can
// write the same file in the same format.
type SettingsHandle struct {
	Path   string
	Format SettingsFormat
}

type NetworkSettings struct {
	TimeoutSeconds float64 `toml:"timeout_seconds" yaml:"timeout_seconds"`
	VerifySSL      *bool   `toml:"verify_ssl" yaml:"verify_ssl"`
	MaxRedirects   int     `toml:"max_redirects" yaml:"max_redirects"`
	ProxyURL       string  `toml:"proxy_url" yaml:"proxy_url"`
}

type HistorySettings struct {
	MaxEntries int    `toml:"max_entries" yaml:"max_entries"`
	Backend    string `toml:"backend" yaml:"backend"`
}

type Settings struct {
	Network NetworkSettings `toml:"network" yaml:"network"`
	History HistorySettings `toml:"history" yaml:"history"`
}

// DefaultSettings matches the behavior of a missing settings file.
func DefaultSettings() Settings {
	verify := true
	return Settings{
		Network: NetworkSettings{
			TimeoutSeconds: 30,
			VerifySSL:      &verify,
			MaxRedirects:   10,
		},
		History: HistorySettings{
			MaxEntries: 1000,
			Backend:    "json",
		},
	}
}

// LoadSettings looks for settings.toml, then settings.yaml, then settings.yml
// under the config dir. Absent files yield defaults and a TOML handle so the
// first save creates settings.toml.
func LoadSettings() (Settings, SettingsHandle, error) {
	candidates := []SettingsHandle{
		{Path: filepath.Join(Dir(), "settings.toml"), Format: SettingsFormatTOML},
		{Path: filepath.Join(Dir(), "settings.yaml"), Format: SettingsFormatYAML},
		{Path: filepath.Join(Dir(), "settings.yml"), Format: SettingsFormatYAML},
	}

	for _, handle := range candidates {
		data, err := os.ReadFile(handle.Path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return DefaultSettings(), candidates[0], errdef.Wrap(errdef.CodeConfig, err, "read settings")
		}
		settings, err := decodeSettings(data, handle.Format)
		if err != nil {
			return DefaultSettings(), handle, err
		}
		return settings, handle, nil
	}

	return DefaultSettings(), candidates[0], nil
}

func decodeSettings(data []byte, format SettingsFormat) (Settings, error) {
	settings := DefaultSettings()
	var err error
	switch format {
	case SettingsFormatYAML:
		err = yaml.Unmarshal(data, &settings)
	default:
		err = toml.Unmarshal(data, &settings)
	}
	if err != nil {
		return DefaultSettings(), errdef.Wrap(errdef.CodeConfig, err, "parse settings")
	}
	return normalize(settings), nil
}

func normalize(settings Settings) Settings {
	defaults := DefaultSettings()
	if settings.Network.TimeoutSeconds <= 0 {
		settings.Network.TimeoutSeconds = defaults.Network.TimeoutSeconds
	}
	if settings.Network.VerifySSL == nil {
		settings.Network.VerifySSL = defaults.Network.VerifySSL
	}
	if settings.Network.MaxRedirects <= 0 {
		settings.Network.MaxRedirects = defaults.Network.MaxRedirects
	}
	if settings.History.MaxEntries <= 0 {
		settings.History.MaxEntries = defaults.History.MaxEntries
	}
	switch settings.History.Backend {
	case "json", "sqlite":
	default:
		settings.History.Backend = defaults.History.Backend
	}
	return settings
}

// SaveSettings writes settings to the handle's path in the handle's format.
func SaveSettings(settings Settings, handle SettingsHandle) error {
	var (
		data []byte
		err  error
	)
	switch handle.Format {
	case SettingsFormatYAML:
		data, err = yaml.Marshal(settings)
	default:
		data, err = toml.Marshal(settings)
	}
	if err != nil {
		return errdef.Wrap(errdef.CodeConfig, err, "encode settings")
	}

	if err := os.MkdirAll(filepath.Dir(handle.Path), 0o755); err != nil {
		return errdef.Wrap(errdef.CodeConfig, err, "create config dir")
	}
	tmp := fmt.Sprintf("%s.tmp", handle.Path)
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errdef.Wrap(errdef.CodeConfig, err, "write settings")
	}
	if err := os.Rename(tmp, handle.Path); err != nil {
		return errdef.Wrap(errdef.CodeConfig, err, "replace settings")
	}
	return nil
}
