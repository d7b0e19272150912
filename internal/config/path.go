package config

import (
	"os"
	"path/filepath"
	"runtime"
)

func Dir() string {
	if override := os.Getenv("APITESTER_CONFIG_DIR"); override != "" {
		return override
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ".apitester"
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "apitester")
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "apitester")
	default:
		return filepath.Join(home, ".config", "apitester")
	}
}

func CollectionsPath() string {
	return filepath.Join(Dir(), "collections.json")
}

func EnvironmentsPath() string {
	return filepath.Join(Dir(), "environments.json")
}

func HistoryPath() string {
	return filepath.Join(Dir(), "history.json")
}

func HistoryDBPath() string {
	return filepath.Join(Dir(), "history.db")
}
