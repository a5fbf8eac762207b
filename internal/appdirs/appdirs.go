package appdirs

import (
	"os"
	"path/filepath"
)

const (
	appDirName = "typerra"
)

func DataDir() (string, error) {
	if override := os.Getenv("TYPERRA_DATA_DIR"); override != "" {
		return override, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appDirName), nil
}

func LogsDir(dataDir string) string {
	return filepath.Join(dataDir, "logs")
}

func SettingsPath(dataDir string) string {
	return filepath.Join(dataDir, "settings.json")
}

// SecretsPaths returns the encrypted secrets file and its master key file.
func SecretsPaths(dataDir string) (string, string) {
	return filepath.Join(dataDir, "secrets.enc"), filepath.Join(dataDir, "master.key")
}

func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "typerra.toml")
}
