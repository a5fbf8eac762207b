// Package settings persists the user's editor preferences.
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/dev-razz/Typerra/internal/model"
)

const schemaVersion = 1

type Settings struct {
	SchemaVersion   int    `json:"schema_version"`
	RealtimeEnabled *bool  `json:"realtime_enabled,omitempty"`
	DefaultTone     string `json:"default_tone,omitempty"`
}

// Realtime reports the realtime proofreading flag, on unless turned off.
func (s *Settings) Realtime() bool {
	return s.RealtimeEnabled == nil || *s.RealtimeEnabled
}

func (s *Settings) SetRealtime(enabled bool) {
	s.RealtimeEnabled = &enabled
}

type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Load() (*Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultSettings(), nil
		}
		return nil, err
	}
	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, err
	}
	backfillSettings(&settings)
	return &settings, nil
}

func (s *Store) Save(settings *Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	backfillSettings(settings)
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *Store) Update(fn func(*Settings)) (*Settings, error) {
	settings, err := s.Load()
	if err != nil {
		return nil, err
	}
	fn(settings)
	return settings, s.Save(settings)
}

func defaultSettings() *Settings {
	settings := &Settings{}
	backfillSettings(settings)
	return settings
}

func backfillSettings(settings *Settings) {
	if settings.SchemaVersion == 0 {
		settings.SchemaVersion = schemaVersion
	}
	if settings.RealtimeEnabled == nil {
		settings.SetRealtime(true)
	}
	if tone := model.WriteTone(settings.DefaultTone); tone != "" {
		settings.DefaultTone = tone
	} else {
		settings.DefaultTone = model.ToneNeutral
	}
}
