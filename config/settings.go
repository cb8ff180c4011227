package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Settings represents the application configuration persisted to disk.
type Settings struct {
	Server      ServerSettings      `json:"server"`
	Origin      OriginSettings      `json:"origin"`
	Database    DatabaseSettings    `json:"database"`
	Cache       CacheSettings       `json:"cache"`
	Maintenance MaintenanceSettings `json:"maintenance"`
	Log         LogConfig           `json:"log"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// OriginSettings configures access to the external catalog API.
type OriginSettings struct {
	APIKey   string `json:"apiKey"`
	Language string `json:"language"`
	// BaseURL overrides the default origin endpoint, mainly for testing.
	BaseURL string `json:"baseUrl,omitempty"`
}

type DatabaseSettings struct {
	Path string `json:"path"`
}

type CacheSettings struct {
	// MaxAgeDays is the staleness window for cached shows.
	MaxAgeDays int `json:"maxAgeDays"`
	// PopulateTopN bounds how many listing results the background populator
	// persists per listing response.
	PopulateTopN int `json:"populateTopN"`
}

type MaintenanceSettings struct {
	Enabled          bool `json:"enabled"`
	IntervalMinutes  int  `json:"intervalMinutes"`
	RefreshBatchSize int  `json:"refreshBatchSize"`
	PruneMaxAgeDays  int  `json:"pruneMaxAgeDays"`
}

type LogConfig struct {
	File       string `json:"file"`
	MaxSize    int    `json:"maxSize"` // megabytes
	MaxBackups int    `json:"maxBackups"`
	MaxAge     int    `json:"maxAge"` // days
	Compress   bool   `json:"compress"`
}

// DefaultSettings returns the configuration written on first run.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{
			Host: "0.0.0.0",
			Port: 8480,
		},
		Origin: OriginSettings{
			Language: "en-US",
		},
		Database: DatabaseSettings{
			Path: filepath.Join("data", "catalog.db"),
		},
		Cache: CacheSettings{
			MaxAgeDays:   7,
			PopulateTopN: 10,
		},
		Maintenance: MaintenanceSettings{
			Enabled:          true,
			IntervalMinutes:  360,
			RefreshBatchSize: 50,
			PruneMaxAgeDays:  180,
		},
		Log: LogConfig{
			File:       filepath.Join("data", "showsync.log"),
			MaxSize:    20,
			MaxBackups: 3,
			MaxAge:     14,
			Compress:   true,
		},
	}
}

// Manager loads and persists settings to a JSON file.
type Manager struct {
	path string
}

func NewManager(configPath string) *Manager {
	return &Manager{path: configPath}
}

func (m *Manager) EnsureDir() error {
	dir := filepath.Dir(m.path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Load reads settings from disk or creates defaults if missing.
func (m *Manager) Load() (Settings, error) {
	if m.path == "" {
		return Settings{}, errors.New("config path not set")
	}
	if _, err := os.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
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
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return Settings{}, err
	}

	// Backfill zero values so hand-edited files keep working.
	defaults := DefaultSettings()
	if s.Server.Port == 0 {
		s.Server.Port = defaults.Server.Port
	}
	if s.Database.Path == "" {
		s.Database.Path = defaults.Database.Path
	}
	if s.Cache.MaxAgeDays <= 0 {
		s.Cache.MaxAgeDays = defaults.Cache.MaxAgeDays
	}
	if s.Cache.PopulateTopN <= 0 {
		s.Cache.PopulateTopN = defaults.Cache.PopulateTopN
	}
	if s.Maintenance.IntervalMinutes <= 0 {
		s.Maintenance.IntervalMinutes = defaults.Maintenance.IntervalMinutes
	}
	if s.Maintenance.RefreshBatchSize <= 0 {
		s.Maintenance.RefreshBatchSize = defaults.Maintenance.RefreshBatchSize
	}
	if s.Maintenance.PruneMaxAgeDays <= 0 {
		s.Maintenance.PruneMaxAgeDays = defaults.Maintenance.PruneMaxAgeDays
	}
	return s, nil
}

// Save writes the provided settings to disk atomically.
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
