package prefs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/AaronLay10/verifypanel/internal/config"
	"github.com/AaronLay10/verifypanel/internal/storage/postgres"
	"github.com/AaronLay10/verifypanel/internal/storage/sqlite"
)

// Store is a flat string key/value store.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// MemoryStore keeps preferences for the life of the process.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// FileStore keeps preferences in a small YAML document.
type FileStore struct {
	path string
	mu   sync.Mutex
}

type fileDoc struct {
	Version     int               `yaml:"version"`
	Preferences map[string]string `yaml:"preferences"`
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) read() (fileDoc, error) {
	doc := fileDoc{Version: 1, Preferences: map[string]string{}}
	b, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return doc, nil
	}
	if err != nil {
		return doc, err
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return doc, fmt.Errorf("parse %s: %w", f.path, err)
	}
	if doc.Preferences == nil {
		doc.Preferences = map[string]string{}
	}
	return doc, nil
}

func (f *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return "", false, err
	}
	v, ok := doc.Preferences[key]
	return v, ok, nil
}

// Set rewrites the document through a temp file and rename.
func (f *FileStore) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return err
	}
	doc.Preferences[key] = value

	b, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create preferences directory: %w", err)
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

func (f *FileStore) Close() error { return nil }

// Open builds the store selected by cfg. panelID scopes rows in the SQL
// backends.
func Open(ctx context.Context, cfg config.PreferencesConfig, panelID string) (Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendFile, "":
		return NewFileStore(cfg.Path), nil
	case config.BackendSQLite:
		s, err := sqlite.Open(ctx, cfg.Path, panelID)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendPostgres:
		password, err := config.ResolveSecret("PANEL_PG_PASSWORD")
		if err != nil {
			return nil, err
		}
		c, err := postgres.New(ctx, postgres.Options{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: password,
			Database: cfg.Postgres.Database,
			SSLMode:  cfg.Postgres.SSLMode,
			PanelID:  panelID,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown preferences backend %q", cfg.Backend)
}
