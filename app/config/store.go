package config

import (
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// Store is the shared handle to the live configuration.
// Components read snapshots through Get and never keep a pointer into the store.
type Store struct {
	path string

	mu        sync.RWMutex
	cfg       Config
	listeners []func(Config)
}

func NewStore(path string, cfg *Config) *Store {
	return &Store{
		path: path,
		cfg:  cloneConfig(*cfg),
	}
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneConfig(s.cfg)
}

func (s *Store) Personality() Personality {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cfg.Personality
}

// Subscribe registers fn to be called with a fresh snapshot after every change.
func (s *Store) Subscribe(fn func(Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listeners = append(s.listeners, fn)
}

// SetTrait clamps value into [0,100], persists it and returns the stored value.
func (s *Store) SetTrait(trait Trait, value int) (int, error) {
	var stored int

	err := s.update(func(cfg *Config) error {
		v, err := cfg.Personality.Set(trait, value)
		stored = v
		return err
	})
	if err != nil {
		return 0, err
	}

	return stored, nil
}

func (s *Store) SetSafeMode(enabled bool) error {
	return s.update(func(cfg *Config) error {
		cfg.Safety.SafeMode = enabled
		return nil
	})
}

// Reload re-reads the config file and the environment.
func (s *Store) Reload() error {
	cfg, err := Load(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cfg = cloneConfig(*cfg)
	snapshot := cloneConfig(s.cfg)
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	notify(listeners, snapshot)

	return nil
}

func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.save(s.cfg)
}

func (s *Store) update(fn func(cfg *Config) error) error {
	s.mu.Lock()

	next := cloneConfig(s.cfg)
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return err
	}

	if err := s.save(next); err != nil {
		s.mu.Unlock()
		return err
	}

	s.cfg = next
	snapshot := cloneConfig(next)
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	notify(listeners, snapshot)

	return nil
}

func (s *Store) save(cfg Config) error {
	if s.path == "" {
		return nil
	}

	// secrets stay in the environment
	cfg.LLM.APIKey = ""

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return oops.In("config").Errorf("failed to encode config: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err = os.MkdirAll(dir, 0755); err != nil {
			return oops.In("config").Errorf("failed to create config dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err = os.WriteFile(tmp, data, 0644); err != nil {
		return oops.In("config").Errorf("failed to write config: %w", err)
	}

	if err = os.Rename(tmp, s.path); err != nil {
		return oops.In("config").Errorf("failed to replace config: %w", err)
	}

	return nil
}

func notify(listeners []func(Config), cfg Config) {
	for _, fn := range listeners {
		fn(cloneConfig(cfg))
	}
}

func cloneConfig(cfg Config) Config {
	cfg.LLM.Endpoints = slices.Clone(cfg.LLM.Endpoints)
	cfg.Speech.TTSCommand = slices.Clone(cfg.Speech.TTSCommand)
	cfg.Safety.Forbidden = slices.Clone(cfg.Safety.Forbidden)
	cfg.Safety.Sensitive = slices.Clone(cfg.Safety.Sensitive)
	cfg.FolderIndex.Roots = slices.Clone(cfg.FolderIndex.Roots)
	cfg.FolderIndex.Excluded = slices.Clone(cfg.FolderIndex.Excluded)
	cfg.Screen.CaptureCommand = slices.Clone(cfg.Screen.CaptureCommand)

	cfg.OS.AppAliases = maps.Clone(cfg.OS.AppAliases)

	return cfg
}
