package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// ServerConfig describes how to launch one managed server.
// The snapshot handed to the supervisor at start time is a copy; later
// edits do not affect a process that is already running.
type ServerConfig struct {
	Command string            `json:"command" mapstructure:"command"`
	Args    []string          `json:"args" mapstructure:"args"`
	Env     map[string]string `json:"env,omitempty" mapstructure:"env"`
	Port    int               `json:"port,omitempty" mapstructure:"port"` // declared port, 0 when unknown
}

// CommandLine joins command and args into the single string handed to the
// platform shell. Arguments that need quoting must be pre-quoted by the
// caller; no escaping is performed.
func (c ServerConfig) CommandLine() string {
	if len(c.Args) == 0 {
		return c.Command
	}
	return c.Command + " " + strings.Join(c.Args, " ")
}

// Provider resolves a server id to its launch configuration.
// Implementations must be safe for concurrent use.
type Provider interface {
	Lookup(id string) (ServerConfig, bool)
}

// File mirrors the on-disk JSON layout ({"mcpServers": {...}}).
type File struct {
	Servers map[string]ServerConfig `json:"mcpServers" mapstructure:"mcpServers"`
}

// Store is a concurrency-safe server configuration set backed by a JSON
// file. It implements Provider.
type Store struct {
	mu      sync.RWMutex
	path    string
	servers map[string]ServerConfig
}

// NewStore returns an empty store that persists to path. The file is not
// created until Save or a mutating call.
func NewStore(path string) *Store {
	return &Store{path: path, servers: make(map[string]ServerConfig)}
}

// Load reads the JSON config at path via viper. A missing file is not an
// error; it yields an empty store.
func Load(path string) (*Store, error) {
	s := NewStore(path)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var fc File
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if fc.Servers != nil {
		s.servers = fc.Servers
	}
	return s, nil
}

// Lookup implements Provider. The returned config is a copy.
func (s *Store) Lookup(id string) (ServerConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.servers[id]
	if !ok {
		return ServerConfig{}, false
	}
	return copyConfig(c), true
}

// Add inserts or replaces a server definition and persists the file.
func (s *Store) Add(id string, c ServerConfig) error {
	s.mu.Lock()
	s.servers[id] = copyConfig(c)
	s.mu.Unlock()
	return s.Save()
}

// Remove deletes a server definition and persists the file.
// It fails when the id is unknown.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	if _, ok := s.servers[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("server %q not found in configuration", id)
	}
	delete(s.servers, id)
	s.mu.Unlock()
	return s.Save()
}

// List returns the configured ids in sorted order.
func (s *Store) List() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.servers))
	for id := range s.servers {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Snapshot returns a copy of all server definitions.
func (s *Store) Snapshot() map[string]ServerConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]ServerConfig, len(s.servers))
	for id, c := range s.servers {
		out[id] = copyConfig(c)
	}
	return out
}

// Save writes the store back to its JSON file as pretty-printed JSON,
// creating parent directories as needed.
func (s *Store) Save() error {
	if s.path == "" {
		return nil
	}
	s.mu.RLock()
	fc := File{Servers: make(map[string]ServerConfig, len(s.servers))}
	for id, c := range s.servers {
		fc.Servers[id] = c
	}
	s.mu.RUnlock()
	b, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize config: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", s.path, err)
	}
	return nil
}

func copyConfig(c ServerConfig) ServerConfig {
	out := c
	if c.Args != nil {
		out.Args = append([]string(nil), c.Args...)
	}
	if c.Env != nil {
		out.Env = make(map[string]string, len(c.Env))
		for k, v := range c.Env {
			out.Env[k] = v
		}
	}
	return out
}

// StaticProvider is a fixed in-memory Provider, convenient for embedding
// and tests.
type StaticProvider map[string]ServerConfig

func (p StaticProvider) Lookup(id string) (ServerConfig, bool) {
	c, ok := p[id]
	if !ok {
		return ServerConfig{}, false
	}
	return copyConfig(c), true
}
