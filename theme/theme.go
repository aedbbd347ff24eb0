// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package theme selects the stylesheet of the address widgets and
// remembers the choice.
package theme

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
)

// Default is used when nothing, or an unknown name, was persisted.
const Default = "minimal"

// preferenceKey is the key of the persisted theme name.
const preferenceKey = "theme"

var known = []string{"minimal", "minimal-dark", "round-borders", "round-borders-dark"}

// ErrUnknownTheme is returned when setting a theme that does not exist.
var ErrUnknownTheme = errors.New("unknown theme")

// Store persists string preferences.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// Service resolves and persists the current theme.
type Service struct {
	store Store
}

// NewService creates a service backed by store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Themes returns the known theme names.
func (s *Service) Themes() []string {
	return slices.Clone(known)
}

// Current returns the persisted theme, or Default.
func (s *Service) Current() string {
	name, ok, err := s.store.Get(preferenceKey)
	if err != nil {
		log.Printf("⚠️  reading theme preference: %v", err)

		return Default
	}

	if !ok || !slices.Contains(known, name) {
		return Default
	}

	return name
}

// Set validates and persists name.
func (s *Service) Set(name string) error {
	if !slices.Contains(known, name) {
		return fmt.Errorf("%w: %q", ErrUnknownTheme, name)
	}

	if err := s.store.Set(preferenceKey, name); err != nil {
		return fmt.Errorf("saving theme preference: %w", err)
	}

	return nil
}

// Stylesheet returns the stylesheet path of name.
func Stylesheet(name string) string {
	return "styles/" + name + ".css"
}

// MemoryStore keeps preferences in memory.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.values[key]

	return v, ok, nil
}

func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value

	return nil
}

// DBStore keeps preferences in the DuckDB preferences table.
type DBStore struct {
	db *sql.DB
}

// NewDBStore creates a store over db. Call CreateSchema before use.
func NewDBStore(db *sql.DB) *DBStore {
	return &DBStore{db: db}
}

// CreateSchema creates the preferences table.
func (d *DBStore) CreateSchema() error {
	_, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS preferences (
			key VARCHAR PRIMARY KEY,
			value VARCHAR NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)

	return err
}

func (d *DBStore) Get(key string) (string, bool, error) {
	var value string

	err := d.db.QueryRow("SELECT value FROM preferences WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}

	if err != nil {
		return "", false, err
	}

	return value, true, nil
}

func (d *DBStore) Set(key, value string) error {
	_, err := d.db.Exec(`
		INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)

	return err
}
