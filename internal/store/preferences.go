// Package store persists client-side preferences in a small SQLite database
// so the chosen backend URL, region and language survive restarts and are
// shared by every fruity process on the machine.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"fruity/internal/logging"
	"fruity/internal/remote"
	"fruity/internal/types"

	_ "modernc.org/sqlite"
)

// Preference keys.
const (
	KeyBaseURL  = "fruity_api_url"
	KeyRegion   = "sft_region"
	KeyLanguage = "sft_lang"
)

// Defaults are returned by the getters for keys that were never saved.
type Defaults struct {
	BaseURL  string
	Region   string
	Language types.Language
}

// Preferences is a key/value preference store. It is safe for concurrent use.
type Preferences struct {
	db       *sql.DB
	mu       sync.RWMutex
	path     string
	defaults Defaults
}

// OpenPreferences opens (creating if needed) the database at path.
func OpenPreferences(path string, defaults Defaults) (*Preferences, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if defaults.Region == "" {
		defaults.Region = types.DefaultRegion
	}
	if !defaults.Language.Valid() {
		defaults.Language = types.DefaultLanguage
	}
	defaults.BaseURL = remote.NormalizeBaseURL(defaults.BaseURL)

	p := &Preferences{db: db, path: path, defaults: defaults}
	if err := p.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.StoreDebug("preferences opened at %s", path)
	return p, nil
}

func (p *Preferences) initialize() error {
	return migrate(p.db)
}

// Close closes the database.
func (p *Preferences) Close() error {
	return p.db.Close()
}

// Path returns the database location.
func (p *Preferences) Path() string { return p.path }

// Get returns the stored value for key and whether it exists.
func (p *Preferences) Get(key string) (string, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var value string
	err := p.db.QueryRow("SELECT value FROM preferences WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read preference %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key.
func (p *Preferences) Set(key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, err := p.db.Exec(`
		INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save preference %s: %w", key, err)
	}
	logging.Store("preference %s updated", key)
	return nil
}

// Delete removes key so the default applies again.
func (p *Preferences) Delete(key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.db.Exec("DELETE FROM preferences WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete preference %s: %w", key, err)
	}
	return nil
}

// All returns every stored preference.
func (p *Preferences) All() (map[string]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	rows, err := p.db.Query("SELECT key, value FROM preferences ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("failed to list preferences: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

func (p *Preferences) getOr(key, fallback string) string {
	v, ok, err := p.Get(key)
	if err != nil {
		logging.Get(logging.CategoryStore).Warn("using default for %s: %v", key, err)
		return fallback
	}
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

// BaseURL returns the saved backend URL or the default.
func (p *Preferences) BaseURL() string {
	return p.getOr(KeyBaseURL, p.defaults.BaseURL)
}

// SetBaseURL validates, normalizes (trimming trailing slashes) and saves raw.
// It returns the stored form.
func (p *Preferences) SetBaseURL(raw string) (string, error) {
	if err := remote.ValidateBaseURL(raw); err != nil {
		return "", err
	}
	url := remote.NormalizeBaseURL(raw)
	return url, p.Set(KeyBaseURL, url)
}

// Region returns the saved region or the default.
func (p *Preferences) Region() string {
	return p.getOr(KeyRegion, p.defaults.Region)
}

// SetRegion saves a trimmed, non-empty region.
func (p *Preferences) SetRegion(region string) error {
	region = strings.TrimSpace(region)
	if region == "" {
		return &types.ValidationError{Field: "region", Reason: "must not be empty"}
	}
	return p.Set(KeyRegion, region)
}

// Language returns the saved language or the default.
func (p *Preferences) Language() types.Language {
	lang, err := types.ParseLanguage(p.getOr(KeyLanguage, string(p.defaults.Language)))
	if err != nil {
		return p.defaults.Language
	}
	return lang
}

// SetLanguage saves "en" or "fr".
func (p *Preferences) SetLanguage(raw string) (types.Language, error) {
	lang, err := types.ParseLanguage(raw)
	if err != nil {
		return "", &types.ValidationError{Field: "language", Value: raw, Reason: "must be en or fr", Err: err}
	}
	return lang, p.Set(KeyLanguage, string(lang))
}
