// Package library ties the loaded bookmark store to its backend and to the
// analysis settings shared by the CLI and the HTTP API.
package library

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/nikbrunner/bmlens/internal/ai"
	"github.com/nikbrunner/bmlens/internal/categorize"
	"github.com/nikbrunner/bmlens/internal/config"
	"github.com/nikbrunner/bmlens/internal/culler"
	"github.com/nikbrunner/bmlens/internal/extract"
	"github.com/nikbrunner/bmlens/internal/model"
	"github.com/nikbrunner/bmlens/internal/storage"
)

// Library is the loaded store with its backend. Callers that touch the store
// hold the lock through Update or View.
type Library struct {
	cfg     *config.Config
	backend storage.Backend

	mu    sync.Mutex
	store *model.Store

	aiMu       sync.Mutex
	aiClient   *ai.Client
	aiSettings ai.Settings
}

// Open loads the library from backend.
func Open(cfg *config.Config, backend storage.Backend) (*Library, error) {
	store, err := backend.Load()
	if err != nil {
		return nil, fmt.Errorf("load library from %s: %w", backend.Path(), err)
	}
	log.Printf("[DEBUG] loaded %d bookmarks, %d folders from %s", len(store.Bookmarks), len(store.Folders), backend.Path())
	return &Library{cfg: cfg, backend: backend, store: store}, nil
}

// Config returns the configuration the library was opened with.
func (l *Library) Config() *config.Config {
	return l.cfg
}

// Backend returns the storage backend.
func (l *Library) Backend() storage.Backend {
	return l.backend
}

// View runs fn with the store locked. fn must not keep the store.
func (l *Library) View(fn func(store *model.Store) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(l.store)
}

// Update runs fn with the store locked and saves the store afterwards.
// Nothing is saved when fn fails.
func (l *Library) Update(fn func(store *model.Store) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := fn(l.store); err != nil {
		return err
	}
	if err := l.backend.Save(l.store); err != nil {
		return fmt.Errorf("save library: %w", err)
	}
	return nil
}

// Bookmarks returns the bookmarks in tree order with repaired titles.
func (l *Library) Bookmarks() []model.Bookmark {
	l.mu.Lock()
	defer l.mu.Unlock()
	return extract.Bookmarks(l.store.Tree().Children)
}

// Tree returns a snapshot of the folder tree.
func (l *Library) Tree() *model.FolderNode {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Tree()
}

// Categorizer builds the rule categorizer from the configuration.
func (l *Library) Categorizer() (*categorize.Categorizer, error) {
	return NewCategorizer(l.cfg.Categorize)
}

// NewCategorizer builds a categorizer with the built-in and custom rules.
func NewCategorizer(cfg config.CategorizeConfig) (*categorize.Categorizer, error) {
	rules, err := categorize.DefaultRules().WithCustom(cfg.Rules)
	if err != nil {
		return nil, fmt.Errorf("custom rules: %w", err)
	}
	opts := categorize.Options{Rules: &rules, Fallback: cfg.Fallback}
	if cfg.Fallback == categorize.FallbackRandom {
		seed := cfg.Seed
		if seed == 0 {
			seed = uint64(time.Now().UnixNano()) //nolint:gosec // not security sensitive
		}
		opts.Rand = rand.New(rand.NewPCG(seed, seed>>1)) //nolint:gosec // not security sensitive
	}
	return categorize.New(opts)
}

// Checker builds the link checker from the configuration.
func (l *Library) Checker(rec culler.Recorder, progress culler.ProgressFunc) *culler.Checker {
	c := l.cfg.Check
	return culler.New(culler.Options{
		BatchSize:      c.BatchSize,
		Timeout:        c.Timeout,
		BatchDelay:     c.BatchDelay,
		UserAgent:      c.UserAgent,
		ExcludeDomains: c.ExcludeDomains,
		Recorder:       rec,
		Progress:       progress,
	})
}

// AISettings returns the stored AI settings, falling back to the config file.
// Empty stored fields keep the configured values.
func (l *Library) AISettings() (ai.Settings, error) {
	settings := l.cfg.AI.Settings
	var stored ai.Settings
	err := storage.GetJSON(l.backend, ai.SettingsKey, &stored)
	if errors.Is(err, storage.ErrNotFound) {
		return settings, nil
	}
	if err != nil {
		return settings, fmt.Errorf("read ai settings: %w", err)
	}
	if stored.Provider != "" {
		settings.Provider = stored.Provider
	}
	if stored.APIKey != "" {
		settings.APIKey = stored.APIKey
	}
	if stored.Model != "" {
		settings.Model = stored.Model
	}
	if stored.CustomAPIURL != "" {
		settings.CustomAPIURL = stored.CustomAPIURL
	}
	return settings, nil
}

// SetAISettings persists AI settings.
func (l *Library) SetAISettings(s ai.Settings) error {
	if err := storage.PutJSON(l.backend, ai.SettingsKey, s); err != nil {
		return fmt.Errorf("store ai settings: %w", err)
	}
	return nil
}

// AIClient returns the chat completion client for the effective settings,
// with the folder tree and tags of the library as context. The client and its
// circuit breaker are reused until the settings change.
func (l *Library) AIClient() (*ai.Client, error) {
	settings, err := l.AISettings()
	if err != nil {
		return nil, err
	}
	client, err := l.cachedClient(settings)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return client.WithLibrary(l.store), nil
}

func (l *Library) cachedClient(settings ai.Settings) (*ai.Client, error) {
	l.aiMu.Lock()
	defer l.aiMu.Unlock()
	if l.aiClient != nil && l.aiSettings == settings {
		return l.aiClient, nil
	}
	client, err := ai.NewClient(settings, ai.Options{
		Timeout:   l.cfg.AI.Timeout,
		ChunkSize: l.cfg.AI.ChunkSize,
	})
	if err != nil {
		return nil, err
	}
	if l.aiClient != nil {
		log.Printf("[DEBUG] ai settings changed, new client for %s", settings.Provider)
	}
	l.aiClient, l.aiSettings = client, settings
	return client, nil
}

// Categorize assigns a category to every bookmark, asking the AI client first
// when withAI is set.
func (l *Library) Categorize(ctx context.Context, withAI bool) ([]categorize.Assignment, []string, error) {
	cat, err := l.Categorizer()
	if err != nil {
		return nil, nil, err
	}
	bookmarks := l.Bookmarks()
	if !withAI {
		return cat.CategorizeAll(bookmarks), cat.Vocabulary(), nil
	}
	client, err := l.AIClient()
	if err != nil {
		return nil, nil, err
	}
	log.Printf("[INFO] categorizing %d bookmarks with %s", len(bookmarks), client.Model())
	return cat.CategorizeWith(ctx, client, bookmarks), cat.Vocabulary(), nil
}
