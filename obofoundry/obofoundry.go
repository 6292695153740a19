// Package obofoundry retrieves the OBO Foundry ontology registry used to
// cross-reference ontology-derived graph packages.
package obofoundry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/config"
)

// ErrMissingList indicates the registry document carried no ontologies list.
var ErrMissingList = errors.New("registry document has no ontologies list")

// Ontology is one registry entry.
type Ontology struct {
	ID           string  `yaml:"id"`
	Description  string  `yaml:"description,omitempty"`
	OntologyPURL string  `yaml:"ontology_purl,omitempty"`
	License      License `yaml:"license,omitempty"`
	Contact      Contact `yaml:"contact,omitempty"`
	IsObsolete   bool    `yaml:"is_obsolete,omitempty"`
}

// License carries the upstream license label.
type License struct {
	Label string `yaml:"label,omitempty"`
}

// Contact identifies the upstream maintainer.
type Contact struct {
	Label string `yaml:"label,omitempty"`
	Email string `yaml:"email,omitempty"`
}

// document is the wire shape of the remote registry.
type document struct {
	Ontologies []Ontology `yaml:"ontologies"`
}

// Registry indexes ontology entries by id.
type Registry struct {
	entries []Ontology
	byID    map[string]Ontology
}

// NewRegistry builds a Registry over the given entries.
func NewRegistry(entries []Ontology) *Registry {
	byID := make(map[string]Ontology, len(entries))
	for _, o := range entries {
		byID[o.ID] = o
	}
	return &Registry{entries: entries, byID: byID}
}

// Lookup returns the entry for the given ontology id.
func (r *Registry) Lookup(id string) (Ontology, bool) {
	o, ok := r.byID[id]
	return o, ok
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Retrieve returns the ontology registry. A previously cached copy at
// cfg.CachePath is reused when present; otherwise the remote document is
// fetched, filtered, and cached for later runs.
func Retrieve(ctx context.Context, cfg config.RegistryConfig, logger *slog.Logger) (*Registry, error) {
	entries, err := loadCache(cfg.CachePath)
	switch {
	case err == nil:
		logger.Info("loaded cached ontology registry", "path", cfg.CachePath, "ontologies", len(entries))
		return NewRegistry(entries), nil
	case errors.Is(err, fs.ErrNotExist):
	default:
		logger.Warn("ignoring unreadable registry cache", "path", cfg.CachePath, "error", err)
	}

	logger.Info("retrieving ontology registry", "url", cfg.URL)
	entries, err = fetch(ctx, cfg)
	if err != nil {
		return nil, err
	}
	entries = filter(entries, cfg.Skip, cfg.Only)

	if err := saveCache(cfg.CachePath, entries); err != nil {
		logger.Warn("could not cache ontology registry", "path", cfg.CachePath, "error", err)
	}
	logger.Info("retrieved ontology registry", "ontologies", len(entries))
	return NewRegistry(entries), nil
}

func fetch(ctx context.Context, cfg config.RegistryConfig) ([]Ontology, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create registry request: %w", err)
	}

	client := &http.Client{Timeout: cfg.Timeout()}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch registry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch registry: HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	if len(doc.Ontologies) == 0 {
		return nil, fmt.Errorf("%s: %w", cfg.URL, ErrMissingList)
	}
	return doc.Ontologies, nil
}

// filter drops obsolete entries and applies the id lists. Skip takes
// precedence over Only.
func filter(entries []Ontology, skip, only []string) []Ontology {
	keep := make([]Ontology, 0, len(entries))
	for _, o := range entries {
		if o.IsObsolete {
			continue
		}
		switch {
		case len(skip) > 0:
			if slices.Contains(skip, o.ID) {
				continue
			}
		case len(only) > 0:
			if !slices.Contains(only, o.ID) {
				continue
			}
		}
		keep = append(keep, o)
	}
	return keep
}

func loadCache(path string) ([]Ontology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []Ontology
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse registry cache %s: %w", path, err)
	}
	return entries, nil
}

func saveCache(path string, entries []Ontology) error {
	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal registry cache: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create cache directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write registry cache: %w", err)
	}
	return nil
}
