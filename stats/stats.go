// Package stats retrieves the KGX graph summary statistics published
// alongside a graph bundle.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/bucket"
)

// PreferredName is the canonical summary file KGX writes for a merged graph.
const PreferredName = "merged_graph_stats.yaml"

// Stats is the graph-summary document for one build.
type Stats struct {
	GraphName string    `yaml:"graph_name,omitempty"`
	Nodes     NodeStats `yaml:"node_stats"`
	Edges     EdgeStats `yaml:"edge_stats"`
}

// NodeStats summarizes the node file.
type NodeStats struct {
	TotalNodes     int      `yaml:"total_nodes"`
	NodeCategories []string `yaml:"node_categories"`
	NodeIDPrefixes []string `yaml:"node_id_prefixes"`
}

// EdgeStats summarizes the edge file.
type EdgeStats struct {
	TotalEdges int      `yaml:"total_edges"`
	Predicates []string `yaml:"predicates"`
	// EdgeLabels is the name older summaries used for predicates.
	EdgeLabels []string `yaml:"edge_labels"`
}

// Retrieve finds and parses the summary statistics for the graph bundle at
// graphKey, looking in the stats directory beside it. No statistics being
// published for a bundle is a normal outcome reported as (nil, nil).
func Retrieve(ctx context.Context, store bucket.Store, graphKey, scratchDir string, logger *slog.Logger) (*Stats, error) {
	prefix := strings.TrimPrefix(path.Dir(graphKey)+"/stats/", "/")

	logger.Debug("searching for graph statistics", "prefix", prefix)
	keys, err := store.ListPrefix(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}

	statsKey := pick(keys)
	if statsKey == "" {
		logger.Info("no statistics found", "graph", graphKey)
		return nil, nil
	}

	local := filepath.Join(scratchDir, filepath.FromSlash(statsKey))
	if err := store.Download(ctx, statsKey, local); err != nil {
		return nil, fmt.Errorf("download %s: %w", statsKey, err)
	}
	data, err := os.ReadFile(local)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", local, err)
	}

	s, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", statsKey, err)
	}
	logger.Debug("parsed graph statistics", "key", statsKey,
		"nodes", s.Nodes.TotalNodes, "edges", s.Edges.TotalEdges)
	return s, nil
}

// pick prefers the canonical summary name, then the first yaml file listed.
func pick(keys []string) string {
	var fallback string
	for _, k := range keys {
		base := path.Base(k)
		if base == PreferredName {
			return k
		}
		if fallback == "" {
			if ok, _ := doublestar.Match("*.yaml", base); ok {
				fallback = k
			}
		}
	}
	return fallback
}

func parse(data []byte) (*Stats, error) {
	var s Stats
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if len(s.Edges.Predicates) == 0 {
		s.Edges.Predicates = s.Edges.EdgeLabels
	}
	return &s, nil
}
