package reconcile

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/bucket"
	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/config"
	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/manifest"
	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/objectkey"
	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/stats"
)

// EnrichStats fills graph summary statistics into package records of
// tracked projects. Only top-level build products are enriched; the
// ontology project publishes no summaries and is skipped, as are records
// that already carry counts from an earlier pass. A failed or absent
// summary leaves the record as it was.
func EnrichStats(ctx context.Context, store bucket.Store, records []manifest.Record, cfg *config.Config, logger *slog.Logger) {
	enriched := 0
	for _, rec := range records {
		pkg, ok := rec.(*manifest.GraphDataPackage)
		if !ok {
			continue
		}
		key := strings.TrimPrefix(pkg.ID, cfg.Manifest.URLBase)
		k := objectkey.Parse(key)
		if !cfg.IsTracked(k.Project) || k.Project == cfg.Projects.OntologyProject || k.IsComponent() {
			continue
		}
		if pkg.EdgeCount != nil {
			continue
		}

		summary, err := stats.Retrieve(ctx, store, key, cfg.Paths.ScratchDir, logger)
		if err != nil {
			logger.Warn("statistics retrieval failed", "key", key, "error", err)
			continue
		}
		if summary == nil {
			continue
		}

		edges, nodes := summary.Edges.TotalEdges, summary.Nodes.TotalNodes
		pkg.EdgeCount = &edges
		pkg.NodeCount = &nodes
		pkg.Predicates = strings.Join(summary.Edges.Predicates, "|")
		pkg.NodeCategories = strings.Join(summary.Nodes.NodeCategories, "|")
		pkg.NodePrefixes = strings.Join(summary.Nodes.NodeIDPrefixes, "|")
		enriched++
	}

	if enriched > 0 {
		logger.Info("enriched graph packages with statistics", "count", enriched)
	}
}
