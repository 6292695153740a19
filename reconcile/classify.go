package reconcile

import (
	"log/slog"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/config"
	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/objectkey"
)

// Classified buckets the newly discovered graph file keys by storage form.
type Classified struct {
	Compressed   []string
	Uncompressed []string
}

// All returns every classified key, compressed first, preserving listing
// order within each bucket.
func (c Classified) All() []string {
	all := make([]string, 0, c.Total())
	all = append(all, c.Compressed...)
	return append(all, c.Uncompressed...)
}

// Total returns the number of classified keys.
func (c Classified) Total() int {
	return len(c.Compressed) + len(c.Uncompressed)
}

// Classify picks the graph files in keys that are not yet catalogued.
// A key whose derived URL id appears in previousIDs is skipped, as is any
// key under an ignored top-level directory. The rest bucket by suffix:
// tar.gz archives are compressed, node and edge lists uncompressed.
// A maximum above zero caps the combined result, keeping compressed keys
// first.
func Classify(keys []string, previousIDs map[string]struct{}, cfg *config.Config, maximum int, logger *slog.Logger) Classified {
	var c Classified
	for _, key := range keys {
		if _, ok := previousIDs[cfg.Manifest.URLBase+key]; ok {
			continue
		}
		k := objectkey.Parse(key)
		if ignored(k.Project, cfg.Projects.IgnoreDirs) {
			continue
		}
		switch {
		case k.HasSuffix(".tar.gz"):
			c.Compressed = append(c.Compressed, key)
		case k.HasSuffix("edges.tsv"), k.HasSuffix("nodes.tsv"):
			c.Uncompressed = append(c.Uncompressed, key)
		}
	}

	if maximum > 0 && c.Total() > maximum {
		logger.Info("capping new keys for this pass",
			"maximum", maximum,
			"compressed", len(c.Compressed),
			"uncompressed", len(c.Uncompressed))
		if len(c.Compressed) > maximum {
			c.Compressed = c.Compressed[:maximum]
		}
		if rest := maximum - len(c.Compressed); len(c.Uncompressed) > rest {
			c.Uncompressed = c.Uncompressed[:rest]
		}
	}

	logger.Info("classified new graph files",
		"compressed", len(c.Compressed),
		"uncompressed", len(c.Uncompressed))
	return c
}

// ignored matches the key's first segment against the ignore patterns.
// Plain names behave as exact matches under glob rules.
func ignored(project string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, project); err == nil && ok {
			return true
		}
	}
	return false
}
