package manifest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/bucket"
)

// Load parses a manifest document into records. Parsing is relaxed: the
// comment header is skipped by the YAML parser, unknown fields are
// dropped, and ids are accepted as arbitrary strings. Rows carrying a
// compression field become GraphDataPackage records, the rest become
// DataResource records.
func Load(data []byte) ([]Record, error) {
	var rows []GraphDataPackage
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	records := make([]Record, 0, len(rows))
	for i := range rows {
		if rows[i].Compression != "" {
			pkg := rows[i]
			records = append(records, &pkg)
		} else {
			res := rows[i].DataResource
			records = append(records, &res)
		}
	}
	return records, nil
}

// LoadFile reads and parses the manifest at path.
func LoadFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Load(data)
}

// Fetch retrieves the previously published manifest from the bucket. The
// manifest's presence is decided from the fresh listing rather than a
// network probe; an absent manifest is the first-run case and yields an
// empty record set.
func Fetch(ctx context.Context, store bucket.Store, listing []string, key, scratchDir string, logger *slog.Logger) ([]Record, error) {
	if !slices.Contains(listing, key) {
		logger.Info("no previous manifest in bucket", "key", key)
		return nil, nil
	}

	local := filepath.Join(scratchDir, key)
	if err := store.Download(ctx, key, local); err != nil {
		return nil, fmt.Errorf("fetch previous manifest: %w", err)
	}
	records, err := LoadFile(local)
	if err != nil {
		return nil, fmt.Errorf("previous manifest %s: %w", key, err)
	}

	logger.Info("loaded previous manifest", "key", key, "records", len(records))
	return records, nil
}

// IDSet collects the ids of records into a set.
func IDSet(records []Record) map[string]struct{} {
	ids := make(map[string]struct{}, len(records))
	for _, r := range records {
		ids[r.RecordID()] = struct{}{}
	}
	return ids
}
