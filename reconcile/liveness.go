package reconcile

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/bucket"
	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/manifest"
)

// CheckLiveness probes the backing object of every record and maintains
// the obsolete flag in both directions: a vanished object marks its record
// obsolete, a restored one clears the mark. Probe failures other than a
// clean not-found leave the previous value untouched. Returns the number
// of records left obsolete.
func CheckLiveness(ctx context.Context, store bucket.Store, records []manifest.Record, urlBase string, logger *slog.Logger) int {
	obsolete := 0
	for _, rec := range records {
		key := strings.TrimPrefix(rec.RecordID(), urlBase)
		exists, err := store.Exists(ctx, key)
		if err != nil {
			logger.Warn("liveness probe failed", "key", key, "error", err)
			if rec.IsObsolete() {
				obsolete++
			}
			continue
		}
		if exists {
			rec.SetObsolete(false)
			continue
		}
		logger.Warn("object no longer present in bucket", "key", key)
		rec.SetObsolete(true)
		obsolete++
	}
	return obsolete
}
