package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/bucket"
	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/config"
	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/manifest"
	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/metrics"
	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/obofoundry"
	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/validate"
)

// Result carries what one reconciliation pass produced.
type Result struct {
	// Records is the full new manifest, carried-over records first.
	Records []manifest.Record
	// Reports holds the per-project validation outcome.
	Reports map[string]*validate.Report
	// Previous counts the records carried over from the last manifest.
	Previous int
	// New counts the records created this pass.
	New int
	// Obsolete counts the records whose backing object is gone.
	Obsolete int
}

// Runner wires one reconciliation pass together.
type Runner struct {
	store    bucket.Store
	cfg      *config.Config
	registry *obofoundry.Registry
	metrics  *metrics.Run
	logger   *slog.Logger
}

// NewRunner returns a Runner over the given store. The registry may be
// nil, in which case ontology packages get no registry cross-references.
func NewRunner(store bucket.Store, cfg *config.Config, registry *obofoundry.Registry, logger *slog.Logger) *Runner {
	return &Runner{
		store:    store,
		cfg:      cfg,
		registry: registry,
		logger:   logger,
	}
}

// WithMetrics attaches a metrics run. Without one the pass records nothing.
func (r *Runner) WithMetrics(m *metrics.Run) *Runner {
	r.metrics = m
	return r
}

// Run executes one full reconciliation pass: list the bucket, load the
// previous manifest, classify new keys, validate their builds, assemble
// records, enrich them with statistics, and re-check liveness. The
// manifestKey names the previous manifest object inside the bucket;
// maximum above zero caps how many new keys this pass takes on.
func (r *Runner) Run(ctx context.Context, manifestKey string, maximum int) (*Result, error) {
	// Stale downloads from an interrupted pass must not leak in.
	if err := os.RemoveAll(r.cfg.Paths.ScratchDir); err != nil {
		return nil, fmt.Errorf("clear scratch directory: %w", err)
	}
	if err := os.MkdirAll(r.cfg.Paths.ScratchDir, 0755); err != nil {
		return nil, fmt.Errorf("create scratch directory: %w", err)
	}

	keys, err := r.store.ListKeys(ctx)
	if err != nil {
		return nil, err
	}
	r.logger.Info("bucket listing complete", "objects", len(keys))
	r.metrics.ObjectsListed(len(keys))

	previous, err := manifest.Fetch(ctx, r.store, keys, manifestKey, r.cfg.Paths.ScratchDir, r.logger)
	if err != nil {
		return nil, fmt.Errorf("load previous manifest: %w", err)
	}

	classified := Classify(keys, manifest.IDSet(previous), r.cfg, maximum, r.logger)
	r.metrics.KeysClassified(metrics.KindCompressed, len(classified.Compressed))
	r.metrics.KeysClassified(metrics.KindUncompressed, len(classified.Uncompressed))

	validator := validate.NewProjectValidator(r.store, r.cfg, r.logger).WithMetrics(r.metrics)
	reports, err := validator.Projects(ctx, keys, classified.All())
	if err != nil {
		return nil, err
	}
	for _, report := range reports {
		r.metrics.BuildOutcome(metrics.OutcomeValid, len(report.ValidBuilds))
		r.metrics.BuildOutcome(metrics.OutcomeIncorrectlyNamed, len(report.IncorrectlyNamed))
		r.metrics.BuildOutcome(metrics.OutcomeIncorrectlyStructured, len(report.IncorrectlyStructured))
		r.metrics.BuildOutcome(metrics.OutcomeBadTarGz, len(report.BadTarGz))
	}

	records := BuildRecords(previous, classified, r.registry, reports, r.cfg, r.logger)
	EnrichStats(ctx, r.store, records, r.cfg, r.logger)
	obsolete := CheckLiveness(ctx, r.store, records, r.cfg.Manifest.URLBase, r.logger)
	r.metrics.Records(len(records), obsolete)

	return &Result{
		Records:  records,
		Reports:  reports,
		Previous: len(previous),
		New:      classified.Total(),
		Obsolete: obsolete,
	}, nil
}
