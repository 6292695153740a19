// Package metrics records counters for one reconciliation run and
// optionally pushes them to a Prometheus pushgateway.
package metrics

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "kg_manifest"

// Label values for classified keys.
const (
	KindCompressed   = "compressed"
	KindUncompressed = "uncompressed"
)

// Label values for validated builds.
const (
	OutcomeValid                 = "valid"
	OutcomeIncorrectlyNamed      = "incorrectly_named"
	OutcomeIncorrectlyStructured = "incorrectly_structured"
	OutcomeBadTarGz              = "bad_tar_gz"
)

// Run holds the metrics of a single reconciliation run on a private
// registry, so repeated runs in one process never collide. All methods are
// safe on a nil receiver, which stands for metrics being disabled.
type Run struct {
	registry *prometheus.Registry
	started  time.Time
	job      string

	objectsListed   prometheus.Gauge
	keysClassified  *prometheus.GaugeVec
	buildsValidated *prometheus.GaugeVec
	bundlesChecked  prometheus.Gauge
	recordsWritten  prometheus.Gauge
	obsoleteRecords prometheus.Gauge
	runDuration     prometheus.Gauge
}

// New returns a Run with every metric registered.
func New(job string) *Run {
	r := &Run{
		registry: prometheus.NewRegistry(),
		started:  time.Now(),
		job:      job,
		objectsListed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "objects_listed",
			Help:      "Objects found in the bucket listing.",
		}),
		keysClassified: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "keys_classified",
			Help:      "Newly classified graph file keys by kind.",
		}, []string{"kind"}),
		buildsValidated: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "builds_validated",
			Help:      "Validated builds by outcome.",
		}, []string{"outcome"}),
		bundlesChecked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bundles_checked",
			Help:      "Compressed bundles downloaded and inspected.",
		}),
		recordsWritten: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records_written",
			Help:      "Records in the written manifest.",
		}),
		obsoleteRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "obsolete_records",
			Help:      "Records whose backing object is gone.",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of the run.",
		}),
	}
	r.registry.MustRegister(r.objectsListed, r.keysClassified, r.buildsValidated,
		r.bundlesChecked, r.recordsWritten, r.obsoleteRecords, r.runDuration)
	return r
}

// ObjectsListed records the size of the bucket listing.
func (r *Run) ObjectsListed(n int) {
	if r == nil {
		return
	}
	r.objectsListed.Set(float64(n))
}

// KeysClassified records how many new keys landed in the given kind.
func (r *Run) KeysClassified(kind string, n int) {
	if r == nil {
		return
	}
	r.keysClassified.WithLabelValues(kind).Set(float64(n))
}

// BuildOutcome adds n builds to the given validation outcome.
func (r *Run) BuildOutcome(outcome string, n int) {
	if r == nil {
		return
	}
	r.buildsValidated.WithLabelValues(outcome).Add(float64(n))
}

// BundleChecked counts one inspected bundle.
func (r *Run) BundleChecked() {
	if r == nil {
		return
	}
	r.bundlesChecked.Inc()
}

// Records stores the final record count and how many are obsolete.
func (r *Run) Records(written, obsolete int) {
	if r == nil {
		return
	}
	r.recordsWritten.Set(float64(written))
	r.obsoleteRecords.Set(float64(obsolete))
}

// Finish records the elapsed wall-clock time.
func (r *Run) Finish() {
	if r == nil {
		return
	}
	r.runDuration.Set(time.Since(r.started).Seconds())
}

// Push sends the run metrics to a pushgateway, replacing the previous
// values for the same job.
func (r *Run) Push(gateway string) error {
	if r == nil {
		return nil
	}
	return push.New(gateway, r.job).Gatherer(r.registry).Push()
}

// Log writes the gathered values to the logger, one line per metric.
func (r *Run) Log(logger *slog.Logger) {
	if r == nil {
		return
	}
	families, err := r.registry.Gather()
	if err != nil {
		logger.Warn("could not gather run metrics", "error", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			attrs := make([]any, 0, 2*len(m.GetLabel())+2)
			for _, lp := range m.GetLabel() {
				attrs = append(attrs, lp.GetName(), lp.GetValue())
			}
			attrs = append(attrs, "value", m.GetGauge().GetValue())
			logger.Info(mf.GetName(), attrs...)
		}
	}
}
