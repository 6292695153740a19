package reconcile

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/config"
	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/manifest"
	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/objectkey"
	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/obofoundry"
	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/validate"
)

// BuildRecords merges the carried-over records with fresh ones for the
// newly classified keys. Previous records keep their position and
// contents; new records append after them, compressed bundles first.
func BuildRecords(previous []manifest.Record, classified Classified, registry *obofoundry.Registry, reports map[string]*validate.Report, cfg *config.Config, logger *slog.Logger) []manifest.Record {
	records := make([]manifest.Record, 0, len(previous)+classified.Total())
	records = append(records, previous...)

	for _, key := range classified.Compressed {
		records = append(records, newPackage(key, registry, reports, cfg))
	}
	for _, key := range classified.Uncompressed {
		records = append(records, newResource(key, reports, cfg))
	}

	logger.Info("assembled manifest records",
		"carried", len(previous),
		"new", classified.Total())
	return records
}

func newPackage(key string, registry *obofoundry.Registry, reports map[string]*validate.Report, cfg *config.Config) *manifest.GraphDataPackage {
	k := objectkey.Parse(key)
	pkg := &manifest.GraphDataPackage{
		DataResource: manifest.DataResource{
			ID:    cfg.Manifest.URLBase + key,
			Title: k.Filename,
		},
		Compression: manifest.TarGz,
		Resources:   slices.Clone(cfg.Manifest.Resources),
	}

	// Only top-level products of tracked projects are versioned. For the
	// ontology project the parent directory is the dated per-ontology
	// build, so this covers both layouts.
	if cfg.IsTracked(k.Project) && !k.IsComponent() {
		pkg.Version = k.Dir
		pkg.Description = cfg.Projects.Tracked[k.Project]
	}

	if k.Project == cfg.Projects.OntologyProject && registry != nil {
		if onto, ok := registry.Lookup(k.Build); ok {
			pkg.Description = fmt.Sprintf("%s. %s", strings.ToUpper(onto.ID), onto.Description)
			pkg.WasDerivedFrom = onto.OntologyPURL
			if onto.License.Label != "" {
				pkg.License = onto.License.Label
			}
			if onto.Contact.Label != "" && onto.Contact.Email != "" {
				pkg.Publisher = fmt.Sprintf("%s (%s)", onto.Contact.Label, onto.Contact.Email)
			}
		}
	}

	applyProvenance(&pkg.DataResource, k)
	applyConformance(&pkg.DataResource, k, reports, cfg)
	return pkg
}

func newResource(key string, reports map[string]*validate.Report, cfg *config.Config) *manifest.DataResource {
	k := objectkey.Parse(key)
	res := &manifest.DataResource{
		ID:    cfg.Manifest.URLBase + key,
		Title: k.Filename,
	}
	applyProvenance(res, k)
	applyConformance(res, k, reports, cfg)
	return res
}

// applyProvenance records the upstream source for transform outputs.
func applyProvenance(r *manifest.DataResource, k objectkey.Key) {
	if k.TransformSource != "" {
		r.WasDerivedFrom = k.TransformSource
	}
}

// applyConformance stamps the exchange format URL onto records whose
// build passed validation this pass.
func applyConformance(r *manifest.DataResource, k objectkey.Key, reports map[string]*validate.Report, cfg *config.Config) {
	report := reports[k.Project]
	if report != nil && k.Build != "" && report.HasValidBuild(k.Build) {
		r.ConformsTo = cfg.Manifest.ConformsTo
	}
}
