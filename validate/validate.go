package validate

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/bucket"
	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/config"
	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/kgx"
	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/metrics"
	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/objectkey"
)

// Report collects what one run saw under a single project. Builds land in
// more than one failure list when they fail more than one check.
type Report struct {
	Project               string
	Objects               []string
	Builds                []string
	ValidBuilds           []string
	IncorrectlyNamed      []string
	IncorrectlyStructured []string
	BadTarGz              []string
}

// HasValidBuild reports whether build passed validation this run.
func (r *Report) HasValidBuild(build string) bool {
	return slices.Contains(r.ValidBuilds, build)
}

// BundleResult carries the outcome of one bundle inspection. Every flag
// starts false and is set only when its check passes, so an inspection cut
// short by an earlier failure leaves the later flags unset.
type BundleResult struct {
	FileCountOK        bool
	FileNamesOK        bool
	NoValidationErrors bool
	Members            []string
}

// ProjectValidator validates tracked project builds against the expected
// bucket layout.
type ProjectValidator struct {
	store   bucket.Store
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Run
}

// NewProjectValidator returns a validator over the given store.
func NewProjectValidator(store bucket.Store, cfg *config.Config, logger *slog.Logger) *ProjectValidator {
	return &ProjectValidator{store: store, cfg: cfg, logger: logger}
}

// WithMetrics attaches run metrics to the validator.
func (v *ProjectValidator) WithMetrics(m *metrics.Run) *ProjectValidator {
	v.metrics = m
	return v
}

// Projects validates every tracked project build that gained at least one
// newly classified key. Builds already catalogued in earlier runs carry no
// new keys and are never re-validated. The ontology project is exempt; its
// builds are validated upstream.
func (v *ProjectValidator) Projects(ctx context.Context, keys, newKeys []string) (map[string]*Report, error) {
	keySet := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		keySet[k] = struct{}{}
	}

	reports := make(map[string]*Report)
	for project := range v.cfg.Projects.Tracked {
		if project == v.cfg.Projects.OntologyProject {
			continue
		}
		reports[project] = &Report{Project: project}
	}

	for _, raw := range keys {
		k := objectkey.Parse(raw)
		r, ok := reports[k.Project]
		if !ok {
			continue
		}
		r.Objects = append(r.Objects, raw)
		if k.Build != "" && !slices.Contains(r.Builds, k.Build) {
			r.Builds = append(r.Builds, k.Build)
		}
	}

	// Candidate builds and, for each, the first newly listed top-level
	// bundle. Subgraph components never stand in for the build product.
	candidates := make(map[string]map[string]string)
	for _, raw := range newKeys {
		k := objectkey.Parse(raw)
		if _, tracked := reports[k.Project]; !tracked || k.Build == "" {
			continue
		}
		builds := candidates[k.Project]
		if builds == nil {
			builds = make(map[string]string)
			candidates[k.Project] = builds
		}
		if _, seen := builds[k.Build]; !seen {
			builds[k.Build] = ""
		}
		if builds[k.Build] == "" && k.HasSuffix(".tar.gz") && !k.IsComponent() {
			builds[k.Build] = raw
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(v.cfg.Validation.Workers)
	var mu sync.Mutex

	for project, builds := range candidates {
		report := reports[project]
		for build, bundleKey := range builds {
			g.Go(func() error {
				return v.validateBuild(ctx, report, &mu, build, bundleKey, keySet)
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, r := range reports {
		slices.Sort(r.ValidBuilds)
		slices.Sort(r.IncorrectlyNamed)
		slices.Sort(r.IncorrectlyStructured)
		slices.Sort(r.BadTarGz)
	}
	v.logReports(reports)
	return reports, nil
}

func (v *ProjectValidator) validateBuild(ctx context.Context, r *Report, mu *sync.Mutex, build, bundleKey string, keySet map[string]struct{}) error {
	logger := v.logger.With("project", r.Project, "build", build)

	nameOK := validBuildName(build)
	if !nameOK {
		logger.Warn("build name is not an eight-digit date")
		mu.Lock()
		r.IncorrectlyNamed = append(r.IncorrectlyNamed, build)
		mu.Unlock()
	}

	structureOK := true
	for _, dir := range v.cfg.Validation.RequiredDirs {
		marker := fmt.Sprintf("%s/%s/%s/index.html", r.Project, build, dir)
		if _, ok := keySet[marker]; !ok {
			structureOK = false
			logger.Warn("missing directory marker", "marker", marker)
		}
	}
	if !structureOK {
		mu.Lock()
		r.IncorrectlyStructured = append(r.IncorrectlyStructured, build)
		mu.Unlock()
	}

	if bundleKey == "" {
		logger.Warn("no compressed graph among the new objects for this build")
		return nil
	}

	result, err := v.Bundle(ctx, bundleKey)
	if err != nil {
		if errors.Is(err, bucket.ErrCredentials) {
			return err
		}
		logger.Error("bundle inspection failed", "key", bundleKey, "error", err)
		mu.Lock()
		r.BadTarGz = append(r.BadTarGz, build)
		mu.Unlock()
		return nil
	}
	if !result.FileCountOK || !result.FileNamesOK {
		mu.Lock()
		r.BadTarGz = append(r.BadTarGz, build)
		mu.Unlock()
	}

	// Member naming and deep validation findings are advisory; only the
	// name, layout, and member count checks decide validity.
	if nameOK && structureOK && result.FileCountOK {
		mu.Lock()
		r.ValidBuilds = append(r.ValidBuilds, build)
		mu.Unlock()
	}
	return nil
}

// Bundle downloads a compressed bundle and inspects its member list,
// running deep tabular validation unless the project opted out. Scratch
// space is removed on every path out.
func (v *ProjectValidator) Bundle(ctx context.Context, key string) (BundleResult, error) {
	var result BundleResult
	k := objectkey.Parse(key)

	scratch := filepath.Join(v.cfg.Paths.ScratchDir, uuid.NewString())
	if err := os.MkdirAll(scratch, 0755); err != nil {
		return result, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	local := filepath.Join(scratch, k.Filename)
	if err := v.store.Download(ctx, key, local); err != nil {
		return result, err
	}
	v.metrics.BundleChecked()

	members, err := extractArchive(local, scratch)
	if err != nil {
		return result, fmt.Errorf("read archive %s: %w", key, err)
	}
	result.Members = members

	logger := v.logger.With("project", k.Project, "build", k.Build, "bundle", k.Filename)

	if len(members) > 2 {
		logger.Warn("bundle has too many members", "members", len(members))
		return result, nil
	}
	result.FileCountOK = true

	expected := slices.Clone(v.cfg.Manifest.Resources)
	slices.Sort(expected)
	got := slices.Clone(members)
	slices.Sort(got)
	if slices.Equal(got, expected) {
		result.FileNamesOK = true
	} else {
		logger.Warn("bundle member names differ from the expected pair", "members", members)
	}

	if slices.Contains(v.cfg.Validation.Deny, k.Project) {
		logger.Info("deep validation skipped by policy")
		result.NoValidationErrors = true
		return result, nil
	}

	nodesPath, edgesPath := memberPaths(scratch, members)
	if nodesPath == "" || edgesPath == "" {
		logger.Warn("bundle lacks a node and edge list, skipping deep validation")
		return result, nil
	}

	findings, err := v.deepValidate(nodesPath, edgesPath)
	if err != nil {
		logger.Error("deep validation failed", "error", err)
		return result, nil
	}
	if len(findings) > 0 {
		logger.Warn("deep validation reported problems", "findings", len(findings))
		if logErr := v.writeFindings(k, findings); logErr != nil {
			logger.Error("could not persist validation findings", "error", logErr)
		}
		return result, nil
	}
	result.NoValidationErrors = true
	return result, nil
}

// deepValidate shields the run from validator crashes. A panic comes back
// as an error and costs this bundle its clean bill only.
func (v *ProjectValidator) deepValidate(nodesPath, edgesPath string) (findings []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("validator panic: %v", r)
		}
	}()
	return kgx.ValidateFiles(nodesPath, edgesPath)
}

func (v *ProjectValidator) writeFindings(k objectkey.Key, findings []string) error {
	dir := filepath.Join(v.cfg.Paths.LogDir, "validation")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	name := fmt.Sprintf("%s_%s.log", k.Project, k.Build)
	return os.WriteFile(filepath.Join(dir, name), []byte(strings.Join(findings, "\n")+"\n"), 0644)
}

func (v *ProjectValidator) logReports(reports map[string]*Report) {
	for _, name := range slices.Sorted(maps.Keys(reports)) {
		r := reports[name]
		v.logger.Info("project contents",
			"project", name,
			"objects", len(r.Objects),
			"builds", len(r.Builds),
			"valid_builds", len(r.ValidBuilds))
		if len(r.IncorrectlyNamed) > 0 {
			v.logger.Warn("incorrectly named builds", "project", name, "builds", r.IncorrectlyNamed)
		}
		if len(r.IncorrectlyStructured) > 0 {
			v.logger.Warn("incorrectly structured builds", "project", name, "builds", r.IncorrectlyStructured)
		}
		if len(r.BadTarGz) > 0 {
			v.logger.Warn("builds with issues in tar.gz", "project", name, "builds", r.BadTarGz)
		}
	}
}

// validBuildName reports whether name is an eight-digit date.
func validBuildName(name string) bool {
	if len(name) != 8 {
		return false
	}
	_, err := time.Parse("20060102", name)
	return err == nil
}

// extractArchive lists every regular member of a tar.gz archive and
// unpacks the tabular ones next to it for deep validation.
func extractArchive(archivePath, dir string) ([]string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	var members []string
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name := path.Clean(hdr.Name)
		if name == "." || strings.HasPrefix(name, "..") || strings.HasPrefix(name, "/") {
			continue
		}
		members = append(members, name)

		if !strings.HasSuffix(name, "nodes.tsv") && !strings.HasSuffix(name, "edges.tsv") {
			continue
		}
		target := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return nil, err
		}
		out, err := os.Create(target)
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(out, tr); err != nil {
			out.Close()
			return nil, err
		}
		out.Close()
	}
	return members, nil
}

func memberPaths(dir string, members []string) (nodesPath, edgesPath string) {
	for _, m := range members {
		p := filepath.Join(dir, filepath.FromSlash(m))
		switch {
		case strings.HasSuffix(m, "nodes.tsv"):
			nodesPath = p
		case strings.HasSuffix(m, "edges.tsv"):
			edgesPath = p
		}
	}
	return nodesPath, edgesPath
}
