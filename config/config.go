// Package config provides configuration loading and management for the
// manifest generator.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete manifest generator configuration.
type Config struct {
	Bucket     BucketConfig     `yaml:"bucket"`
	Projects   ProjectsConfig   `yaml:"projects"`
	Manifest   ManifestConfig   `yaml:"manifest"`
	Registry   RegistryConfig   `yaml:"registry"`
	Validation ValidationConfig `yaml:"validation"`
	Paths      PathsConfig      `yaml:"paths"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// BucketConfig configures the object storage connection.
type BucketConfig struct {
	// Endpoint is the S3-compatible endpoint host (default: s3.amazonaws.com)
	Endpoint string `yaml:"endpoint"`
	// Region overrides the region taken from the AWS environment
	Region string `yaml:"region"`
	// UseSSL toggles TLS for the storage endpoint
	UseSSL bool `yaml:"use_ssl"`
}

// ProjectsConfig describes the projects hosted in the bucket.
type ProjectsConfig struct {
	// Tracked maps project names to their descriptions. Untracked projects
	// are still indexed but get no version or description in the manifest.
	Tracked map[string]string `yaml:"tracked"`
	// OntologyProject is the project whose artifacts derive from upstream
	// ontologies. It is exempt from build structure validation and its
	// packages are cross-referenced against the ontology registry.
	OntologyProject string `yaml:"ontology_project"`
	// IgnoreDirs lists top-level directory patterns whose contents are
	// never catalogued. Patterns use glob syntax; plain names match exactly.
	IgnoreDirs []string `yaml:"ignore_dirs"`
}

// ManifestConfig controls the written manifest document.
type ManifestConfig struct {
	// URLBase is prefixed to object keys to form record ids. Must end
	// with a slash.
	URLBase string `yaml:"url_base"`
	// Header is the comment line written at the top of the manifest.
	Header string `yaml:"header"`
	// ConformsTo is the format URL assigned to records of valid builds.
	ConformsTo string `yaml:"conforms_to"`
	// Resources lists the member file names expected inside a graph bundle.
	Resources []string `yaml:"resources"`
}

// RegistryConfig configures the ontology registry fetch.
type RegistryConfig struct {
	// URL is the registry document location.
	URL string `yaml:"url"`
	// CachePath is the local file the filtered registry is cached to.
	CachePath string `yaml:"cache_path"`
	// Skip lists ontology ids to exclude. Takes precedence over Only.
	Skip []string `yaml:"skip"`
	// Only restricts the registry to the listed ontology ids.
	Only []string `yaml:"only"`
	// TimeoutSeconds bounds the registry HTTP fetch.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// ValidationConfig controls build and bundle validation.
type ValidationConfig struct {
	// RequiredDirs are the subdirectories every build must mark with an
	// index object.
	RequiredDirs []string `yaml:"required_dirs"`
	// Deny lists projects whose bundles skip deep tabular validation.
	Deny []string `yaml:"deny"`
	// Workers bounds concurrent per-build validations. 1 keeps the run
	// fully sequential.
	Workers int `yaml:"workers"`
}

// PathsConfig locates local working directories.
type PathsConfig struct {
	// ScratchDir holds bundle downloads. Cleared at run start.
	ScratchDir string `yaml:"scratch_dir"`
	// LogDir holds the run log and per-bundle validation findings.
	LogDir string `yaml:"log_dir"`
}

// MetricsConfig configures the optional push of run metrics.
type MetricsConfig struct {
	// Gateway is the pushgateway base URL. Empty disables the push.
	Gateway string `yaml:"gateway"`
	// Job is the job label used for pushed metrics.
	Job string `yaml:"job"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Bucket: BucketConfig{
			Endpoint: "s3.amazonaws.com",
			UseSSL:   true,
		},
		Projects: ProjectsConfig{
			Tracked: map[string]string{
				"kg-obo":      "KG-OBO: OBO ontologies into KGX TSV format.",
				"kg-idg":      "KG-IDG: a Knowledge Graph for Illuminating the Druggable Genome.",
				"kg-covid-19": "KG-COVID-19: a knowledge graph for COVID-19 and SARS-COV-2.",
				"kg-microbe":  "KG-Microbe: a knowledge graph for microbial traits.",
				"eco-kg":      "eco-KG: a knowledge graph of plant traits starting with Planteome and EOL TraitBank.",
				"monarch":     "Graph representation of the Monarch Initiative knowledge resource.",
			},
			OntologyProject: "kg-obo",
			IgnoreDirs: []string{
				"attic",
				"frozen_incoming_data",
				"embeddings",
				"kg-covid-19-sparql",
				"ontoml",
				"test",
			},
		},
		Manifest: ManifestConfig{
			URLBase:    "https://kg-hub.berkeleybop.io/",
			Header:     "# Manifest for KG-Hub graphs",
			ConformsTo: "https://github.com/biolink/kgx/blob/master/specification/kgx-format.md",
			Resources: []string{
				"merged-kg_nodes.tsv",
				"merged-kg_edges.tsv",
			},
		},
		Registry: RegistryConfig{
			URL:            "https://raw.githubusercontent.com/OBOFoundry/OBOFoundry.github.io/master/registry/ontologies.yml",
			CachePath:      "ontologies.yaml",
			TimeoutSeconds: 60,
		},
		Validation: ValidationConfig{
			RequiredDirs: []string{"raw", "stats", "transformed"},
			Deny:         []string{"monarch"},
			Workers:      1,
		},
		Paths: PathsConfig{
			ScratchDir: "scratch",
			LogDir:     "logs",
		},
		Metrics: MetricsConfig{
			Job: "kg-manifest",
		},
	}
}

// Timeout returns the registry fetch timeout as a duration.
func (r RegistryConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// IsTracked reports whether project has a registered description.
func (c *Config) IsTracked(project string) bool {
	_, ok := c.Projects.Tracked[project]
	return ok
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Bucket.Endpoint == "" {
		return fmt.Errorf("bucket.endpoint is required")
	}
	if c.Manifest.URLBase == "" {
		return fmt.Errorf("manifest.url_base is required")
	}
	if !strings.HasSuffix(c.Manifest.URLBase, "/") {
		return fmt.Errorf("manifest.url_base must end with a slash")
	}
	if len(c.Manifest.Resources) == 0 {
		return fmt.Errorf("manifest.resources must list the expected bundle members")
	}
	if c.Registry.URL == "" {
		return fmt.Errorf("registry.url is required")
	}
	if c.Registry.TimeoutSeconds <= 0 {
		return fmt.Errorf("registry.timeout_seconds must be positive")
	}
	if c.Validation.Workers < 1 {
		return fmt.Errorf("validation.workers must be at least 1")
	}
	if c.Paths.ScratchDir == "" {
		return fmt.Errorf("paths.scratch_dir is required")
	}
	if c.Paths.LogDir == "" {
		return fmt.Errorf("paths.log_dir is required")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for
// non-zero values).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Bucket
	if other.Bucket.Endpoint != "" {
		c.Bucket.Endpoint = other.Bucket.Endpoint
	}
	if other.Bucket.Region != "" {
		c.Bucket.Region = other.Bucket.Region
	}
	c.Bucket.UseSSL = other.Bucket.UseSSL

	// Projects
	if len(other.Projects.Tracked) > 0 {
		c.Projects.Tracked = other.Projects.Tracked
	}
	if other.Projects.OntologyProject != "" {
		c.Projects.OntologyProject = other.Projects.OntologyProject
	}
	if len(other.Projects.IgnoreDirs) > 0 {
		c.Projects.IgnoreDirs = other.Projects.IgnoreDirs
	}

	// Manifest
	if other.Manifest.URLBase != "" {
		c.Manifest.URLBase = other.Manifest.URLBase
	}
	if other.Manifest.Header != "" {
		c.Manifest.Header = other.Manifest.Header
	}
	if other.Manifest.ConformsTo != "" {
		c.Manifest.ConformsTo = other.Manifest.ConformsTo
	}
	if len(other.Manifest.Resources) > 0 {
		c.Manifest.Resources = other.Manifest.Resources
	}

	// Registry
	if other.Registry.URL != "" {
		c.Registry.URL = other.Registry.URL
	}
	if other.Registry.CachePath != "" {
		c.Registry.CachePath = other.Registry.CachePath
	}
	if len(other.Registry.Skip) > 0 {
		c.Registry.Skip = other.Registry.Skip
	}
	if len(other.Registry.Only) > 0 {
		c.Registry.Only = other.Registry.Only
	}
	if other.Registry.TimeoutSeconds != 0 {
		c.Registry.TimeoutSeconds = other.Registry.TimeoutSeconds
	}

	// Validation
	if len(other.Validation.RequiredDirs) > 0 {
		c.Validation.RequiredDirs = other.Validation.RequiredDirs
	}
	if len(other.Validation.Deny) > 0 {
		c.Validation.Deny = other.Validation.Deny
	}
	if other.Validation.Workers != 0 {
		c.Validation.Workers = other.Validation.Workers
	}

	// Paths
	if other.Paths.ScratchDir != "" {
		c.Paths.ScratchDir = other.Paths.ScratchDir
	}
	if other.Paths.LogDir != "" {
		c.Paths.LogDir = other.Paths.LogDir
	}

	// Metrics
	if other.Metrics.Gateway != "" {
		c.Metrics.Gateway = other.Metrics.Gateway
	}
	if other.Metrics.Job != "" {
		c.Metrics.Job = other.Metrics.Job
	}
}
