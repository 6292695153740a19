// Package manifest defines the catalog records describing graph artifacts
// in the KG-Hub bucket, and reads and writes the persisted manifest
// document. Records come in two variants: a plain data resource (one
// node- or edge-list file) and a graph data package (a compressed bundle
// with provenance and summary statistics). The persisted form is a YAML
// list preceded by a fixed comment header; the two variants share one
// document shape and are told apart on load by the presence of a
// compression field.
package manifest

// Kind discriminates the two record variants.
type Kind string

const (
	// KindResource identifies an uncompressed single-file record.
	KindResource Kind = "resource"
	// KindGraphPackage identifies a compressed graph bundle record.
	KindGraphPackage Kind = "graph-package"
)

// TarGz is the only compression format catalogued for graph packages.
const TarGz = "tar.gz"

// Record is one catalog entry of either variant.
type Record interface {
	// Kind reports which variant the record is.
	Kind() Kind
	// RecordID returns the record's id, a resolvable URL. Ids are unique
	// across the whole manifest and stable across manifest generations.
	RecordID() string
	// IsObsolete reports whether the backing object is known to be gone.
	IsObsolete() bool
	// SetObsolete marks or unmarks the record as obsolete.
	SetObsolete(obsolete bool)
}

// DataResource catalogs one uncompressed graph file.
type DataResource struct {
	// ID is the resolvable URL of the object, the record's primary key.
	ID string `yaml:"id"`
	// Title is the object's file name.
	Title string `yaml:"title,omitempty"`
	// ConformsTo is set to the graph exchange format URL when the owning
	// build passed validation.
	ConformsTo string `yaml:"conforms_to,omitempty"`
	// WasDerivedFrom names the upstream source for transform outputs, or
	// the ontology source URL for ontology-derived packages.
	WasDerivedFrom string `yaml:"was_derived_from,omitempty"`
	// Obsolete is true when the backing object vanished from the bucket.
	Obsolete bool `yaml:"obsolete,omitempty"`
}

func (r *DataResource) Kind() Kind                { return KindResource }
func (r *DataResource) RecordID() string          { return r.ID }
func (r *DataResource) IsObsolete() bool          { return r.Obsolete }
func (r *DataResource) SetObsolete(obsolete bool) { r.Obsolete = obsolete }

// GraphDataPackage catalogs one compressed graph bundle. It extends the
// resource field set with provenance, versioning, and graph statistics.
type GraphDataPackage struct {
	DataResource `yaml:",inline"`

	// Description is the project description, or for ontology-derived
	// packages the ontology id and its upstream description.
	Description string `yaml:"description,omitempty"`
	// Compression is always "tar.gz".
	Compression string `yaml:"compression,omitempty"`
	// Resources lists the member files expected inside the bundle.
	Resources []string `yaml:"resources,omitempty"`
	// Version is the build name, set only for top-level build products.
	Version string `yaml:"version,omitempty"`
	// License is the upstream license label, when known.
	License string `yaml:"license,omitempty"`
	// Publisher identifies the upstream contact, when known.
	Publisher string `yaml:"publisher,omitempty"`
	// EdgeCount and NodeCount come from the build's statistics document.
	// Nil means the record was never enriched; zero is a real count.
	EdgeCount *int `yaml:"edge_count,omitempty"`
	NodeCount *int `yaml:"node_count,omitempty"`
	// Predicates, NodeCategories, and NodePrefixes are pipe-joined
	// vocabularies from the statistics document.
	Predicates     string `yaml:"predicates,omitempty"`
	NodeCategories string `yaml:"node_categories,omitempty"`
	NodePrefixes   string `yaml:"node_prefixes,omitempty"`
}

func (p *GraphDataPackage) Kind() Kind { return KindGraphPackage }
