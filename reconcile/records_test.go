package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/manifest"
	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/obofoundry"
	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/validate"
)

func testRegistry() *obofoundry.Registry {
	return obofoundry.NewRegistry([]obofoundry.Ontology{
		{
			ID:           "bfo",
			Description:  "The upper level ontology upon which OBO Foundry ontologies are built.",
			OntologyPURL: "http://purl.obolibrary.org/obo/bfo.owl",
			License:      obofoundry.License{Label: "CC-BY 4.0"},
			Contact:      obofoundry.Contact{Label: "Jane Roe", Email: "jane@example.org"},
		},
		{
			ID:          "chebi",
			Description: "Chemical Entities of Biological Interest.",
		},
	})
}

func TestBuildRecordsCarriesPrevious(t *testing.T) {
	cfg := testConfig(t)
	previous := []manifest.Record{
		&manifest.DataResource{ID: cfg.Manifest.URLBase + "kg-idg/20221201/merged-kg_nodes.tsv"},
		packageFor(cfg, "kg-idg/20221201/kg-idg.tar.gz"),
	}

	records := BuildRecords(previous, Classified{}, nil, nil, cfg, testLogger())

	require.Len(t, records, 2)
	assert.Same(t, previous[0], records[0])
	assert.Same(t, previous[1], records[1])
}

func TestBuildRecordsPackageFields(t *testing.T) {
	cfg := testConfig(t)
	classified := Classified{Compressed: []string{"kg-idg/20230101/kg-idg.tar.gz"}}

	records := BuildRecords(nil, classified, nil, nil, cfg, testLogger())

	require.Len(t, records, 1)
	pkg, ok := records[0].(*manifest.GraphDataPackage)
	require.True(t, ok)
	assert.Equal(t, cfg.Manifest.URLBase+"kg-idg/20230101/kg-idg.tar.gz", pkg.ID)
	assert.Equal(t, "kg-idg.tar.gz", pkg.Title)
	assert.Equal(t, manifest.TarGz, pkg.Compression)
	assert.Equal(t, cfg.Manifest.Resources, pkg.Resources)
	assert.Equal(t, "20230101", pkg.Version)
	assert.Equal(t, cfg.Projects.Tracked["kg-idg"], pkg.Description)
	assert.Empty(t, pkg.ConformsTo)
}

func TestBuildRecordsConformsTo(t *testing.T) {
	cfg := testConfig(t)
	classified := Classified{
		Compressed: []string{
			"kg-idg/20230101/kg-idg.tar.gz",
			"kg-idg/20230102/kg-idg.tar.gz",
		},
		Uncompressed: []string{"kg-idg/20230101/merged-kg_nodes.tsv"},
	}
	reports := map[string]*validate.Report{
		"kg-idg": {Project: "kg-idg", ValidBuilds: []string{"20230101"}},
	}

	records := BuildRecords(nil, classified, nil, reports, cfg, testLogger())

	require.Len(t, records, 3)
	valid := records[0].(*manifest.GraphDataPackage)
	invalid := records[1].(*manifest.GraphDataPackage)
	nodes := records[2].(*manifest.DataResource)
	assert.Equal(t, cfg.Manifest.ConformsTo, valid.ConformsTo)
	assert.Empty(t, invalid.ConformsTo)
	assert.Equal(t, cfg.Manifest.ConformsTo, nodes.ConformsTo)
}

func TestBuildRecordsComponents(t *testing.T) {
	cfg := testConfig(t)
	classified := Classified{
		Compressed:   []string{"kg-idg/20230101/transformed/string/string.tar.gz"},
		Uncompressed: []string{"kg-idg/20230101/transformed/string/string_nodes.tsv"},
	}

	records := BuildRecords(nil, classified, nil, nil, cfg, testLogger())

	require.Len(t, records, 2)
	pkg := records[0].(*manifest.GraphDataPackage)
	assert.Empty(t, pkg.Version, "subgraph components carry no version")
	assert.Empty(t, pkg.Description)
	assert.Equal(t, "string", pkg.WasDerivedFrom)

	nodes := records[1].(*manifest.DataResource)
	assert.Equal(t, "string", nodes.WasDerivedFrom)
	assert.Equal(t, "string_nodes.tsv", nodes.Title)
}

func TestBuildRecordsOntologyCrossReference(t *testing.T) {
	cfg := testConfig(t)
	classified := Classified{Compressed: []string{"kg-obo/bfo/2023-01-13/bfo_kgx_tsv.tar.gz"}}

	records := BuildRecords(nil, classified, testRegistry(), nil, cfg, testLogger())

	require.Len(t, records, 1)
	pkg := records[0].(*manifest.GraphDataPackage)
	assert.Equal(t, "BFO. The upper level ontology upon which OBO Foundry ontologies are built.", pkg.Description)
	assert.Equal(t, "http://purl.obolibrary.org/obo/bfo.owl", pkg.WasDerivedFrom)
	assert.Equal(t, "CC-BY 4.0", pkg.License)
	assert.Equal(t, "Jane Roe (jane@example.org)", pkg.Publisher)
	assert.Equal(t, "2023-01-13", pkg.Version, "ontology versions are the dated build directory")
}

func TestBuildRecordsOntologySparseEntry(t *testing.T) {
	cfg := testConfig(t)
	classified := Classified{Compressed: []string{"kg-obo/chebi/2023-02-01/chebi_kgx_tsv.tar.gz"}}

	records := BuildRecords(nil, classified, testRegistry(), nil, cfg, testLogger())

	pkg := records[0].(*manifest.GraphDataPackage)
	assert.Equal(t, "CHEBI. Chemical Entities of Biological Interest.", pkg.Description)
	assert.Empty(t, pkg.License)
	assert.Empty(t, pkg.Publisher)
}

func TestBuildRecordsOntologyUnknownID(t *testing.T) {
	cfg := testConfig(t)
	classified := Classified{Compressed: []string{"kg-obo/mondo/2023-02-01/mondo_kgx_tsv.tar.gz"}}

	records := BuildRecords(nil, classified, testRegistry(), nil, cfg, testLogger())

	pkg := records[0].(*manifest.GraphDataPackage)
	assert.Equal(t, cfg.Projects.Tracked["kg-obo"], pkg.Description,
		"unmatched ontologies keep the project description")
	assert.Empty(t, pkg.WasDerivedFrom)
}

func TestBuildRecordsUntrackedProject(t *testing.T) {
	cfg := testConfig(t)
	classified := Classified{Compressed: []string{"experiments/20230101/exp.tar.gz"}}

	records := BuildRecords(nil, classified, nil, nil, cfg, testLogger())

	pkg := records[0].(*manifest.GraphDataPackage)
	assert.Equal(t, cfg.Manifest.URLBase+"experiments/20230101/exp.tar.gz", pkg.ID)
	assert.Empty(t, pkg.Version)
	assert.Empty(t, pkg.Description)
}
