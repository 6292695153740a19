package reconcile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/bucket"
	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/manifest"
	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/metrics"
)

const manifestKey = "MANIFEST.yaml"

// seedBucket fills the store with one complete, valid kg-idg build, one
// ontology bundle, and an ignored directory.
func seedBucket(t *testing.T, store *fakeStore) {
	t.Helper()
	bundle := makeTarGz(t, map[string]string{
		"merged-kg_nodes.tsv": goodNodes,
		"merged-kg_edges.tsv": goodEdges,
	})
	store.put("kg-idg/20230101/raw/index.html", []byte("<html/>"))
	store.put("kg-idg/20230101/stats/index.html", []byte("<html/>"))
	store.put("kg-idg/20230101/transformed/index.html", []byte("<html/>"))
	store.put("kg-idg/20230101/kg-idg.tar.gz", bundle)
	store.put("kg-idg/20230101/merged-kg_nodes.tsv", []byte(goodNodes))
	store.put("kg-idg/20230101/merged-kg_edges.tsv", []byte(goodEdges))
	store.put("kg-idg/20230101/stats/merged_graph_stats.yaml", []byte(statsDoc))
	store.put("kg-obo/bfo/2023-01-13/bfo_kgx_tsv.tar.gz", bundle)
	store.put("attic/2019/old-dump.tar.gz", []byte("junk"))
}

// seedSecondBuild adds a later valid kg-idg build.
func seedSecondBuild(t *testing.T, store *fakeStore) {
	t.Helper()
	bundle := makeTarGz(t, map[string]string{
		"merged-kg_nodes.tsv": goodNodes,
		"merged-kg_edges.tsv": goodEdges,
	})
	store.put("kg-idg/20230102/raw/index.html", []byte("<html/>"))
	store.put("kg-idg/20230102/stats/index.html", []byte("<html/>"))
	store.put("kg-idg/20230102/transformed/index.html", []byte("<html/>"))
	store.put("kg-idg/20230102/kg-idg.tar.gz", bundle)
	store.put("kg-idg/20230102/merged-kg_nodes.tsv", []byte(goodNodes))
	store.put("kg-idg/20230102/merged-kg_edges.tsv", []byte(goodEdges))
	store.put("kg-idg/20230102/stats/merged_graph_stats.yaml", []byte(statsDoc))
}

func writeManifest(t *testing.T, res *Result, header string) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, manifest.Write(path, header, res.Records))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestRunFirstPass(t *testing.T) {
	cfg := testConfig(t)
	store := newFakeStore()
	seedBucket(t, store)

	runner := NewRunner(store, cfg, testRegistry(), testLogger()).
		WithMetrics(metrics.New(cfg.Metrics.Job))
	res, err := runner.Run(context.Background(), manifestKey, 0)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Previous)
	assert.Equal(t, 4, res.New)
	assert.Equal(t, 0, res.Obsolete)
	require.Len(t, res.Records, 4)

	idg, ok := res.Records[0].(*manifest.GraphDataPackage)
	require.True(t, ok)
	assert.Equal(t, cfg.Manifest.URLBase+"kg-idg/20230101/kg-idg.tar.gz", idg.ID)
	assert.Equal(t, "20230101", idg.Version)
	assert.Equal(t, cfg.Manifest.ConformsTo, idg.ConformsTo)
	require.NotNil(t, idg.EdgeCount)
	assert.Equal(t, 1200, *idg.EdgeCount)
	assert.Equal(t, "biolink:interacts_with|biolink:related_to", idg.Predicates)

	bfo, ok := res.Records[1].(*manifest.GraphDataPackage)
	require.True(t, ok)
	assert.Equal(t, "BFO. The upper level ontology upon which OBO Foundry ontologies are built.", bfo.Description)
	assert.Empty(t, bfo.ConformsTo, "ontology builds are not layout-validated")
	assert.Nil(t, bfo.EdgeCount)

	nodes, ok := res.Records[2].(*manifest.DataResource)
	require.True(t, ok)
	assert.Equal(t, "merged-kg_nodes.tsv", nodes.Title)
	assert.Equal(t, cfg.Manifest.ConformsTo, nodes.ConformsTo)

	for _, rec := range res.Records {
		assert.NotContains(t, rec.RecordID(), "attic")
	}

	require.Contains(t, res.Reports, "kg-idg")
	assert.Equal(t, []string{"20230101"}, res.Reports["kg-idg"].ValidBuilds)
	assert.NotContains(t, res.Reports, "kg-obo")
}

func TestRunIdempotent(t *testing.T) {
	cfg := testConfig(t)
	store := newFakeStore()
	seedBucket(t, store)
	runner := NewRunner(store, cfg, testRegistry(), testLogger())

	res1, err := runner.Run(context.Background(), manifestKey, 0)
	require.NoError(t, err)
	data1 := writeManifest(t, res1, cfg.Manifest.Header)
	store.put(manifestKey, data1)

	res2, err := runner.Run(context.Background(), manifestKey, 0)
	require.NoError(t, err)

	assert.Equal(t, len(res1.Records), res2.Previous)
	assert.Equal(t, 0, res2.New)
	data2 := writeManifest(t, res2, cfg.Manifest.Header)
	assert.Equal(t, string(data1), string(data2), "a pass over an unchanged bucket must rewrite the manifest verbatim")
}

func TestRunSecondPassAppendsNewBuild(t *testing.T) {
	cfg := testConfig(t)
	store := newFakeStore()
	seedBucket(t, store)
	runner := NewRunner(store, cfg, testRegistry(), testLogger())

	res1, err := runner.Run(context.Background(), manifestKey, 0)
	require.NoError(t, err)
	store.put(manifestKey, writeManifest(t, res1, cfg.Manifest.Header))
	seedSecondBuild(t, store)

	res2, err := runner.Run(context.Background(), manifestKey, 0)
	require.NoError(t, err)

	assert.Equal(t, 4, res2.Previous)
	assert.Equal(t, 3, res2.New)
	require.Len(t, res2.Records, 7)

	// Carried records keep their position and contents.
	for i, rec := range res1.Records {
		assert.Equal(t, rec.RecordID(), res2.Records[i].RecordID())
	}
	carried := res2.Records[0].(*manifest.GraphDataPackage)
	assert.Equal(t, cfg.Manifest.ConformsTo, carried.ConformsTo)
	require.NotNil(t, carried.EdgeCount)
	assert.Equal(t, 1200, *carried.EdgeCount)

	// Only the build with new objects is validated this pass.
	assert.Equal(t, []string{"20230102"}, res2.Reports["kg-idg"].ValidBuilds)

	fresh := res2.Records[4].(*manifest.GraphDataPackage)
	assert.Equal(t, "20230102", fresh.Version)
	assert.Equal(t, cfg.Manifest.ConformsTo, fresh.ConformsTo)
	require.NotNil(t, fresh.EdgeCount)

	ids := manifest.IDSet(res2.Records)
	assert.Len(t, ids, len(res2.Records), "record ids must stay unique")
}

func TestRunDeletedObjectMarkedObsolete(t *testing.T) {
	cfg := testConfig(t)
	store := newFakeStore()
	seedBucket(t, store)
	runner := NewRunner(store, cfg, testRegistry(), testLogger())

	res1, err := runner.Run(context.Background(), manifestKey, 0)
	require.NoError(t, err)
	store.put(manifestKey, writeManifest(t, res1, cfg.Manifest.Header))

	deleted := "kg-idg/20230101/merged-kg_edges.tsv"
	store.remove(deleted)

	res2, err := runner.Run(context.Background(), manifestKey, 0)
	require.NoError(t, err)

	assert.Equal(t, 0, res2.New)
	assert.Equal(t, 1, res2.Obsolete)
	require.Len(t, res2.Records, len(res1.Records))
	for _, rec := range res2.Records {
		if rec.RecordID() == cfg.Manifest.URLBase+deleted {
			assert.True(t, rec.IsObsolete(), "record for the deleted object must be obsolete")
		} else {
			assert.False(t, rec.IsObsolete(), "%s must be untouched", rec.RecordID())
		}
	}

	// The deleted object's record still carries everything else it had.
	carried := res2.Records[0].(*manifest.GraphDataPackage)
	assert.Equal(t, cfg.Manifest.ConformsTo, carried.ConformsTo)
}

func TestRunCredentialFailureAborts(t *testing.T) {
	cfg := testConfig(t)
	store := newFakeStore()
	store.listErr = fmt.Errorf("list objects: %w", bucket.ErrCredentials)

	runner := NewRunner(store, cfg, nil, testLogger())
	_, err := runner.Run(context.Background(), manifestKey, 0)
	require.ErrorIs(t, err, bucket.ErrCredentials)
}

func TestRunCapLimitsNewRecords(t *testing.T) {
	cfg := testConfig(t)
	store := newFakeStore()
	seedBucket(t, store)

	runner := NewRunner(store, cfg, testRegistry(), testLogger())
	res, err := runner.Run(context.Background(), manifestKey, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, res.New)
	require.Len(t, res.Records, 2)
	for _, rec := range res.Records {
		pkg, ok := rec.(*manifest.GraphDataPackage)
		require.True(t, ok, "compressed keys fill the cap first")
		assert.Equal(t, manifest.TarGz, pkg.Compression)
	}
}
