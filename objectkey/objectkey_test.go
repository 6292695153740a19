package objectkey

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Key
	}{
		{
			name: "top-level build bundle",
			raw:  "kg-idg/20230101/kg-idg.tar.gz",
			want: Key{
				Raw:      "kg-idg/20230101/kg-idg.tar.gz",
				Project:  "kg-idg",
				Build:    "20230101",
				Dir:      "20230101",
				Filename: "kg-idg.tar.gz",
			},
		},
		{
			name: "raw subgraph file",
			raw:  "kg-idg/20230101/raw/drugcentral/nodes.tsv",
			want: Key{
				Raw:      "kg-idg/20230101/raw/drugcentral/nodes.tsv",
				Project:  "kg-idg",
				Build:    "20230101",
				Dir:      "drugcentral",
				Filename: "nodes.tsv",
				Subgraph: "raw",
			},
		},
		{
			name: "transformed subgraph bundle",
			raw:  "kg-covid-19/20230101/transformed/drugbank/drugbank.tar.gz",
			want: Key{
				Raw:             "kg-covid-19/20230101/transformed/drugbank/drugbank.tar.gz",
				Project:         "kg-covid-19",
				Build:           "20230101",
				Dir:             "drugbank",
				Filename:        "drugbank.tar.gz",
				Subgraph:        "transformed",
				TransformSource: "drugbank",
			},
		},
		{
			name: "ontology project layout",
			raw:  "kg-obo/bfo/2019-08-26/bfo_kgx_tsv.tar.gz",
			want: Key{
				Raw:      "kg-obo/bfo/2019-08-26/bfo_kgx_tsv.tar.gz",
				Project:  "kg-obo",
				Build:    "bfo",
				Dir:      "2019-08-26",
				Filename: "bfo_kgx_tsv.tar.gz",
			},
		},
		{
			name: "project index page has no build",
			raw:  "kg-idg/index.html",
			want: Key{
				Raw:      "kg-idg/index.html",
				Project:  "kg-idg",
				Dir:      "kg-idg",
				Filename: "index.html",
			},
		},
		{
			name: "current alias has no build",
			raw:  "kg-idg/current/kg-idg.tar.gz",
			want: Key{
				Raw:      "kg-idg/current/kg-idg.tar.gz",
				Project:  "kg-idg",
				Dir:      "current",
				Filename: "kg-idg.tar.gz",
			},
		},
		{
			name: "single segment",
			raw:  "README",
			want: Key{
				Raw:      "README",
				Project:  "README",
				Filename: "README",
			},
		},
		{
			name: "stats marker",
			raw:  "kg-idg/20230101/stats/index.html",
			want: Key{
				Raw:      "kg-idg/20230101/stats/index.html",
				Project:  "kg-idg",
				Build:    "20230101",
				Dir:      "stats",
				Filename: "index.html",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.raw)
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestKeyIsComponent(t *testing.T) {
	if Parse("kg-idg/20230101/kg-idg.tar.gz").IsComponent() {
		t.Error("top-level build product reported as component")
	}
	if !Parse("kg-idg/20230101/raw/source/nodes.tsv").IsComponent() {
		t.Error("raw subgraph file not reported as component")
	}
	if !Parse("kg-idg/20230101/transformed/source/source.tar.gz").IsComponent() {
		t.Error("transformed subgraph bundle not reported as component")
	}
	// A file named for a subgraph directory is not itself a component.
	if Parse("kg-idg/20230101/raw").IsComponent() {
		t.Error("file named raw should not count as a component")
	}
}

func TestIsReserved(t *testing.T) {
	for _, name := range []string{"index.html", "current", "README"} {
		if !IsReserved(name) {
			t.Errorf("IsReserved(%q) = false, want true", name)
		}
	}
	if IsReserved("20230101") {
		t.Error("IsReserved(20230101) = true, want false")
	}
}
