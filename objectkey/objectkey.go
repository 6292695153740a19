// Package objectkey parses slash-delimited bucket object paths into their
// structural parts. Every component that needs to know a key's project,
// build, or subgraph placement goes through Parse rather than slicing the
// path itself, so the segment conventions live in exactly one place.
package objectkey

import "strings"

// Subgraph directory names used to assemble larger graphs. Objects under
// these directories are components of a build, not build products.
const (
	SubgraphRaw         = "raw"
	SubgraphTransformed = "transformed"
)

// Reserved names that can appear in the build-name position but never
// denote a build.
var reservedNames = map[string]bool{
	"index.html": true,
	"current":    true,
	"README":     true,
}

// IsReserved reports whether name is a reserved directory or file name
// rather than a build name.
func IsReserved(name string) bool {
	return reservedNames[name]
}

// IsSubgraphDir reports whether name is one of the subgraph directory names.
func IsSubgraphDir(name string) bool {
	return name == SubgraphRaw || name == SubgraphTransformed
}

// Key is the parsed form of one bucket object path.
type Key struct {
	// Raw is the original object key.
	Raw string

	// Project is the first path segment.
	Project string

	// Build is the second path segment when one exists and is not a
	// reserved name. For the ontology project this position holds the
	// ontology id rather than a dated build.
	Build string

	// Dir is the name of the directory containing the object (the
	// second-to-last segment), empty for objects at the bucket root.
	Dir string

	// Filename is the final path segment.
	Filename string

	// Subgraph is "raw" or "transformed" when any directory segment
	// between the project and the file matches one, empty otherwise.
	Subgraph string

	// TransformSource is the source directory name when the object sits
	// directly under transformed/<source>/, empty otherwise.
	TransformSource string
}

// Parse splits raw into a Key. It never fails: keys with too few segments
// simply leave the corresponding fields empty.
func Parse(raw string) Key {
	segs := strings.Split(raw, "/")
	k := Key{
		Raw:      raw,
		Project:  segs[0],
		Filename: segs[len(segs)-1],
	}
	if len(segs) >= 2 {
		k.Dir = segs[len(segs)-2]
		if !IsReserved(segs[1]) {
			k.Build = segs[1]
		}
		for _, seg := range segs[1 : len(segs)-1] {
			if IsSubgraphDir(seg) {
				k.Subgraph = seg
				break
			}
		}
	}
	if len(segs) >= 3 && segs[len(segs)-3] == SubgraphTransformed {
		k.TransformSource = k.Dir
	}
	return k
}

// IsComponent reports whether the object is a subgraph component (lives
// under a raw/ or transformed/ directory) rather than a build product.
func (k Key) IsComponent() bool {
	return k.Subgraph != ""
}

// HasSuffix reports whether the raw key ends with suffix.
func (k Key) HasSuffix(suffix string) bool {
	return strings.HasSuffix(k.Raw, suffix)
}
