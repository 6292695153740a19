// Package reconcile drives one manifest generation pass. It diffs the
// bucket listing against the previously published manifest, validates the
// builds behind newly found objects, merges carried-over and fresh
// records, enriches graph packages with summary statistics, and re-checks
// that every catalogued object still exists.
//
// Carried-over records pass through unchanged apart from the obsolete
// flag and late-arriving statistics; new records always append after
// them, so successive manifests stay diffable.
package reconcile
