// Package validate checks project build layouts and the internal
// structure of compressed graph bundles.
//
// A build is judged on three things: its name (an eight-digit date), the
// presence of the required directory markers in the bucket listing, and
// the member count of its compressed bundle. Member naming and deep
// tabular findings are recorded but advisory. Only builds that gained
// newly classified objects are inspected; everything already catalogued
// is left alone.
package validate
