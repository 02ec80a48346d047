// Package delta computes the incremental record set for one pipeline run:
// the primary rows whose identity+product composite key has not been
// confirmed by the exclusion rows (typically charged events).
//
// Guarantees:
//   - a delta record's key is never present in the exclusion key set
//   - no two delta records share a key (first occurrence wins)
//   - primary row order is preserved
//   - O(P+X) over primary/exclusion row counts
package delta
