package delta

import (
	"strconv"

	"github.com/SurturFTW/clevertap-cart-abandon/internal/normalize"
	"github.com/SurturFTW/clevertap-cart-abandon/internal/rows"
	logpkg "github.com/SurturFTW/clevertap-cart-abandon/pkg/log"
)

// AggregateViews collapses product-view rows into one record per composite
// key with its view count, keeps keys viewed at least minViews times, and
// drops keys already present in the exclusion rows. Expansion matches
// Compute: every key a row contributes counts one view. The first row seen for a
// key is the representative; its raw row is annotated with the final count
// under the view-count column so the record survives a CSV round trip.
// Output order follows first appearance of each key.
func (c *Computer) AggregateViews(primary, exclusion []rows.Row, minViews int) (Set, Stats) {
	stats := Stats{PrimaryRows: len(primary), ExclusionRows: len(exclusion)}

	excluded := make(map[normalize.Key]struct{}, len(exclusion))
	for _, row := range exclusion {
		for _, k := range c.norm.Keys(row) {
			excluded[k] = struct{}{}
		}
	}
	stats.ExclusionKeys = len(excluded)

	counts := make(map[normalize.Key]int, len(primary))
	first := make(map[normalize.Key]normalize.Record, len(primary))
	var order []normalize.Key
	for _, row := range primary {
		recs, err := c.norm.Records(row)
		if err != nil {
			c.logger.Debug("dropping view row", logpkg.Err(err))
			continue
		}
		stats.PrimaryValid++
		for _, rec := range recs {
			key := rec.Key()
			if _, ok := counts[key]; !ok {
				first[key] = rec
				order = append(order, key)
			}
			counts[key]++
		}
	}

	var out Set
	for _, key := range order {
		if counts[key] < minViews {
			continue
		}
		if _, hit := excluded[key]; hit {
			stats.Excluded++
			continue
		}
		rec := first[key]
		rec.ViewCount = counts[key]
		rec.HasViewCount = true
		rec.Raw = rec.Raw.Clone()
		rec.Raw[normalize.ViewCountField] = strconv.Itoa(counts[key])
		out = append(out, rec)
	}
	stats.Delta = len(out)

	c.logger.Info("view aggregation computed",
		logpkg.Int("view_rows", stats.PrimaryRows),
		logpkg.Int("unique_keys", len(counts)),
		logpkg.Int("min_views", minViews),
		logpkg.Int("excluded", stats.Excluded),
		logpkg.Int("delta", stats.Delta),
	)
	return out, stats
}
