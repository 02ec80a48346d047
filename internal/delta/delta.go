package delta

import (
	"github.com/SurturFTW/clevertap-cart-abandon/internal/normalize"
	"github.com/SurturFTW/clevertap-cart-abandon/internal/rows"
	logpkg "github.com/SurturFTW/clevertap-cart-abandon/pkg/log"
)

// Set is an ordered, deduplicated sequence of canonical records.
type Set []normalize.Record

// Keys returns the composite keys of the set, in order.
func (s Set) Keys() []normalize.Key {
	out := make([]normalize.Key, len(s))
	for i, rec := range s {
		out[i] = rec.Key()
	}
	return out
}

// Rows returns the originating raw rows of the set, in order.
func (s Set) Rows() []rows.Row {
	out := make([]rows.Row, len(s))
	for i, rec := range s {
		out[i] = rec.Raw
	}
	return out
}

// Stats describes one Compute call for logging.
type Stats struct {
	PrimaryRows   int
	PrimaryValid  int
	ExclusionRows int
	ExclusionKeys int
	Excluded      int
	Deduped       int
	Delta         int
}

// Computer derives delta sets from raw row collections.
type Computer struct {
	norm   *normalize.Normalizer
	logger logpkg.Logger
}

// New returns a Computer normalizing through norm.
func New(norm *normalize.Normalizer, logger logpkg.Logger) *Computer {
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	return &Computer{norm: norm, logger: logger.With(logpkg.Component("delta"))}
}

// Compute returns the ordered, deduplicated primary records whose composite
// key does not appear in the exclusion rows. Nested sub-item expansion runs
// on both sides: each key a primary row contributes is excluded and deduped
// independently. Rows failing normalization are dropped and counted; they
// never abort the run.
func (c *Computer) Compute(primary, exclusion []rows.Row) (Set, Stats) {
	stats := Stats{PrimaryRows: len(primary), ExclusionRows: len(exclusion)}

	excluded := make(map[normalize.Key]struct{}, len(exclusion))
	for _, row := range exclusion {
		for _, k := range c.norm.Keys(row) {
			excluded[k] = struct{}{}
		}
	}
	stats.ExclusionKeys = len(excluded)

	seen := make(map[normalize.Key]struct{}, len(primary))
	var out Set
	for _, row := range primary {
		recs, err := c.norm.Records(row)
		if err != nil {
			c.logger.Debug("dropping primary row", logpkg.Err(err))
			continue
		}
		stats.PrimaryValid++

		for _, rec := range recs {
			key := rec.Key()
			if _, hit := excluded[key]; hit {
				stats.Excluded++
				continue
			}
			if _, dup := seen[key]; dup {
				stats.Deduped++
				continue
			}
			seen[key] = struct{}{}
			out = append(out, rec)
		}
	}
	stats.Delta = len(out)

	c.logger.Info("delta computed",
		logpkg.Int("primary_rows", stats.PrimaryRows),
		logpkg.Int("primary_valid", stats.PrimaryValid),
		logpkg.Int("exclusion_keys", stats.ExclusionKeys),
		logpkg.Int("excluded", stats.Excluded),
		logpkg.Int("deduped", stats.Deduped),
		logpkg.Int("delta", stats.Delta),
	)
	return out, stats
}
