// Package profile consolidates delta records into per-identity payloads for
// the ingestion API: grouped by identity, ordered by policy, truncated to a
// bounded item count, and flattened into indexed event attributes.
package profile

import (
	"fmt"
	"sort"

	"github.com/SurturFTW/clevertap-cart-abandon/internal/delta"
	"github.com/SurturFTW/clevertap-cart-abandon/internal/normalize"
)

// OrderMode selects how a group's items are ordered before truncation.
type OrderMode string

const (
	// InsertionOrder keeps items as they appeared in the delta.
	InsertionOrder OrderMode = "insertion"
	// ReverseInsertion puts the latest-appended item first.
	ReverseInsertion OrderMode = "reverse"
	// ViewCountDescending sorts by view count, highest first, stable ties.
	ViewCountDescending OrderMode = "views"
)

// ParseOrderMode maps a config string to an OrderMode.
func ParseOrderMode(s string) (OrderMode, error) {
	switch OrderMode(s) {
	case InsertionOrder, ReverseInsertion, ViewCountDescending:
		return OrderMode(s), nil
	case "":
		return InsertionOrder, nil
	}
	return "", fmt.Errorf("unknown order mode %q", s)
}

// Config bounds and orders consolidation. Immutable per call.
type Config struct {
	MaxItemsPerProfile int
	OrderMode          OrderMode
	// StampTimestamp adds an epoch-seconds ts to each profile when non-zero.
	StampTimestamp int64
}

// Item is one product slot inside a consolidated profile.
type Item struct {
	ProductID string
	Price     string
	Title     string

	ViewCount    int
	HasViewCount bool
}

// Profile is the per-identity payload handed to the dispatcher.
type Profile struct {
	Identity string
	Items    []Item
	// Timestamp is epoch seconds; zero means unstamped.
	Timestamp int64
}

// Attributes flattens the profile's items into the indexed attribute map the
// ingestion API expects: product_id_0, price_0, title_0, ... Unset source
// attributes are absent, never empty-padded. view_count_i appears only on
// profiles consolidated in ViewCountDescending mode; Consolidate strips
// counts under every other mode.
func (p Profile) Attributes() map[string]any {
	out := make(map[string]any, len(p.Items)*3)
	for i, item := range p.Items {
		out[fmt.Sprintf("product_id_%d", i)] = item.ProductID
		if item.Price != "" {
			out[fmt.Sprintf("price_%d", i)] = item.Price
		}
		if item.Title != "" {
			out[fmt.Sprintf("title_%d", i)] = item.Title
		}
		if item.HasViewCount {
			out[fmt.Sprintf("view_count_%d", i)] = item.ViewCount
		}
	}
	return out
}

// Consolidate groups the delta by identity (first-seen group order), applies
// the ordering policy, truncates to MaxItemsPerProfile, and returns one
// profile per identity. Identities that end up with zero items are excluded
// entirely. MaxItemsPerProfile values below 1 are clamped to 1; config
// validation rejects them earlier, the clamp only guards direct callers.
func Consolidate(set delta.Set, cfg Config) []Profile {
	if cfg.MaxItemsPerProfile < 1 {
		cfg.MaxItemsPerProfile = 1
	}

	groups := make(map[string][]Item, len(set))
	var order []string
	for _, rec := range set {
		if _, ok := groups[rec.Identity]; !ok {
			order = append(order, rec.Identity)
		}
		groups[rec.Identity] = append(groups[rec.Identity], itemOf(rec))
	}

	out := make([]Profile, 0, len(order))
	for _, identity := range order {
		items := groups[identity]
		switch cfg.OrderMode {
		case ReverseInsertion:
			reverse(items)
		case ViewCountDescending:
			sort.SliceStable(items, func(i, j int) bool {
				return items[i].ViewCount > items[j].ViewCount
			})
		}
		if cfg.OrderMode != ViewCountDescending {
			// view_count_i is a most-viewed attribute; stray counts on
			// other runs must not leak into the payload.
			for i := range items {
				items[i].ViewCount = 0
				items[i].HasViewCount = false
			}
		}
		if len(items) > cfg.MaxItemsPerProfile {
			items = items[:cfg.MaxItemsPerProfile]
		}
		if len(items) == 0 {
			continue
		}
		out = append(out, Profile{
			Identity:  identity,
			Items:     items,
			Timestamp: cfg.StampTimestamp,
		})
	}
	return out
}

func itemOf(rec normalize.Record) Item {
	return Item{
		ProductID:    rec.ProductID,
		Price:        rec.Price,
		Title:        rec.Title,
		ViewCount:    rec.ViewCount,
		HasViewCount: rec.HasViewCount,
	}
}

func reverse(items []Item) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}
