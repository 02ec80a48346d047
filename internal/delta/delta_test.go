package delta

import (
	"fmt"
	"testing"

	"github.com/SurturFTW/clevertap-cart-abandon/internal/normalize"
	"github.com/SurturFTW/clevertap-cart-abandon/internal/rows"
	logpkg "github.com/SurturFTW/clevertap-cart-abandon/pkg/log"
)

func newComputerForTest(t *testing.T) *Computer {
	t.Helper()
	logger := logpkg.NewTestLogger()
	return New(normalize.New(logger), logger)
}

func row(identity, productID string) rows.Row {
	return rows.Row{
		"profile.identity":      identity,
		"eventProps.Product ID": productID,
	}
}

func TestComputeExcludesConfirmedKeys(t *testing.T) {
	c := newComputerForTest(t)
	// primary=[{u1,p1},{u1,p2}], exclusion=[{u1,p1}] -> delta=[{u1,p2}]
	set, stats := c.Compute(
		[]rows.Row{row("u1", "p1"), row("u1", "p2")},
		[]rows.Row{row("u1", "p1")},
	)
	if len(set) != 1 || set[0].ProductID != "p2" {
		t.Fatalf("unexpected delta: %+v", set)
	}
	if stats.Excluded != 1 || stats.Delta != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestComputeDedupFirstOccurrenceWins(t *testing.T) {
	c := newComputerForTest(t)
	first := row("u1", "p1")
	first["eventProps.price"] = "1.00"
	second := row("u1", "p1")
	second["eventProps.price"] = "2.00"

	set, stats := c.Compute([]rows.Row{first, second}, nil)
	if len(set) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(set))
	}
	if set[0].Price != "1.00" {
		t.Fatalf("first occurrence should win: %+v", set[0])
	}
	if stats.Deduped != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestComputeSoundnessAndCompleteness(t *testing.T) {
	c := newComputerForTest(t)
	var primary, exclusion []rows.Row
	for i := 0; i < 50; i++ {
		primary = append(primary, row(fmt.Sprintf("u%d", i%10), fmt.Sprintf("p%d", i)))
	}
	for i := 0; i < 50; i += 3 {
		exclusion = append(exclusion, row(fmt.Sprintf("u%d", i%10), fmt.Sprintf("p%d", i)))
	}

	set, _ := c.Compute(primary, exclusion)

	excludedKeys := make(map[normalize.Key]struct{})
	for _, r := range exclusion {
		excludedKeys[normalize.MakeKey(r["profile.identity"], r["eventProps.Product ID"])] = struct{}{}
	}
	seen := make(map[normalize.Key]struct{})
	for _, rec := range set {
		if _, hit := excludedKeys[rec.Key()]; hit {
			t.Fatalf("excluded key leaked into delta: %q", rec.Key())
		}
		if _, dup := seen[rec.Key()]; dup {
			t.Fatalf("duplicate key in delta: %q", rec.Key())
		}
		seen[rec.Key()] = struct{}{}
	}
	// completeness: every non-excluded primary key appears exactly once
	want := 0
	for _, r := range primary {
		k := normalize.MakeKey(r["profile.identity"], r["eventProps.Product ID"])
		if _, hit := excludedKeys[k]; !hit {
			want++
		}
	}
	if len(set) != want {
		t.Fatalf("expected %d delta records, got %d", want, len(set))
	}
}

func TestComputePreservesPrimaryOrder(t *testing.T) {
	c := newComputerForTest(t)
	set, _ := c.Compute(
		[]rows.Row{row("u3", "p3"), row("u1", "p1"), row("u2", "p2")},
		nil,
	)
	got := []string{set[0].Identity, set[1].Identity, set[2].Identity}
	if got[0] != "u3" || got[1] != "u1" || got[2] != "u2" {
		t.Fatalf("order not preserved: %v", got)
	}
}

func TestComputeInvalidRowsDroppedNotFatal(t *testing.T) {
	c := newComputerForTest(t)
	set, stats := c.Compute(
		[]rows.Row{
			{"eventProps.Product ID": "p1"}, // no identity
			{"profile.identity": "u1"},      // no product id
			row("u1", "p1"),
		},
		nil,
	)
	if len(set) != 1 || stats.PrimaryValid != 1 {
		t.Fatalf("invalid rows should be dropped silently: %+v %+v", set, stats)
	}
}

func TestComputeNestedExclusionExpansion(t *testing.T) {
	c := newComputerForTest(t)
	// Charged row confirms p2 only via its nested items list.
	charged := rows.Row{
		"profile.identity": "u1",
		"eventProps.Items": `[{"product_id":"p2"}]`,
	}
	set, _ := c.Compute([]rows.Row{row("u1", "p1"), row("u1", "p2")}, []rows.Row{charged})
	if len(set) != 1 || set[0].ProductID != "p1" {
		t.Fatalf("nested exclusion key not honored: %+v", set)
	}
}

func TestComputeNestedOnlyPrimaryRow(t *testing.T) {
	c := newComputerForTest(t)
	nested := rows.Row{
		"profile.identity": "u1",
		"eventProps.Items": `[{"product_id":"p2"}]`,
	}
	set, stats := c.Compute([]rows.Row{nested}, nil)
	if len(set) != 1 || set[0].ProductID != "p2" {
		t.Fatalf("nested-only row should contribute its sub-item: %+v", set)
	}
	if stats.PrimaryValid != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	// The same shape on the exclusion side cancels it.
	set, _ = c.Compute([]rows.Row{nested}, []rows.Row{nested})
	if len(set) != 0 {
		t.Fatalf("identical shapes on both sides should cancel: %+v", set)
	}
}

func TestComputeExpandsPrimaryKeysIndependently(t *testing.T) {
	c := newComputerForTest(t)
	primary := rows.Row{
		"profile.identity":      "u1",
		"eventProps.Product ID": "p1",
		"eventProps.Items":      `[{"product_id":"p2"}]`,
	}
	set, stats := c.Compute([]rows.Row{primary}, []rows.Row{row("u1", "p1")})
	if len(set) != 1 || set[0].ProductID != "p2" {
		t.Fatalf("sub-item key should survive on its own: %+v", set)
	}
	if stats.Excluded != 1 {
		t.Fatalf("simple key should be excluded individually: %+v", stats)
	}
}

func TestComputeEmptyInputs(t *testing.T) {
	c := newComputerForTest(t)
	set, stats := c.Compute(nil, nil)
	if len(set) != 0 || stats.Delta != 0 {
		t.Fatalf("empty in, empty out: %+v %+v", set, stats)
	}
}

func TestAggregateViewsThresholdAndExclusion(t *testing.T) {
	c := newComputerForTest(t)
	viewRow := func(identity, productID string) rows.Row {
		return rows.Row{
			"profile.identity":      identity,
			"eventProps.product_id": productID,
		}
	}
	var primary []rows.Row
	for i := 0; i < 5; i++ {
		primary = append(primary, viewRow("u1", "p1")) // 5 views, kept
	}
	for i := 0; i < 6; i++ {
		primary = append(primary, viewRow("u1", "p2")) // 6 views but charged
	}
	primary = append(primary, viewRow("u1", "p3")) // 1 view, below threshold

	set, stats := c.AggregateViews(primary, []rows.Row{viewRow("u1", "p2")}, 5)
	if len(set) != 1 {
		t.Fatalf("expected one surviving key, got %+v", set)
	}
	rec := set[0]
	if rec.ProductID != "p1" || !rec.HasViewCount || rec.ViewCount != 5 {
		t.Fatalf("unexpected survivor: %+v", rec)
	}
	if rec.Raw["eventProps.view_count"] != "5" {
		t.Fatalf("raw row not annotated with count: %v", rec.Raw)
	}
	if stats.Excluded != 1 {
		t.Fatalf("charged key not excluded: %+v", stats)
	}
}

func TestAggregateViewsCountsNestedKeys(t *testing.T) {
	c := newComputerForTest(t)
	nested := rows.Row{
		"profile.identity": "u1",
		"eventProps.Items": `[{"product_id":"p1"}]`,
	}
	set, _ := c.AggregateViews([]rows.Row{nested, nested}, nil, 2)
	if len(set) != 1 || set[0].ProductID != "p1" || set[0].ViewCount != 2 {
		t.Fatalf("nested keys should accumulate views: %+v", set)
	}
}

func TestAggregateViewsFirstRowIsRepresentative(t *testing.T) {
	c := newComputerForTest(t)
	first := rows.Row{
		"profile.identity":      "u1",
		"eventProps.product_id": "p1",
		"eventProps.Title":      "first",
	}
	later := rows.Row{
		"profile.identity":      "u1",
		"eventProps.product_id": "p1",
		"eventProps.Title":      "later",
	}
	set, _ := c.AggregateViews([]rows.Row{first, later}, nil, 2)
	if len(set) != 1 || set[0].Title != "first" {
		t.Fatalf("representative row should be first seen: %+v", set)
	}
	// annotation must not mutate the caller's row
	if _, ok := first["eventProps.view_count"]; ok {
		t.Fatalf("input row was mutated")
	}
}
