package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/SurturFTW/clevertap-cart-abandon/internal/rows"
	logpkg "github.com/SurturFTW/clevertap-cart-abandon/pkg/log"
)

// Sentinel errors for per-row normalization failures. Both are non-fatal:
// callers drop the row and continue.
var (
	ErrMissingIdentity  = errors.New("row has no usable identity")
	ErrMissingProductID = errors.New("row has no usable product id")
)

// Key is the composite identity+product key used for set membership and
// deduplication. Equal identity/product pairs yield equal keys no matter
// which source column populated them.
type Key string

// MakeKey builds a composite key from trimmed identity and product id.
// The "_" separator matches the keys already present in historical delta
// artifacts, so keys stay comparable across pipeline generations.
func MakeKey(identity, productID string) Key {
	return Key(identity + "_" + productID)
}

// Record is the canonical form of one raw row. Identity and ProductID are
// always non-empty; the optional attributes are "" (or unset) when the row
// did not carry them.
type Record struct {
	Identity  string
	ProductID string
	Price     string
	Title     string
	ImageURL  string
	Email     string
	Phone     string

	// ViewCount is only meaningful when HasViewCount is true.
	ViewCount    int
	HasViewCount bool

	// Raw references the originating row, kept for artifact passthrough.
	Raw rows.Row
}

// Key returns the record's composite key.
func (r Record) Key() Key { return MakeKey(r.Identity, r.ProductID) }

// Normalizer resolves canonical records and composite keys from raw rows.
type Normalizer struct {
	logger logpkg.Logger
}

// New returns a Normalizer logging through the given logger.
func New(logger logpkg.Logger) *Normalizer {
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	return &Normalizer{logger: logger.With(logpkg.Component("normalize"))}
}

// Normalize resolves the first canonical record of a row: the simple-field
// resolution when present, otherwise the first nested sub-item. It fails
// with ErrMissingIdentity or ErrMissingProductID when the mandatory
// attributes cannot be resolved; optional attribute absence is not an error.
func (n *Normalizer) Normalize(row rows.Row) (Record, error) {
	recs, err := n.Records(row)
	if err != nil {
		return Record{}, err
	}
	return recs[0], nil
}

// Records resolves every canonical record a row contributes: the simple-field
// resolution plus one record per nested sub-item, deduplicated by product id.
// All records share the row's optional attributes and raw reference. The same
// row shape resolves to the same records no matter which side of a delta it
// appears on.
func (n *Normalizer) Records(row rows.Row) ([]Record, error) {
	identity := strings.TrimSpace(row.Get(IdentityField))
	if identity == "" {
		return nil, ErrMissingIdentity
	}

	base := Record{
		Identity: identity,
		Price:    firstNonEmpty(row, priceFields),
		Title:    firstNonEmpty(row, titleFields),
		ImageURL: firstNonEmpty(row, imageURLFields),
		Email:    firstNonEmpty(row, emailFields),
		Phone:    firstNonEmpty(row, phoneFields),
		Raw:      row,
	}
	if v := strings.TrimSpace(row.Get(ViewCountField)); v != "" {
		if count, err := strconv.Atoi(v); err == nil {
			base.ViewCount = count
			base.HasViewCount = true
		}
	}

	seen := make(map[string]struct{}, 2)
	var out []Record
	add := func(productID string) {
		if _, dup := seen[productID]; dup {
			return
		}
		seen[productID] = struct{}{}
		rec := base
		rec.ProductID = productID
		out = append(out, rec)
	}

	if productID := firstNonEmpty(row, productIDFields); productID != "" {
		add(productID)
	}
	for _, sub := range n.nestedProductIDs(row) {
		add(sub)
	}
	if len(out) == 0 {
		return nil, ErrMissingProductID
	}
	return out, nil
}

// Keys returns every composite key a row contributes, in Records order.
// Rows that resolve no identity or no product id contribute nothing.
func (n *Normalizer) Keys(row rows.Row) []Key {
	recs, err := n.Records(row)
	if err != nil {
		return nil
	}
	keys := make([]Key, len(recs))
	for i, rec := range recs {
		keys[i] = rec.Key()
	}
	return keys
}

// nestedProductIDs parses the serialized eventProps.Items array and returns
// each sub-item's product identifier. Identifiers have shipped as both
// strings and bare numbers, so values are decoded with UseNumber and
// stringified.
func (n *Normalizer) nestedProductIDs(row rows.Row) []string {
	raw := strings.TrimSpace(row.Get(NestedItemsField))
	if raw == "" || !strings.HasPrefix(raw, "[") {
		return nil
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var items []map[string]any
	if err := dec.Decode(&items); err != nil {
		n.logger.Warn("skipping malformed nested items field",
			logpkg.Err(fmt.Errorf("parse %s: %w", NestedItemsField, err)))
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		id := stringValue(it["product_id"])
		if id == "" {
			id = stringValue(it["id"])
		}
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

func firstNonEmpty(row rows.Row, candidates []string) string {
	for _, col := range candidates {
		if v := strings.TrimSpace(row.Get(col)); v != "" {
			return v
		}
	}
	return ""
}
