// Package normalize resolves canonical records from raw export rows.
//
// Export schemas drift across event types and vendor versions: the product
// id alone has shipped under at least five column names. Resolution is
// data-driven: each attribute has a fixed, ordered candidate column list and
// the first non-empty value wins. The tables live in fields.go so the
// fallback policy is testable in isolation and applied identically on both
// sides of a delta computation.
package normalize
