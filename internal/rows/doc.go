// Package rows defines the raw row contract shared by the pipeline stages
// and the CSV codec used for delta artifacts.
//
// A Row is a flat map of export column name to string value. Schemas are
// open: the cart-abandon, charged and product-view exports all carry
// different column sets, and downstream stages resolve what they need by
// ordered candidate lookup (see internal/normalize).
//
// The Source interface is the seam to object storage. Implementations own
// listing, decompression and CSV tokenization; the pipeline only ever sees
// []Row per logical input.
package rows
