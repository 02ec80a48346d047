package rows

import (
	"context"
	"errors"
	"time"
)

// Row is a single exported record: column name -> raw string value.
type Row map[string]string

// Get returns the trimmed-preserving value for a column, or "" when absent.
func (r Row) Get(name string) string { return r[name] }

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ObjectInfo describes one listable object in a row source.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Selector narrows a List call to a logical input.
type Selector struct {
	// Bucket is the container to list.
	Bucket string
	// Prefix restricts keys to those starting with it. Optional.
	Prefix string
}

// ErrSourceRead marks a failure to list or fetch an input collection.
// It is fatal to the current run: delta computation must not proceed on a
// partially read input.
var ErrSourceRead = errors.New("row source read failed")

// Source lists and fetches raw row collections from object storage.
// Fetch handles decompression and CSV tokenization internally.
type Source interface {
	List(ctx context.Context, sel Selector) ([]ObjectInfo, error)
	Fetch(ctx context.Context, bucket, key string) ([]Row, error)
}

// Uploader stores a delta artifact for the next pipeline stage.
type Uploader interface {
	Upload(ctx context.Context, bucket, key string, body []byte) error
}
