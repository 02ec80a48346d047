package rows

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// DecodeCSV reads a CSV stream into rows. The first record is the header;
// every following record is mapped column name -> value. Short records leave
// the trailing columns absent rather than empty-padded.
func DecodeCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	var out []Row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}
		row := make(Row, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// EncodeCSV serializes rows for delta artifacts. The header comes from the
// first row's columns; values containing a comma or double quote are wrapped
// in double quotes with internal quotes doubled, all other values are
// emitted as-is. This matches the format the push jobs and external
// consumers already parse, so encoding/csv's own quoting is not used here.
func EncodeCSV(rs []Row) []byte {
	if len(rs) == 0 {
		return nil
	}
	header := headerOf(rs[0])

	var buf bytes.Buffer
	for i, col := range header {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(escapeCSV(col))
	}
	buf.WriteByte('\n')

	for _, row := range rs {
		for i, col := range header {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(escapeCSV(row[col]))
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// headerOf returns the first row's columns in a deterministic order:
// the well-known identity column first, the rest sorted lexically.
func headerOf(r Row) []string {
	cols := make([]string, 0, len(r))
	for k := range r {
		cols = append(cols, k)
	}
	sortColumns(cols)
	return cols
}

func sortColumns(cols []string) {
	// insertion sort; header widths are small
	for i := 1; i < len(cols); i++ {
		for j := i; j > 0 && columnLess(cols[j], cols[j-1]); j-- {
			cols[j], cols[j-1] = cols[j-1], cols[j]
		}
	}
}

func columnLess(a, b string) bool {
	const identityCol = "profile.identity"
	if a == identityCol {
		return b != identityCol
	}
	if b == identityCol {
		return false
	}
	return a < b
}

func escapeCSV(v string) string {
	if strings.ContainsAny(v, ",\"") {
		return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
	}
	return v
}
