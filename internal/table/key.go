package table

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/xxh3"

	"saftetl/pkg/records"
)

// Key is a 128-bit fingerprint of a row restricted to a set of columns.
type Key = xxh3.Uint128

// KeyOf fingerprints r over cols. Numerically equal int64 and float64 values
// produce the same key, and nil and empty strings are the same null marker.
func KeyOf(r records.Record, cols []string) Key {
	var b strings.Builder
	for i, c := range cols {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		writeKeyValue(&b, r[c])
	}
	return xxh3.HashString128(b.String())
}

func writeKeyValue(b *strings.Builder, v any) {
	if records.IsNull(v) {
		b.WriteByte('\x00')
		return
	}
	if f, ok := records.Float(v); ok {
		b.WriteByte('n')
		b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
		return
	}
	switch t := v.(type) {
	case string:
		b.WriteByte('s')
		b.WriteString(t)
	case time.Time:
		b.WriteByte('t')
		b.WriteString(strconv.FormatInt(t.UnixNano(), 10))
	default:
		b.WriteByte('?')
		b.WriteString(fmt.Sprint(t))
	}
}
