package cache

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Key is the canonical encoding of an ordered argument tuple.
//
// Two keys are equal iff the tuples they encode have the same length and,
// at every position, the same kind (string, number, bool, absent) and value.
// Key is comparable and may be used as a map key.
type Key struct {
	enc string
}

// String returns the encoded form. It is meant for debugging only; use Hash
// for log and span attributes so argument values are not exported.
func (k Key) String() string {
	return k.enc
}

// Hash returns a 64-bit fingerprint of the key. Fingerprints are not unique
// and must never be used for equality.
func (k Key) Hash() uint64 {
	return xxhash.Sum64String(k.enc)
}

// EncodeKey encodes args into a Key.
//
// Accepted argument kinds:
//   - string (including named string types)
//   - bool
//   - any integer or float kind; numbers form one domain compared by value,
//     so int(1), uint8(1) and float64(1) encode identically
//   - nil, the absent marker, only in trailing positions
//
// Each position is tagged and length-prefixed, so a number never collides
// with its decimal string form and no two tuples share an encoding.
func EncodeKey(args ...any) (Key, error) {
	var b strings.Builder
	absent := false

	for i, arg := range args {
		if arg == nil {
			absent = true
			b.WriteString("u;")
			continue
		}
		if absent {
			return Key{}, fmt.Errorf("%w: position %d", ErrAbsentNotTrailing, i)
		}

		rv := reflect.ValueOf(arg)
		switch rv.Kind() {
		case reflect.String:
			s := rv.String()
			b.WriteByte('s')
			b.WriteString(strconv.Itoa(len(s)))
			b.WriteByte(':')
			b.WriteString(s)
		case reflect.Bool:
			if rv.Bool() {
				b.WriteString("b1")
			} else {
				b.WriteString("b0")
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			b.WriteByte('n')
			b.WriteString(strconv.FormatInt(rv.Int(), 10))
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			b.WriteByte('n')
			b.WriteString(strconv.FormatUint(rv.Uint(), 10))
		case reflect.Float32, reflect.Float64:
			b.WriteByte('n')
			b.WriteString(formatFloat(rv.Float()))
		default:
			return Key{}, fmt.Errorf("%w: position %d has type %T", ErrUnsupportedArgument, i, arg)
		}
		b.WriteByte(';')
	}

	return Key{enc: b.String()}, nil
}

// formatFloat renders integral floats the way the integer kinds render them
// so a number compares by value regardless of its Go type.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	case f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64:
		return strconv.FormatInt(int64(f), 10)
	case f == math.Trunc(f) && f >= 0 && f < math.MaxUint64:
		return strconv.FormatUint(uint64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
