package table

import (
	"strconv"
	"strings"
)

// Kind groups database type tags by the Go type their values are cast to.
type Kind int

const (
	KindOther Kind = iota
	KindInteger
	KindDecimal
)

// NullSentinel is the text some drivers and dumps use for NULL.
const NullSentinel = `\N`

var kindsByTag = map[string]Kind{
	"INT": KindInteger, "INTEGER": KindInteger, "INT2": KindInteger, "INT4": KindInteger, "INT8": KindInteger,
	"TINYINT": KindInteger, "SMALLINT": KindInteger, "MEDIUMINT": KindInteger, "BIGINT": KindInteger,
	"TINY": KindInteger, "SHORT": KindInteger, "LONG": KindInteger, "LONGLONG": KindInteger, "INT24": KindInteger,
	"SERIAL": KindInteger, "BIGSERIAL": KindInteger, "SMALLSERIAL": KindInteger,
	"UINT8": KindInteger, "UINT16": KindInteger, "UINT32": KindInteger, "UINT64": KindInteger,
	"INT16": KindInteger, "INT32": KindInteger, "INT64": KindInteger,

	"DECIMAL": KindDecimal, "NEWDECIMAL": KindDecimal, "NUMERIC": KindDecimal,
	"FLOAT": KindDecimal, "FLOAT4": KindDecimal, "FLOAT8": KindDecimal, "FLOAT32": KindDecimal, "FLOAT64": KindDecimal,
	"DOUBLE": KindDecimal, "REAL": KindDecimal, "DOUBLE PRECISION": KindDecimal,
}

// KindOf classifies a type tag as reported by a driver. Nullable(...)
// wrappers, UNSIGNED markers and length suffixes are ignored.
func KindOf(tag string) Kind {
	t := strings.ToUpper(strings.TrimSpace(tag))
	if strings.HasPrefix(t, "NULLABLE(") && strings.HasSuffix(t, ")") {
		t = t[len("NULLABLE(") : len(t)-1]
	}
	t = strings.TrimSpace(strings.TrimPrefix(t, "UNSIGNED "))
	t = strings.TrimSpace(strings.TrimSuffix(t, " UNSIGNED"))
	if i := strings.IndexByte(t, '('); i > 0 {
		t = strings.TrimSpace(t[:i])
	}
	return kindsByTag[t]
}

var coercers = map[Kind]func(any) any{
	KindInteger: toInteger,
	KindDecimal: toDecimal,
	KindOther:   toPlain,
}

// Coerce converts a raw driver value according to the column's type tag.
// Integer tags yield int64, decimal tags float64; everything else is passed
// through with []byte turned into string. NULL and the \N sentinel become nil.
func Coerce(tag string, v any) any {
	return coercers[KindOf(tag)](v)
}

func toPlain(v any) any {
	switch x := v.(type) {
	case []byte:
		if string(x) == NullSentinel {
			return nil
		}
		return string(x)
	case string:
		if x == NullSentinel {
			return nil
		}
	}
	return v
}

func toInteger(v any) any {
	v = toPlain(v)
	if v == nil {
		return nil
	}
	n, ok := asNumber(v)
	if !ok {
		return v
	}
	if n.isInt {
		return n.i
	}
	return int64(n.f)
}

func toDecimal(v any) any {
	v = toPlain(v)
	if v == nil {
		return nil
	}
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return v
		}
		return f
	}
	n, ok := asNumber(v)
	if !ok {
		return v
	}
	return n.float()
}
