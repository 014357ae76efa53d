package table

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// number is a parsed numeric cell. native is set for Go's plain int so sums
// of ints stay ints.
type number struct {
	i      int64
	f      float64
	isInt  bool
	native bool
}

func asNumber(v any) (number, bool) {
	switch n := v.(type) {
	case int:
		return number{i: int64(n), isInt: true, native: true}, true
	case int8:
		return number{i: int64(n), isInt: true}, true
	case int16:
		return number{i: int64(n), isInt: true}, true
	case int32:
		return number{i: int64(n), isInt: true}, true
	case int64:
		return number{i: n, isInt: true}, true
	case uint:
		return number{i: int64(n), isInt: true}, true
	case uint8:
		return number{i: int64(n), isInt: true}, true
	case uint16:
		return number{i: int64(n), isInt: true}, true
	case uint32:
		return number{i: int64(n), isInt: true}, true
	case uint64:
		if n > math.MaxInt64 {
			return number{f: float64(n)}, true
		}
		return number{i: int64(n), isInt: true}, true
	case float32:
		return number{f: float64(n)}, true
	case float64:
		return number{f: n}, true
	case []byte:
		return parseNumber(string(n))
	case string:
		return parseNumber(n)
	}
	return number{}, false
}

func parseNumber(s string) (number, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return number{}, false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return number{i: i, isInt: true}, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return number{f: f}, true
	}
	return number{}, false
}

func (n number) float() float64 {
	if n.isInt {
		return float64(n.i)
	}
	return n.f
}

func (n number) value() any {
	switch {
	case n.native:
		return int(n.i)
	case n.isInt:
		return n.i
	default:
		return n.f
	}
}

func addNumbers(a, b number) number {
	if a.isInt && b.isInt {
		return number{i: a.i + b.i, isInt: true, native: a.native && b.native}
	}
	return number{f: a.float() + b.float()}
}

func isNumeric(v any) bool {
	_, ok := asNumber(v)
	return ok
}

// intval converts loosely: non-numeric values count as 0, decimals truncate.
func intval(v any) int64 {
	switch b := v.(type) {
	case bool:
		if b {
			return 1
		}
		return 0
	}
	n, ok := asNumber(v)
	if !ok {
		return 0
	}
	if n.isInt {
		return n.i
	}
	return int64(n.f)
}

// isEmptyValue treats nil, zero numbers, "", "0", false and empty rows as empty.
func isEmptyValue(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case string:
		return x == "" || x == "0"
	case []byte:
		return len(x) == 0 || string(x) == "0"
	case []any:
		return len(x) == 0
	}
	if n, ok := asNumber(v); ok {
		return n.float() == 0
	}
	return false
}

// compareValues orders two cells: numbers numerically, strings and times
// natively, nil before anything else.
func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	na, okA := asNumber(a)
	nb, okB := asNumber(b)
	if okA && okB {
		if na.isInt && nb.isInt {
			return cmpInt(na.i, nb.i)
		}
		return cmpFloat(na.float(), nb.float())
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	return strings.Compare(cellString(a), cellString(b))
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
