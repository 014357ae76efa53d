package table

import (
	"fmt"
	"strings"
)

// Aggregate selects how merge and expand combine two values for one cell.
type Aggregate int

const (
	// Replace keeps the last non-nil value.
	Replace Aggregate = iota
	Max
	Min
	Sum
)

var aggregateNames = map[Aggregate]string{
	Replace: "REPLACE",
	Max:     "MAX",
	Min:     "MIN",
	Sum:     "SUM",
}

func (a Aggregate) String() string {
	if name, ok := aggregateNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Aggregate(%d)", int(a))
}

// ParseAggregate maps a method name to its constant. "" and "DEFAULT" mean Replace.
func ParseAggregate(name string) (Aggregate, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "DEFAULT", "REPLACE":
		return Replace, nil
	case "MAX":
		return Max, nil
	case "MIN":
		return Min, nil
	case "SUM":
		return Sum, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedAggregate, name)
}

func (a Aggregate) validate() error {
	if _, ok := aggregateNames[a]; !ok {
		return fmt.Errorf("%w: %d", ErrUnsupportedAggregate, int(a))
	}
	return nil
}

// combine merges incoming into current. A nil current is always overwritten,
// a nil incoming never changes the cell.
func (a Aggregate) combine(current, incoming any) (any, error) {
	if current == nil {
		return incoming, nil
	}
	if incoming == nil {
		return current, nil
	}
	switch a {
	case Replace:
		return incoming, nil
	case Max:
		if compareValues(incoming, current) > 0 {
			return incoming, nil
		}
		return current, nil
	case Min:
		if compareValues(incoming, current) < 0 {
			return incoming, nil
		}
		return current, nil
	case Sum:
		x, okX := asNumber(current)
		y, okY := asNumber(incoming)
		if !okX || !okY {
			return nil, fmt.Errorf("%w: cannot sum %v and %v", ErrNotNumeric, current, incoming)
		}
		return addNumbers(x, y).value(), nil
	}
	return nil, a.validate()
}
