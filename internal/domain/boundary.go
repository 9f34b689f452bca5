package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Boundary marks the start of a named interval of the day, e.g. the start of lunch.
type Boundary struct {
	Label string
	At    TimeOfDay
}

// BoundarySet is a non-empty collection of boundaries with unique labels.
// Source order is arbitrary; time order is derived by Sorted.
type BoundarySet []Boundary

// Validate reports ErrInvalidInput for an empty set, a blank label or a duplicate label.
func (s BoundarySet) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: empty boundary set", ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(s))
	for _, b := range s {
		if strings.TrimSpace(b.Label) == "" {
			return fmt.Errorf("%w: boundary at %s has no label", ErrInvalidInput, b.At)
		}
		if _, dup := seen[b.Label]; dup {
			return fmt.Errorf("%w: duplicate boundary label %q", ErrInvalidInput, b.Label)
		}
		if b.At < 0 || b.At >= secondsPerDay {
			return fmt.Errorf("%w: boundary %q out of range", ErrInvalidInput, b.Label)
		}
		seen[b.Label] = struct{}{}
	}
	return nil
}

// Lookup returns the time configured for label.
func (s BoundarySet) Lookup(label string) (TimeOfDay, bool) {
	for _, b := range s {
		if b.Label == label {
			return b.At, true
		}
	}
	return 0, false
}

// Sorted returns a copy ordered by time of day. Equal times keep source order.
func (s BoundarySet) Sorted() BoundarySet {
	out := make(BoundarySet, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool { return out[i].At < out[j].At })
	return out
}

// InInterval reports whether now falls in [from, to) on a 24h circle.
// from > to wraps past midnight; from == to covers the whole day.
func InInterval(now, from, to TimeOfDay) bool {
	if from == to {
		return true
	}
	if from < to {
		return now >= from && now < to
	}
	// wrap: [from..24h) U [0..to)
	return now >= from || now < to
}

// ResolveCurrent returns the label of the boundary whose interval contains now.
// Each boundary opens an interval running until the next one in time order, and the
// latest boundary's interval wraps around midnight to the earliest. When several
// boundaries share a time, the first in stable-sorted order owns the interval.
func ResolveCurrent(set BoundarySet, now TimeOfDay) (string, error) {
	if err := set.Validate(); err != nil {
		return "", err
	}
	sorted := set.Sorted()

	// Collapse ties onto the first boundary at each time.
	starts := sorted[:0:0]
	for _, b := range sorted {
		if n := len(starts); n > 0 && starts[n-1].At == b.At {
			continue
		}
		starts = append(starts, b)
	}

	for i, b := range starts {
		next := starts[(i+1)%len(starts)]
		if InInterval(now, b.At, next.At) {
			return b.Label, nil
		}
	}
	// Unreachable for a validated set: the intervals tile the whole day.
	return "", fmt.Errorf("%w: no interval contains %s", ErrInvalidInput, now)
}
