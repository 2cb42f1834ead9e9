package foundation

import (
	"slices"
	"strings"

	ferrors "git.home.luguber.info/inful/ulyssesdeck/internal/foundation/errors"
)

func normalizeToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Enum maps free-form configuration strings onto a closed set of values.
type Enum[T ~string] struct {
	name     string
	values   map[string]T
	ordered  []T
	fallback T
}

// NewEnum creates an Enum named name (used in error messages). Matching is
// case-insensitive and ignores surrounding whitespace.
func NewEnum[T ~string](name string, fallback T, values ...T) *Enum[T] {
	m := make(map[string]T, len(values))
	for _, v := range values {
		m[normalizeToken(string(v))] = v
	}
	return &Enum[T]{name: name, values: m, ordered: slices.Clone(values), fallback: fallback}
}

// Normalize returns the matching value, or the fallback when raw is not recognized.
func (e *Enum[T]) Normalize(raw string) T {
	if v, ok := e.values[normalizeToken(raw)]; ok {
		return v
	}
	return e.fallback
}

// Parse returns the matching value. Empty input yields the fallback; any
// other unrecognized input is a validation error.
func (e *Enum[T]) Parse(raw string) (T, error) {
	if strings.TrimSpace(raw) == "" {
		return e.fallback, nil
	}
	if v, ok := e.values[normalizeToken(raw)]; ok {
		return v, nil
	}
	var zero T
	return zero, ferrors.ValidationError("invalid "+e.name).
		WithContext("value", raw).
		WithContext("allowed", e.Values()).
		Build()
}

// Values lists the accepted values in declaration order.
func (e *Enum[T]) Values() []T {
	return slices.Clone(e.ordered)
}
