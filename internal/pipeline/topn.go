package pipeline

import (
	"cmp"
	"slices"
)

// SelectTop returns the n items with the highest metric. Items whose metric
// is unknown are excluded. Ties are broken by tiebreak, higher first, so the
// result does not depend on input order as long as tiebreak is unique.
func SelectTop[T any, M cmp.Ordered](items []T, metric func(T) (M, bool), n int, tiebreak func(T) int64) []T {
	type ranked struct {
		item  T
		value M
		key   int64
	}

	known := make([]ranked, 0, len(items))
	for _, it := range items {
		v, ok := metric(it)
		if !ok {
			continue
		}
		known = append(known, ranked{item: it, value: v, key: tiebreak(it)})
	}

	slices.SortFunc(known, func(a, b ranked) int {
		if c := cmp.Compare(b.value, a.value); c != 0 {
			return c
		}
		return cmp.Compare(b.key, a.key)
	})

	if n >= 0 && len(known) > n {
		known = known[:n]
	}
	out := make([]T, len(known))
	for i, r := range known {
		out[i] = r.item
	}
	return out
}

// Known adapts a nullable metric for SelectTop.
func Known[T any, M cmp.Ordered](get func(T) *M) func(T) (M, bool) {
	return func(item T) (M, bool) {
		if v := get(item); v != nil {
			return *v, true
		}
		var zero M
		return zero, false
	}
}
