package pipeline

// Mergeable is an entity row that can be folded with a duplicate of itself.
type Mergeable[T any] interface {
	EntityID() int64
	Merge(candidate T) T
}

// Index holds one merged entry per entity id in first-seen order.
type Index[T Mergeable[T]] struct {
	order []int64
	byID  map[int64]T
}

// Deduplicate folds rows by entity id. For a repeated id the stored entry
// becomes existing.Merge(candidate).
func Deduplicate[T Mergeable[T]](rows []T) *Index[T] {
	ix := &Index[T]{byID: make(map[int64]T, len(rows))}
	for _, row := range rows {
		ix.Add(row)
	}
	return ix
}

// Add folds one row into the index.
func (ix *Index[T]) Add(row T) {
	id := row.EntityID()
	if existing, ok := ix.byID[id]; ok {
		ix.byID[id] = existing.Merge(row)
		return
	}
	ix.order = append(ix.order, id)
	ix.byID[id] = row
}

// Len returns the number of distinct entities.
func (ix *Index[T]) Len() int {
	return len(ix.order)
}

// Get returns the merged entry for id.
func (ix *Index[T]) Get(id int64) (T, bool) {
	v, ok := ix.byID[id]
	return v, ok
}

// Values returns the merged entries in first-seen order.
func (ix *Index[T]) Values() []T {
	out := make([]T, 0, len(ix.order))
	for _, id := range ix.order {
		out = append(out, ix.byID[id])
	}
	return out
}

// Embedded extracts the non-nil related entities from rows.
func Embedded[R, T any](rows []R, related func(R) *T) []T {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		if v := related(row); v != nil {
			out = append(out, *v)
		}
	}
	return out
}
