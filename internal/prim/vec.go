package prim

// FixedVec is a slice-backed vector with a capacity fixed at construction.
// Append panics once Len() == Cap(); the kernel core never grows a table
// past its configured size, so this is a configuration error, not a
// runtime condition.
type FixedVec[T any] struct {
	s []T
}

// NewFixedVec allocates a FixedVec with the given capacity, preallocating
// the backing array so no further allocation occurs on Append.
func NewFixedVec[T any](capacity int) FixedVec[T] {
	return FixedVec[T]{s: make([]T, 0, capacity)}
}

func (v *FixedVec[T]) Append(x T) int {
	if len(v.s) == cap(v.s) {
		panic("prim: FixedVec: append past capacity")
	}
	v.s = append(v.s, x)
	return len(v.s) - 1
}

func (v *FixedVec[T]) Len() int      { return len(v.s) }
func (v *FixedVec[T]) Cap() int      { return cap(v.s) }
func (v *FixedVec[T]) At(i int) *T   { return &v.s[i] }
func (v *FixedVec[T]) Slice() []T    { return v.s }
func (v *FixedVec[T]) Set(i int, x T) { v.s[i] = x }
