package kernel

import "github.com/r3go/kernel/internal/prim"

// buildHunks lays out every requested hunk in a single monotonic bump
// region and slices the backing array into per-hunk views. Grounded in
// original_source's rlsf first-fit allocator, reduced to a bump layout
// since hunks are never freed at runtime (no dynamic object creation is
// a stated Non-goal).
func buildHunks(specs []hunkSpec) [][]byte {
	if len(specs) == 0 {
		return nil
	}
	var bump prim.Bump
	offsets := make([]int, len(specs))
	for i, s := range specs {
		offsets[i] = bump.Reserve(s.size, s.align)
	}
	backing := bump.Build()
	views := make([][]byte, len(specs))
	for i, s := range specs {
		views[i] = backing[offsets[i] : offsets[i]+s.size]
	}
	return views
}
