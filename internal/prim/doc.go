// Package prim implements the fixed-capacity, allocation-free-after-build
// data structures the kernel core is built on: a slice-backed vector that
// never grows past its configured capacity, a priority bitmap index, an
// intrusive doubly-linked list usable as a FIFO, a binary min-heap over a
// slice, and a bump allocator used only while a Config is being finalized.
//
// None of these types allocate once their capacity has been fixed, except
// Bump itself, which exists precisely to perform the one-time allocation
// on behalf of everything else.
package prim
