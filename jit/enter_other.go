//go:build !amd64

package jit

// The translation target is x86-64 only; NewDispatcher refuses other hosts
// before this can be reached.
func enterTranslated(entry uintptr, st *regState) {
	panic("jit: translated execution is only supported on amd64 hosts")
}
