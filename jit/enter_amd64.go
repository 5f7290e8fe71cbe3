//go:build amd64

package jit

// enterTranslated is the hand-written trampoline in trampoline_amd64.s.
//
//go:noescape
func enterTranslated(entry uintptr, st *regState)
