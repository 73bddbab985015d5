//go:build !pipedebug

package pipe

// debugCheck is a no-op in release builds; see invariants_debug.go.
func debugCheck(p *Pipe) {}

// debugAssert is a no-op in release builds; see invariants_debug.go.
func debugAssert(cond bool, msg string) {}
