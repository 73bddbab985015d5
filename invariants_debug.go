//go:build pipedebug

package pipe

// Built with -tags pipedebug: Push, Pop, PopEager and Reserve check the
// ring's structural invariants after taking the lock and before releasing
// it, and handle minting asserts the pipe has not been destroyed.
// Contract violations that the release build can still report cheaply
// (freeing an already-zero refcount, operating on a destroyed pipe) are
// reported as errcode errors in both builds, not gated behind this tag; what
// pipedebug adds on top is the structural ring.Buffer.Check assertion,
// which is comparatively expensive and only meant for development. Release
// builds omit that extra check — see invariants_release.go — but must
// preserve every observable semantic.

// debugCheck asserts the ring buffer's structural invariants.
func debugCheck(p *Pipe) {
	if err := p.buf.Check(); err != nil {
		panic("pipe: invariant violated: " + err.Error())
	}
}

// debugAssert panics with msg if cond is false.
func debugAssert(cond bool, msg string) {
	if !cond {
		panic("pipe: " + msg)
	}
}
