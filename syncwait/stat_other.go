//go:build !darwin

package syncwait

// statSignals reports no usable stat signals on platforms without an
// offline/compressed attribute flag, which degrades classification to
// placeholder-only detection.
func statSignals(any) (flagged bool, blocks int64, ok bool) {
	return false, 0, false
}
