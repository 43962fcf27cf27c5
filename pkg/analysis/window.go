// ABOUTME: Window accumulator for the streaming path
// ABOUTME: Assembles fixed-size analysis windows from arbitrary byte chunks
package analysis

// Accumulator buffers incoming byte chunks until a full analysis window is
// available. Each accumulator is owned by exactly one session and is not
// safe for concurrent use.
type Accumulator struct {
	target int
	buf    []byte
}

// NewAccumulator creates an accumulator that emits windows of exactly
// target bytes.
func NewAccumulator(target int) *Accumulator {
	return &Accumulator{target: target}
}

// Ingest appends a chunk to the buffer. When the buffer reaches the target
// size it returns a window of exactly target bytes and clears all internal
// state; bytes beyond the target are discarded, never carried into the
// next window. The returned window is a fresh copy the caller owns.
func (a *Accumulator) Ingest(chunk []byte) ([]byte, bool) {
	a.buf = append(a.buf, chunk...)
	if len(a.buf) < a.target {
		return nil, false
	}

	window := make([]byte, a.target)
	copy(window, a.buf[:a.target])
	a.buf = nil
	return window, true
}

// Buffered returns the number of bytes waiting for the next window.
func (a *Accumulator) Buffered() int {
	return len(a.buf)
}

// Target returns the configured window size in bytes.
func (a *Accumulator) Target() int {
	return a.target
}

// Reset drops any buffered bytes.
func (a *Accumulator) Reset() {
	a.buf = nil
}
