package buffer

// Timeline stores a contiguous window [Start, End) of a sample stream.
// Appending extends End; TrimBefore advances Start and releases memory.
type Timeline struct {
	data []complex128
	base int64
}

// Append adds samples at the end of the window.
func (t *Timeline) Append(x []complex128) {
	t.data = append(t.data, x...)
}

// Start returns the absolute index of the oldest stored sample.
func (t *Timeline) Start() int64 {
	return t.base
}

// End returns the absolute index one past the newest stored sample.
func (t *Timeline) End() int64 {
	return t.base + int64(len(t.data))
}

// Slice returns the stored samples [from, to). ok is false when the range is
// not fully stored. The result aliases the internal buffer until the next
// Append or TrimBefore.
func (t *Timeline) Slice(from, to int64) ([]complex128, bool) {
	if from < t.base || to > t.End() || from > to {
		return nil, false
	}
	return t.data[from-t.base : to-t.base], true
}

// TrimBefore drops every sample older than index i.
func (t *Timeline) TrimBefore(i int64) {
	if i <= t.base {
		return
	}
	if i >= t.End() {
		t.base = i
		t.data = t.data[:0]
		return
	}
	n := copy(t.data, t.data[i-t.base:])
	t.data = t.data[:n]
	t.base = i
}

// Reset empties the window and restarts the stream at index 0.
func (t *Timeline) Reset() {
	t.data = t.data[:0]
	t.base = 0
}
