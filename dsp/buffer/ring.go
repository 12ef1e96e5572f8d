package buffer

// Ring keeps the most recent Cap() samples of a stream.
type Ring struct {
	data  []complex128
	next  int
	count int64
}

// NewRing returns an empty Ring holding at most capacity samples.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{data: make([]complex128, capacity)}
}

// Push appends one sample, overwriting the oldest one when full.
func (r *Ring) Push(x complex128) {
	r.data[r.next] = x
	r.next++
	if r.next == len(r.data) {
		r.next = 0
	}
	r.count++
}

// Count returns the number of samples pushed since the last Reset.
func (r *Ring) Count() int64 {
	return r.count
}

// Cap returns the ring capacity.
func (r *Ring) Cap() int {
	return len(r.data)
}

// At returns the sample with absolute index i. ok is false when the sample
// was never pushed or has already been overwritten.
func (r *Ring) At(i int64) (complex128, bool) {
	if i < 0 || i >= r.count || i < r.count-int64(len(r.data)) {
		return 0, false
	}
	return r.data[int(i%int64(len(r.data)))], true
}

// Last copies the len(dst) most recent samples into dst in chronological
// order. Positions older than the stream start are zero.
func (r *Ring) Last(dst []complex128) {
	n := len(dst)
	start := r.count - int64(n)
	for k := range dst {
		v, _ := r.At(start + int64(k))
		dst[k] = v
	}
}

// Reset clears the ring and the sample counter.
func (r *Ring) Reset() {
	for i := range r.data {
		r.data[i] = 0
	}
	r.next = 0
	r.count = 0
}
