package value

// wipingBuffer is an append-only write buffer that zeroes its old backing
// array whenever it has to grow.
type wipingBuffer struct {
	b []byte
}

func newWipingBuffer(size int) *wipingBuffer {
	return &wipingBuffer{b: make([]byte, 0, size)}
}

func (w *wipingBuffer) Write(p []byte) (int, error) {
	w.grow(len(p))
	w.b = append(w.b, p...)
	return len(p), nil
}

func (w *wipingBuffer) WriteByte(c byte) error {
	w.grow(1)
	w.b = append(w.b, c)
	return nil
}

func (w *wipingBuffer) grow(n int) {
	if len(w.b)+n <= cap(w.b) {
		return
	}
	nb := make([]byte, len(w.b), 2*cap(w.b)+n)
	copy(nb, w.b)
	w.wipe()
	w.b = nb
}

func (w *wipingBuffer) wipe() {
	clear(w.b[:cap(w.b)])
}
