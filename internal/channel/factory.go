package channel

// New returns a buffered channel of the given size. A size below one, or a
// build with the debug tag, yields an unbuffered channel so ordering bugs
// surface sooner.
func New[T any](size int) Channel[T] {
	if size < 1 || unbufferedOnly {
		return NewUnbuffered[T]()
	}
	return NewBuffered[T](size)
}
