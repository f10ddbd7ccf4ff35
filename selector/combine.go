package selector

// Pair carries the snapshots of two combined sources.
type Pair[A, B any] struct {
	First  A
	Second B
}

// combinedSource presents two upstream sources as one. A change on either
// upstream produces one fresh pair.
type combinedSource[A, B any] struct {
	first  Source[A]
	second Source[B]
}

func (c *combinedSource[A, B]) Snapshot() Pair[A, B] {
	return Pair[A, B]{First: c.first.Snapshot(), Second: c.second.Snapshot()}
}

func (c *combinedSource[A, B]) Subscribe(notify func(Pair[A, B])) func() {
	emit := func() { notify(c.Snapshot()) }
	unsubFirst := c.first.Subscribe(func(A) { emit() })
	unsubSecond := c.second.Subscribe(func(B) { emit() })
	return func() {
		unsubFirst()
		unsubSecond()
	}
}

// Combine builds a selector over two sources. The compute function runs
// when either upstream value changed under the default comparator; as with
// every selector, subscribers are only notified when the combined RESULT
// changed.
func Combine[A, B, R any](
	first Source[A], second Source[B],
	compute func(A, B) R,
	options ...Option[Pair[A, B], R],
) *Selector[Pair[A, B], R] {
	combined := &combinedSource[A, B]{first: first, second: second}

	pairEquals := func(x, y Pair[A, B]) bool {
		return DefaultEquals(x.First, y.First) && DefaultEquals(x.Second, y.Second)
	}

	base := []Option[Pair[A, B], R]{WithStateEquals[Pair[A, B], R](pairEquals)}
	return New(combined, func(p Pair[A, B]) R {
		return compute(p.First, p.Second)
	}, append(base, options...)...)
}
