package selector

import (
	"reflect"
	"sync"

	"github.com/Vlad92msk/synapse-sub001/metric"
)

// Source is what a selector reads from: a current-state snapshot and a
// change notification hub. The store satisfies it directly, and so does
// every Selector, which is what makes composition possible.
type Source[S any] interface {
	Snapshot() S
	Subscribe(notify func(S)) func()
}

// Equals compares two values. The default is reference/shallow equality:
// pointers, maps, slices, channels and funcs compare by identity, plain
// comparable values by ==.
type Equals[T any] func(a, b T) bool

// Selector memoizes one derived value computed from a source. The memo
// cell holds the last seen state, the last result and a generation stamp;
// compute runs only when the state fails the equality check, and
// subscribers are notified only when the RESULT changes.
type Selector[S, R any] struct {
	name    string
	source  Source[S]
	compute func(S) R

	stateEquals  Equals[S]
	resultEquals Equals[R]
	metrics      *metric.Metrics

	mu         sync.Mutex
	hasMemo    bool
	lastState  S
	lastResult R
	generation uint64

	subMu       sync.Mutex
	subscribers []*subscriber[R]
	nextSubID   int
	detach      func()
	closed      bool
}

type subscriber[R any] struct {
	id     int
	notify func(R)
}

// Option configures a selector at construction time.
type Option[S, R any] func(*Selector[S, R])

// WithName sets the human-readable selector name used in logs and metrics.
func WithName[S, R any](name string) Option[S, R] {
	return func(s *Selector[S, R]) {
		if name != "" {
			s.name = name
		}
	}
}

// WithEquals sets the result comparator deciding whether subscribers are
// notified.
func WithEquals[S, R any](equals Equals[R]) Option[S, R] {
	return func(s *Selector[S, R]) {
		if equals != nil {
			s.resultEquals = equals
		}
	}
}

// WithStateEquals sets the state comparator deciding whether compute runs
// at all.
func WithStateEquals[S, R any](equals Equals[S]) Option[S, R] {
	return func(s *Selector[S, R]) {
		if equals != nil {
			s.stateEquals = equals
		}
	}
}

// WithSelectorMetrics wires the selector to the core metrics of the given
// registry. If registry is nil, this option is ignored.
func WithSelectorMetrics[S, R any](registry *metric.MetricsRegistry) Option[S, R] {
	return func(s *Selector[S, R]) {
		if registry != nil {
			s.metrics = registry.CoreMetrics()
		}
	}
}

// New creates a selector over source. The selector immediately subscribes
// to the source's change notifications; subscribing to the selector itself
// never triggers an immediate notify.
func New[S, R any](source Source[S], compute func(S) R, options ...Option[S, R]) *Selector[S, R] {
	s := &Selector[S, R]{
		name:         "anonymous",
		source:       source,
		compute:      compute,
		stateEquals:  DefaultEquals[S],
		resultEquals: DefaultEquals[R],
	}
	for _, option := range options {
		option(s)
	}

	s.detach = source.Subscribe(func(state S) {
		s.apply(state)
	})
	return s
}

// Select returns the current derived value, recomputing only when the
// source state changed since the last computation.
func (s *Selector[S, R]) Select() R {
	return s.apply(s.source.Snapshot())
}

// Snapshot returns the current derived value. Together with Subscribe it
// makes a Selector a Source for downstream selectors.
func (s *Selector[S, R]) Snapshot() R {
	return s.Select()
}

// Generation returns the memo cell's version stamp, bumped on every
// recomputation.
func (s *Selector[S, R]) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Subscribe registers a callback notified with the new result whenever it
// changes under the result comparator, in registration order. The returned
// function removes the registration.
func (s *Selector[S, R]) Subscribe(notify func(R)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.nextSubID++
	sub := &subscriber[R]{id: s.nextSubID, notify: notify}
	s.subscribers = append(s.subscribers, sub)

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, candidate := range s.subscribers {
			if candidate.id == sub.id {
				s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
				return
			}
		}
	}
}

// Close detaches the selector from its source and drops all subscribers.
// The memo cell keeps its last value; Select keeps working against the
// source's current snapshot.
func (s *Selector[S, R]) Close() {
	s.subMu.Lock()
	if s.closed {
		s.subMu.Unlock()
		return
	}
	s.closed = true
	detach := s.detach
	s.subscribers = nil
	s.subMu.Unlock()

	if detach != nil {
		detach()
	}
}

// apply runs the memoization step for one incoming state and notifies
// subscribers when the result changed.
func (s *Selector[S, R]) apply(state S) R {
	s.mu.Lock()
	if s.hasMemo && s.stateEquals(state, s.lastState) {
		result := s.lastResult
		s.mu.Unlock()
		return result
	}

	result := s.compute(state)
	changed := !s.hasMemo || !s.resultEquals(result, s.lastResult)
	s.hasMemo = true
	s.lastState = state
	s.lastResult = result
	s.generation++
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.SelectorRecomputes.WithLabelValues(s.name).Inc()
	}
	if changed {
		s.notify(result)
	}
	return result
}

func (s *Selector[S, R]) notify(result R) {
	s.subMu.Lock()
	current := make([]*subscriber[R], len(s.subscribers))
	copy(current, s.subscribers)
	s.subMu.Unlock()

	for _, sub := range current {
		sub.notify(result)
		if s.metrics != nil {
			s.metrics.SelectorNotifications.WithLabelValues(s.name).Inc()
		}
	}
}

// Derive builds a selector over another selector's result. The derived
// selector recomputes only when the upstream RESULT changed, not merely
// when the root state object did, so unrelated state slices never cascade.
func Derive[S, R, D any](parent *Selector[S, R], compute func(R) D, options ...Option[R, D]) *Selector[R, D] {
	return New(parent, compute, options...)
}

// DefaultEquals is the reference/shallow comparator used when no Equals
// option is given. Reference types compare by identity, comparable values
// by ==, everything else is never equal.
func DefaultEquals[T any](a, b T) bool {
	va := reflect.ValueOf(a)
	vb := reflect.ValueOf(b)
	if !va.IsValid() || !vb.IsValid() {
		return va.IsValid() == vb.IsValid()
	}
	if va.Type() != vb.Type() {
		return false
	}

	switch va.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	}
	if va.Comparable() {
		return va.Interface() == vb.Interface()
	}
	return false
}
