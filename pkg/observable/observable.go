package observable

import (
	"sync"
)

// Subject is a multicast stream of values with replay-latest semantics: a new
// subscriber immediately receives the most recently published value, if any.
// Closing the subject is a terminal completion signal, distinct from errors
// (errors never travel on a Subject, they are published as ordinary values on
// dedicated flag subjects).
//
// Publishers never block on slow subscribers: each subscription holds a buffer
// of one and publishing conflates, dropping the stale value in favor of the
// newest one.
type Subject[T any] struct {
	mtx       sync.Mutex
	subs      map[int]chan T
	nextSubID int
	latest    T
	hasLatest bool
	closed    bool
}

func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{
		subs: make(map[int]chan T),
	}
}

// Publish emits a value to all current subscribers and retains it for replay.
// Publishing on a closed subject is a no-op.
func (s *Subject[T]) Publish(v T) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.closed {
		return
	}

	s.latest = v
	s.hasLatest = true
	for _, ch := range s.subs {
		send(ch, v)
	}
}

// Subscribe registers a new subscriber and returns its channel along with a
// cancel function. The channel is closed when the subject completes or the
// subscription is cancelled. Subscribing to a completed subject returns an
// already-closed channel so late subscribers observe immediate completion
// instead of hanging.
func (s *Subject[T]) Subscribe() (<-chan T, func()) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	ch := make(chan T, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	if s.hasLatest {
		ch <- s.latest
	}

	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = ch

	cancel := func() {
		s.mtx.Lock()
		defer s.mtx.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Value returns the latest published value and whether one exists.
func (s *Subject[T]) Value() (T, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.latest, s.hasLatest
}

// Close completes the subject. All subscriber channels are closed and any
// later Subscribe returns an already-closed channel. Close is idempotent.
func (s *Subject[T]) Close() {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

// Closed reports whether the subject has completed.
func (s *Subject[T]) Closed() bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.closed
}

// send delivers with latest-wins conflation: if the subscriber has not yet
// consumed the previous value it is dropped in favor of the new one.
func send[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}
