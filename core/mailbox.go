package core

import "sync/atomic"

const (
	mailEmpty int32 = iota
	mailWriting
	mailFull
)

// mailbox is a single-slot hand-off into an idle worker. The dispatcher
// steals a slot on the recipient's behalf and parks it here together with
// the node it came from; the recipient executes it and reports back to
// that node through returnStolen.
type mailbox[T any] struct {
	state  atomic.Int32
	slot   *slot[T]
	origin *node[T]
}

// put parks a stolen slot. It reports false when the mailbox still holds
// an unconsumed task.
func (m *mailbox[T]) put(s *slot[T], origin *node[T]) bool {
	if !m.state.CompareAndSwap(mailEmpty, mailWriting) {
		return false
	}
	m.slot = s
	m.origin = origin
	m.state.Store(mailFull)
	return true
}

// take removes the parked slot, if any. Recipient only; never blocks.
func (m *mailbox[T]) take() (*slot[T], *node[T], bool) {
	if m.state.Load() != mailFull {
		return nil, nil, false
	}
	s, origin := m.slot, m.origin
	m.slot, m.origin = nil, nil
	m.state.Store(mailEmpty)
	return s, origin, true
}

func (m *mailbox[T]) empty() bool {
	return m.state.Load() == mailEmpty
}
