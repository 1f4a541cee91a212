package actors

import (
	"slices"
	"sync"
)

// Mailbox is an unbounded FIFO owned by one process. Any goroutine may push.
type Mailbox struct {
	mu       sync.Mutex
	messages []Message
	// owner is waiting for a push to be rescheduled
	parked bool
	closed bool
}

// Push appends msg. wake reports that the owner was parked and must be rescheduled.
func (m *Mailbox) Push(msg Message) (ok bool, wake bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false, false
	}
	m.messages = append(m.messages, msg)
	if m.parked {
		m.parked = false
		wake = true
	}
	return true, wake
}

// Pop removes the oldest message accepted by match.
func (m *Mailbox) Pop(match func(Message) bool) (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, msg := range m.messages {
		if match(msg) {
			m.messages = slices.Delete(m.messages, i, i+1)
			return msg, true
		}
	}
	return nil, false
}

// Take removes every message accepted by match, in arrival order.
func (m *Mailbox) Take(match func(Message) bool) (ret []Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.messages[:0]
	for _, msg := range m.messages {
		if match(msg) {
			ret = append(ret, msg)
		} else {
			kept = append(kept, msg)
		}
	}
	clear(m.messages[len(kept):])
	m.messages = kept
	return
}

// Park marks the owner as waiting if the mailbox is empty.
func (m *Mailbox) Park() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) > 0 || m.closed {
		return false
	}
	m.parked = true
	return true
}

// Close rejects further pushes and returns what was left.
func (m *Mailbox) Close() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.parked = false
	ret := m.messages
	m.messages = nil
	return ret
}

func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}
