package ui

import (
	"sync"
	"time"
)

// Notification is one transient message, the toast analogue.
type Notification struct {
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// maxPending bounds the queue between reads; once full, the oldest
// notification is dropped.
const maxPending = 20

// Notifier queues transient notifications until the next read drains them.
type Notifier struct {
	mu      sync.Mutex
	pending []Notification
}

func NewNotifier() *Notifier {
	return &Notifier{}
}

func (n *Notifier) Notify(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending = append(n.pending, Notification{Message: message, At: time.Now()})
	if len(n.pending) > maxPending {
		n.pending = n.pending[len(n.pending)-maxPending:]
	}
}

// Flush returns all pending notifications and clears them.
func (n *Notifier) Flush() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.pending
	n.pending = nil
	return out
}
