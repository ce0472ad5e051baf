package commands

import "sync"

// DeliveryLocks serialises work on a single delivery: at most one
// transition per delivery id is in flight. Entries are dropped once no
// goroutine holds or waits for them.
//
// One DeliveryLocks must be shared by every handler of a process.
type DeliveryLocks struct {
	mu    sync.Mutex
	locks map[int64]*deliveryLock
}

type deliveryLock struct {
	mu   sync.Mutex
	refs int
}

func NewDeliveryLocks() *DeliveryLocks {
	return &DeliveryLocks{locks: make(map[int64]*deliveryLock)}
}

// Lock blocks until the delivery is free and returns the function that
// frees it again.
func (l *DeliveryLocks) Lock(id int64) (unlock func()) {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &deliveryLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

// Len is the number of deliveries currently locked or waited on.
func (l *DeliveryLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
