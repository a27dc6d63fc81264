package index

import "sync"

// Locks coordinates collection writers and readers. Each document has its
// own mutex so two workers never index the same document at once, while
// the swap gate covers the short delete-and-upsert window that replaces a
// document's chunks. Queries hold the read side of the gate and therefore
// never observe a document that is half old, half new.
type Locks struct {
	mu   sync.Mutex
	docs map[string]*sync.Mutex
	gate sync.RWMutex
}

// NewLocks creates an empty lock table.
func NewLocks() *Locks {
	return &Locks{docs: make(map[string]*sync.Mutex)}
}

// LockDocument acquires the mutex for one document and returns its
// release function.
func (l *Locks) LockDocument(id string) func() {
	l.mu.Lock()
	m, ok := l.docs[id]
	if !ok {
		m = &sync.Mutex{}
		l.docs[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Swap runs fn while holding the write gate. Embedding happens before the
// swap, so fn should contain only the delete and upsert calls.
func (l *Locks) Swap(fn func() error) error {
	l.gate.Lock()
	defer l.gate.Unlock()
	return fn()
}

// RLock takes the read side of the swap gate.
func (l *Locks) RLock() {
	l.gate.RLock()
}

// RUnlock releases the read side of the swap gate.
func (l *Locks) RUnlock() {
	l.gate.RUnlock()
}
