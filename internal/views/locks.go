package views

import "sync"

// RowLocks tracks which rows have a write in flight. One RowLocks can be
// shared by every view built for the same screen so the guard holds across
// requests.
type RowLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewRowLocks() *RowLocks {
	return &RowLocks{held: map[string]struct{}{}}
}

// TryLock claims key and reports false if it is already held.
func (l *RowLocks) TryLock(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[key]; busy {
		return false
	}
	l.held[key] = struct{}{}
	return true
}

func (l *RowLocks) Unlock(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
}

func (l *RowLocks) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, busy := l.held[key]
	return busy
}
