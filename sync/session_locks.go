package sync

import (
	gosync "sync"
)

// SessionLocks gives every session one in-process mutex, so all state
// machine, roster and scoring operations for a session form a total order
// while different sessions proceed in parallel. The store's row-level
// FOR UPDATE lock extends the same serialization across processes; this
// lock additionally covers the publish step, keeping broadcast order equal
// to commit order.
//
// Entries are reference-counted: a session's entry exists only while some
// operation holds or waits for its mutex, so finished sessions leave
// nothing behind in the map.
type SessionLocks struct {
	mu    gosync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   gosync.Mutex
	refs int
}

func NewSessionLocks() *SessionLocks {
	return &SessionLocks{
		locks: make(map[string]*sessionLock),
	}
}

func (l *SessionLocks) Lock(sessionID string) {
	l.mu.Lock()
	entry, ok := l.locks[sessionID]
	if !ok {
		entry = &sessionLock{}
		l.locks[sessionID] = entry
	}
	entry.refs++
	l.mu.Unlock()
	entry.mu.Lock()
}

func (l *SessionLocks) Unlock(sessionID string) {
	l.mu.Lock()
	entry := l.locks[sessionID]
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, sessionID)
	}
	l.mu.Unlock()
	entry.mu.Unlock()
}
