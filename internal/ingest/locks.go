package ingest

import "sync"

// cameraLocks serializes evaluate and persist per camera so that two events
// from one camera cannot both miss each other in the duplicate check. An
// entry lives only while some request holds or waits for it.
type cameraLocks struct {
	mu    sync.Mutex
	locks map[string]*cameraLock
}

type cameraLock struct {
	sync.Mutex
	refs int // holders plus waiters, guarded by cameraLocks.mu
}

func newCameraLocks() *cameraLocks {
	return &cameraLocks{locks: make(map[string]*cameraLock)}
}

// lock acquires the camera mutex and returns its unlock function. The
// returned function must be called exactly once.
func (l *cameraLocks) lock(cameraID string) func() {
	l.mu.Lock()
	m, ok := l.locks[cameraID]
	if !ok {
		m = &cameraLock{}
		l.locks[cameraID] = m
	}
	m.refs++
	l.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		l.mu.Lock()
		if m.refs--; m.refs == 0 {
			delete(l.locks, cameraID)
		}
		l.mu.Unlock()
	}
}

