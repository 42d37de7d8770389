package app

import "sync"

// roomLocks serializes check-and-reserve per room id within this process.
// The database row lock in the repository is the cross-process backstop;
// holding a local mutex first just keeps contending requests from piling up
// on the database. Entries are never evicted — the map is bounded by the
// number of rooms ever booked through this instance.
type roomLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func (r *roomLocks) lock(roomID int64) (unlock func()) {
	r.mu.Lock()
	if r.locks == nil {
		r.locks = make(map[int64]*sync.Mutex)
	}
	m, ok := r.locks[roomID]
	if !ok {
		m = &sync.Mutex{}
		r.locks[roomID] = m
	}
	r.mu.Unlock()

	m.Lock()
	return m.Unlock
}
