package settlement

import "sync"

// keyedMutex serializes settlement attempts per deal within the process.
// Entries are refcounted and removed once the last holder releases.
type keyedMutex struct {
	mtx   sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mtx  sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[string]*keyedLock{}}
}

// Lock blocks until the key is held, returns the matching unlock.
func (self *keyedMutex) Lock(key string) (unlock func()) {
	self.mtx.Lock()
	lock, ok := self.locks[key]
	if !ok {
		lock = new(keyedLock)
		self.locks[key] = lock
	}
	lock.refs += 1
	self.mtx.Unlock()

	lock.mtx.Lock()

	return func() {
		lock.mtx.Unlock()

		self.mtx.Lock()
		lock.refs -= 1
		if lock.refs == 0 {
			delete(self.locks, key)
		}
		self.mtx.Unlock()
	}
}
