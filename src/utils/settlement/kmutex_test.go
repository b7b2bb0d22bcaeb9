package settlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	m := newKeyedMutex()
	unlock := m.Lock("deal-1")

	acquired := make(chan struct{})
	go func() {
		u := m.Lock("deal-1")
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a held lock")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second holder never acquired the lock")
	}
}

func TestKeyedMutexKeysIndependent(t *testing.T) {
	m := newKeyedMutex()
	unlockA := m.Lock("deal-a")
	unlockB := m.Lock("deal-b")
	unlockB()
	unlockA()
}

func TestKeyedMutexDropsReleasedEntries(t *testing.T) {
	m := newKeyedMutex()
	unlock := m.Lock("deal-1")
	unlock()

	m.mtx.Lock()
	defer m.mtx.Unlock()
	assert.Empty(t, m.locks)
}
