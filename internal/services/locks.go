package services

import (
	"sync"

	"github.com/google/uuid"
)

// TreeLocks serializes mutations against the album tree and the per-album
// namespaces. Structural mutations (album create/rename/move/delete) hold the
// tree lock exclusively; photo mutations hold it shared, so album paths are
// stable while they run, plus a per-album mutex that serializes
// uniqueness-check-then-insert for that album. Read-only lookups take no
// lock.
type TreeLocks struct {
	tree sync.RWMutex

	mu     sync.Mutex
	albums map[uuid.UUID]*sync.Mutex
}

func NewTreeLocks() *TreeLocks {
	return &TreeLocks{albums: make(map[uuid.UUID]*sync.Mutex)}
}

func (t *TreeLocks) LockTree()    { t.tree.Lock() }
func (t *TreeLocks) UnlockTree()  { t.tree.Unlock() }
func (t *TreeLocks) RLockTree()   { t.tree.RLock() }
func (t *TreeLocks) RUnlockTree() { t.tree.RUnlock() }

// Album returns the naming mutex for an album, creating it on first use.
// Mutexes are never evicted; the table grows with the number of albums ever
// touched, which is small.
func (t *TreeLocks) Album(id uuid.UUID) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()

	lock, ok := t.albums[id]
	if !ok {
		lock = &sync.Mutex{}
		t.albums[id] = lock
	}
	return lock
}

// LockAlbumPair locks two album mutexes in a stable order so concurrent
// moves between the same pair of albums cannot deadlock.
func (t *TreeLocks) LockAlbumPair(a, b uuid.UUID) func() {
	if a == b {
		lock := t.Album(a)
		lock.Lock()
		return lock.Unlock
	}

	first, second := a, b
	if second.String() < first.String() {
		first, second = second, first
	}

	firstLock := t.Album(first)
	secondLock := t.Album(second)
	firstLock.Lock()
	secondLock.Lock()
	return func() {
		secondLock.Unlock()
		firstLock.Unlock()
	}
}
