package vfs

import (
	"context"
	"math"
	"sync"
	"syscall"

	"github.com/google/uuid"
)

// LockType is the type of a POSIX record lock.
type LockType int

const (
	LockRead LockType = iota
	LockWrite
	LockUnlock
)

// LockCmd selects the PosixLock operation.
type LockCmd int

const (
	// LockGet reports the first lock that would block the request.
	LockGet LockCmd = iota
	// LockSet acquires or releases without waiting (EAGAIN on conflict).
	LockSet
	// LockSetWait acquires, waiting for conflicting locks to go away.
	LockSetWait
)

// Flock describes a byte range lock. Start is absolute; Len 0 extends to
// the end of the file and beyond.
type Flock struct {
	Type  LockType
	Start int64
	Len   int64
	Pid   int
}

func (l Flock) end() int64 {
	if l.Len == 0 {
		return math.MaxInt64
	}
	return l.Start + l.Len
}

func (l Flock) overlaps(o Flock) bool {
	return l.Start < o.end() && o.Start < l.end()
}

type heldLock struct {
	owner *FD
	Flock
}

// lockTable holds the record locks of every object in a session.
type lockTable struct {
	mu      sync.Mutex
	locks   map[uuid.UUID][]heldLock
	changed chan struct{}
}

func newLockTable() *lockTable {
	return &lockTable{
		locks:   make(map[uuid.UUID][]heldLock),
		changed: make(chan struct{}),
	}
}

// notifyLocked wakes every waiter. Caller holds mu.
func (t *lockTable) notifyLocked() {
	close(t.changed)
	t.changed = make(chan struct{})
}

func (t *lockTable) conflictLocked(id uuid.UUID, owner *FD, req Flock) (Flock, bool) {
	for _, h := range t.locks[id] {
		if h.owner == owner || !h.overlaps(req) {
			continue
		}
		if h.Type == LockWrite || req.Type == LockWrite {
			return h.Flock, true
		}
	}
	return Flock{}, false
}

// get implements F_GETLK: the conflicting lock, or req with type unlock.
func (t *lockTable) get(id uuid.UUID, owner *FD, req Flock) Flock {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.conflictLocked(id, owner, req); ok {
		return c
	}
	req.Type = LockUnlock
	return req
}

// set implements F_SETLK and F_SETLKW.
func (t *lockTable) set(ctx context.Context, id uuid.UUID, owner *FD, req Flock, wait bool) error {
	t.mu.Lock()
	for req.Type != LockUnlock {
		if _, ok := t.conflictLocked(id, owner, req); !ok {
			break
		}
		if !wait {
			t.mu.Unlock()
			return syscall.EAGAIN
		}
		changed := t.changed
		t.mu.Unlock()
		select {
		case <-ctx.Done():
			return syscall.EINTR
		case <-changed:
		}
		t.mu.Lock()
	}
	defer t.mu.Unlock()

	t.locks[id] = applyLock(t.locks[id], owner, req)
	if len(t.locks[id]) == 0 {
		delete(t.locks, id)
	}
	t.notifyLocked()
	return nil
}

// applyLock carves req's range out of owner's existing locks and adds req
// unless it is an unlock.
func applyLock(held []heldLock, owner *FD, req Flock) []heldLock {
	out := make([]heldLock, 0, len(held)+2)
	for _, h := range held {
		if h.owner != owner || !h.overlaps(req) {
			out = append(out, h)
			continue
		}
		if h.Start < req.Start {
			left := h
			left.Len = req.Start - h.Start
			out = append(out, left)
		}
		if req.end() < h.end() {
			right := h
			right.Start = req.end()
			if h.Len != 0 {
				right.Len = h.end() - req.end()
			}
			out = append(out, right)
		}
	}
	if req.Type != LockUnlock {
		out = append(out, heldLock{owner: owner, Flock: req})
	}
	return out
}

// releaseAll drops every lock held by owner on id.
func (t *lockTable) releaseAll(id uuid.UUID, owner *FD) {
	t.mu.Lock()
	defer t.mu.Unlock()

	held := t.locks[id]
	kept := held[:0]
	for _, h := range held {
		if h.owner != owner {
			kept = append(kept, h)
		}
	}
	if len(kept) == len(held) {
		return
	}
	if len(kept) == 0 {
		delete(t.locks, id)
	} else {
		t.locks[id] = kept
	}
	t.notifyLocked()
}
