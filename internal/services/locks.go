package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// KeyLocker serializes read-modify-write cycles on one ledger or submission key.
// The returned func releases the lock.
type KeyLocker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

func progressLockKey(studentID, weekID uuid.UUID) string {
	return fmt.Sprintf("progress:%s:%s", studentID, weekID)
}

func submissionLockKey(studentID, weekID uuid.UUID, materialID string) string {
	return fmt.Sprintf("submission:%s:%s:%s", studentID, weekID, materialID)
}

type localLocker struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	ch   chan struct{}
	refs int
}

// NewLocalLocker returns an in-process keyed mutex for single-replica deployments.
func NewLocalLocker() KeyLocker {
	return &localLocker{locks: map[string]*refMutex{}}
}

func (l *localLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &refMutex{ch: make(chan struct{}, 1)}
		l.locks[key] = m
	}
	m.refs++
	l.mu.Unlock()

	select {
	case m.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, m)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-m.ch
			l.release(key, m)
		})
	}, nil
}

func (l *localLocker) release(key string, m *refMutex) {
	l.mu.Lock()
	m.refs--
	if m.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}
