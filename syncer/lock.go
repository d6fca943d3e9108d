package syncer

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// AccountLock serialises portal operations per account id.
type AccountLock struct {
	mu    sync.Mutex
	locks map[string]*semaphore.Weighted
}

func NewAccountLock() *AccountLock {
	return &AccountLock{locks: make(map[string]*semaphore.Weighted)}
}

func (l *AccountLock) sem(account string) *semaphore.Weighted {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.locks[account]
	if !ok {
		s = semaphore.NewWeighted(1)
		l.locks[account] = s
	}
	return s
}

// Acquire blocks until account is free or ctx is done. The returned func releases it.
func (l *AccountLock) Acquire(ctx context.Context, account string) (func(), error) {
	s := l.sem(account)
	if err := s.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	var once sync.Once
	return func() { once.Do(func() { s.Release(1) }) }, nil
}

// TryAcquire is Acquire without waiting; ok is false when account is busy.
func (l *AccountLock) TryAcquire(account string) (release func(), ok bool) {
	s := l.sem(account)
	if !s.TryAcquire(1) {
		return nil, false
	}
	var once sync.Once
	return func() { once.Do(func() { s.Release(1) }) }, true
}
