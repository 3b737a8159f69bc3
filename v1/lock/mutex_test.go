package lock

import (
	"context"
	"testing"
	"time"
)

func TestMutexLockUnlock(t *testing.T) {
	m := NewMutex()
	m.Lock()
	if m.TryLock() {
		t.Fatal("TryLock succeeded on held mutex")
	}
	m.Unlock()
	if !m.TryLock() {
		t.Fatal("TryLock failed on free mutex")
	}
	m.Unlock()
}

func TestMutexUnlockOfUnlockedPanics(t *testing.T) {
	m := NewMutex()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	m.Unlock()
}

func TestMutexTryLockFor(t *testing.T) {
	m := NewMutex()
	m.Lock()
	start := time.Now()
	if m.TryLockFor(10 * time.Millisecond) {
		t.Fatal("TryLockFor succeeded on held mutex")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatal("TryLockFor did not respect its deadline")
	}
	go func() {
		time.Sleep(20 * time.Millisecond)
		m.Unlock()
	}()
	if !m.TryLockFor(time.Second) {
		t.Fatal("TryLockFor failed after release")
	}
	m.Unlock()
}

func TestMutexAcquireContext(t *testing.T) {
	m := NewMutex()
	m.Lock()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	start := time.Now()
	if err := m.Acquire(ctx); err == nil {
		t.Fatal("expected context error")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatal("Acquire did not respect context deadline")
	}
	m.Unlock()
	if err := m.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	m.Unlock()
}
