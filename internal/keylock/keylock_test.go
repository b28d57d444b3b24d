package keylock_test

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"pokequest/internal/keylock"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLockSerializesSameKey(t *testing.T) {
	locker := keylock.New()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locker.Lock("ash")
			defer unlock()
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Fatalf("expected 50 increments, got %d", counter)
	}
	if locker.Len() != 0 {
		t.Fatalf("expected entries to be released, got %d", locker.Len())
	}
}

func TestLockDifferentKeysDoNotBlock(t *testing.T) {
	locker := keylock.New()
	unlockA := locker.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := locker.Lock("b")
		unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("lock on a different key blocked")
	}
}

func TestUnlockIsIdempotent(t *testing.T) {
	locker := keylock.New()
	unlock := locker.Lock("a")
	unlock()
	unlock()
	if locker.Len() != 0 {
		t.Fatalf("expected no entries, got %d", locker.Len())
	}
	again := locker.Lock("a")
	again()
}
