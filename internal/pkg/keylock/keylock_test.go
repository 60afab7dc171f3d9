package keylock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyLockSerializesSameKey(t *testing.T) {
	t.Parallel()

	kl := New()

	counter := 0
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			kl.Lock(1)
			defer kl.Unlock(1)
			counter++
		}()
	}

	wg.Wait()
	assert.Equal(t, 100, counter)
}

func TestKeyLockDifferentKeysDoNotBlock(t *testing.T) {
	t.Parallel()

	kl := New()
	kl.Lock(1)
	defer kl.Unlock(1)

	acquired := make(chan struct{})
	go func() {
		kl.Lock(2)
		defer kl.Unlock(2)
		close(acquired)
	}()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("lock on a different key blocked")
	}
}

func TestKeyLockEntriesAreReclaimed(t *testing.T) {
	t.Parallel()

	kl := New()

	var wg sync.WaitGroup
	for key := uint(1); key <= 50; key++ {
		key := key
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				kl.Lock(key)
				kl.Unlock(key)
			}()
		}
	}
	wg.Wait()

	// last release of each key must drop its entry
	assert.Equal(t, 0, kl.Len())
}

func TestKeyLockLenTracksHeldKeys(t *testing.T) {
	t.Parallel()

	kl := New()
	require.Equal(t, 0, kl.Len())

	kl.Lock(1)
	kl.Lock(2)
	assert.Equal(t, 2, kl.Len())

	kl.Unlock(1)
	assert.Equal(t, 1, kl.Len())

	kl.Unlock(2)
	assert.Equal(t, 0, kl.Len())
}

func TestKeyLockUnlockUnheldPanics(t *testing.T) {
	t.Parallel()

	kl := New()
	assert.Panics(t, func() {
		kl.Unlock(99)
	})
}
