package keylock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTryLockExcludesSecondHolder(t *testing.T) {
	kl := New()

	assert.True(t, kl.TryLock("post-1"))
	assert.False(t, kl.TryLock("post-1"), "second TryLock on same key must fail")
	assert.True(t, kl.TryLock("post-2"), "different key must be independent")

	kl.Unlock("post-1")
	assert.True(t, kl.TryLock("post-1"), "lock must be reusable after Unlock")

	kl.Unlock("post-1")
	kl.Unlock("post-2")
}

func TestLockSerializesWriters(t *testing.T) {
	kl := New()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			kl.Lock("item")
			counter++
			kl.Unlock("item")
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestUnlockReleasesMapEntry(t *testing.T) {
	kl := New()
	kl.Lock("a")
	kl.Unlock("a")

	kl.mu.Lock()
	defer kl.mu.Unlock()
	assert.Empty(t, kl.locks, "entries must be reclaimed once released")
}
