package cache

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 64

// keyLocks serialises compound operations on the same key while letting
// different keys proceed in parallel.
type keyLocks struct {
	stripes [lockStripes]sync.Mutex
}

func stripeFor(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % lockStripes)
}

// lock acquires the stripe owning key and returns its release func
func (k *keyLocks) lock(key string) func() {
	mu := &k.stripes[stripeFor(key)]
	mu.Lock()
	return mu.Unlock
}

// lockAll acquires every stripe in index order
func (k *keyLocks) lockAll() func() {
	for i := range k.stripes {
		k.stripes[i].Lock()
	}
	return func() {
		for i := len(k.stripes) - 1; i >= 0; i-- {
			k.stripes[i].Unlock()
		}
	}
}
