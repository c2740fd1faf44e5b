// Package keylock provides a fixed set of mutexes selected by key hash, so
// work on one key is serialized without serializing unrelated keys (beyond
// the occasional stripe collision).
package keylock

import (
	"hash/fnv"
	"sync"
)

type Striped struct {
	stripes []sync.Mutex
}

// New returns a Striped lock with n stripes; n < 1 is treated as 1.
func New(n int) *Striped {
	if n < 1 {
		n = 1
	}
	return &Striped{stripes: make([]sync.Mutex, n)}
}

func (s *Striped) stripe(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &s.stripes[h.Sum32()%uint32(len(s.stripes))]
}

// Lock acquires the stripe for key and returns its unlock func.
func (s *Striped) Lock(key string) (unlock func()) {
	m := s.stripe(key)
	m.Lock()
	return m.Unlock
}

// Do runs fn while holding the stripe for key.
func (s *Striped) Do(key string, fn func() error) error {
	unlock := s.Lock(key)
	defer unlock()
	return fn()
}

// Len reports the number of stripes.
func (s *Striped) Len() int {
	return len(s.stripes)
}
