package store

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const defaultStripes = 256

// Locks is a fixed set of mutexes. Stores of the same key get the same mutex, so stores built
// per request still serialize their updates while memory stays bounded.
type Locks struct {
	stripes []sync.Mutex
}

func NewLocks(size int) *Locks {
	if size <= 0 {
		size = defaultStripes
	}
	return &Locks{stripes: make([]sync.Mutex, size)}
}

func (l *Locks) For(key string) sync.Locker {
	return &l.stripes[xxhash.Sum64String(key)%uint64(len(l.stripes))]
}
