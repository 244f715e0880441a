package watcher

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mohammed-shakir/skjalftalisa/pkg/skjalftalisa"
)

// seenSet remembers the most recently published quakes. Lookback windows overlap from
// one poll to the next, so most rows of a poll were already published last time.
type seenSet struct {
	mu  sync.Mutex
	lru *lru.Cache[uint64, int64]
}

func newSeenSet(size int) *seenSet {
	if size <= 0 {
		size = 8192
	}
	c, _ := lru.New[uint64, int64](size)
	return &seenSet{lru: c}
}

func (s *seenSet) seen(q skjalftalisa.Quake) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Contains(q.Key())
}

func (s *seenSet) mark(qs []skjalftalisa.Quake) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range qs {
		s.lru.Add(q.Key(), q.Time)
	}
}

func (s *seenSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}
