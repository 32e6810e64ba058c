package store

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// knownIDs remembers ids that are known to be committed. Committed entries
// are never removed, so a positive answer never goes stale; misses always
// go to the database.
type knownIDs struct {
	cache *lru.Cache[int64, struct{}]
}

func newKnownIDs(size int) *knownIDs {
	cache, err := lru.New[int64, struct{}](size)
	if err != nil {
		// Only a non-positive size fails.
		panic(err)
	}
	return &knownIDs{cache: cache}
}

func (k *knownIDs) add(id int64) {
	k.cache.Add(id, struct{}{})
}

func (k *knownIDs) contains(id int64) bool {
	return k.cache.Contains(id)
}
