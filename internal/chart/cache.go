package chart

import (
	"sync"
	"time"
)

// Rendered PNGs are cached briefly so a user tapping the same query twice
// doesn't pay for a second render.
const cacheTTL = 60 * time.Second

type cacheEntry struct {
	createdAt time.Time
	image     []byte
}

var (
	cache   = map[string]cacheEntry{}
	cacheMu sync.Mutex
)

func cacheGet(key string) ([]byte, bool) {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if entry, ok := cache[key]; ok {
		if time.Now().Before(entry.createdAt.Add(cacheTTL)) {
			img := make([]byte, len(entry.image))
			copy(img, entry.image)
			return img, true
		}
	}
	return nil, false
}

func cacheSet(key string, img []byte) {
	cacheMu.Lock()
	cache[key] = cacheEntry{createdAt: time.Now(), image: img}
	cacheMu.Unlock()
}
