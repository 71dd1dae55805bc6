package cache

import (
	"sync"
	"time"

	"github.com/golang/groupcache/lru"

	"deskweb/internal/win"
)

// Service implements an LRU cache of window classifications. The mouse hook
// asks "is the window under the cursor part of the desktop?" on every move,
// and answering it costs several cross-process calls, so answers are kept
// per handle for a short time. Handles are recycled by the OS, which is why
// entries expire.
type Service struct {
	mu        sync.Mutex
	maxSize   int
	ttl       time.Duration
	now       func() time.Time
	entries   *lru.Cache // keyed by win.HWND, values are *cacheEntry
	hits      uint64
	misses    uint64
	expiries  uint64
	evictions uint64
}

// Class is what the cache remembers about a window.
type Class struct {
	Name         string `json:"name"`
	DesktopOwned bool   `json:"desktop_owned"`
}

// cacheEntry holds a classification with metadata
type cacheEntry struct {
	class     Class
	timestamp time.Time
}

// Default limits used when the caller passes zero values.
const (
	DefaultSize = 256
	DefaultTTL  = 2 * time.Second
)

// New creates a new cache service
func New(maxSize int, ttl time.Duration) *Service {
	if maxSize <= 0 {
		maxSize = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Service{
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
		entries: lru.New(maxSize),
	}
}

// Get returns the cached classification of hwnd, if any and still fresh.
func (s *Service) Get(hwnd win.HWND) (Class, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, exists := s.entries.Get(hwnd)
	if !exists {
		s.misses++
		return Class{}, false
	}

	entry := v.(*cacheEntry)
	if s.now().Sub(entry.timestamp) > s.ttl {
		// Entry is stale, remove it
		s.entries.Remove(hwnd)
		s.expiries++
		s.misses++
		return Class{}, false
	}

	s.hits++
	return entry.class, true
}

// Set caches the classification of hwnd
func (s *Service) Set(hwnd win.HWND, class Class) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, exists := s.entries.Get(hwnd); exists {
		entry := v.(*cacheEntry)
		entry.class = class
		entry.timestamp = s.now()
		return
	}

	// A new key that does not grow the cache pushed the oldest one out
	before := s.entries.Len()
	s.entries.Add(hwnd, &cacheEntry{class: class, timestamp: s.now()})
	if s.entries.Len() == before {
		s.evictions++
	}
}

// Forget drops hwnd from the cache, e.g. after the window is destroyed.
func (s *Service) Forget(hwnd win.HWND) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries.Remove(hwnd)
}

// Clear removes all entries from the cache
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries.Clear()
}

// Size returns the current cache size
func (s *Service) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries.Len()
}

// Stats returns cache statistics
func (s *Service) Stats() CacheStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return CacheStats{
		Size:      s.entries.Len(),
		MaxSize:   s.maxSize,
		Hits:      s.hits,
		Misses:    s.misses,
		Expiries:  s.expiries,
		Evictions: s.evictions,
	}
}

// CacheStats holds cache statistics
type CacheStats struct {
	Size      int    `json:"size"`
	MaxSize   int    `json:"max_size"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Expiries  uint64 `json:"expiries"`
	Evictions uint64 `json:"evictions"`
}
