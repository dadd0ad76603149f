package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	cacheFileName = "registry-cache.json"
	// DefaultCacheMaxAge is the default maximum age of a cached crate entry.
	DefaultCacheMaxAge = 10 * time.Minute
)

// Cache holds cached registry responses keyed by crate name.
type Cache struct {
	Crates map[string]CacheEntry `json:"crates"`
}

// CacheEntry is the cached version list of one crate.
type CacheEntry struct {
	Versions  []Version `json:"versions"`
	CheckedAt time.Time `json:"checked_at"`
}

// IsStale returns true if the entry is older than maxAge.
func (e CacheEntry) IsStale(maxAge time.Duration) bool {
	return time.Since(e.CheckedAt) > maxAge
}

// LoadCache reads the registry cache from dir. A missing file yields an
// empty cache.
func LoadCache(dir string) (*Cache, error) {
	path := filepath.Join(dir, cacheFileName)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Cache{Crates: map[string]CacheEntry{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading registry cache: %w", err)
	}

	var cache Cache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, fmt.Errorf("parsing registry cache: %w", err)
	}
	if cache.Crates == nil {
		cache.Crates = map[string]CacheEntry{}
	}
	return &cache, nil
}

// SaveCache writes the registry cache to dir.
func SaveCache(dir string, cache *Cache) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling registry cache: %w", err)
	}

	path := filepath.Join(dir, cacheFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing registry cache: %w", err)
	}
	return nil
}

// UpdateCache records the versions of one crate. A corrupted cache file is
// replaced.
func UpdateCache(dir, name string, versions []Version) error {
	cache, err := LoadCache(dir)
	if err != nil {
		cache = &Cache{Crates: map[string]CacheEntry{}}
	}
	cache.Crates[name] = CacheEntry{Versions: versions, CheckedAt: time.Now()}
	return SaveCache(dir, cache)
}
