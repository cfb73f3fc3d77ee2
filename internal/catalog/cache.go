package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Cache stores each group's raw element-set text as one file on disk,
// named after the group. File modification time doubles as the fetch
// timestamp: a file younger than the TTL is fresh, an older one is stale
// but still loadable as a fallback when the remote source is down.
type Cache struct {
	dir string
	ttl time.Duration
}

// NewCache creates a Cache rooted at dir. A non-positive TTL defaults to
// six hours.
func NewCache(dir string, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &Cache{dir: dir, ttl: ttl}
}

// TTL returns the freshness window.
func (c *Cache) TTL() time.Duration { return c.ttl }

func (c *Cache) path(group string) string {
	// Group names come from config; flatten any path separators so a
	// malicious name cannot escape the cache dir.
	safe := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == '.' {
			return '_'
		}
		return r
	}, group)
	return filepath.Join(c.dir, safe+".tle")
}

// Write saves one group's raw text, replacing any previous copy.
func (c *Cache) Write(group string, data []byte) error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	if err := os.WriteFile(c.path(group), data, 0644); err != nil {
		return fmt.Errorf("writing cache file for group %q: %w", group, err)
	}
	return nil
}

// Load reads one group's cached text and its write time. Stale entries
// load without error; callers decide whether stale data is acceptable.
func (c *Cache) Load(group string) ([]byte, time.Time, error) {
	path := c.path(group)
	info, err := os.Stat(path)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("no cache for group %q: %w", group, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading cache file for group %q: %w", group, err)
	}
	return data, info.ModTime(), nil
}

// Fresh reports whether a cached copy of the group exists and is younger
// than the TTL.
func (c *Cache) Fresh(group string) bool {
	info, err := os.Stat(c.path(group))
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) < c.ttl
}
