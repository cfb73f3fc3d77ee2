package catalog

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/orbitwatch/orbitwatch/internal/elements"
)

// Loader combines the fetcher, disk cache, and store into one refresh
// pipeline: fetch each group, fall back to its cached file when the
// source is unreachable, parse everything, and publish a new snapshot.
type Loader struct {
	fetcher *Fetcher
	cache   *Cache
	store   *Store
	groups  []string
	logger  *slog.Logger
}

// NewLoader wires a Loader for the given groups.
func NewLoader(fetcher *Fetcher, cache *Cache, store *Store, groups []string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		fetcher: fetcher,
		cache:   cache,
		store:   store,
		groups:  groups,
		logger:  logger,
	}
}

// Store returns the store the loader publishes to.
func (l *Loader) Store() *Store { return l.store }

// Refresh rebuilds the catalog snapshot and returns the object count.
// Each group is fetched independently; a group whose fetch fails falls
// back to its cached file, stale or not, and is skipped only when no
// cached copy exists either. Refresh fails whole only when every group
// yields nothing, leaving the previous snapshot in place.
func (l *Loader) Refresh(ctx context.Context) (int, error) {
	l.store.Lock()
	defer l.store.Unlock()

	sets := make(map[int]elements.ElementSet)
	var loaded []string
	stale := false
	fetchedAt := time.Now()

	for _, group := range l.groups {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		data, ts, groupStale, err := l.groupData(ctx, group)
		if err != nil {
			l.logger.Warn("catalog group unavailable", "group", group, "error", err)
			continue
		}

		parsed, err := elements.ParseCatalog(bytes.NewReader(data), l.logger)
		if err != nil {
			l.logger.Warn("catalog group unparseable", "group", group, "error", err)
			continue
		}

		for _, set := range parsed {
			// Objects appearing in several groups keep the newest epoch.
			if prev, ok := sets[set.CatalogNumber]; ok && !set.Epoch.After(prev.Epoch) {
				continue
			}
			sets[set.CatalogNumber] = set
		}
		loaded = append(loaded, group)
		if groupStale {
			stale = true
			if ts.Before(fetchedAt) {
				fetchedAt = ts
			}
		}
		l.logger.Info("catalog group loaded",
			"group", group,
			"objects", len(parsed),
			"stale", groupStale,
		)
	}

	if len(sets) == 0 {
		return 0, fmt.Errorf("no catalog data available for groups %v", l.groups)
	}

	l.store.Replace(&Snapshot{
		Sets:      sets,
		Groups:    loaded,
		FetchedAt: fetchedAt,
		Stale:     stale,
	})
	return len(sets), nil
}

// groupData returns one group's raw text: a live fetch when possible,
// otherwise the cached copy with its write time and staleness.
func (l *Loader) groupData(ctx context.Context, group string) ([]byte, time.Time, bool, error) {
	data, err := l.fetcher.FetchGroup(ctx, group)
	if err == nil {
		if werr := l.cache.Write(group, data); werr != nil {
			l.logger.Warn("catalog cache write failed", "group", group, "error", werr)
		}
		return data, time.Now(), false, nil
	}

	l.logger.Warn("catalog fetch failed, trying cache", "group", group, "error", err)
	cached, ts, cerr := l.cache.Load(group)
	if cerr != nil {
		return nil, time.Time{}, false, fmt.Errorf("fetch failed (%v) and %w", err, cerr)
	}
	return cached, ts, time.Since(ts) >= l.cache.TTL(), nil
}
