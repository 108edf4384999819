package gateways

import (
	"context"
	"crypto/md5" //nolint:gosec // G501: cache key only
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/astroimagej/aijpack/internal/domain/entities"
	"github.com/astroimagej/aijpack/internal/domain/interfaces"
	"github.com/astroimagej/aijpack/internal/domain/interfaces/gateways"
)

// RuntimeCacheMaxAge is how long fetched runtime metadata is reused
const RuntimeCacheMaxAge = 30 * 24 * time.Hour

// CachedRuntimeResolver wraps a RuntimeMetadataGateway with a JSON file cache keyed
// by Java version and target set. The cache file is not locked.
type CachedRuntimeResolver struct {
	fetcher gateways.RuntimeMetadataGateway
	dir     string
	maxAge  time.Duration
	now     func() time.Time
	logger  interfaces.Logger
}

// NewCachedRuntimeResolver creates a resolver caching under dir
func NewCachedRuntimeResolver(fetcher gateways.RuntimeMetadataGateway, dir string, logger interfaces.Logger) *CachedRuntimeResolver {
	return &CachedRuntimeResolver{
		fetcher: fetcher,
		dir:     dir,
		maxAge:  RuntimeCacheMaxAge,
		now:     time.Now,
		logger:  interfaces.OrNoOp(logger),
	}
}

// WithClock replaces the clock used for the age check
func (c *CachedRuntimeResolver) WithClock(now func() time.Time) *CachedRuntimeResolver {
	c.now = now
	return c
}

// CachePath is javaRuntimeSystems-<java>-<md5 of the target set>.json below the cache dir
func (c *CachedRuntimeResolver) CachePath(javaVersion int, targets map[string]entities.Target) (string, error) {
	// json.Marshal sorts map keys, so the digest is stable
	data, err := json.Marshal(targets)
	if err != nil {
		return "", fmt.Errorf("failed to hash target set: %w", err)
	}
	//nolint:gosec // G401: cache key only
	sum := md5.Sum(data)
	name := fmt.Sprintf("javaRuntimeSystems-%d-%s.json", javaVersion, hex.EncodeToString(sum[:]))
	return filepath.Join(c.dir, name), nil
}

// ResolveRuntimes returns one descriptor per target id. A cache younger than the max
// age whose entries are all complete is used as-is; otherwise every target is fetched
// again and the cache rewritten. Incomplete descriptors are returned, not dropped.
func (c *CachedRuntimeResolver) ResolveRuntimes(ctx context.Context, javaVersion int, targets map[string]entities.Target) map[string]*entities.RuntimeDescriptor {
	path, err := c.CachePath(javaVersion, targets)
	if err != nil {
		c.logger.Warn("Runtime cache disabled", interfaces.Err(err))
		return c.fetchAll(ctx, javaVersion, targets)
	}

	if cached, ok := c.load(path, targets); ok {
		c.logger.Debug("Using cached runtime metadata", interfaces.F("file", path))
		return cached
	}

	descs := c.fetchAll(ctx, javaVersion, targets)
	if err := c.store(path, descs); err != nil {
		c.logger.Warn("Failed to write runtime cache", interfaces.F("file", path), interfaces.Err(err))
	}
	return descs
}

func (c *CachedRuntimeResolver) fetchAll(ctx context.Context, javaVersion int, targets map[string]entities.Target) map[string]*entities.RuntimeDescriptor {
	descs := make(map[string]*entities.RuntimeDescriptor, len(targets))
	for id, target := range targets {
		if target.ID == "" {
			target.ID = id
		}
		descs[id] = c.fetcher.FetchRuntime(ctx, javaVersion, target)
	}
	return descs
}

func (c *CachedRuntimeResolver) load(path string, targets map[string]entities.Target) (map[string]*entities.RuntimeDescriptor, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	if c.now().Sub(info.ModTime()) > c.maxAge {
		c.logger.Debug("Runtime cache expired", interfaces.F("file", path))
		return nil, false
	}

	//nolint:gosec // G304: path is derived from the cache dir
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var descs map[string]*entities.RuntimeDescriptor
	if err := json.Unmarshal(data, &descs); err != nil {
		c.logger.Warn("Ignoring unreadable runtime cache", interfaces.F("file", path), interfaces.Err(err))
		return nil, false
	}

	for id := range targets {
		if !descs[id].IsComplete() {
			return nil, false
		}
	}
	return descs, true
}

func (c *CachedRuntimeResolver) store(path string, descs map[string]*entities.RuntimeDescriptor) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	data, err := json.MarshalIndent(descs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode runtime cache: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write runtime cache: %w", err)
	}
	return nil
}
