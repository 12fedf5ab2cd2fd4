package fscache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pantrypilot/recipe-agent/internal/core/domain"
)

// Cache persists one enrichment entry per recipe key as a JSON file under
// basePath. Writes go through a temp file and rename so a crash never leaves
// a half-written entry behind.
type Cache struct {
	basePath string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(basePath string) (*Cache, error) {
	if basePath == "" {
		basePath = "./data/enrichment-cache"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{
		basePath: basePath,
		locks:    make(map[string]*sync.Mutex),
	}, nil
}

func (c *Cache) Get(ctx context.Context, key string) (*domain.CacheEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if key == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "fscache.Get", fmt.Errorf("empty cache key"))
	}

	lock := c.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	data, err := os.ReadFile(c.entryPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.WrapError(domain.ErrCacheMiss, "fscache.Get", err)
		}
		return nil, fmt.Errorf("read cache entry: %w", err)
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		// A corrupted entry is treated as absent; the next Put rewrites it.
		return nil, domain.WrapError(domain.ErrCacheMiss, "fscache.Get", fmt.Errorf("decode cache entry: %w", err))
	}
	if entry.Key != key {
		return nil, domain.WrapError(domain.ErrCacheMiss, "fscache.Get", fmt.Errorf("entry key %q does not match file key %q", entry.Key, key))
	}
	return &entry, nil
}

func (c *Cache) Put(ctx context.Context, entry domain.CacheEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if entry.Key == "" {
		return domain.WrapError(domain.ErrInvalidInput, "fscache.Put", fmt.Errorf("empty cache key"))
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	lock := c.keyLock(entry.Key)
	lock.Lock()
	defer lock.Unlock()

	path := c.entryPath(entry.Key)
	tmp, err := os.CreateTemp(c.basePath, entry.Key+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp entry: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp entry: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("publish cache entry: %w", err)
	}
	return nil
}

func (c *Cache) entryPath(key string) string {
	return filepath.Join(c.basePath, key+".json")
}

func (c *Cache) keyLock(key string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	lock, ok := c.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[key] = lock
	}
	return lock
}
