package internal

import (
	"crypto/md5"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	tt "github.com/treetab/treetab/internal/types"
)

const cacheFileName = "result_cache.gob"

type corpusMetadata struct {
	Path         string
	Size         int64
	LastModified time.Time
}

type CacheEntry struct {
	Result       tt.RawResult
	CreatedAt    time.Time
	LastAccessed time.Time
}

// Cache stores raw engine results on disk so that re-running an unchanged
// query file against an unchanged corpus does not start the engine again.
type Cache struct {
	CacheDir string
	entries  map[string]CacheEntry
	mutex    sync.RWMutex
	maxAge   time.Duration
}

func NewCache(cacheDir string) (*Cache, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	cache := &Cache{
		CacheDir: cacheDir,
		entries:  make(map[string]CacheEntry),
	}

	if err := cache.load(); err != nil {
		return nil, fmt.Errorf("failed to load cache: %w", err)
	}

	return cache, nil
}

func (c *Cache) load() error {
	cacheFile := filepath.Join(c.CacheDir, cacheFileName)
	file, err := os.Open(cacheFile)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open cache file: %w", err)
	}
	defer file.Close()

	decoder := gob.NewDecoder(file)
	if err := decoder.Decode(&c.entries); err != nil {
		return fmt.Errorf("failed to decode cache file: %w", err)
	}

	return nil
}

func (c *Cache) save() error {
	cacheFile := filepath.Join(c.CacheDir, cacheFileName)
	file, err := os.Create(cacheFile)
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer file.Close()

	encoder := gob.NewEncoder(file)
	if err := encoder.Encode(c.entries); err != nil {
		return fmt.Errorf("failed to encode cache file: %w", err)
	}

	return nil
}

// Key identifies one invocation: the corpus file as it is now on disk, the
// full engine argument list and the query text.
func (c *Cache) Key(corpus string, argv []string, query string) (string, error) {
	meta, err := getCorpusMetadata(corpus)
	if err != nil {
		return "", err
	}

	hash := md5.New()
	fmt.Fprintf(hash, "%s\x00%d\x00%d\x00", meta.Path, meta.Size, meta.LastModified.UnixNano())
	io.WriteString(hash, strings.Join(argv, "\x00"))
	io.WriteString(hash, "\x00")
	io.WriteString(hash, query)

	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}

// Set stores a successful result. Failed invocations are never cached.
func (c *Cache) Set(key string, result tt.RawResult) error {
	if result.Failed() {
		return nil
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	c.entries[key] = CacheEntry{
		Result:       result,
		CreatedAt:    now,
		LastAccessed: now,
	}

	return c.save()
}

func (c *Cache) Get(key string) (tt.RawResult, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		return tt.RawResult{}, false
	}

	if c.maxAge > 0 && time.Since(entry.CreatedAt) > c.maxAge {
		delete(c.entries, key)
		return tt.RawResult{}, false
	}

	entry.LastAccessed = time.Now()
	c.entries[key] = entry

	return entry.Result, true
}

func (c *Cache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.entries)
}

// SetMaxAge expires entries older than duration. Zero keeps entries forever.
func (c *Cache) SetMaxAge(duration time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.maxAge = duration
}

func (c *Cache) InvalidateAll() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]CacheEntry)
	return c.save()
}

// getCorpusMetadata identifies a corpus by path, size and modification
// time. The corpus content itself is never hashed.
func getCorpusMetadata(corpus string) (corpusMetadata, error) {
	abs, err := filepath.Abs(corpus)
	if err != nil {
		return corpusMetadata{}, fmt.Errorf("failed to resolve corpus path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return corpusMetadata{}, fmt.Errorf("failed to get corpus info: %w", err)
	}
	if info.IsDir() {
		return corpusMetadata{}, fmt.Errorf("corpus %s is a directory", corpus)
	}

	return corpusMetadata{
		Path:         abs,
		Size:         info.Size(),
		LastModified: info.ModTime(),
	}, nil
}
