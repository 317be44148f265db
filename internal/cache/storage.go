package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by GetItem when the key has never been written.
var ErrNotFound = errors.New("key not found")

// Storage is the durable key-value primitive the price cache serializes
// through. Values are opaque strings; the cache owns the JSON shape.
type Storage interface {
	GetItem(ctx context.Context, key string) (string, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// RedisStorage backs the cache with Redis so snapshots survive restarts and
// are shared between processes.
type RedisStorage struct {
	client *redis.Client
}

func NewRedisStorage(client *redis.Client) *RedisStorage {
	return &RedisStorage{client: client}
}

func (s *RedisStorage) GetItem(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, nil
}

func (s *RedisStorage) SetItem(ctx context.Context, key, value string) error {
	// No TTL: staleness is carried in the snapshot itself, not enforced
	// by the store.
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStorage) RemoveItem(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (s *RedisStorage) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan %s*: %w", prefix, err)
	}
	return keys, nil
}

// FileStorage is a JSON-file key-value store for deployments without Redis.
// The whole map is rewritten through a temp file so a crash mid-write never
// truncates existing data.
type FileStorage struct {
	mu       sync.RWMutex
	items    map[string]string
	filename string
}

func NewFileStorage(filename string) (*FileStorage, error) {
	fs := &FileStorage{
		items:    make(map[string]string),
		filename: filename,
	}

	if err := fs.load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return fs, nil
}

func (fs *FileStorage) GetItem(ctx context.Context, key string) (string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	value, ok := fs.items[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (fs *FileStorage) SetItem(ctx context.Context, key, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.items[key] = value
	return fs.save()
}

func (fs *FileStorage) RemoveItem(ctx context.Context, key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	delete(fs.items, key)
	return fs.save()
}

func (fs *FileStorage) Keys(ctx context.Context, prefix string) ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	var keys []string
	for key := range fs.items {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (fs *FileStorage) save() error {
	data, err := json.MarshalIndent(fs.items, "", "  ")
	if err != nil {
		return err
	}

	tmpFile := fs.filename + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return err
	}

	return os.Rename(tmpFile, fs.filename)
}

func (fs *FileStorage) load() error {
	data, err := os.ReadFile(fs.filename)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, &fs.items)
}
