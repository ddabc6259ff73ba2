package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var completionsBucket = []byte("completions")

// CachedProvider stores completions on disk keyed by provider, model and
// prompt, so re-running over the same PDF does not pay for the same calls.
type CachedProvider struct {
	inner     Provider
	namespace string
	db        *bolt.DB
	refresh   bool
	keep      func(completion string) bool
}

type CacheOption func(*CachedProvider)

// WithCacheRefresh ignores stored completions while still recording new ones.
func WithCacheRefresh(refresh bool) CacheOption {
	return func(c *CachedProvider) {
		c.refresh = refresh
	}
}

// WithCacheFilter stores only the completions keep accepts.
func WithCacheFilter(keep func(completion string) bool) CacheOption {
	return func(c *CachedProvider) {
		c.keep = keep
	}
}

func NewCachedProvider(inner Provider, model, path string, opts ...CacheOption) (*CachedProvider, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for completion cache: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open completion cache: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(completionsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	c := &CachedProvider{
		inner:     inner,
		namespace: inner.Name() + "\x00" + model,
		db:        db,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *CachedProvider) Name() string {
	return c.inner.Name()
}

func (c *CachedProvider) Complete(ctx context.Context, prompt string) (string, error) {
	key := c.key(prompt)

	if !c.refresh {
		var cached []byte
		err := c.db.View(func(tx *bolt.Tx) error {
			if v := tx.Bucket(completionsBucket).Get(key); v != nil {
				cached = append([]byte(nil), v...)
			}
			return nil
		})
		if err == nil && cached != nil {
			return string(cached), nil
		}
	}

	text, err := c.inner.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	if c.keep != nil && !c.keep(text) {
		return text, nil
	}

	// A failed write only costs a repeated call next time.
	_ = c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(completionsBucket).Put(key, []byte(text))
	})
	return text, nil
}

func (c *CachedProvider) key(prompt string) []byte {
	sum := sha256.Sum256([]byte(c.namespace + "\x00" + prompt))
	return []byte(hex.EncodeToString(sum[:]))
}

// Close closes the cache and the wrapped provider when it holds resources.
func (c *CachedProvider) Close() error {
	err := c.db.Close()
	if closer, ok := c.inner.(interface{ Close() error }); ok {
		if cerr := closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
