package cache

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	defaultBoltBucket = "pokecache"
	expiresPrefixLen  = 8
)

// BoltOptions configures a BoltBackend.
type BoltOptions struct {
	// Bucket is the bbolt bucket holding all entries (default: "pokecache").
	Bucket string

	// OpenTimeout bounds waiting for the file lock (default: 1s).
	OpenTimeout time.Duration
}

// BoltBackend stores values in an embedded bbolt file.
//
// Value layout: 8 bytes big-endian expiresAt (unix milliseconds) || raw value.
// An expiresAt of zero never expires.
type BoltBackend struct {
	db     *bolt.DB
	bucket []byte
	now    func() time.Time
}

// OpenBoltBackend opens or creates the bbolt file at path.
func OpenBoltBackend(path string, opts BoltOptions) (*BoltBackend, error) {
	timeout := opts.OpenTimeout
	if timeout <= 0 {
		timeout = time.Second
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}

	bucket := []byte(defaultBoltBucket)
	if opts.Bucket != "" {
		bucket = []byte(opts.Bucket)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &BoltBackend{db: db, bucket: bucket, now: time.Now}, nil
}

// Name returns the metric label for this backend.
func (b *BoltBackend) Name() string { return "bolt" }

// Get returns the value stored at key if present and not expired.
func (b *BoltBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(b.bucket).Get([]byte(key))
		if v == nil {
			return ErrCacheMiss
		}
		if len(v) < expiresPrefixLen {
			return fmt.Errorf("%w: short value for %s", ErrInvalidEntry, key)
		}
		expiresAt := int64(binary.BigEndian.Uint64(v[:expiresPrefixLen]))
		if expiresAt > 0 && b.now().UnixMilli() >= expiresAt {
			return ErrCacheMiss
		}
		out = append([]byte(nil), v[expiresPrefixLen:]...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Set stores value at key. A zero ttl keeps the key until overwritten.
func (b *BoltBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var expiresAt int64
	if ttl > 0 {
		expiresAt = b.now().Add(ttl).UnixMilli()
	}
	buf := make([]byte, expiresPrefixLen+len(value))
	binary.BigEndian.PutUint64(buf[:expiresPrefixLen], uint64(expiresAt))
	copy(buf[expiresPrefixLen:], value)

	if err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(b.bucket).Put([]byte(key), buf)
	}); err != nil {
		return fmt.Errorf("bolt put: %w", err)
	}
	return nil
}

// Ping verifies the bucket is readable.
func (b *BoltBackend) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(b.bucket) == nil {
			return fmt.Errorf("bolt bucket %s missing", b.bucket)
		}
		return nil
	})
}

// Close closes the database file.
func (b *BoltBackend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}
