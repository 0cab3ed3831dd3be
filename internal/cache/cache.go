// Package cache provides a file-based digest cache used by verify-runs to
// skip re-reading files whose (path, size, mtime) haven't changed since
// their digest was last computed.
package cache

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	bucketName = "digests"
	digestSize = 20 // raw SHA-1 bytes
)

// Cache provides persistent caching of verify-run digests using BoltDB.
// Self-cleaning: each run creates a new database, only entries actually
// looked up or stored during the run survive into it.
type Cache struct {
	readDB  *bolt.DB // existing cache (read-only)
	writeDB *bolt.DB // new cache (write) - BoltDB locks this file
	path    string   // final path (for atomic swap)
	enabled bool
}

// Open opens the existing cache at path for reading and creates a new cache
// alongside it for writing. Returns a disabled cache if path is empty, so
// callers can pass an Options.Cache unconditionally.
func Open(path string) (*Cache, error) {
	if path == "" {
		return &Cache{enabled: false}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	c := &Cache{path: path, enabled: true}

	if _, statErr := os.Stat(path); statErr == nil {
		readDB, err := bolt.Open(path, 0o600, &bolt.Options{
			ReadOnly: true,
			Timeout:  1 * time.Second,
		})
		if err == nil {
			c.readDB = readDB
		}
	}

	newPath := path + ".new"
	writeDB, err := bolt.Open(newPath, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("create new cache (locked by another instance?): %w", err)
	}
	c.writeDB = writeDB

	if err := c.writeDB.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	}); err != nil {
		_ = c.Close()
		return nil, err
	}

	return c, nil
}

// Close closes both databases and atomically replaces the old cache file
// with the new one. Only replaces if the write database closed cleanly.
func (c *Cache) Close() error {
	var errs []error
	if c.readDB != nil {
		if err := c.readDB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.writeDB != nil {
		if err := c.writeDB.Close(); err != nil {
			errs = append(errs, err)
		} else if err := os.Rename(c.path+".new", c.path); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

const keyVersion byte = 1 // bump when the key layout changes

// makeKey builds a deterministic byte key: ver(1) + path + NUL + size(8) +
// mtime(8). Any change to size or mtime changes the key, so a stale entry is
// simply never found rather than explicitly invalidated.
func makeKey(path string, size int64, modTime time.Time) []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(keyVersion)
	buf.WriteString(path)
	buf.WriteByte(0)
	_ = binary.Write(buf, binary.BigEndian, size)
	_ = binary.Write(buf, binary.BigEndian, modTime.UnixNano())
	return buf.Bytes()
}

// Lookup returns the cached digest for path at its current size/modTime, if
// present. A hit is copied into the write database so it survives this
// run's self-cleaning swap.
func (c *Cache) Lookup(path string, size int64, modTime time.Time) (string, bool) {
	if !c.enabled || c.readDB == nil {
		return "", false
	}

	key := makeKey(path, size, modTime)
	var raw []byte

	_ = c.readDB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		data := b.Get(key)
		if len(data) == digestSize {
			raw = make([]byte, digestSize)
			copy(raw, data)
		}
		return nil
	})
	if raw == nil {
		return "", false
	}

	digestHex := hex.EncodeToString(raw)
	c.Store(path, size, modTime, digestHex)
	return digestHex, true
}

// Store saves digestHex for path at its current size/modTime into the write
// database. Malformed digests are ignored rather than returning an error,
// since a cache write failure must never fail the verify-run it backs.
func (c *Cache) Store(path string, size int64, modTime time.Time, digestHex string) {
	if !c.enabled || c.writeDB == nil {
		return
	}
	raw, err := hex.DecodeString(digestHex)
	if err != nil || len(raw) != digestSize {
		return
	}

	_ = c.writeDB.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		return b.Put(makeKey(path, size, modTime), raw)
	})
}
