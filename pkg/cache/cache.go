package cache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/shamaton/msgpack/v2"

	"github.com/rhuss/autoif/pkg/debug"
)

var (
	// ErrClosed is returned by operations on a closed cache.
	ErrClosed = errors.New("cache: closed")

	// ErrNotFound is returned by Get when no result exists for an ordinal.
	ErrNotFound = errors.New("cache: not found")
)

const (
	resultPrefix   = "r/"
	fingerprintKey = "m/fingerprint"
)

// Config holds configuration for a stage cache.
type Config struct {
	// Path is the stage directory. Ignored when InMemory is true.
	Path string

	// InMemory keeps the cache in memory only. Useful for testing.
	InMemory bool

	// SyncWrites fsyncs every flush.
	SyncWrites bool

	// FlushInterval is how often buffered results are persisted.
	// Zero disables the ticker; Flush and Close still persist.
	FlushInterval time.Duration

	// Logger receives BadgerDB's internal logs. Nil disables them.
	Logger *slog.Logger
}

// Cache is a durable ordinal -> result map for one stage.
// It is safe for concurrent use.
type Cache struct {
	db *badger.DB

	// mu guards buffer and closed. It is held for the whole of a flush so
	// an entry is always visible in either the buffer or the database.
	mu     sync.Mutex
	buffer map[int][]byte
	closed bool

	stopCh chan struct{}
	doneCh chan struct{}
}

// Open opens (or creates) the cache described by cfg and starts the
// flush ticker.
func Open(cfg Config) (*Cache, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	c := &Cache{
		db:     db,
		buffer: make(map[int][]byte),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	if cfg.FlushInterval > 0 {
		go c.flushLoop(cfg.FlushInterval)
	} else {
		close(c.doneCh)
	}
	return c, nil
}

func (c *Cache) flushLoop(interval time.Duration) {
	defer close(c.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			if err := c.Flush(); err != nil && !errors.Is(err, ErrClosed) {
				slog.Warn("cache flush failed", "error", err)
			}
		}
	}
}

func resultKey(ordinal int) []byte {
	key := make([]byte, len(resultPrefix)+8)
	copy(key, resultPrefix)
	binary.BigEndian.PutUint64(key[len(resultPrefix):], uint64(ordinal))
	return key
}

func ordinalFromKey(key []byte) int {
	return int(binary.BigEndian.Uint64(key[len(resultPrefix):]))
}

// Contains reports whether a result exists for ordinal, buffered or flushed.
func (c *Cache) Contains(ordinal int) (bool, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false, ErrClosed
	}
	if _, ok := c.buffer[ordinal]; ok {
		c.mu.Unlock()
		return true, nil
	}
	c.mu.Unlock()

	err := c.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(resultKey(ordinal))
		return err
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("cache lookup %d: %w", ordinal, err)
	}
}

// Get decodes the result stored for ordinal into v.
// Returns ErrNotFound if there is none.
func (c *Cache) Get(ordinal int, v any) error {
	data, err := c.getRaw(ordinal)
	if err != nil {
		return err
	}
	if err := msgpack.Unmarshal(data, v); err != nil {
		return fmt.Errorf("cache decode %d: %w", ordinal, err)
	}
	return nil
}

func (c *Cache) getRaw(ordinal int) ([]byte, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if data, ok := c.buffer[ordinal]; ok {
		c.mu.Unlock()
		return data, nil
	}
	c.mu.Unlock()

	var data []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(resultKey(ordinal))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache read %d: %w", ordinal, err)
	}
	return data, nil
}

// BufferedUpdate records the result for ordinal in the write buffer. The
// value is encoded immediately so later mutation by the caller has no effect.
func (c *Cache) BufferedUpdate(ordinal int, v any) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %d: %w", ordinal, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.buffer[ordinal] = data
	return nil
}

// Flush persists all buffered results in one batch.
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return c.flushLocked()
}

func (c *Cache) flushLocked() error {
	if len(c.buffer) == 0 {
		return nil
	}

	wb := c.db.NewWriteBatch()
	defer wb.Cancel()
	for ordinal, data := range c.buffer {
		if err := wb.Set(resultKey(ordinal), data); err != nil {
			return fmt.Errorf("cache flush: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("cache flush: %w", err)
	}

	debug.Log("cache", "flushed", "entries", len(c.buffer))
	c.buffer = make(map[int][]byte)
	return nil
}

// Ordinals returns every ordinal with a result, in ascending order.
func (c *Cache) Ordinals() ([]int, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	seen := make(map[int]struct{}, len(c.buffer))
	for ordinal := range c.buffer {
		seen[ordinal] = struct{}{}
	}
	c.mu.Unlock()

	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(resultPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			seen[ordinalFromKey(it.Item().Key())] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cache scan: %w", err)
	}

	ordinals := make([]int, 0, len(seen))
	for ordinal := range seen {
		ordinals = append(ordinals, ordinal)
	}
	sort.Ints(ordinals)
	return ordinals, nil
}

// Len returns the number of ordinals with a result. Metadata keys are
// not counted.
func (c *Cache) Len() (int, error) {
	ordinals, err := c.Ordinals()
	if err != nil {
		return 0, err
	}
	return len(ordinals), nil
}

// Fingerprint returns the stage input fingerprint, if one was recorded.
func (c *Cache) Fingerprint() (uint64, bool, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return 0, false, ErrClosed
	}

	var fp uint64
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(fingerprintKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("malformed fingerprint (%d bytes)", len(val))
			}
			fp = binary.BigEndian.Uint64(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("cache fingerprint: %w", err)
	}
	return fp, true, nil
}

// SetFingerprint durably records the stage input fingerprint. It bypasses
// the buffer.
func (c *Cache) SetFingerprint(fp uint64) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}

	val := make([]byte, 8)
	binary.BigEndian.PutUint64(val, fp)
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(fingerprintKey), val)
	})
}

// Close stops the flush ticker, flushes the buffer and releases the
// database. Calling Close more than once returns ErrClosed.
func (c *Cache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	flushErr := c.flushLocked()
	c.closed = true
	c.mu.Unlock()

	close(c.stopCh)
	<-c.doneCh

	return errors.Join(flushErr, c.db.Close())
}
