// Package badgerstore implements the partstore backend on embedded Badger.
// Each partition maps to its own Badger directory under Config.Dir, opened
// lazily and reused for the factory's lifetime (Badger's directory lock
// forbids a second open of the same partition).
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/unkn0wn-root/partstore"
	"github.com/unkn0wn-root/partstore/backend"
	"github.com/unkn0wn-root/partstore/codec"
	"github.com/unkn0wn-root/partstore/handle"
	"github.com/unkn0wn-root/partstore/internal/keyspace"
)

// Config tunes the Badger engine. Only Dir is required.
type Config struct {
	// Dir is the root directory; each partition lives in Dir/<partition>.
	Dir string

	// SyncWrites fsyncs every write. Slower, but a crash never loses an
	// acknowledged save. Default true: partstore's ordering contract makes
	// the backend write the sole durability point.
	SyncWrites *bool

	ValueLogFileSize int64 // 0 => 256MB
	NumMemtables     int   // 0 => Badger default
	BlockCacheSize   int64 // 0 => Badger default

	// GCInterval is the value-log GC cadence per open partition. 0 => 10m.
	GCInterval time.Duration
	// GCThreshold is the discard ratio passed to Badger's GC. 0 => 0.5.
	GCThreshold float64

	Logger partstore.Logger // nil => NopLogger
}

// Factory opens one Badger store per partition and memoizes it.
type Factory[T any] struct {
	cfg   Config
	codec codec.Codec[T]
	log   partstore.Logger

	mu     sync.Mutex
	stores map[string]*store[T]
	closed bool
}

var _ backend.Factory[struct{}] = (*Factory[struct{}])(nil)

// NewFactory builds a Factory encoding tokens with c.
// A nil c defaults to codec.Msgpack[T].
func NewFactory[T any](cfg Config, c codec.Codec[T]) (*Factory[T], error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("badgerstore: dir is required")
	}
	if c == nil {
		c = codec.Msgpack[T]{}
	}
	if cfg.Logger == nil {
		cfg.Logger = partstore.NopLogger{}
	}
	if cfg.GCInterval <= 0 {
		cfg.GCInterval = 10 * time.Minute
	}
	if cfg.GCThreshold <= 0 {
		cfg.GCThreshold = 0.5
	}
	return &Factory[T]{
		cfg:    cfg,
		codec:  c,
		log:    cfg.Logger,
		stores: make(map[string]*store[T]),
	}, nil
}

// Open returns the store for partition, opening its directory on first use.
func (f *Factory[T]) Open(_ context.Context, partition string) (backend.Store[T], error) {
	if !validPartition(partition) {
		return nil, &backend.StoreError{
			Partition: partition, Op: "open",
			Err: errors.New("invalid partition name"),
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, &backend.StoreError{Partition: partition, Op: "open", Err: errors.New("factory closed")}
	}
	if s, ok := f.stores[partition]; ok {
		return s, nil
	}

	opts := badger.DefaultOptions(filepath.Join(f.cfg.Dir, partition))
	opts.Logger = &badgerLogger{log: f.log}
	opts.SyncWrites = true
	if f.cfg.SyncWrites != nil {
		opts.SyncWrites = *f.cfg.SyncWrites
	}
	if f.cfg.ValueLogFileSize > 0 {
		opts.ValueLogFileSize = f.cfg.ValueLogFileSize
	} else {
		opts.ValueLogFileSize = 256 << 20
	}
	if f.cfg.NumMemtables > 0 {
		opts.NumMemtables = f.cfg.NumMemtables
	}
	if f.cfg.BlockCacheSize > 0 {
		opts.BlockCacheSize = f.cfg.BlockCacheSize
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, &backend.StoreError{Partition: partition, Op: "open", Err: err}
	}

	s := &store[T]{
		db:        db,
		codec:     f.codec,
		partition: partition,
		stopCh:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.gcLoop(f.cfg.GCInterval, f.cfg.GCThreshold)

	f.stores[partition] = s
	f.log.Debug("opened badger partition", partstore.Fields{"partition": partition, "dir": opts.Dir})
	return s, nil
}

// Close shuts down every opened partition store. Safe to call once.
func (f *Factory[T]) Close(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true

	var errs []error
	for partition, s := range f.stores {
		if err := s.close(); err != nil {
			errs = append(errs, fmt.Errorf("close partition %q: %w", partition, err))
		}
	}
	return errors.Join(errs...)
}

func validPartition(p string) bool {
	if p == "" || p == "." || p == ".." {
		return false
	}
	return !strings.ContainsAny(p, `/\`)
}

type store[T any] struct {
	db        *badger.DB
	codec     codec.Codec[T]
	partition string

	stopCh chan struct{}
	wg     sync.WaitGroup
}

var _ backend.Store[struct{}] = (*store[struct{}])(nil)

func (s *store[T]) GetToken(_ context.Context, key []byte) (T, error) {
	var zero T
	raw, err := s.get(keyspace.Token(key))
	if err != nil {
		return zero, err
	}
	v, err := s.codec.Decode(raw)
	if err != nil {
		return zero, fmt.Errorf("%w: %w", backend.ErrDecode, err)
	}
	return v, nil
}

func (s *store[T]) SaveToken(_ context.Context, key []byte, h *handle.Handle[T]) error {
	b, err := h.EncodeWith(s.codec.Encode)
	if err != nil {
		if errors.Is(err, handle.ErrPoisoned) {
			return err
		}
		return fmt.Errorf("%w: %w", backend.ErrEncode, err)
	}
	return s.put(keyspace.Token(key), b)
}

func (s *store[T]) GetData(_ context.Context, key []byte) ([]byte, error) {
	return s.get(keyspace.Data(key))
}

func (s *store[T]) SaveData(_ context.Context, key []byte, data []byte) error {
	return s.put(keyspace.Data(key), data)
}

func (s *store[T]) get(key []byte) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, backend.ErrNotFound
	}
	if err != nil {
		return nil, &backend.StoreError{Partition: s.partition, Op: "get", Err: err}
	}
	return value, nil
}

func (s *store[T]) put(key, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		return &backend.StoreError{Partition: s.partition, Op: "put", Err: err}
	}
	return nil
}

func (s *store[T]) gcLoop(interval time.Duration, threshold float64) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			// Run until Badger reports nothing left to rewrite.
			for {
				if err := s.db.RunValueLogGC(threshold); err != nil {
					break
				}
			}
		case <-s.stopCh:
			return
		}
	}
}

func (s *store[T]) close() error {
	close(s.stopCh)
	s.wg.Wait()
	return s.db.Close()
}

// badgerLogger routes Badger's internal logs into the partstore Logger.
type badgerLogger struct {
	log partstore.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(fmt.Sprintf(format, args...), nil)
}
func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn(fmt.Sprintf(format, args...), nil)
}
func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...), nil)
}
func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...), nil)
}
