package badger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"go.uber.org/zap"

	"github.com/kailas-cloud/facetdex/internal/db"
)

// Compile-time checks: Store is an embedded KV store with a health probe.
var (
	_ db.KVStore = (*Store)(nil)
	_ db.Pinger  = (*Store)(nil)
)

// Config holds the options of an embedded badger store.
type Config struct {
	// Path is the data directory; ignored when InMemory is set.
	Path     string
	InMemory bool
}

// Store implements db.KVStore on an embedded BadgerDB, for single-node
// deployments that cache responses without a Redis round-trip.
type Store struct {
	db *badger.DB
}

// badgerLogger adapts zap to the badger.Logger interface.
type badgerLogger struct {
	log *zap.SugaredLogger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (l *badgerLogger) Errorf(msg string, args ...any)   { l.log.Errorf(msg, args...) }
func (l *badgerLogger) Warningf(msg string, args ...any) { l.log.Warnf(msg, args...) }
func (l *badgerLogger) Infof(msg string, args ...any)    { l.log.Debugf(msg, args...) }
func (l *badgerLogger) Debugf(msg string, args ...any)   { l.log.Debugf(msg, args...) }

// Open opens (or creates) a badger database.
func Open(cfg Config, log *zap.Logger) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("path is required")
		}
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	if log == nil {
		log = zap.NewNop()
	}
	opts.Logger = &badgerLogger{log: log.Named("badger").Sugar()}
	// Values are compressed by the caller.
	opts.Compression = options.None

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: bdb}, nil
}

// Ping reports an error once the database is closed.
func (s *Store) Ping(_ context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger: database is closed")
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() {
	_ = s.db.Close()
}

// Get retrieves a value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return out, nil
}

// SetWithTTL stores a value that badger drops after ttl.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < time.Millisecond {
		return &db.Error{Op: db.OpSet, Err: fmt.Errorf("key %s: ttl %s too short", key, ttl)}
	}
	err := s.db.Update(func(tx *badger.Txn) error {
		return tx.SetEntry(badger.NewEntry([]byte(key), value).WithTTL(ttl))
	})
	if err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}
