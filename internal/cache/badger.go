package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	log "github.com/sirupsen/logrus"

	"github.com/kdimtricp/faik/internal/detection"
)

type BadgerOptions struct {
	// Dir is required unless InMemory is set.
	Dir      string
	InMemory bool
	// TTL of zero keeps entries forever.
	TTL time.Duration
}

type BadgerCache struct {
	db  *badger.DB
	ttl time.Duration
}

func NewBadgerCache(opts BadgerOptions) (*BadgerCache, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("cache: badger directory is required for on-disk mode")
	}

	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(badgerLogger{log.WithField("component", "badger")})
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger cache: %w", err)
	}
	return &BadgerCache{db: db, ttl: opts.TTL}, nil
}

func (c *BadgerCache) Get(_ context.Context, key string) (*detection.AnalysisResult, error) {
	var val []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	return decode(val)
}

func (c *BadgerCache) Set(_ context.Context, key string, result *detection.AnalysisResult) error {
	val, err := encode(result)
	if err != nil {
		return err
	}

	return c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), val)
		if c.ttl > 0 {
			entry = entry.WithTTL(c.ttl)
		}
		return txn.SetEntry(entry)
	})
}

func (c *BadgerCache) Close() error {
	return c.db.Close()
}

// badgerLogger routes badger's internal logging to logrus, dropping its
// chatty info and debug output.
type badgerLogger struct {
	entry *log.Entry
}

func (l badgerLogger) Errorf(f string, v ...interface{})   { l.entry.Errorf(f, v...) }
func (l badgerLogger) Warningf(f string, v ...interface{}) { l.entry.Warnf(f, v...) }
func (l badgerLogger) Infof(string, ...interface{})        {}
func (l badgerLogger) Debugf(string, ...interface{})       {}
