package runstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/cwbudde/algo-bss/reporter"
)

var (
	// ErrNotFound indicates an unknown run ID.
	ErrNotFound = errors.New("runstore: run not found")
	// ErrNoDir indicates an on-disk store without a directory.
	ErrNoDir = errors.New("runstore: directory required for on-disk mode")
)

const keyPrefix = "run:"

// Run is one scored execution of a separation method.
type Run struct {
	ID        string           `msgpack:"id"`
	Method    string           `msgpack:"method"`
	Dataset   string           `msgpack:"dataset"`
	CreatedAt time.Time        `msgpack:"created_at"`
	Entries   []reporter.Entry `msgpack:"entries"`
}

// Final returns the last recorded SDRi; ok is false for a run without
// entries.
func (r *Run) Final() (sdri float64, ok bool) {
	if len(r.Entries) == 0 {
		return 0, false
	}
	return r.Entries[len(r.Entries)-1].SDRi, true
}

// Record returns the entries as a reporter.Record.
func (r *Run) Record() *reporter.Record {
	return &reporter.Record{Entries: r.Entries}
}

// Options configures Open.
type Options struct {
	// Dir holds the database files. Required unless InMemory is set.
	Dir string

	// InMemory keeps everything in memory.
	InMemory bool

	// Logger receives badger's warnings and errors. Nil discards them.
	Logger *slog.Logger

	// Now stamps runs stored without CreatedAt. Defaults to time.Now.
	Now func() time.Time
}

// Store is a run database.
type Store struct {
	db  *badger.DB
	now func() time.Time
}

// Open opens or creates a store.
func Open(opts Options) (*Store, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, ErrNoDir
	}

	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	dbOpts = dbOpts.WithLogger(slogAdapter{logger.With("component", "badger")})

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("runstore: open: %w", err)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Store{db: db, now: now}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func runKey(id string) []byte {
	return []byte(keyPrefix + id)
}

// Put stores run, assigning a random ID and the current time when they
// are unset. An existing run with the same ID is replaced.
func (s *Store) Put(_ context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = s.now().UTC()
	}

	val, err := msgpack.Marshal(run)
	if err != nil {
		return fmt.Errorf("runstore: encode %s: %w", run.ID, err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(runKey(run.ID), val)
	})
}

// Get loads the run with the given ID.
func (s *Store) Get(_ context.Context, id string) (*Run, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(runKey(id))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var run Run
	if err := msgpack.Unmarshal(val, &run); err != nil {
		return nil, fmt.Errorf("runstore: decode %s: %w", id, err)
	}

	return &run, nil
}

// List returns every run ordered by CreatedAt, then ID.
func (s *Store) List(_ context.Context) ([]Run, error) {
	var runs []Run

	prefix := []byte(keyPrefix)
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()

			err := item.Value(func(val []byte) error {
				var run Run
				if err := msgpack.Unmarshal(val, &run); err != nil {
					return fmt.Errorf("runstore: decode %s: %w", item.Key(), err)
				}
				runs = append(runs, run)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(runs, func(a, b Run) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	return runs, nil
}

// Delete removes the run with the given ID.
func (s *Store) Delete(_ context.Context, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(runKey(id)); err != nil {
			return err
		}
		return txn.Delete(runKey(id))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return err
}

// slogAdapter routes badger's printf-style logging to slog.
type slogAdapter struct {
	l *slog.Logger
}

func (a slogAdapter) Errorf(f string, v ...any)   { a.l.Error(format(f, v)) }
func (a slogAdapter) Warningf(f string, v ...any) { a.l.Warn(format(f, v)) }
func (a slogAdapter) Infof(f string, v ...any)    { a.l.Debug(format(f, v)) }
func (a slogAdapter) Debugf(f string, v ...any)   { a.l.Debug(format(f, v)) }

func format(f string, v []any) string {
	return strings.TrimRight(fmt.Sprintf(f, v...), "\n")
}
