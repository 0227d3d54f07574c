// Package store persists hser records by name in a Bolt file or in memory.
//
// Each record is kept as a checksummed envelope whose body is MsgPack or CBOR,
// optionally compressed with zstd or LZ4. Asset references are written as
// their AssetID strings and turned back into assets by Options.Resolver.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/andreyvit/hser"
	"go.etcd.io/bbolt"
)

const recordsBucket = "records"

var ErrNotFound = errors.New("record not found")

// AssetResolver turns a persisted asset ID back into an asset. Returning
// (nil, nil) leaves the external table entry nil.
type AssetResolver interface {
	ResolveAsset(id string) (hser.Asset, error)
}

type AssetResolverFunc func(id string) (hser.Asset, error)

func (f AssetResolverFunc) ResolveAsset(id string) (hser.Asset, error) {
	return f(id)
}

// AssetRef is a placeholder asset that only remembers its ID.
type AssetRef string

func (r AssetRef) AssetID() string {
	return string(r)
}

// RefResolver resolves every ID to an AssetRef, which keeps IDs intact when
// records are copied or inspected without the real assets at hand.
var RefResolver AssetResolver = AssetResolverFunc(func(id string) (hser.Asset, error) {
	return AssetRef(id), nil
})

type Options struct {
	Logger    *slog.Logger
	Logf      func(format string, args ...any)
	Verbose   bool
	IsTesting bool
	ReadOnly  bool

	Encoding    Encoding
	Compression Compression

	// Resolver maps asset IDs on load. When nil, loaded external tables hold
	// nil entries.
	Resolver AssetResolver
}

type Store struct {
	storage  storage
	logger   *slog.Logger
	logf     func(format string, args ...any)
	verbose  bool
	readOnly bool
	enc      Encoding
	comp     Compression
	resolver AssetResolver

	ReadCount  atomic.Uint64
	WriteCount atomic.Uint64
}

// Open opens or creates a Bolt-backed store at path.
func Open(path string, opt Options) (*Store, error) {
	bopt := new(bbolt.Options)
	*bopt = *bbolt.DefaultOptions
	bopt.Timeout = 10 * time.Second
	bopt.ReadOnly = opt.ReadOnly
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
	} else {
		bopt.FreelistType = bbolt.FreelistMapType
	}

	bdb, err := bbolt.Open(path, 0666, bopt)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	return newStore(newBoltStorage(bdb), opt), nil
}

// OpenMemory returns a transient store that lives until Close.
func OpenMemory(opt Options) *Store {
	return newStore(newMemStorage(), opt)
}

func newStore(stor storage, opt Options) *Store {
	logger := opt.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		storage:  stor,
		logger:   logger,
		logf:     opt.Logf,
		verbose:  opt.Verbose,
		readOnly: opt.ReadOnly,
		enc:      opt.Encoding,
		comp:     opt.Compression,
		resolver: opt.Resolver,
	}
}

func (s *Store) Close() error {
	return s.storage.Close()
}

func (s *Store) read(f func(b storageBucket) error) error {
	tx, err := s.storage.BeginTx(false)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer tx.Rollback()
	s.ReadCount.Add(1)
	return f(tx.Bucket(recordsBucket))
}

func (s *Store) write(f func(b storageBucket) error) error {
	if s.readOnly {
		return fmt.Errorf("store: opened read-only")
	}
	tx, err := s.storage.BeginTx(true)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer tx.Rollback()
	b, err := tx.CreateBucket(recordsBucket)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := f(b); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	s.WriteCount.Add(1)
	return nil
}

// Put stores rec under name, replacing any previous record.
func (s *Store) Put(name string, rec *hser.Record) error {
	if name == "" {
		return fmt.Errorf("store: empty record name")
	}
	data, err := encodeEnvelope(rec, s.enc, s.comp)
	if err != nil {
		return fmt.Errorf("store: %s: %w", name, err)
	}
	err = s.write(func(b storageBucket) error {
		return b.Put([]byte(name), data)
	})
	if err != nil {
		return err
	}
	if s.verbose {
		if s.logf != nil {
			s.logf("store: put %s (%s, %d slots, %d bytes)", name, rec.ObjectType, rec.SlotCount(), len(data))
		} else {
			s.logger.Debug("store: put", "name", name, "type", rec.ObjectType, "slots", rec.SlotCount(), "bytes", len(data))
		}
	}
	return nil
}

// Get returns the record stored under name, or ErrNotFound.
func (s *Store) Get(name string) (*hser.Record, error) {
	var rec *hser.Record
	err := s.read(func(b storageBucket) error {
		var data []byte
		if b != nil {
			data = b.Get([]byte(name))
		}
		if data == nil {
			return ErrNotFound
		}
		var err error
		rec, err = decodeEnvelope(data, s.resolver)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("store: %s: %w", name, err)
	}
	return rec, nil
}

// Delete removes the record stored under name. It reports whether the record
// existed.
func (s *Store) Delete(name string) (bool, error) {
	var found bool
	err := s.write(func(b storageBucket) error {
		k := []byte(name)
		found = b.Get(k) != nil
		if !found {
			return nil
		}
		return b.Delete(k)
	})
	if err != nil {
		return false, err
	}
	if found && s.verbose {
		if s.logf != nil {
			s.logf("store: delete %s", name)
		} else {
			s.logger.Debug("store: delete", "name", name)
		}
	}
	return found, nil
}

// Names returns the names of all stored records in sorted order.
func (s *Store) Names() ([]string, error) {
	var names []string
	err := s.read(func(b storageBucket) error {
		if b == nil {
			return nil
		}
		names = make([]string, 0, b.KeyCount())
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			names = append(names, string(k))
		}
		return nil
	})
	return names, err
}

// Save serializes obj and stores it under name.
func (s *Store) Save(name string, obj any, vis hser.Visibility) error {
	return s.Put(name, hser.Serialize(obj, vis))
}

// Load reads the record stored under name into ptr, which must be a non-nil
// pointer to a struct. Members missing from the record keep their values.
func (s *Store) Load(name string, ptr any, vis hser.Visibility) error {
	rec, err := s.Get(name)
	if err != nil {
		return err
	}
	if err := hser.DeserializeInto(rec, ptr, vis); err != nil {
		return fmt.Errorf("store: %s: %w", name, err)
	}
	return nil
}
