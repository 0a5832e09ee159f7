package lvldb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sprintertech/sprinter-treasury/store"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var (
	balanceKey  = []byte("treasury/balance")
	windowKey   = []byte("treasury/window")
	entrySeqKey = []byte("treasury/entry-seq")

	accountPrefix = "account/"
	markerPrefix  = "marker/"
	entryPrefix   = "entry/"
)

type getter interface {
	Get(key []byte, ro *opt.ReadOptions) ([]byte, error)
	NewIterator(slice *util.Range, ro *opt.ReadOptions) iterator.Iterator
}

type reader struct {
	db getter
}

func (r *reader) uint(key []byte) (uint64, error) {
	v, err := r.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(v) != 8 {
		return 0, fmt.Errorf("corrupted value under %s", key)
	}
	return binary.BigEndian.Uint64(v), nil
}

func (r *reader) json(key []byte, v interface{}) error {
	raw, err := r.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func (r *reader) Balance() (uint64, error) {
	return r.uint(balanceKey)
}

func (r *reader) AccountBalance(account string) (uint64, error) {
	return r.uint([]byte(accountPrefix + account))
}

func (r *reader) Marker(key common.Hash) (store.Marker, error) {
	var m store.Marker
	err := r.json(markerKey(key), &m)
	return m, err
}

func (r *reader) Window() (store.Window, error) {
	var w store.Window
	err := r.json(windowKey, &w)
	return w, err
}

func (r *reader) Entries() ([]store.Entry, error) {
	iter := r.db.NewIterator(util.BytesPrefix([]byte(entryPrefix)), nil)
	defer iter.Release()

	entries := []store.Entry{}
	for iter.Next() {
		var e store.Entry
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, iter.Error()
}

func markerKey(key common.Hash) []byte {
	return []byte(markerPrefix + key.Hex())
}

func entryKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", entryPrefix, seq))
}

func encodeUint(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// LvlDBStore persists the treasury state in a leveldb database. Every
// transaction is committed as a single synced batch.
type LvlDBStore struct {
	lock sync.Mutex
	db   *leveldb.DB
}

func NewLvlDBStore(path string) (*LvlDBStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb at %s: %w", path, err)
	}

	return &LvlDBStore{
		db: db,
	}, nil
}

func (s *LvlDBStore) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	r := &reader{db: s.db}
	overlay := store.NewOverlay(r)
	if err := fn(overlay); err != nil {
		return err
	}

	batch, err := s.batch(r, overlay.Changes())
	if err != nil {
		return err
	}
	return s.db.Write(batch, &opt.WriteOptions{Sync: true})
}

func (s *LvlDBStore) batch(r *reader, changes store.Changes) (*leveldb.Batch, error) {
	batch := new(leveldb.Batch)
	if changes.Balance != nil {
		batch.Put(balanceKey, encodeUint(*changes.Balance))
	}
	for account, balance := range changes.Accounts {
		batch.Put([]byte(accountPrefix+account), encodeUint(balance))
	}
	for _, marker := range changes.Markers {
		raw, err := json.Marshal(marker)
		if err != nil {
			return nil, err
		}
		batch.Put(markerKey(marker.Key), raw)
	}
	if changes.Window != nil {
		raw, err := json.Marshal(changes.Window)
		if err != nil {
			return nil, err
		}
		batch.Put(windowKey, raw)
	}

	if len(changes.Entries) == 0 {
		return batch, nil
	}
	seq, err := r.uint(entrySeqKey)
	if err != nil {
		return nil, err
	}
	for _, entry := range changes.Entries {
		raw, err := json.Marshal(entry)
		if err != nil {
			return nil, err
		}
		batch.Put(entryKey(seq), raw)
		seq++
	}
	batch.Put(entrySeqKey, encodeUint(seq))
	return batch, nil
}

// View reads from a snapshot so it never blocks on a running Update.
func (s *LvlDBStore) View(ctx context.Context, fn func(r store.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot, err := s.db.GetSnapshot()
	if err != nil {
		return err
	}
	defer snapshot.Release()

	return fn(&reader{db: snapshot})
}

func (s *LvlDBStore) Close() error {
	return s.db.Close()
}
