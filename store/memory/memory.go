package memory

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sprintertech/sprinter-treasury/store"
)

type state struct {
	balance  uint64
	accounts map[string]uint64
	markers  map[common.Hash]store.Marker
	window   *store.Window
	entries  []store.Entry
}

func (s *state) Balance() (uint64, error) {
	return s.balance, nil
}

func (s *state) AccountBalance(account string) (uint64, error) {
	return s.accounts[account], nil
}

func (s *state) Marker(key common.Hash) (store.Marker, error) {
	m, ok := s.markers[key]
	if !ok {
		return store.Marker{}, store.ErrNotFound
	}
	return m, nil
}

func (s *state) Window() (store.Window, error) {
	if s.window == nil {
		return store.Window{}, store.ErrNotFound
	}
	return *s.window, nil
}

func (s *state) Entries() ([]store.Entry, error) {
	return append([]store.Entry{}, s.entries...), nil
}

// MemoryStore keeps the treasury state in process memory. Transactions are
// serialized by a single lock.
type MemoryStore struct {
	lock  sync.RWMutex
	state *state
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &state{
			accounts: make(map[string]uint64),
			markers:  make(map[common.Hash]store.Marker),
		},
	}
}

func (m *MemoryStore) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	overlay := store.NewOverlay(m.state)
	if err := fn(overlay); err != nil {
		return err
	}

	changes := overlay.Changes()
	if changes.Balance != nil {
		m.state.balance = *changes.Balance
	}
	for account, balance := range changes.Accounts {
		m.state.accounts[account] = balance
	}
	for _, marker := range changes.Markers {
		m.state.markers[marker.Key] = marker
	}
	if changes.Window != nil {
		w := *changes.Window
		m.state.window = &w
	}
	m.state.entries = append(m.state.entries, changes.Entries...)
	return nil
}

func (m *MemoryStore) View(ctx context.Context, fn func(r store.Reader) error) error {
	m.lock.RLock()
	defer m.lock.RUnlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(m.state)
}

func (m *MemoryStore) Close() error {
	return nil
}
