package store

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// Changes are the writes buffered by an Overlay.
type Changes struct {
	Balance  *uint64
	Accounts map[string]uint64
	Markers  []Marker
	Window   *Window
	Entries  []Entry
}

// Overlay buffers writes on top of a Reader so a transaction can be
// discarded without touching the underlying state.
type Overlay struct {
	base Reader

	balance  *uint64
	accounts map[string]uint64
	markers  map[common.Hash]Marker
	order    []common.Hash
	window   *Window
	entries  []Entry
}

func NewOverlay(base Reader) *Overlay {
	return &Overlay{
		base:     base,
		accounts: make(map[string]uint64),
		markers:  make(map[common.Hash]Marker),
	}
}

func (o *Overlay) Balance() (uint64, error) {
	if o.balance != nil {
		return *o.balance, nil
	}
	return o.base.Balance()
}

func (o *Overlay) AccountBalance(account string) (uint64, error) {
	if b, ok := o.accounts[account]; ok {
		return b, nil
	}
	return o.base.AccountBalance(account)
}

func (o *Overlay) Marker(key common.Hash) (Marker, error) {
	if m, ok := o.markers[key]; ok {
		return m, nil
	}
	return o.base.Marker(key)
}

func (o *Overlay) Window() (Window, error) {
	if o.window != nil {
		return *o.window, nil
	}
	return o.base.Window()
}

func (o *Overlay) Entries() ([]Entry, error) {
	entries, err := o.base.Entries()
	if err != nil {
		return nil, err
	}
	return append(entries, o.entries...), nil
}

func (o *Overlay) SetBalance(amount uint64) error {
	o.balance = &amount
	return nil
}

func (o *Overlay) SetAccountBalance(account string, amount uint64) error {
	o.accounts[account] = amount
	return nil
}

func (o *Overlay) ClaimMarker(marker Marker) error {
	_, err := o.Marker(marker.Key)
	if err == nil {
		return ErrMarkerExists
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}

	o.markers[marker.Key] = marker
	o.order = append(o.order, marker.Key)
	return nil
}

func (o *Overlay) SetWindow(window Window) error {
	o.window = &window
	return nil
}

func (o *Overlay) AppendEntry(entry Entry) error {
	o.entries = append(o.entries, entry)
	return nil
}

func (o *Overlay) Changes() Changes {
	markers := make([]Marker, 0, len(o.order))
	for _, k := range o.order {
		markers = append(markers, o.markers[k])
	}

	return Changes{
		Balance:  o.balance,
		Accounts: o.accounts,
		Markers:  markers,
		Window:   o.window,
		Entries:  o.entries,
	}
}
