package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sprintertech/sprinter-treasury/store"
	"github.com/sprintertech/sprinter-treasury/store/memory"
	"github.com/stretchr/testify/suite"
)

type MemoryStoreTestSuite struct {
	suite.Suite

	store *memory.MemoryStore
}

func TestRunMemoryStoreTestSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreTestSuite))
}

func (s *MemoryStoreTestSuite) SetupTest() {
	s.store = memory.NewMemoryStore()
}

func (s *MemoryStoreTestSuite) Test_Update_Commits() {
	key := common.HexToHash("0x01")
	err := s.store.Update(context.Background(), func(tx store.Tx) error {
		s.Nil(tx.SetBalance(10))
		s.Nil(tx.SetAccountBalance("receiver", 5))
		s.Nil(tx.ClaimMarker(store.Marker{Key: key, Kind: store.SignatureMarker}))
		return tx.AppendEntry(store.Entry{Kind: store.DepositEntry, Amount: 10})
	})
	s.Nil(err)

	err = s.store.View(context.Background(), func(r store.Reader) error {
		balance, err := r.Balance()
		s.Nil(err)
		s.Equal(uint64(10), balance)

		account, err := r.AccountBalance("receiver")
		s.Nil(err)
		s.Equal(uint64(5), account)

		marker, err := r.Marker(key)
		s.Nil(err)
		s.Equal(store.SignatureMarker, marker.Kind)

		entries, err := r.Entries()
		s.Nil(err)
		s.Len(entries, 1)
		return nil
	})
	s.Nil(err)
}

func (s *MemoryStoreTestSuite) Test_Update_RollsBackOnError() {
	key := common.HexToHash("0x01")
	expectedErr := errors.New("abort")

	err := s.store.Update(context.Background(), func(tx store.Tx) error {
		s.Nil(tx.SetBalance(10))
		s.Nil(tx.ClaimMarker(store.Marker{Key: key}))
		s.Nil(tx.SetWindow(store.Window{Start: time.Unix(100, 0), Duration: time.Second}))
		return expectedErr
	})
	s.ErrorIs(err, expectedErr)

	err = s.store.View(context.Background(), func(r store.Reader) error {
		balance, _ := r.Balance()
		s.Equal(uint64(0), balance)

		_, err := r.Marker(key)
		s.ErrorIs(err, store.ErrNotFound)

		_, err = r.Window()
		s.ErrorIs(err, store.ErrNotFound)
		return nil
	})
	s.Nil(err)
}

func (s *MemoryStoreTestSuite) Test_ClaimMarker_Twice() {
	key := common.HexToHash("0x02")
	err := s.store.Update(context.Background(), func(tx store.Tx) error {
		return tx.ClaimMarker(store.Marker{Key: key})
	})
	s.Nil(err)

	err = s.store.Update(context.Background(), func(tx store.Tx) error {
		return tx.ClaimMarker(store.Marker{Key: key})
	})
	s.ErrorIs(err, store.ErrMarkerExists)
}

func (s *MemoryStoreTestSuite) Test_ClaimMarker_TwiceInSameTx() {
	key := common.HexToHash("0x03")
	err := s.store.Update(context.Background(), func(tx store.Tx) error {
		s.Nil(tx.ClaimMarker(store.Marker{Key: key}))
		return tx.ClaimMarker(store.Marker{Key: key})
	})

	s.ErrorIs(err, store.ErrMarkerExists)
}

func (s *MemoryStoreTestSuite) Test_Update_CanceledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.store.Update(ctx, func(tx store.Tx) error {
		return tx.SetBalance(1)
	})

	s.ErrorIs(err, context.Canceled)
}
