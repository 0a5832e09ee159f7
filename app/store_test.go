package app_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sprintertech/sprinter-treasury/app"
	"github.com/sprintertech/sprinter-treasury/config"
	"github.com/sprintertech/sprinter-treasury/store"
	"github.com/stretchr/testify/suite"
)

type NewStoreTestSuite struct {
	suite.Suite
}

func TestRunNewStoreTestSuite(t *testing.T) {
	suite.Run(t, new(NewStoreTestSuite))
}

func (s *NewStoreTestSuite) Test_Memory() {
	st, err := app.NewStore(context.Background(), config.StoreConfig{Type: config.MemoryStore})
	s.Nil(err)
	defer st.Close()

	err = st.Update(context.Background(), func(tx store.Tx) error {
		return tx.SetBalance(5)
	})
	s.Nil(err)
}

func (s *NewStoreTestSuite) Test_LvlDB_Reopen() {
	cfg := config.StoreConfig{
		Type: config.LvlDBStore,
		Path: filepath.Join(s.T().TempDir(), "treasury"),
	}

	st, err := app.NewStore(context.Background(), cfg)
	s.Nil(err)
	err = st.Update(context.Background(), func(tx store.Tx) error {
		return tx.SetBalance(42)
	})
	s.Nil(err)
	s.Nil(st.Close())

	st, err = app.NewStore(context.Background(), cfg)
	s.Nil(err)
	defer st.Close()

	var balance uint64
	err = st.View(context.Background(), func(r store.Reader) error {
		balance, err = r.Balance()
		return err
	})
	s.Nil(err)
	s.Equal(uint64(42), balance)
}

func (s *NewStoreTestSuite) Test_Postgres_Unreachable() {
	_, err := app.NewStore(context.Background(), config.StoreConfig{
		Type: config.PostgresStore,
		DSN:  "postgres://treasury@127.0.0.1:1/treasury?sslmode=disable&connect_timeout=1",
	})

	s.NotNil(err)
}

func (s *NewStoreTestSuite) Test_UnknownType() {
	_, err := app.NewStore(context.Background(), config.StoreConfig{Type: "redis"})

	s.NotNil(err)
}
