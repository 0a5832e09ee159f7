package migrations_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sprintertech/sprinter-treasury/store/postgres/migrations"
	"github.com/stretchr/testify/suite"
)

type MigrationsTestSuite struct {
	suite.Suite
}

func TestRunMigrationsTestSuite(t *testing.T) {
	suite.Run(t, new(MigrationsTestSuite))
}

func (s *MigrationsTestSuite) Test_Apply_ExecutesAllMigrations() {
	db, mock, err := sqlmock.New()
	s.Nil(err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS treasury ").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO treasury ").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS treasury_accounts").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS treasury_markers").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS treasury_entries").WillReturnResult(sqlmock.NewResult(0, 0))

	err = migrations.Apply(context.Background(), db)

	s.Nil(err)
	s.Nil(mock.ExpectationsWereMet())
}

func (s *MigrationsTestSuite) Test_Apply_StopsOnFailure() {
	db, mock, err := sqlmock.New()
	s.Nil(err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS treasury ").WillReturnError(errors.New("permission denied"))

	err = migrations.Apply(context.Background(), db)

	s.NotNil(err)
	s.Nil(mock.ExpectationsWereMet())
}
