package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/sprintertech/sprinter-treasury/store"
)

const serializationFailure = "40001"

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type tx struct {
	ctx context.Context
	db  querier
	// lock takes row locks on the rows read so concurrent writers serialize.
	lock bool
}

func (t *tx) forUpdate(query string) string {
	if t.lock {
		return query + " FOR UPDATE"
	}
	return query
}

func (t *tx) numeric(query string, args ...interface{}) (uint64, error) {
	var raw string
	err := t.db.QueryRowContext(t.ctx, t.forUpdate(query), args...).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(raw, 10, 64)
}

func (t *tx) Balance() (uint64, error) {
	return t.numeric(`SELECT balance FROM treasury WHERE id = 1`)
}

func (t *tx) AccountBalance(account string) (uint64, error) {
	return t.numeric(`SELECT balance FROM treasury_accounts WHERE account = $1`, account)
}

func (t *tx) Marker(key common.Hash) (store.Marker, error) {
	var (
		m    store.Marker
		kind string
	)
	err := t.db.QueryRowContext(t.ctx, `
		SELECT kind, reference, claimed_at
		FROM treasury_markers
		WHERE key = $1
	`, key.Hex()).Scan(&kind, &m.Reference, &m.ClaimedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Marker{}, store.ErrNotFound
	}
	if err != nil {
		return store.Marker{}, err
	}

	m.Key = key
	m.Kind = store.MarkerKind(kind)
	return m, nil
}

func (t *tx) Window() (store.Window, error) {
	var (
		start    sql.NullTime
		duration sql.NullInt64
	)
	err := t.db.QueryRowContext(t.ctx, `SELECT window_start, window_duration FROM treasury WHERE id = 1`).Scan(&start, &duration)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Window{}, store.ErrNotFound
	}
	if err != nil {
		return store.Window{}, err
	}
	if !start.Valid || !duration.Valid {
		return store.Window{}, store.ErrNotFound
	}

	return store.Window{
		Start:    start.Time,
		Duration: time.Duration(duration.Int64),
	}, nil
}

func (t *tx) Entries() ([]store.Entry, error) {
	rows, err := t.db.QueryContext(t.ctx, `
		SELECT id, kind, account, counterparty, amount, reference, created_at
		FROM treasury_entries
		ORDER BY seq
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []store.Entry{}
	for rows.Next() {
		var (
			e      store.Entry
			id     string
			kind   string
			amount string
		)
		if err := rows.Scan(&id, &kind, &e.Account, &e.Counterparty, &amount, &e.Reference, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, err
		}
		e.Amount, err = strconv.ParseUint(amount, 10, 64)
		if err != nil {
			return nil, err
		}
		e.Kind = store.EntryKind(kind)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (t *tx) SetBalance(amount uint64) error {
	_, err := t.db.ExecContext(t.ctx, `
		INSERT INTO treasury (id, balance) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET balance = EXCLUDED.balance
	`, strconv.FormatUint(amount, 10))
	return err
}

func (t *tx) SetAccountBalance(account string, amount uint64) error {
	_, err := t.db.ExecContext(t.ctx, `
		INSERT INTO treasury_accounts (account, balance) VALUES ($1, $2)
		ON CONFLICT (account) DO UPDATE SET balance = EXCLUDED.balance
	`, account, strconv.FormatUint(amount, 10))
	return err
}

func (t *tx) ClaimMarker(marker store.Marker) error {
	result, err := t.db.ExecContext(t.ctx, `
		INSERT INTO treasury_markers (key, kind, reference, claimed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO NOTHING
	`, marker.Key.Hex(), string(marker.Kind), marker.Reference, marker.ClaimedAt)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return store.ErrMarkerExists
	}
	return nil
}

func (t *tx) SetWindow(window store.Window) error {
	_, err := t.db.ExecContext(t.ctx, `
		INSERT INTO treasury (id, balance, window_start, window_duration) VALUES (1, 0, $1, $2)
		ON CONFLICT (id) DO UPDATE SET window_start = EXCLUDED.window_start, window_duration = EXCLUDED.window_duration
	`, window.Start, int64(window.Duration))
	return err
}

func (t *tx) AppendEntry(entry store.Entry) error {
	_, err := t.db.ExecContext(t.ctx, `
		INSERT INTO treasury_entries (id, kind, account, counterparty, amount, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.ID.String(), string(entry.Kind), entry.Account, entry.Counterparty,
		strconv.FormatUint(entry.Amount, 10), entry.Reference, entry.CreatedAt)
	return err
}

// PostgresStore runs every Update in a serializable transaction and retries
// transactions aborted by serialization failures.
type PostgresStore struct {
	db         *sql.DB
	maxRetries int
}

func NewPostgresStore(db *sql.DB, maxRetries int) *PostgresStore {
	return &PostgresStore{
		db:         db,
		maxRetries: maxRetries,
	}
}

// Connect opens and pings a postgres database.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}
	return db, nil
}

func (s *PostgresStore) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	var err error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		err = s.update(ctx, fn)
		if !IsSerializationFailure(err) {
			return err
		}

		log.Debug().Msgf("Retrying serialization failure, attempt %d", attempt+1)
	}
	return err
}

func (s *PostgresStore) update(ctx context.Context, fn func(tx store.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}

	if err := fn(&tx{ctx: ctx, db: sqlTx, lock: true}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	return sqlTx.Commit()
}

func (s *PostgresStore) View(ctx context.Context, fn func(r store.Reader) error) error {
	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return err
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	return fn(&tx{ctx: ctx, db: sqlTx})
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// IsSerializationFailure reports whether err aborted a transaction that can be retried.
func IsSerializationFailure(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == serializationFailure
}
