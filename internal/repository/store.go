package repository

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jmoiron/sqlx"

	"github.com/gurkanbulca/tasktimer/internal/database"
)

// Store is the persistence boundary for tasks and their pause ledger and audit
// log. Statements are built with ent's SQL builder for the connection's
// dialect and executed through sqlx.
type Store struct {
	reader
	db *sqlx.DB
}

func NewStore(db *database.DB) *Store {
	return &Store{
		reader: reader{ext: db.DB, b: entsql.Dialect(db.Dialect)},
		db:     db.DB,
	}
}

// Tx is a store transaction. Reads made through it see its own writes.
type Tx struct {
	reader
	tx *sqlx.Tx
}

// InTx runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(*Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&Tx{reader: reader{ext: tx, b: s.b}, tx: tx}); err != nil {
		return rollback(tx, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// rollback calls tx.Rollback and wraps the given error with the rollback
// error if occurred.
func rollback(tx *sqlx.Tx, err error) error {
	if rerr := tx.Rollback(); rerr != nil {
		err = fmt.Errorf("%w: rolling back transaction: %v", err, rerr)
	}
	return err
}

// reader holds the queries shared by Store and Tx.
type reader struct {
	ext sqlx.ExtContext
	b   *entsql.DialectBuilder
}

func (r reader) get(ctx context.Context, dest any, q entsql.Querier) error {
	query, args := q.Query()
	return sqlx.GetContext(ctx, r.ext, dest, query, args...)
}

func (r reader) selectAll(ctx context.Context, dest any, q entsql.Querier) error {
	query, args := q.Query()
	return sqlx.SelectContext(ctx, r.ext, dest, query, args...)
}

func (r reader) exec(ctx context.Context, q entsql.Querier) (int64, error) {
	query, args := q.Query()
	res, err := r.ext.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
