// Package repository implements the service storage port on MySQL with
// plain database/sql.  Every query is written by hand; statements that must
// serialise concurrent writers use SELECT ... FOR UPDATE inside InTx.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/service"
)

// dbtx is the subset shared by *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries runs the domain queries against either the pool or a single
// transaction.  Row locks are only requested in the latter case.
type Queries struct {
	db   dbtx
	inTx bool
}

// Store is the pool-backed entry point handed to the services.
type Store struct {
	*Queries
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{Queries: &Queries{db: db}, db: db}
}

// InTx runs fn inside a transaction.  The transaction commits only when fn
// returns nil; any error or panic rolls it back.
func (s *Store) InTx(ctx context.Context, fn func(q service.Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(&Queries{db: tx, inTx: true}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (q *Queries) forUpdate() string {
	if q.inTx {
		return " FOR UPDATE"
	}
	return ""
}

// forShare makes a read inside a transaction a locking read.  Plain reads
// under REPEATABLE READ return the snapshot taken at the first read, which
// can predate a booking committed while this transaction waited on a lock.
func (q *Queries) forShare() string {
	if q.inTx {
		return " FOR SHARE"
	}
	return ""
}

// MySQL error 1062: duplicate entry for a unique key.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	return err
}

// affected maps "no row matched" to model.ErrNotFound.  The DSN sets
// clientFoundRows so unchanged rows still count as matched.
func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
