package repository

import (
	"context"
	_ "embed"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the query execution surface the repositories need. *pgxpool.Pool satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type scanner interface {
	Scan(dest ...any) error
}

//go:embed schema.sql
var schemaSQL string

// ApplySchema creates the tables, indexes and constraints if they do not exist.
func ApplySchema(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// inTx runs fn inside a transaction and commits when fn succeeds.
func inTx(ctx context.Context, db DB, opts pgx.TxOptions, fn func(tx pgx.Tx) error) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

var serializable = pgx.TxOptions{IsoLevel: pgx.Serializable}

// inSerializableTx runs fn in a SERIALIZABLE transaction. Predicate locks may
// cover more than one listing, so a serialization failure is retried once
// before it is reported.
func inSerializableTx(ctx context.Context, db DB, op string, fn func(tx pgx.Tx) error) error {
	return retrySerialization(op, func() error {
		return inTx(ctx, db, serializable, fn)
	})
}

func retrySerialization(op string, attempt func() error) error {
	err := attempt()
	if isSerializationFailure(err) {
		log.Printf("%s: serialization failure, retrying: %v", op, err)
		err = attempt()
	}
	return err
}
