package txmanager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/m04kA/SMC-ClinicService/pkg/dbmetrics"
)

var (
	// ErrBeginTx returned when a transaction cannot be opened
	ErrBeginTx = errors.New("txmanager: failed to begin transaction")

	// ErrCommitTx returned when commit fails for reasons other than contention
	ErrCommitTx = errors.New("txmanager: failed to commit transaction")

	// ErrConcurrentUpdate returned when PostgreSQL aborts the transaction because of
	// a serialization failure, a deadlock or a lock timeout. Callers may retry.
	ErrConcurrentUpdate = errors.New("txmanager: concurrent update, transaction aborted")
)

// PostgreSQL error codes treated as contention
const (
	codeSerializationFailure pq.ErrorCode = "40001"
	codeDeadlockDetected     pq.ErrorCode = "40P01"
	codeLockNotAvailable     pq.ErrorCode = "55P03"
)

// TxBeginner is satisfied by *dbmetrics.DB
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (dbmetrics.TxExecutor, error)
}

// TransactionManager runs functions inside a database transaction.
// A call made while ctx already carries a transaction joins it instead of opening a new one.
type TransactionManager struct {
	db TxBeginner
}

// NewTransactionManager creates a transaction manager over db
func NewTransactionManager(db TxBeginner) *TransactionManager {
	return &TransactionManager{db: db}
}

// Do runs fn with READ COMMITTED isolation
func (m *TransactionManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.run(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, fn)
}

// DoSerializable runs fn with SERIALIZABLE isolation
func (m *TransactionManager) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.run(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, fn)
}

// DoReadOnly runs fn in a read-only REPEATABLE READ transaction, so every
// statement inside fn sees the same snapshot.
func (m *TransactionManager) DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.run(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}, fn)
}

func (m *TransactionManager) run(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context) error) (err error) {
	if dbmetrics.IsInTransaction(ctx) {
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBeginTx, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(dbmetrics.WithTx(ctx, tx)); err != nil {
		_ = tx.Rollback()
		return Translate(err)
	}

	if err := tx.Commit(); err != nil {
		if translated := Translate(err); errors.Is(translated, ErrConcurrentUpdate) {
			return translated
		}
		return fmt.Errorf("%w: %w", ErrCommitTx, err)
	}

	return nil
}

// Translate maps PostgreSQL contention errors anywhere in err's chain to ErrConcurrentUpdate.
// Other errors are returned unchanged.
func Translate(err error) error {
	if err == nil || errors.Is(err, ErrConcurrentUpdate) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
			return fmt.Errorf("%w: %s (%s)", ErrConcurrentUpdate, pqErr.Message, pqErr.Code)
		}
	}

	return err
}
