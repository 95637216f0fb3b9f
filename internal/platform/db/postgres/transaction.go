package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type transactionContextKey struct{}

var txContextKey = transactionContextKey{}

// TxStarter はトランザクションを開始できる接続の抽象です。pgxpool.Pool と pgxmock の双方が満たします。
type TxStarter interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// TransactionManager は pgx を用いたトランザクション制御を提供します。
// acquireTimeout が正の場合、プールからの接続取得とトランザクション開始をその時間で打ち切ります。
type TransactionManager struct {
	pool           TxStarter
	acquireTimeout time.Duration
}

// TransactionOption は TransactionManager の設定です。
type TransactionOption func(*TransactionManager)

// WithAcquireTimeout は接続取得の待ち時間の上限を設定します。
func WithAcquireTimeout(d time.Duration) TransactionOption {
	return func(m *TransactionManager) {
		m.acquireTimeout = d
	}
}

// NewTransactionManager は TransactionManager を生成します。pool が nil の場合は nil を返します。
func NewTransactionManager(pool TxStarter, opts ...TransactionOption) *TransactionManager {
	if pool == nil {
		return nil
	}
	m := &TransactionManager{pool: pool}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var (
	// 従業員行と給与行を同一スナップショットで読みます。
	readOnlyTxOptions  = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	readWriteTxOptions = pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite}
)

// WithinReadOnly は読み取り専用 (REPEATABLE READ) トランザクションで fn を実行します。
func (m *TransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if m == nil {
		return fn(ctx)
	}
	return m.within(ctx, readOnlyTxOptions, fn)
}

// WithinReadWrite は読み書き (READ COMMITTED) トランザクションで fn を実行します。
func (m *TransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if m == nil {
		return fn(ctx)
	}
	return m.within(ctx, readWriteTxOptions, fn)
}

// BoundContext はトランザクション外でプールを直接使う呼び出しに接続取得の上限を付けます。
// ctx に既にトランザクションがある場合は接続を取得済みなので ctx をそのまま返します。
func (m *TransactionManager) BoundContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m == nil || m.acquireTimeout <= 0 {
		return ctx, func() {}
	}
	if _, ok := txFromContext(ctx); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, m.acquireTimeout)
}

func (m *TransactionManager) begin(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	beginCtx := ctx
	if m.acquireTimeout > 0 {
		var cancel context.CancelFunc
		beginCtx, cancel = context.WithTimeout(ctx, m.acquireTimeout)
		defer cancel()
	}

	tx, err := m.pool.BeginTx(beginCtx, opts)
	if err != nil {
		if errors.Is(beginCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("postgres: acquire connection within %s: %w", m.acquireTimeout, context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("postgres: begin tx: %w", err)
	}
	return tx, nil
}

func (m *TransactionManager) within(ctx context.Context, opts pgx.TxOptions, fn func(context.Context) error) (err error) {
	if fn == nil {
		return fmt.Errorf("postgres: transaction function is required")
	}

	// 入れ子の呼び出しは外側のトランザクションに参加します。
	if _, ok := txFromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := m.begin(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			err = errors.Join(err, fmt.Errorf("postgres: rollback: %w", rbErr))
		}
	}()

	if err = fn(contextWithTx(ctx, tx)); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func contextWithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txContextKey, tx)
}

func txFromContext(ctx context.Context) (pgx.Tx, bool) {
	if ctx == nil {
		return nil, false
	}
	tx, ok := ctx.Value(txContextKey).(pgx.Tx)
	return tx, ok
}

// QueryerFromContext はコンテキスト内にトランザクションが存在すればそれを返し、存在しなければ fallback を返します。
func QueryerFromContext(ctx context.Context, fallback Queryer) Queryer {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return fallback
}

// Queryer は pgx.Tx および pgxpool.Pool と互換性のあるクエリ実行インターフェースです。
type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}
