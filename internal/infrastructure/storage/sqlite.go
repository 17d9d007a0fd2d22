package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/andreyk/breakout_bot/internal/domain"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS active_trades (
			id TEXT PRIMARY KEY,
			strategy TEXT NOT NULL,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			entry_price REAL NOT NULL,
			volume REAL NOT NULL,
			stop_price REAL NOT NULL,
			tier INTEGER NOT NULL,
			state TEXT NOT NULL,
			profit_order_id TEXT NOT NULL DEFAULT '',
			stop_order_id TEXT NOT NULL DEFAULT '',
			unprotected BOOLEAN NOT NULL DEFAULT 0,
			opened_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_active_trades_strategy ON active_trades(strategy);`,
		`CREATE TABLE IF NOT EXISTS closed_trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			trade_id TEXT NOT NULL,
			strategy TEXT NOT NULL,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			tier INTEGER NOT NULL,
			entry_price REAL NOT NULL,
			exit_price REAL NOT NULL,
			volume REAL NOT NULL,
			realized_pnl REAL NOT NULL,
			reason TEXT NOT NULL,
			opened_at DATETIME NOT NULL,
			closed_at DATETIME NOT NULL
		);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}

	return nil
}

// TradeRepository Implementation

func (s *SQLiteStore) SaveActiveTrade(ctx context.Context, t *domain.ActiveTrade) error {
	query := `INSERT INTO active_trades (id, strategy, symbol, side, entry_price, volume, stop_price, tier, state, profit_order_id, stop_order_id, unprotected, opened_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			  ON CONFLICT(id) DO UPDATE SET
			  stop_price=excluded.stop_price,
			  state=excluded.state,
			  profit_order_id=excluded.profit_order_id,
			  stop_order_id=excluded.stop_order_id,
			  unprotected=excluded.unprotected`
	_, err := s.db.ExecContext(ctx, query,
		t.ID, t.Strategy, t.Symbol, t.Side, t.EntryPrice, t.Volume, t.StopPrice,
		t.Tier, t.State, t.ProfitOrderID, t.StopOrderID, t.Unprotected, t.OpenedAt)
	return err
}

func (s *SQLiteStore) DeleteActiveTrade(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM active_trades WHERE id = ?", id)
	return err
}

func (s *SQLiteStore) ListActiveTrades(ctx context.Context, strategy string) ([]*domain.ActiveTrade, error) {
	query := `SELECT id, strategy, symbol, side, entry_price, volume, stop_price, tier, state, profit_order_id, stop_order_id, unprotected, opened_at
			  FROM active_trades WHERE strategy = ?`
	rows, err := s.db.QueryContext(ctx, query, strategy)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*domain.ActiveTrade
	for rows.Next() {
		var t domain.ActiveTrade
		if err := rows.Scan(&t.ID, &t.Strategy, &t.Symbol, &t.Side, &t.EntryPrice, &t.Volume, &t.StopPrice,
			&t.Tier, &t.State, &t.ProfitOrderID, &t.StopOrderID, &t.Unprotected, &t.OpenedAt); err != nil {
			return nil, err
		}
		trades = append(trades, &t)
	}
	return trades, rows.Err()
}

func (s *SQLiteStore) SaveClosedTrade(ctx context.Context, t *domain.ClosedTrade) error {
	query := `INSERT INTO closed_trades (trade_id, strategy, symbol, side, tier, entry_price, exit_price, volume, realized_pnl, reason, opened_at, closed_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		t.TradeID, t.Strategy, t.Symbol, t.Side, t.Tier, t.EntryPrice, t.ExitPrice,
		t.Volume, t.RealizedPnL, t.Reason, t.OpenedAt, t.ClosedAt)
	return err
}

func (s *SQLiteStore) ListClosedTrades(ctx context.Context, limit int) ([]*domain.ClosedTrade, error) {
	query := `SELECT trade_id, strategy, symbol, side, tier, entry_price, exit_price, volume, realized_pnl, reason, opened_at, closed_at
			  FROM closed_trades ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*domain.ClosedTrade
	for rows.Next() {
		var t domain.ClosedTrade
		if err := rows.Scan(&t.TradeID, &t.Strategy, &t.Symbol, &t.Side, &t.Tier, &t.EntryPrice, &t.ExitPrice,
			&t.Volume, &t.RealizedPnL, &t.Reason, &t.OpenedAt, &t.ClosedAt); err != nil {
			return nil, err
		}
		trades = append(trades, &t)
	}
	return trades, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
