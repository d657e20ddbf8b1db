package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tradingcase/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ RunStore = (*SQLiteStore)(nil)

// SQLiteStore implements RunStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id                   TEXT PRIMARY KEY,
	created_at           INTEGER NOT NULL,
	symbol               TEXT NOT NULL,
	start_date           TEXT NOT NULL,
	end_date             TEXT NOT NULL,
	strategy             TEXT NOT NULL,
	fast_period          INTEGER NOT NULL,
	slow_period          INTEGER NOT NULL,
	initial_cash         REAL NOT NULL,
	final_cash           REAL NOT NULL,
	profit_loss          REAL NOT NULL,
	profit_loss_percent  REAL NOT NULL,
	total_trades         INTEGER NOT NULL,
	winning_trades       INTEGER NOT NULL,
	losing_trades        INTEGER NOT NULL,
	max_drawdown         REAL NOT NULL,
	max_drawdown_percent REAL NOT NULL,
	bars                 INTEGER NOT NULL,
	unrealized_pnl       REAL NOT NULL,
	open_position        TEXT
);
CREATE INDEX IF NOT EXISTS runs_created_at ON runs (created_at DESC);

CREATE TABLE IF NOT EXISTS trades (
	run_id      TEXT NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
	seq         INTEGER NOT NULL,
	entry_time  INTEGER NOT NULL,
	entry_price REAL NOT NULL,
	exit_time   INTEGER NOT NULL,
	exit_price  REAL NOT NULL,
	qty         REAL NOT NULL,
	pnl         REAL NOT NULL,
	fees        REAL NOT NULL,
	PRIMARY KEY (run_id, seq)
);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, creates the
// schema if needed, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun inserts the report and its trades in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, r *domain.Report) error {
	var openPos sql.NullString
	if r.OpenPosition != nil {
		b, err := json.Marshal(r.OpenPosition)
		if err != nil {
			return fmt.Errorf("encoding open position: %w", err)
		}
		openPos = sql.NullString{String: string(b), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, created_at, symbol, start_date, end_date, strategy,
			fast_period, slow_period, initial_cash, final_cash, profit_loss,
			profit_loss_percent, total_trades, winning_trades, losing_trades,
			max_drawdown, max_drawdown_percent, bars, unrealized_pnl, open_position
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CreatedAt.UnixMilli(), r.Symbol, r.StartDate, r.EndDate, r.Strategy,
		r.FastPeriod, r.SlowPeriod, r.InitialCash, r.FinalCash, r.ProfitLoss,
		r.ProfitLossPercent, r.TotalTrades, r.WinningTrades, r.LosingTrades,
		r.MaxDrawdown, r.MaxDrawdownPercent, r.Bars, r.UnrealizedPnL, openPos,
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", r.ID, err)
	}

	for i, t := range r.Trades {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO trades (run_id, seq, entry_time, entry_price, exit_time, exit_price, qty, pnl, fees)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, i, t.EntryTime.UnixMilli(), t.EntryPrice, t.ExitTime.UnixMilli(), t.ExitPrice, t.Qty, t.PnL, t.Fees,
		)
		if err != nil {
			return fmt.Errorf("inserting trade %d of run %s: %w", i, r.ID, err)
		}
	}
	return tx.Commit()
}

const runColumns = `
	id, created_at, symbol, start_date, end_date, strategy,
	fast_period, slow_period, initial_cash, final_cash, profit_loss,
	profit_loss_percent, total_trades, winning_trades, losing_trades,
	max_drawdown, max_drawdown_percent, bars, unrealized_pnl, open_position`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.Report, error) {
	var (
		r         domain.Report
		createdAt int64
		openPos   sql.NullString
	)
	err := row.Scan(
		&r.ID, &createdAt, &r.Symbol, &r.StartDate, &r.EndDate, &r.Strategy,
		&r.FastPeriod, &r.SlowPeriod, &r.InitialCash, &r.FinalCash, &r.ProfitLoss,
		&r.ProfitLossPercent, &r.TotalTrades, &r.WinningTrades, &r.LosingTrades,
		&r.MaxDrawdown, &r.MaxDrawdownPercent, &r.Bars, &r.UnrealizedPnL, &openPos,
	)
	if err != nil {
		return nil, err
	}
	r.CreatedAt = time.UnixMilli(createdAt).UTC()
	if openPos.Valid {
		var p domain.Position
		if err := json.Unmarshal([]byte(openPos.String), &p); err != nil {
			return nil, fmt.Errorf("decoding open position of run %s: %w", r.ID, err)
		}
		r.OpenPosition = &p
	}
	return &r, nil
}

// GetRun retrieves a single run and its trades.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*domain.Report, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT entry_time, entry_price, exit_time, exit_price, qty, pnl, fees
		FROM trades WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t               domain.Trade
			entryMs, exitMs int64
		)
		if err := rows.Scan(&entryMs, &t.EntryPrice, &exitMs, &t.ExitPrice, &t.Qty, &t.PnL, &t.Fees); err != nil {
			return nil, err
		}
		t.EntryTime = time.UnixMilli(entryMs).UTC()
		t.ExitTime = time.UnixMilli(exitMs).UTC()
		r.Trades = append(r.Trades, t)
	}
	return r, rows.Err()
}

// ListRuns returns the most recent runs, newest first, up to limit.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]domain.Report, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Report
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}
