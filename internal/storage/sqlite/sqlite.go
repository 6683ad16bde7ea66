// internal/storage/sqlite/sqlite.go
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rovshanmuradov/pubprinter/internal/storage"
	"github.com/rovshanmuradov/pubprinter/internal/storage/models"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Fixed-width UTC timestamps keep text ordering chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Migrations returns the schema statements, one per Exec.
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol           TEXT NOT NULL,
			total_supply     REAL NOT NULL DEFAULT 0,
			current_cost     INTEGER NOT NULL,
			remaining        INTEGER NOT NULL DEFAULT 0,
			next_step        INTEGER NOT NULL DEFAULT 0,
			minted_price_usd TEXT NOT NULL DEFAULT '',
			parent_price_usd TEXT NOT NULL DEFAULT '',
			profit_margin    REAL NOT NULL DEFAULT 0,
			status           TEXT NOT NULL,
			created_at       TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_symbol_time ON snapshots(symbol, created_at)`,

		`CREATE TABLE IF NOT EXISTS alerts (
			id         TEXT PRIMARY KEY,
			symbol     TEXT NOT NULL,
			kind       TEXT NOT NULL,
			severity   TEXT NOT NULL,
			message    TEXT NOT NULL,
			margin     REAL NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_symbol ON alerts(symbol, created_at)`,
	}
}

type sqliteStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStorage opens (creating if needed) the database at path and runs
// migrations. ":memory:" is accepted for tests.
func NewStorage(path string, logger *zap.Logger) (storage.Storage, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// modernc sqlite serialises writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &sqliteStorage{db: db, logger: logger.Named("sqlite")}
	if err := s.RunMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *sqliteStorage) RunMigrations() error {
	for _, stmt := range Migrations() {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}
	return nil
}

func (s *sqliteStorage) Close() error {
	return s.db.Close()
}

func (s *sqliteStorage) SaveSnapshot(ctx context.Context, snap *models.Snapshot) error {
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (symbol, total_supply, current_cost, remaining, next_step,
			minted_price_usd, parent_price_usd, profit_margin, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.Symbol, snap.TotalSupply, snap.CurrentCost, snap.Remaining, snap.NextStep,
		snap.MintedPriceUSD, snap.ParentPriceUSD, snap.ProfitMargin, snap.Status,
		snap.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		snap.ID = id
	}
	return nil
}

const snapshotColumns = `id, symbol, total_supply, current_cost, remaining, next_step,
	minted_price_usd, parent_price_usd, profit_margin, status, created_at`

func (s *sqliteStorage) LatestSnapshot(ctx context.Context, symbol string) (*models.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots WHERE symbol = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		symbol)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot for %s: %w", symbol, storage.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// ListSnapshots returns matching snapshots oldest first. With a limit the
// newest limit rows are kept.
func (s *sqliteStorage) ListSnapshots(ctx context.Context, filter models.SnapshotFilter) ([]models.Snapshot, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Symbol != "" {
		where = append(where, "symbol = ?")
		args = append(args, filter.Symbol)
	}
	if !filter.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, filter.Since.UTC().Format(timeLayout))
	}
	if !filter.Until.IsZero() {
		where = append(where, "created_at <= ?")
		args = append(args, filter.Until.UTC().Format(timeLayout))
	}

	query := `SELECT ` + snapshotColumns + ` FROM snapshots`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []models.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshots: %w", err)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *sqliteStorage) SaveAlert(ctx context.Context, a *models.Alert) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO alerts (id, symbol, kind, severity, message, margin, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Symbol, a.Kind, a.Severity, a.Message, a.Margin, a.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to save alert: %w", err)
	}
	return nil
}

func (s *sqliteStorage) ListAlerts(ctx context.Context, symbol string, limit int) ([]models.Alert, error) {
	query := `SELECT id, symbol, kind, severity, message, margin, created_at FROM alerts`
	var args []interface{}
	if symbol != "" {
		query += " WHERE symbol = ?"
		args = append(args, symbol)
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var out []models.Alert
	for rows.Next() {
		var (
			a       models.Alert
			created string
		)
		if err := rows.Scan(&a.ID, &a.Symbol, &a.Kind, &a.Severity, &a.Message, &a.Margin, &created); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.CreatedAt, _ = time.Parse(timeLayout, created)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *sqliteStorage) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE created_at < ?`, before.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.logger.Debug("Pruned snapshots", zap.Int64("rows", n), zap.Time("before", before))
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row scanner) (*models.Snapshot, error) {
	var (
		snap    models.Snapshot
		created string
	)
	err := row.Scan(&snap.ID, &snap.Symbol, &snap.TotalSupply, &snap.CurrentCost, &snap.Remaining,
		&snap.NextStep, &snap.MintedPriceUSD, &snap.ParentPriceUSD, &snap.ProfitMargin, &snap.Status, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}
	snap.CreatedAt, err = time.Parse(timeLayout, created)
	if err != nil {
		return nil, fmt.Errorf("bad created_at %q: %w", created, err)
	}
	return &snap, nil
}
