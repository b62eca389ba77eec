package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/yegorian/legendary-empire/internal/model"
	"github.com/yegorian/legendary-empire/internal/storage"
)

// Storage is a SQLite-backed implementation of the storage interface.
//
// The database is opened with WAL journaling, a busy timeout and enforced
// foreign keys so concurrent row-scoped operations from different chats do
// not trip over each other.
type Storage struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	telegram_id INTEGER NOT NULL UNIQUE,
	username TEXT NOT NULL,
	game_id TEXT NOT NULL UNIQUE,
	nickname TEXT NOT NULL,
	registered_at DATETIME NOT NULL,
	last_active DATETIME NOT NULL,
	is_subscribed INTEGER NOT NULL DEFAULT 0,
	game_state TEXT NOT NULL DEFAULT 'idle',
	castle_built INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS resources (
	account_id INTEGER PRIMARY KEY,
	stones INTEGER NOT NULL DEFAULT 20,
	coins INTEGER NOT NULL DEFAULT 50,
	wood INTEGER NOT NULL DEFAULT 20,
	diamonds INTEGER NOT NULL DEFAULT 1,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY(account_id) REFERENCES accounts(id)
);

CREATE TABLE IF NOT EXISTS terrain_grids (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id INTEGER NOT NULL,
	map_data TEXT NOT NULL,
	visited_cells TEXT NOT NULL DEFAULT '[]',
	started_at DATETIME NOT NULL,
	ended_at DATETIME,
	is_won INTEGER NOT NULL DEFAULT 0,
	FOREIGN KEY(account_id) REFERENCES accounts(id)
);

CREATE INDEX IF NOT EXISTS idx_grids_account_started
	ON terrain_grids(account_id, started_at);
`

// New opens (and creates if missing) the SQLite database at the given
// path and applies the schema.
func New(path string) (*Storage, error) {
	// Ensure directory exists for ./data/empire.db, etc.
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close closes the underlying database
func (s *Storage) Close() error {
	return s.db.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Account operations

func (s *Storage) CreateAccount(ctx context.Context, account *model.Account, ledger *model.ResourceLedger) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// The game number subquery is evaluated under the write lock of this
	// transaction, so concurrent registrations cannot gap or repeat.
	res, err := tx.ExecContext(ctx, `
		INSERT INTO accounts
			(telegram_id, username, nickname, game_id, registered_at, last_active, is_subscribed, game_state, castle_built)
		VALUES (?, ?, ?, printf('#%05d', (SELECT COUNT(*) FROM accounts) + 1), ?, ?, ?, ?, 0)`,
		account.TelegramID, account.Username, account.Nickname,
		account.RegisteredAt, account.LastActiveAt, account.Subscribed, string(account.State),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrDuplicateAccount
		}
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	account.ID = id
	ledger.AccountID = id

	if err := tx.QueryRowContext(ctx,
		`SELECT game_id FROM accounts WHERE id = ?`, id,
	).Scan(&account.GameID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO resources (account_id, stones, coins, wood, diamonds, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, ledger.Stones, ledger.Coins, ledger.Wood, ledger.Diamonds, ledger.UpdatedAt,
	); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Storage) GetAccount(ctx context.Context, telegramID int64) (*model.Account, error) {
	var a model.Account
	err := s.db.QueryRowContext(ctx, `
		SELECT id, telegram_id, username, game_id, nickname, registered_at, last_active, is_subscribed, game_state, castle_built
		FROM accounts WHERE telegram_id = ?`, telegramID,
	).Scan(&a.ID, &a.TelegramID, &a.Username, &a.GameID, &a.Nickname,
		&a.RegisteredAt, &a.LastActiveAt, &a.Subscribed, &a.State, &a.CastleBuilt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Storage) SetSessionState(ctx context.Context, telegramID int64, state model.SessionState, now time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET game_state = ?, last_active = ? WHERE telegram_id = ?`,
		string(state), now, telegramID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Storage) MarkCastleBuilt(ctx context.Context, telegramID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET castle_built = 1 WHERE telegram_id = ?`, telegramID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Storage) GetLedger(ctx context.Context, accountID int64) (*model.ResourceLedger, error) {
	var l model.ResourceLedger
	err := s.db.QueryRowContext(ctx, `
		SELECT account_id, stones, coins, wood, diamonds, updated_at
		FROM resources WHERE account_id = ?`, accountID,
	).Scan(&l.AccountID, &l.Stones, &l.Coins, &l.Wood, &l.Diamonds, &l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrLedgerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Stats operations

func (s *Storage) CountAccounts(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count)
	return count, err
}

func (s *Storage) CountActiveSince(ctx context.Context, cutoff time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accounts WHERE last_active > ?`, cutoff,
	).Scan(&count)
	return count, err
}

// Grid operations

func (s *Storage) AppendGrid(ctx context.Context, grid *model.TerrainGrid) error {
	cells, visited, err := marshalGrid(grid)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO terrain_grids (account_id, map_data, visited_cells, started_at, ended_at, is_won)
		VALUES (?, ?, ?, ?, ?, ?)`,
		grid.AccountID, cells, visited, grid.StartedAt, nullTime(grid.EndedAt), grid.Won,
	)
	if err != nil {
		return err
	}
	grid.ID, err = res.LastInsertId()
	return err
}

func (s *Storage) LatestGrid(ctx context.Context, accountID int64) (*model.TerrainGrid, error) {
	var (
		g       model.TerrainGrid
		cells   string
		visited string
		ended   sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, map_data, visited_cells, started_at, ended_at, is_won
		FROM terrain_grids WHERE account_id = ?
		ORDER BY started_at DESC, id DESC LIMIT 1`, accountID,
	).Scan(&g.ID, &g.AccountID, &cells, &visited, &g.StartedAt, &ended, &g.Won)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrGridNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := unmarshalGrid(&g, cells, visited, ended); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Storage) UpdateGrid(ctx context.Context, grid *model.TerrainGrid) error {
	cells, visited, err := marshalGrid(grid)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE terrain_grids SET map_data = ?, visited_cells = ?, ended_at = ?, is_won = ?
		WHERE id = ?`,
		cells, visited, nullTime(grid.EndedAt), grid.Won, grid.ID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return model.ErrGridNotFound
	}
	return nil
}

// Export operations

func (s *Storage) SnapshotAll(ctx context.Context) (*model.Snapshot, error) {
	snapshot := &model.Snapshot{
		Accounts: []*model.Account{},
		Ledgers:  []*model.ResourceLedger{},
		Grids:    []*model.TerrainGrid{},
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, telegram_id, username, game_id, nickname, registered_at, last_active, is_subscribed, game_state, castle_built
		FROM accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.ID, &a.TelegramID, &a.Username, &a.GameID, &a.Nickname,
			&a.RegisteredAt, &a.LastActiveAt, &a.Subscribed, &a.State, &a.CastleBuilt); err != nil {
			return nil, err
		}
		snapshot.Accounts = append(snapshot.Accounts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ledgerRows, err := s.db.QueryContext(ctx, `
		SELECT account_id, stones, coins, wood, diamonds, updated_at
		FROM resources ORDER BY account_id`)
	if err != nil {
		return nil, err
	}
	defer ledgerRows.Close()
	for ledgerRows.Next() {
		var l model.ResourceLedger
		if err := ledgerRows.Scan(&l.AccountID, &l.Stones, &l.Coins, &l.Wood, &l.Diamonds, &l.UpdatedAt); err != nil {
			return nil, err
		}
		snapshot.Ledgers = append(snapshot.Ledgers, &l)
	}
	if err := ledgerRows.Err(); err != nil {
		return nil, err
	}

	gridRows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, map_data, visited_cells, started_at, ended_at, is_won
		FROM terrain_grids ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer gridRows.Close()
	for gridRows.Next() {
		var (
			g       model.TerrainGrid
			cells   string
			visited string
			ended   sql.NullTime
		)
		if err := gridRows.Scan(&g.ID, &g.AccountID, &cells, &visited, &g.StartedAt, &ended, &g.Won); err != nil {
			return nil, err
		}
		if err := unmarshalGrid(&g, cells, visited, ended); err != nil {
			return nil, err
		}
		snapshot.Grids = append(snapshot.Grids, &g)
	}
	if err := gridRows.Err(); err != nil {
		return nil, err
	}

	snapshot.Counts = model.SnapshotCounts{
		Accounts: len(snapshot.Accounts),
		Ledgers:  len(snapshot.Ledgers),
		Grids:    len(snapshot.Grids),
	}
	return snapshot, nil
}

// Helpers

func marshalGrid(grid *model.TerrainGrid) (cells string, visited string, err error) {
	cellBytes, err := json.Marshal(grid.Cells)
	if err != nil {
		return "", "", err
	}
	visitedList := grid.Visited
	if visitedList == nil {
		visitedList = []model.Cell{}
	}
	visitedBytes, err := json.Marshal(visitedList)
	if err != nil {
		return "", "", err
	}
	return string(cellBytes), string(visitedBytes), nil
}

func unmarshalGrid(g *model.TerrainGrid, cells, visited string, ended sql.NullTime) error {
	if err := json.Unmarshal([]byte(cells), &g.Cells); err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(visited), &g.Visited); err != nil {
		return err
	}
	if ended.Valid {
		t := ended.Time
		g.EndedAt = &t
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return model.ErrAccountNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
