package storage

import (
	"context"
	"time"

	"github.com/yegorian/legendary-empire/internal/model"
)

// Storage defines the interface for data persistence.
//
// Implementations must be safe for concurrent use across different
// telegram identities; the only multi-entity atomic operation is
// CreateAccount, which persists the account and its resource ledger
// together or not at all.
type Storage interface {
	// Account operations

	// CreateAccount persists a new account with its starting ledger and
	// assigns the next sequential game number. It fills in account.ID,
	// account.GameID and ledger.AccountID. Returns
	// model.ErrDuplicateAccount if the telegram identity is already
	// registered, leaving nothing behind.
	CreateAccount(ctx context.Context, account *model.Account, ledger *model.ResourceLedger) error

	// GetAccount looks up an account by its telegram identity
	GetAccount(ctx context.Context, telegramID int64) (*model.Account, error)

	// SetSessionState updates the account's session state and refreshes
	// its last-active timestamp. Returns model.ErrAccountNotFound if the
	// account is absent.
	SetSessionState(ctx context.Context, telegramID int64, state model.SessionState, now time.Time) error

	// MarkCastleBuilt flags the account as having built its castle
	MarkCastleBuilt(ctx context.Context, telegramID int64) error

	// GetLedger looks up the resource ledger by internal account id
	GetLedger(ctx context.Context, accountID int64) (*model.ResourceLedger, error)

	// Stats operations

	// CountAccounts returns the total number of registered accounts
	CountAccounts(ctx context.Context) (int, error)

	// CountActiveSince returns the number of accounts whose last-active
	// timestamp is strictly after the cutoff
	CountActiveSince(ctx context.Context, cutoff time.Time) (int, error)

	// Grid operations

	// AppendGrid stores a new terrain grid for an account, filling in
	// grid.ID. Earlier grids are retained as history.
	AppendGrid(ctx context.Context, grid *model.TerrainGrid) error

	// LatestGrid returns the most recently started grid for an account,
	// or model.ErrGridNotFound if none exists
	LatestGrid(ctx context.Context, accountID int64) (*model.TerrainGrid, error)

	// UpdateGrid persists mutations to an existing grid (the winning
	// cell rewrite, visited cells, completion state)
	UpdateGrid(ctx context.Context, grid *model.TerrainGrid) error

	// Export operations

	// SnapshotAll dumps all three collections for administrative export
	SnapshotAll(ctx context.Context) (*model.Snapshot, error)
}
