package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yegorian/legendary-empire/internal/model"
	"github.com/yegorian/legendary-empire/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	accounts map[int64]*model.Account        // keyed by telegram id
	ledgers  map[int64]*model.ResourceLedger // keyed by account id
	grids    map[int64][]*model.TerrainGrid  // keyed by account id, append order

	nextAccountID int64
	nextGridID    int64
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		accounts: make(map[int64]*model.Account),
		ledgers:  make(map[int64]*model.ResourceLedger),
		grids:    make(map[int64][]*model.TerrainGrid),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Account operations

func (s *Storage) CreateAccount(ctx context.Context, account *model.Account, ledger *model.ResourceLedger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.TelegramID]; ok {
		return model.ErrDuplicateAccount
	}

	s.nextAccountID++
	account.ID = s.nextAccountID
	account.GameID = model.FormatGameID(s.nextAccountID)
	ledger.AccountID = account.ID

	a := *account
	l := *ledger
	s.accounts[account.TelegramID] = &a
	s.ledgers[ledger.AccountID] = &l
	return nil
}

func (s *Storage) GetAccount(ctx context.Context, telegramID int64) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[telegramID]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	a := *account
	return &a, nil
}

func (s *Storage) SetSessionState(ctx context.Context, telegramID int64, state model.SessionState, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[telegramID]
	if !ok {
		return model.ErrAccountNotFound
	}
	account.State = state
	account.LastActiveAt = now
	return nil
}

func (s *Storage) MarkCastleBuilt(ctx context.Context, telegramID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[telegramID]
	if !ok {
		return model.ErrAccountNotFound
	}
	account.CastleBuilt = true
	return nil
}

func (s *Storage) GetLedger(ctx context.Context, accountID int64) (*model.ResourceLedger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ledger, ok := s.ledgers[accountID]
	if !ok {
		return nil, model.ErrLedgerNotFound
	}
	l := *ledger
	return &l, nil
}

// Stats operations

func (s *Storage) CountAccounts(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts), nil
}

func (s *Storage) CountActiveSince(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, account := range s.accounts {
		if account.LastActiveAt.After(cutoff) {
			count++
		}
	}
	return count, nil
}

// Grid operations

func (s *Storage) AppendGrid(ctx context.Context, grid *model.TerrainGrid) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextGridID++
	grid.ID = s.nextGridID

	g := copyGrid(grid)
	s.grids[grid.AccountID] = append(s.grids[grid.AccountID], g)
	return nil
}

func (s *Storage) LatestGrid(ctx context.Context, accountID int64) (*model.TerrainGrid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.grids[accountID]
	if len(history) == 0 {
		return nil, model.ErrGridNotFound
	}
	return copyGrid(history[len(history)-1]), nil
}

func (s *Storage) UpdateGrid(ctx context.Context, grid *model.TerrainGrid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := s.grids[grid.AccountID]
	for i, g := range history {
		if g.ID == grid.ID {
			history[i] = copyGrid(grid)
			return nil
		}
	}
	return model.ErrGridNotFound
}

// Export operations

func (s *Storage) SnapshotAll(ctx context.Context) (*model.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := &model.Snapshot{
		Accounts: make([]*model.Account, 0, len(s.accounts)),
		Ledgers:  make([]*model.ResourceLedger, 0, len(s.ledgers)),
		Grids:    []*model.TerrainGrid{},
	}

	for _, account := range s.accounts {
		a := *account
		snapshot.Accounts = append(snapshot.Accounts, &a)
	}
	sort.Slice(snapshot.Accounts, func(i, j int) bool {
		return snapshot.Accounts[i].ID < snapshot.Accounts[j].ID
	})

	for _, account := range snapshot.Accounts {
		if ledger, ok := s.ledgers[account.ID]; ok {
			l := *ledger
			snapshot.Ledgers = append(snapshot.Ledgers, &l)
		}
		for _, g := range s.grids[account.ID] {
			snapshot.Grids = append(snapshot.Grids, copyGrid(g))
		}
	}

	snapshot.Counts = model.SnapshotCounts{
		Accounts: len(snapshot.Accounts),
		Ledgers:  len(snapshot.Ledgers),
		Grids:    len(snapshot.Grids),
	}
	return snapshot, nil
}

func copyGrid(g *model.TerrainGrid) *model.TerrainGrid {
	out := *g
	out.Visited = append([]model.Cell(nil), g.Visited...)
	return &out
}
