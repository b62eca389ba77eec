package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/yegorian/legendary-empire/internal/model"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
	now     time.Time
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.ctx = context.Background()
	s.now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

func (s *StorageSuite) newAccount(telegramID int64, nickname string) (*model.Account, *model.ResourceLedger) {
	account := &model.Account{
		TelegramID:   telegramID,
		Username:     fmt.Sprintf("user%d", telegramID),
		Nickname:     nickname,
		RegisteredAt: s.now,
		LastActiveAt: s.now,
		Subscribed:   true,
		State:        model.StateRegistered,
	}
	return account, model.NewStartingLedger(0, s.now)
}

// Account tests

func (s *StorageSuite) TestCreateAccountAssignsSequentialGameIDs() {
	for i := int64(1); i <= 3; i++ {
		account, ledger := s.newAccount(100+i, "Hero")
		s.Require().NoError(s.storage.CreateAccount(s.ctx, account, ledger))
		s.Equal(model.FormatGameID(i), account.GameID)
		s.Equal(account.ID, ledger.AccountID)
	}
}

func (s *StorageSuite) TestCreateAccountRejectsDuplicate() {
	account, ledger := s.newAccount(101, "Hero")
	s.Require().NoError(s.storage.CreateAccount(s.ctx, account, ledger))

	dup, dupLedger := s.newAccount(101, "Hero2")
	err := s.storage.CreateAccount(s.ctx, dup, dupLedger)
	s.ErrorIs(err, model.ErrDuplicateAccount)

	// No second ledger was created and the next id is not burned
	next, nextLedger := s.newAccount(102, "Other")
	s.Require().NoError(s.storage.CreateAccount(s.ctx, next, nextLedger))
	s.Equal(model.FormatGameID(2), next.GameID)
}

func (s *StorageSuite) TestCreateAccountConcurrentRegistrationsHaveNoGaps() {
	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(telegramID int64) {
			defer wg.Done()
			account, ledger := s.newAccount(telegramID, "Hero")
			_ = s.storage.CreateAccount(s.ctx, account, ledger)
		}(int64(1000 + i))
	}
	wg.Wait()

	seen := make(map[model.GameID]bool)
	for i := 0; i < n; i++ {
		account, err := s.storage.GetAccount(s.ctx, int64(1000+i))
		s.Require().NoError(err)
		s.False(seen[account.GameID], "game id %s repeated", account.GameID)
		seen[account.GameID] = true
	}
	for i := int64(1); i <= n; i++ {
		s.True(seen[model.FormatGameID(i)], "game id %s missing", model.FormatGameID(i))
	}
}

func (s *StorageSuite) TestGetAccountNotFound() {
	_, err := s.storage.GetAccount(s.ctx, 999)
	s.ErrorIs(err, model.ErrAccountNotFound)
}

func (s *StorageSuite) TestStartingLedgerValues() {
	account, ledger := s.newAccount(101, "Hero")
	s.Require().NoError(s.storage.CreateAccount(s.ctx, account, ledger))

	stored, err := s.storage.GetLedger(s.ctx, account.ID)
	s.Require().NoError(err)
	s.Equal(20, stored.Stones)
	s.Equal(50, stored.Coins)
	s.Equal(20, stored.Wood)
	s.Equal(1, stored.Diamonds)
}

func (s *StorageSuite) TestSetSessionStateRefreshesLastActive() {
	account, ledger := s.newAccount(101, "Hero")
	s.Require().NoError(s.storage.CreateAccount(s.ctx, account, ledger))

	later := s.now.Add(2 * time.Hour)
	s.Require().NoError(s.storage.SetSessionState(s.ctx, 101, model.StateInGame, later))

	stored, err := s.storage.GetAccount(s.ctx, 101)
	s.Require().NoError(err)
	s.Equal(model.StateInGame, stored.State)
	s.Equal(later, stored.LastActiveAt)
}

func (s *StorageSuite) TestSetSessionStateSignalsMissingAccount() {
	err := s.storage.SetSessionState(s.ctx, 999, model.StateInGame, s.now)
	s.ErrorIs(err, model.ErrAccountNotFound)
}

func (s *StorageSuite) TestMarkCastleBuilt() {
	account, ledger := s.newAccount(101, "Hero")
	s.Require().NoError(s.storage.CreateAccount(s.ctx, account, ledger))

	s.Require().NoError(s.storage.MarkCastleBuilt(s.ctx, 101))

	stored, err := s.storage.GetAccount(s.ctx, 101)
	s.Require().NoError(err)
	s.True(stored.CastleBuilt)
}

// Stats tests

func (s *StorageSuite) TestCounts() {
	for i := int64(1); i <= 3; i++ {
		account, ledger := s.newAccount(100+i, "Hero")
		s.Require().NoError(s.storage.CreateAccount(s.ctx, account, ledger))
	}
	// Only one account active after the cutoff
	s.Require().NoError(s.storage.SetSessionState(s.ctx, 101, model.StateInGame, s.now.Add(time.Hour)))

	total, err := s.storage.CountAccounts(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, total)

	active, err := s.storage.CountActiveSince(s.ctx, s.now)
	s.Require().NoError(err)
	s.Equal(1, active)
}

func (s *StorageSuite) TestCountActiveSinceIsStrictlyAfter() {
	account, ledger := s.newAccount(101, "Hero")
	s.Require().NoError(s.storage.CreateAccount(s.ctx, account, ledger))

	active, err := s.storage.CountActiveSince(s.ctx, s.now)
	s.Require().NoError(err)
	s.Equal(0, active)
}

// Grid tests

func (s *StorageSuite) TestAppendAndLatestGrid() {
	account, ledger := s.newAccount(101, "Hero")
	s.Require().NoError(s.storage.CreateAccount(s.ctx, account, ledger))

	first := &model.TerrainGrid{AccountID: account.ID, StartedAt: s.now}
	first.Cells[0][0] = model.TerrainForest
	s.Require().NoError(s.storage.AppendGrid(s.ctx, first))

	second := &model.TerrainGrid{AccountID: account.ID, StartedAt: s.now.Add(time.Minute)}
	second.Cells[0][0] = model.TerrainVolcano
	s.Require().NoError(s.storage.AppendGrid(s.ctx, second))

	latest, err := s.storage.LatestGrid(s.ctx, account.ID)
	s.Require().NoError(err)
	s.Equal(second.ID, latest.ID)
	s.Equal(model.TerrainVolcano, latest.Cells[0][0])
}

func (s *StorageSuite) TestLatestGridNotFound() {
	_, err := s.storage.LatestGrid(s.ctx, 1)
	s.ErrorIs(err, model.ErrGridNotFound)
}

func (s *StorageSuite) TestUpdateGridPersistsWin() {
	account, ledger := s.newAccount(101, "Hero")
	s.Require().NoError(s.storage.CreateAccount(s.ctx, account, ledger))

	grid := &model.TerrainGrid{AccountID: account.ID, StartedAt: s.now}
	grid.Cells[2][3] = model.TerrainForest
	s.Require().NoError(s.storage.AppendGrid(s.ctx, grid))

	grid.Cells[2][3] = model.TerrainCastle
	grid.Won = true
	grid.Visit(model.Cell{Row: 2, Col: 3})
	ended := s.now.Add(time.Minute)
	grid.EndedAt = &ended
	s.Require().NoError(s.storage.UpdateGrid(s.ctx, grid))

	latest, err := s.storage.LatestGrid(s.ctx, account.ID)
	s.Require().NoError(err)
	s.Equal(model.TerrainCastle, latest.Cells[2][3])
	s.True(latest.Won)
	s.Equal([]model.Cell{{Row: 2, Col: 3}}, latest.Visited)
	s.NotNil(latest.EndedAt)
}

func (s *StorageSuite) TestLatestGridReturnsACopy() {
	account, ledger := s.newAccount(101, "Hero")
	s.Require().NoError(s.storage.CreateAccount(s.ctx, account, ledger))

	grid := &model.TerrainGrid{AccountID: account.ID, StartedAt: s.now}
	s.Require().NoError(s.storage.AppendGrid(s.ctx, grid))

	first, err := s.storage.LatestGrid(s.ctx, account.ID)
	s.Require().NoError(err)
	first.Cells[0][0] = model.TerrainCastle

	second, err := s.storage.LatestGrid(s.ctx, account.ID)
	s.Require().NoError(err)
	s.NotEqual(model.TerrainCastle, second.Cells[0][0])
}

// Export tests

func (s *StorageSuite) TestSnapshotAll() {
	for i := int64(1); i <= 2; i++ {
		account, ledger := s.newAccount(100+i, "Hero")
		s.Require().NoError(s.storage.CreateAccount(s.ctx, account, ledger))
		grid := &model.TerrainGrid{AccountID: account.ID, StartedAt: s.now}
		s.Require().NoError(s.storage.AppendGrid(s.ctx, grid))
	}

	snapshot, err := s.storage.SnapshotAll(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, snapshot.Counts.Accounts)
	s.Equal(2, snapshot.Counts.Ledgers)
	s.Equal(2, snapshot.Counts.Grids)
	s.Len(snapshot.Accounts, 2)
	s.Equal(model.FormatGameID(1), snapshot.Accounts[0].GameID)
	s.Equal(model.FormatGameID(2), snapshot.Accounts[1].GameID)
}
