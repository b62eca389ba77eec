package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/yegorian/legendary-empire/internal/model"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
	now     time.Time
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	s.storage = NewWithClient(client, DefaultConfig())
	s.ctx = context.Background()
	s.now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
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
		s.Equal(i, account.ID)
	}
}

func (s *StorageSuite) TestCreateAccountRejectsDuplicate() {
	account, ledger := s.newAccount(101, "Hero")
	s.Require().NoError(s.storage.CreateAccount(s.ctx, account, ledger))

	dup, dupLedger := s.newAccount(101, "Hero2")
	s.ErrorIs(s.storage.CreateAccount(s.ctx, dup, dupLedger), model.ErrDuplicateAccount)

	total, err := s.storage.CountAccounts(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, total)
}

func (s *StorageSuite) TestGetAccountRoundTrip() {
	account, ledger := s.newAccount(101, "Hero")
	s.Require().NoError(s.storage.CreateAccount(s.ctx, account, ledger))

	stored, err := s.storage.GetAccount(s.ctx, 101)
	s.Require().NoError(err)
	s.Equal(account.GameID, stored.GameID)
	s.Equal("Hero", stored.Nickname)
	s.Equal(model.StateRegistered, stored.State)

	_, err = s.storage.GetAccount(s.ctx, 999)
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
	s.Require().NoError(s.storage.SetSessionState(s.ctx, 101, model.StateWon, later))

	stored, err := s.storage.GetAccount(s.ctx, 101)
	s.Require().NoError(err)
	s.Equal(model.StateWon, stored.State)
	s.True(stored.LastActiveAt.Equal(later))

	s.ErrorIs(s.storage.SetSessionState(s.ctx, 999, model.StateWon, later), model.ErrAccountNotFound)
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

func (s *StorageSuite) TestCountActiveSinceIsStrictlyAfter() {
	for i := int64(1); i <= 3; i++ {
		account, ledger := s.newAccount(100+i, "Hero")
		s.Require().NoError(s.storage.CreateAccount(s.ctx, account, ledger))
	}
	s.Require().NoError(s.storage.SetSessionState(s.ctx, 101, model.StateInGame, s.now.Add(time.Hour)))

	active, err := s.storage.CountActiveSince(s.ctx, s.now)
	s.Require().NoError(err)
	s.Equal(1, active)

	// Equal-to-cutoff accounts do not count
	active, err = s.storage.CountActiveSince(s.ctx, s.now.Add(-time.Second))
	s.Require().NoError(err)
	s.Equal(3, active)
}

// Grid tests

func (s *StorageSuite) TestGridLifecycle() {
	account, ledger := s.newAccount(101, "Hero")
	s.Require().NoError(s.storage.CreateAccount(s.ctx, account, ledger))

	_, err := s.storage.LatestGrid(s.ctx, account.ID)
	s.ErrorIs(err, model.ErrGridNotFound)

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

	latest.Cells[0][0] = model.TerrainCastle
	latest.Won = true
	latest.Visit(model.Cell{Row: 0, Col: 0})
	s.Require().NoError(s.storage.UpdateGrid(s.ctx, latest))

	updated, err := s.storage.LatestGrid(s.ctx, account.ID)
	s.Require().NoError(err)
	s.Equal(model.TerrainCastle, updated.Cells[0][0])
	s.True(updated.Won)
	s.Equal([]model.Cell{{Row: 0, Col: 0}}, updated.Visited)
}

func (s *StorageSuite) TestUpdateGridUnknownID() {
	grid := &model.TerrainGrid{ID: 42, AccountID: 1}
	s.ErrorIs(s.storage.UpdateGrid(s.ctx, grid), model.ErrGridNotFound)
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
	s.Equal(model.SnapshotCounts{Accounts: 2, Ledgers: 2, Grids: 2}, snapshot.Counts)
	s.Equal(model.FormatGameID(1), snapshot.Accounts[0].GameID)
	s.Equal(model.FormatGameID(2), snapshot.Accounts[1].GameID)
}
