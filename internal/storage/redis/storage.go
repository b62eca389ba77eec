package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yegorian/legendary-empire/internal/model"
	"github.com/yegorian/legendary-empire/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{client: client, cfg: cfg}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{client: client, cfg: cfg}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Account operations

func (s *Storage) CreateAccount(ctx context.Context, account *model.Account, ledger *model.ResourceLedger) error {
	exists, err := s.client.Exists(ctx, accountKey(account.TelegramID)).Result()
	if err != nil {
		return err
	}
	if exists > 0 {
		return model.ErrDuplicateAccount
	}

	// INCR is atomic, so concurrent registrations of different identities
	// never gap or repeat. Same-identity replays are serialized by the
	// transport before they reach storage.
	seq, err := s.client.Incr(ctx, accountSeqKey()).Result()
	if err != nil {
		return err
	}
	account.ID = seq
	account.GameID = model.FormatGameID(seq)
	ledger.AccountID = seq

	accountData, err := json.Marshal(account)
	if err != nil {
		return err
	}
	ledgerData, err := json.Marshal(ledger)
	if err != nil {
		return err
	}

	// Use pipeline for the paired account + ledger write and index updates
	pipe := s.client.Pipeline()
	pipe.Set(ctx, accountKey(account.TelegramID), accountData, 0)
	pipe.Set(ctx, ledgerKey(seq), ledgerData, 0)
	pipe.ZAdd(ctx, accountsIndexKey(), redis.Z{
		Score:  float64(seq),
		Member: strconv.FormatInt(account.TelegramID, 10),
	})
	pipe.ZAdd(ctx, activeIndexKey(), redis.Z{
		Score:  float64(account.LastActiveAt.UnixMilli()),
		Member: strconv.FormatInt(account.TelegramID, 10),
	})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetAccount(ctx context.Context, telegramID int64) (*model.Account, error) {
	data, err := s.client.Get(ctx, accountKey(telegramID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrAccountNotFound
		}
		return nil, err
	}

	var account model.Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *Storage) SetSessionState(ctx context.Context, telegramID int64, state model.SessionState, now time.Time) error {
	account, err := s.GetAccount(ctx, telegramID)
	if err != nil {
		return err
	}

	account.State = state
	account.LastActiveAt = now
	return s.saveAccount(ctx, account)
}

func (s *Storage) MarkCastleBuilt(ctx context.Context, telegramID int64) error {
	account, err := s.GetAccount(ctx, telegramID)
	if err != nil {
		return err
	}

	account.CastleBuilt = true
	return s.saveAccount(ctx, account)
}

func (s *Storage) saveAccount(ctx context.Context, account *model.Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, accountKey(account.TelegramID), data, 0)
	pipe.ZAdd(ctx, activeIndexKey(), redis.Z{
		Score:  float64(account.LastActiveAt.UnixMilli()),
		Member: strconv.FormatInt(account.TelegramID, 10),
	})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetLedger(ctx context.Context, accountID int64) (*model.ResourceLedger, error) {
	data, err := s.client.Get(ctx, ledgerKey(accountID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrLedgerNotFound
		}
		return nil, err
	}

	var ledger model.ResourceLedger
	if err := json.Unmarshal(data, &ledger); err != nil {
		return nil, err
	}
	return &ledger, nil
}

// Stats operations

func (s *Storage) CountAccounts(ctx context.Context) (int, error) {
	count, err := s.client.ZCard(ctx, accountsIndexKey()).Result()
	return int(count), err
}

func (s *Storage) CountActiveSince(ctx context.Context, cutoff time.Time) (int, error) {
	min := fmt.Sprintf("(%d", cutoff.UnixMilli())
	count, err := s.client.ZCount(ctx, activeIndexKey(), min, "+inf").Result()
	return int(count), err
}

// Grid operations

func (s *Storage) AppendGrid(ctx context.Context, grid *model.TerrainGrid) error {
	seq, err := s.client.Incr(ctx, gridSeqKey()).Result()
	if err != nil {
		return err
	}
	grid.ID = seq

	data, err := json.Marshal(grid)
	if err != nil {
		return err
	}
	return s.client.RPush(ctx, gridsKey(grid.AccountID), data).Err()
}

func (s *Storage) LatestGrid(ctx context.Context, accountID int64) (*model.TerrainGrid, error) {
	data, err := s.client.LIndex(ctx, gridsKey(accountID), -1).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrGridNotFound
		}
		return nil, err
	}

	var grid model.TerrainGrid
	if err := json.Unmarshal(data, &grid); err != nil {
		return nil, err
	}
	return &grid, nil
}

func (s *Storage) UpdateGrid(ctx context.Context, grid *model.TerrainGrid) error {
	key := gridsKey(grid.AccountID)

	entries, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return err
	}

	for i, entry := range entries {
		var stored model.TerrainGrid
		if err := json.Unmarshal([]byte(entry), &stored); err != nil {
			return err
		}
		if stored.ID != grid.ID {
			continue
		}
		data, err := json.Marshal(grid)
		if err != nil {
			return err
		}
		return s.client.LSet(ctx, key, int64(i), data).Err()
	}
	return model.ErrGridNotFound
}

// Export operations

func (s *Storage) SnapshotAll(ctx context.Context) (*model.Snapshot, error) {
	snapshot := &model.Snapshot{
		Accounts: []*model.Account{},
		Ledgers:  []*model.ResourceLedger{},
		Grids:    []*model.TerrainGrid{},
	}

	// Ordered by internal account id via the index scores
	members, err := s.client.ZRange(ctx, accountsIndexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	for _, member := range members {
		telegramID, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			return nil, err
		}

		account, err := s.GetAccount(ctx, telegramID)
		if err != nil {
			return nil, err
		}
		snapshot.Accounts = append(snapshot.Accounts, account)

		ledger, err := s.GetLedger(ctx, account.ID)
		if err != nil && !errors.Is(err, model.ErrLedgerNotFound) {
			return nil, err
		}
		if ledger != nil {
			snapshot.Ledgers = append(snapshot.Ledgers, ledger)
		}

		entries, err := s.client.LRange(ctx, gridsKey(account.ID), 0, -1).Result()
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			var grid model.TerrainGrid
			if err := json.Unmarshal([]byte(entry), &grid); err != nil {
				return nil, err
			}
			snapshot.Grids = append(snapshot.Grids, &grid)
		}
	}

	snapshot.Counts = model.SnapshotCounts{
		Accounts: len(snapshot.Accounts),
		Ledgers:  len(snapshot.Ledgers),
		Grids:    len(snapshot.Grids),
	}
	return snapshot, nil
}
