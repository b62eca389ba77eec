package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/yegorian/legendary-empire/internal/dependencies/clock"
	"github.com/yegorian/legendary-empire/internal/storage"
)

// activeWindow is the lookback used for the "active today" stat
const activeWindow = 24 * time.Hour

// Service provides the admin panel's aggregate stats and state export
type Service struct {
	storage   storage.Storage
	clock     clock.Clock
	exportDir string
	logger    *slog.Logger
}

// New creates a new admin service. exportDir is the transient directory
// for export artifacts; empty means the system temp dir.
func New(storage storage.Storage, clock clock.Clock, exportDir string, logger *slog.Logger) *Service {
	if exportDir == "" {
		exportDir = os.TempDir()
	}
	return &Service{
		storage:   storage,
		clock:     clock,
		exportDir: exportDir,
		logger:    logger,
	}
}

// Stats holds the aggregate usage numbers shown in the admin panel
type Stats struct {
	TotalPlayers int `json:"total_players"`
	ActiveToday  int `json:"active_today"`
}

// Stats reports the total player count and players active in the last 24h
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	total, err := s.storage.CountAccounts(ctx)
	if err != nil {
		return Stats{}, err
	}
	active, err := s.storage.CountActiveSince(ctx, s.clock.Now().Add(-activeWindow))
	if err != nil {
		return Stats{}, err
	}
	return Stats{TotalPlayers: total, ActiveToday: active}, nil
}

// Export is a ready-to-transmit database export
type Export struct {
	Filename string
	Data     []byte
}

// Export dumps all persisted collections into a timestamped JSON document.
//
// The document is staged as a transient file in the export directory and
// always removed before returning, so a failed or interrupted transmission
// never leaves an artifact behind. The caller transmits the returned bytes.
func (s *Service) Export(ctx context.Context) (*Export, error) {
	snapshot, err := s.storage.SnapshotAll(ctx)
	if err != nil {
		return nil, err
	}
	snapshot.ExportedAt = s.clock.Now()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("legendary_empire_db_%s.json", snapshot.ExportedAt.Format("20060102_150405"))
	path := filepath.Join(s.exportDir, filename)

	if err := os.WriteFile(path, data, 0o600); err != nil {
		// A partial write still needs cleaning up
		_ = os.Remove(path)
		return nil, err
	}
	if err := os.Remove(path); err != nil {
		s.logger.Warn("failed to remove export artifact",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("database exported",
		slog.String("filename", filename),
		slog.Int("accounts", snapshot.Counts.Accounts),
		slog.Int("ledgers", snapshot.Counts.Ledgers),
		slog.Int("grids", snapshot.Counts.Grids),
	)

	return &Export{Filename: filename, Data: data}, nil
}
