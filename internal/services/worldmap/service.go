package worldmap

import (
	"log/slog"
	"time"

	"github.com/yegorian/legendary-empire/internal/dependencies/random"
	"github.com/yegorian/legendary-empire/internal/model"
)

// Service generates terrain grids and resolves cell clicks
type Service struct {
	random random.Random
	logger *slog.Logger
}

// New creates a new worldmap service
func New(random random.Random, logger *slog.Logger) *Service {
	return &Service{
		random: random,
		logger: logger,
	}
}

// Generate produces a fresh 10x10 terrain grid for an account.
//
// Placement is rejection-free: the hundred coordinates are shuffled, the
// first six positions receive one of each terrain kind (guaranteeing
// every kind appears at least once), and the remainder are filled with
// independent uniform draws. Beyond the minimum-one floor the
// distribution is unconstrained.
func (s *Service) Generate(accountID int64, now time.Time) *model.TerrainGrid {
	grid := &model.TerrainGrid{
		AccountID: accountID,
		StartedAt: now,
	}

	perm := s.random.Perm(model.GridSize * model.GridSize)
	for i, terrain := range model.Terrains {
		pos := perm[i]
		grid.Cells[pos/model.GridSize][pos%model.GridSize] = terrain
	}
	for _, pos := range perm[len(model.Terrains):] {
		terrain := model.Terrains[s.random.Intn(len(model.Terrains))]
		grid.Cells[pos/model.GridSize][pos%model.GridSize] = terrain
	}

	return grid
}
