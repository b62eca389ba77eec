package worldmap

import "github.com/yegorian/legendary-empire/internal/model"

// Outcome is the result of clicking a single cell
type Outcome struct {
	Terrain model.Terrain
	Won     bool
	Message string
}

// VictoryMessage is shown when the winning cell is found
const VictoryMessage = "🏰 Congratulations 🥳!\n" +
	"You built your castle 🏰 without bathing in lava 🌋, " +
	"dying to a cactus 🌵, falling off a mountain 🏔️, " +
	"drowning in a puddle 🌊 or being eaten by a 1 mm sprout 🌱!"

// deathMessages maps each fatal terrain kind to its fixed narrative
var deathMessages = map[model.Terrain]string{
	model.TerrainVolcano: "☠️ You went for a swim in lava 🌋",
	model.TerrainDesert: "💀 You died of a terrible wound that can only be seen " +
		"through a super-microscope. A cactus 🌵 did this to you",
	model.TerrainMountain: "🪨 Looks like you took a flight off the summit...",
	model.TerrainSprout:   "🌱 You were eaten by a sprout 1 mm tall",
	model.TerrainWater:    "🌊 You drowned in a puddle",
}

// Resolve maps a clicked coordinate to an outcome.
//
// The winning cell is rewritten to the castle marker in place; a fatal
// cell leaves the grid untouched, so the player can retry anywhere on the
// same grid (including the identical cell, for the identical message).
// Coordinates are assumed validated by the caller.
func (s *Service) Resolve(grid *model.TerrainGrid, cell model.Cell) Outcome {
	terrain := grid.At(cell)

	if terrain == model.TerrainForest {
		grid.Cells[cell.Row][cell.Col] = model.TerrainCastle
		grid.Won = true
		return Outcome{
			Terrain: terrain,
			Won:     true,
			Message: VictoryMessage,
		}
	}

	return Outcome{
		Terrain: terrain,
		Message: deathMessages[terrain],
	}
}
