package model

import "time"

// GridSize is the fixed side length of every terrain grid
const GridSize = 10

// Terrain is one of the symbolic grid-cell categories. The symbol doubles
// as the inline keyboard label, so the values are the rendered emoji.
type Terrain string

const (
	TerrainForest   Terrain = "🌳" // The single winning kind
	TerrainDesert   Terrain = "🏜️"
	TerrainMountain Terrain = "🏔️"
	TerrainVolcano  Terrain = "🌋"
	TerrainWater    Terrain = "🌊"
	TerrainSprout   Terrain = "🌱"

	// TerrainCastle marks the winning cell after a victory; it is never
	// produced by generation.
	TerrainCastle Terrain = "🏰"
)

// Terrains lists the six generatable kinds
var Terrains = []Terrain{
	TerrainForest,
	TerrainDesert,
	TerrainMountain,
	TerrainVolcano,
	TerrainWater,
	TerrainSprout,
}

// Cell is a 0-indexed grid coordinate
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// InBounds reports whether the cell lies within the fixed grid
func (c Cell) InBounds() bool {
	return c.Row >= 0 && c.Row < GridSize && c.Col >= 0 && c.Col < GridSize
}

// TerrainGrid is one play session's 10x10 map. An account accumulates a
// history of grids; the most recently started one drives current play.
type TerrainGrid struct {
	ID        int64
	AccountID int64
	Cells     [GridSize][GridSize]Terrain
	Visited   []Cell // Clicked coordinates, kept for resuming
	StartedAt time.Time
	EndedAt   *time.Time
	Won       bool
}

// At returns the terrain at the given cell. The caller validates bounds.
func (g *TerrainGrid) At(c Cell) Terrain {
	return g.Cells[c.Row][c.Col]
}

// Visit records a clicked cell once
func (g *TerrainGrid) Visit(c Cell) {
	for _, v := range g.Visited {
		if v == c {
			return
		}
	}
	g.Visited = append(g.Visited, c)
}
