package model

import "time"

// SnapshotCounts holds per-collection row counts for the export header
type SnapshotCounts struct {
	Accounts int `json:"accounts"`
	Ledgers  int `json:"ledgers"`
	Grids    int `json:"grids"`
}

// Snapshot is the administrative export bundle: a full, unredacted dump of
// all three persisted collections, suitable for offline inspection.
type Snapshot struct {
	ExportedAt time.Time         `json:"exported_at"`
	Counts     SnapshotCounts    `json:"counts"`
	Accounts   []*Account        `json:"accounts"`
	Ledgers    []*ResourceLedger `json:"ledgers"`
	Grids      []*TerrainGrid    `json:"grids"`
}
