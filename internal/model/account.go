package model

import (
	"fmt"
	"time"
)

// GameID is the human-facing sequential player number, e.g. "#00042"
type GameID string

// FormatGameID renders a 1-based sequence number as a zero-padded GameID
func FormatGameID(seq int64) GameID {
	return GameID(fmt.Sprintf("#%05d", seq))
}

// SessionState represents the persisted stage of a player's lifecycle
type SessionState string

const (
	StateIdle       SessionState = "idle"       // Account default before registration completes
	StateRegistered SessionState = "registered" // Nickname accepted, starting kit granted
	StateInGame     SessionState = "in_game"    // Playing on an active grid
	StateWon        SessionState = "won"        // Castle built
)

// Account is the identity and progress record for one Telegram user
type Account struct {
	ID           int64 // Internal row identifier, assigned by storage
	TelegramID   int64 // Platform user id, unique, stable across sessions
	Username     string
	GameID       GameID // Assigned exactly once at registration, never reused
	Nickname     string
	RegisteredAt time.Time
	LastActiveAt time.Time
	Subscribed   bool
	State        SessionState
	CastleBuilt  bool
}

// ResourceLedger is the starting inventory, one-to-one with Account.
// Counters are initialized with the fixed starting kit and are not spent
// anywhere in the current game flow.
type ResourceLedger struct {
	AccountID int64
	Stones    int
	Coins     int
	Wood      int
	Diamonds  int
	UpdatedAt time.Time
}

// Starting kit magnitudes granted at registration
const (
	StartingStones   = 20
	StartingCoins    = 50
	StartingWood     = 20
	StartingDiamonds = 1
)

// NewStartingLedger returns the fixed starting kit for a fresh account
func NewStartingLedger(accountID int64, now time.Time) *ResourceLedger {
	return &ResourceLedger{
		AccountID: accountID,
		Stones:    StartingStones,
		Coins:     StartingCoins,
		Wood:      StartingWood,
		Diamonds:  StartingDiamonds,
		UpdatedAt: now,
	}
}
