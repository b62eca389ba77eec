package session

import (
	"github.com/yegorian/legendary-empire/internal/model"
)

// Identity is the caller of an incoming action, as reported by the
// platform transport
type Identity struct {
	TelegramID int64
	Username   string
}

// Button is one labeled affordance the user may invoke next
type Button struct {
	Label  string
	Action model.Action
}

// Reply is the state machine's response to one input: a text payload,
// an optional button grid, and an optional document to transmit.
// The zero Reply means "swallow the input, no response".
type Reply struct {
	Text     string
	Buttons  [][]Button
	Document *Document
}

// Document is a file attachment carried by a reply
type Document struct {
	Filename string
	Data     []byte
}

// IsZero reports whether the reply carries nothing to send
func (r Reply) IsZero() bool {
	return r.Text == "" && r.Document == nil
}

func row(buttons ...Button) []Button {
	return buttons
}

// step is the in-memory position of a conversation, distinct from the
// persisted model.SessionState
type step int

const (
	stepAwaitingSubscription step = iota
	stepAwaitingNickname
	stepInGame
	stepAdminMenu
	stepAdminUsers
)

// session is the per-identity conversation scratch. The working grid is
// a cache; when absent it is reconstructed from the store's latest grid.
type session struct {
	step step
	grid *model.TerrainGrid
}
