package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ActionKind identifies one of the button affordances a reply can carry
type ActionKind string

const (
	ActionSubscriptionConfirm ActionKind = "check_subscription"
	ActionContinue            ActionKind = "continue_game"
	ActionCellClick           ActionKind = "cell"
	ActionAdminMenu           ActionKind = "admin_menu"
	ActionDownloadDB          ActionKind = "download_db"
	ActionAdminUsers          ActionKind = "admin_users"
	ActionBack                ActionKind = "back_to_game"
)

// Action is a parsed callback token. Row/Col are meaningful only for
// ActionCellClick.
type Action struct {
	Kind ActionKind
	Row  int
	Col  int
}

// CellAction builds a cell-click action for the given coordinate
func CellAction(row, col int) Action {
	return Action{Kind: ActionCellClick, Row: row, Col: col}
}

// Token renders the action as opaque callback data, e.g. "cell_3_7"
func (a Action) Token() string {
	if a.Kind == ActionCellClick {
		return fmt.Sprintf("%s_%d_%d", ActionCellClick, a.Row, a.Col)
	}
	return string(a.Kind)
}

// ParseAction decodes callback data back into an Action. Unknown or
// malformed tokens return ErrMalformedAction; the caller decides whether
// to swallow or report it.
func ParseAction(token string) (Action, error) {
	switch ActionKind(token) {
	case ActionSubscriptionConfirm, ActionContinue, ActionAdminMenu,
		ActionDownloadDB, ActionAdminUsers, ActionBack:
		return Action{Kind: ActionKind(token)}, nil
	}

	if rest, ok := strings.CutPrefix(token, string(ActionCellClick)+"_"); ok {
		parts := strings.Split(rest, "_")
		if len(parts) != 2 {
			return Action{}, ErrMalformedAction
		}
		row, err := strconv.Atoi(parts[0])
		if err != nil {
			return Action{}, ErrMalformedAction
		}
		col, err := strconv.Atoi(parts[1])
		if err != nil {
			return Action{}, ErrMalformedAction
		}
		a := CellAction(row, col)
		if !(Cell{Row: row, Col: col}).InBounds() {
			return Action{}, ErrMalformedAction
		}
		return a, nil
	}

	return Action{}, ErrMalformedAction
}
