package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionTokenRoundTrip(t *testing.T) {
	actions := []Action{
		{Kind: ActionSubscriptionConfirm},
		{Kind: ActionContinue},
		{Kind: ActionAdminMenu},
		{Kind: ActionDownloadDB},
		{Kind: ActionAdminUsers},
		{Kind: ActionBack},
		CellAction(0, 0),
		CellAction(9, 9),
		CellAction(3, 7),
	}

	for _, a := range actions {
		parsed, err := ParseAction(a.Token())
		require.NoError(t, err, "token %q", a.Token())
		assert.Equal(t, a, parsed)
	}
}

func TestParseActionRejectsMalformedTokens(t *testing.T) {
	tokens := []string{
		"",
		"unknown",
		"cell",
		"cell_",
		"cell_1",
		"cell_1_2_3",
		"cell_x_y",
		"cell_1_y",
		"cell_10_0",
		"cell_0_10",
		"cell_-1_0",
	}

	for _, token := range tokens {
		_, err := ParseAction(token)
		assert.ErrorIs(t, err, ErrMalformedAction, "token %q", token)
	}
}

func TestFormatGameID(t *testing.T) {
	assert.Equal(t, GameID("#00001"), FormatGameID(1))
	assert.Equal(t, GameID("#00042"), FormatGameID(42))
	assert.Equal(t, GameID("#12345"), FormatGameID(12345))
}

func TestGridVisitIsIdempotent(t *testing.T) {
	g := &TerrainGrid{}
	g.Visit(Cell{Row: 1, Col: 2})
	g.Visit(Cell{Row: 1, Col: 2})
	g.Visit(Cell{Row: 3, Col: 4})

	assert.Equal(t, []Cell{{Row: 1, Col: 2}, {Row: 3, Col: 4}}, g.Visited)
}
