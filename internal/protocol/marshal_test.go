package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anarjbu15-star/poker-site/internal/game"
	"github.com/anarjbu15-star/poker-site/internal/randutil"
)

func TestParseInboundJoin(t *testing.T) {
	t.Parallel()

	msg, err := ParseInbound([]byte(`{"kind":"join","name":"alice"}`))
	require.NoError(t, err)
	join, ok := msg.(Join)
	require.True(t, ok)
	assert.Equal(t, "alice", join.Name)
}

func TestParseInboundAction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		data   string
		action string
		amount int
	}{
		{"fold", `{"kind":"action","action":"fold"}`, "fold", 0},
		{"check", `{"kind":"action","action":"check"}`, "check", 0},
		{"call", `{"kind":"action","action":"call"}`, "call", 0},
		{"allin", `{"kind":"action","action":"allin"}`, "allin", 0},
		{"raise", `{"kind":"action","action":"raise","amount":60}`, "raise", 60},
		{"bet", `{"kind":"action","action":"bet","amount":20}`, "bet", 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			msg, err := ParseInbound([]byte(tt.data))
			require.NoError(t, err)
			action, ok := msg.(Action)
			require.True(t, ok)
			assert.Equal(t, tt.action, action.Action)
			assert.Equal(t, tt.amount, action.Amount)
		})
	}
}

func TestParseInboundRejectsMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
	}{
		{"not json", `nonsense`},
		{"unknown kind", `{"kind":"dance"}`},
		{"server kind", `{"kind":"table"}`},
		{"join without name", `{"kind":"join"}`},
		{"unknown action", `{"kind":"action","action":"shove"}`},
		{"raise without amount", `{"kind":"action","action":"raise"}`},
		{"bet with negative amount", `{"kind":"action","action":"bet","amount":-5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseInbound([]byte(tt.data))
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestTableSnapshotHidesHoleCards(t *testing.T) {
	t.Parallel()

	table := game.NewTable(6, 20, randutil.New(1))
	_, err := table.Join("alice", 1000)
	require.NoError(t, err)
	_, err = table.Join("bob", 1000)
	require.NoError(t, err)
	err = table.StartHand()
	require.NoError(t, err)

	snap := NewTable(table)
	assert.Equal(t, KindTable, snap.Kind)
	assert.Equal(t, "preflop", snap.Stage)
	assert.Len(t, snap.Seats, 6)
	assert.Equal(t, "alice", snap.Seats[0].Name)
	assert.True(t, snap.Seats[0].InHand)
	assert.Equal(t, table.HighBet, snap.ToCall)

	data, err := Marshal(snap)
	require.NoError(t, err)
	for _, s := range table.Seats {
		for _, c := range s.HoleCards {
			assert.NotContains(t, string(data), c.Code())
		}
	}
}

func TestResultFrame(t *testing.T) {
	t.Parallel()

	res := NewResult(&game.Result{
		Pots: []game.PotResult{{
			Amount: 120,
			Winners: []game.Winner{
				{Seat: 2, Name: "carol", Share: 60, Hand: "Flush"},
				{Seat: 4, Name: "dave", Share: 60, Hand: "Flush"},
			},
		}},
	})

	assert.Equal(t, KindResult, res.Kind)
	assert.False(t, res.Uncontested)
	require.Len(t, res.Pots, 1)
	require.Len(t, res.Pots[0].Winners, 2)
	assert.Equal(t, "carol", res.Pots[0].Winners[0].Name)
	assert.Equal(t, 60, res.Pots[0].Winners[1].Share)
}

func TestHoleFrameUsesCardCodes(t *testing.T) {
	t.Parallel()

	table := game.NewTable(6, 20, randutil.New(3))
	_, err := table.Join("alice", 1000)
	require.NoError(t, err)
	_, err = table.Join("bob", 1000)
	require.NoError(t, err)
	err = table.StartHand()
	require.NoError(t, err)

	frame := NewHole(table.Seats[0].HoleCards)
	assert.Equal(t, KindHole, frame.Kind)
	require.Len(t, frame.Cards, 2)
	for _, code := range frame.Cards {
		assert.Len(t, code, 2)
	}
}
