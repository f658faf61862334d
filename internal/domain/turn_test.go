package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTurn_SettlesOnce(t *testing.T) {
	turn := NewTurn("t-1", "tell me about Riyadh")
	require.True(t, turn.Pending())

	require.NoError(t, turn.Resolve("Riyadh is great"))
	require.Equal(t, StateResolved, turn.State)
	require.Equal(t, "Riyadh is great", turn.Response)

	require.ErrorIs(t, turn.Fail("boom"), ErrTurnSettled)
	require.ErrorIs(t, turn.Refuse("no"), ErrTurnSettled)
	require.Equal(t, StateResolved, turn.State)
	require.Equal(t, "Riyadh is great", turn.Response)
}

func TestTurn_TerminalStates(t *testing.T) {
	refused := NewTurn("t-1", "weather in Paris")
	require.NoError(t, refused.Refuse("refusal"))
	require.Equal(t, StateRefused, refused.State)

	failed := NewTurn("t-2", "riyadh")
	require.NoError(t, failed.Fail("Request failed"))
	require.Equal(t, StateFailed, failed.State)
	require.False(t, failed.Pending())
}

func TestBubble_Settle(t *testing.T) {
	pending := Bubble{ID: "t-1-bot", Author: AuthorBot, Thinking: true}
	turn := NewTurn("t-1", "riyadh")
	require.NoError(t, turn.Fail("network down"))

	b := pending.Settled(turn)
	require.Equal(t, "t-1-bot", b.ID)
	require.False(t, b.Thinking)
	require.True(t, b.Failed)
	require.Equal(t, "network down", b.Text)
	require.True(t, pending.Thinking, "the pending bubble is left untouched")
}
