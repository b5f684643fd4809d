package deck

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCards(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Card
		wantErr  bool
	}{
		{
			name:  "royal flush",
			input: "AsKsQsJsTs",
			expected: []Card{
				{Suit: Spades, Rank: Ace},
				{Suit: Spades, Rank: King},
				{Suit: Spades, Rank: Queen},
				{Suit: Spades, Rank: Jack},
				{Suit: Spades, Rank: Ten},
			},
		},
		{
			name:  "mixed suits with spaces",
			input: "Ah Kd Qc",
			expected: []Card{
				{Suit: Hearts, Rank: Ace},
				{Suit: Diamonds, Rank: King},
				{Suit: Clubs, Rank: Queen},
			},
		},
		{
			name:  "case insensitive",
			input: "asKH",
			expected: []Card{
				{Suit: Spades, Rank: Ace},
				{Suit: Hearts, Rank: King},
			},
		},
		{name: "invalid rank", input: "XsKs", wantErr: true},
		{name: "invalid suit", input: "AsKx", wantErr: true},
		{name: "odd length", input: "AsK", wantErr: true},
		{name: "empty string", input: "", expected: []Card{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCards(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCardText(t *testing.T) {
	c := NewCard(Hearts, Ten)
	assert.Equal(t, "Th", c.Text())
	assert.Equal(t, "T♥", c.String())
	assert.True(t, c.Valid())
	assert.False(t, Card{Suit: Spades, Rank: 1}.Valid())
	assert.Equal(t, "Queen", Queen.Name())
	assert.Equal(t, "Two", Two.Name())
}

func TestCardJSONUsesCompactText(t *testing.T) {
	hand := MustParseCards("AhKd")
	b, err := json.Marshal(hand)
	require.NoError(t, err)
	assert.JSONEq(t, `["Ah","Kd"]`, string(b))

	var back []Card
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, hand, back)

	_, err = json.Marshal(Card{})
	assert.Error(t, err, "zero card has no rank")
}
