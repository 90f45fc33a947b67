package entities

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversation_AppendKeepsOrder(t *testing.T) {
	var conv Conversation
	conv = conv.Append("turn one")
	conv = conv.Append("turn two")

	require.Len(t, conv, 2)
	assert.Equal(t, "turn one", conv[0])
	assert.Equal(t, "turn two", conv[1])
}

func TestConversation_BoundEvictsOldestFirst(t *testing.T) {
	var conv Conversation
	for i := 1; i <= 8; i++ {
		conv = conv.Append(fmt.Sprintf("turn %d", i))
	}

	require.Len(t, conv, MaxTurns)
	assert.Equal(t, "turn 4", conv[0])
	assert.Equal(t, "turn 8", conv[len(conv)-1])
}

func TestConversation_AppendDoesNotMutateReceiver(t *testing.T) {
	base := Conversation{"a", "b"}
	grown := base.Append("c")

	assert.Equal(t, Conversation{"a", "b"}, base)
	assert.Equal(t, Conversation{"a", "b", "c"}, grown)

	// appending to two branches of the same base must not alias
	other := base.Append("d")
	assert.Equal(t, Conversation{"a", "b", "c"}, grown)
	assert.Equal(t, Conversation{"a", "b", "d"}, other)
}

func TestFormatTurn(t *testing.T) {
	turn := FormatTurn("how much?", "5.50 USD")
	assert.Equal(t, "Question: how much? Answer: 5.50 USD", turn)
}

func TestReceipt_SummaryTextStableItemOrder(t *testing.T) {
	r := Receipt{
		Vendor:      "Market",
		TotalAmount: 9.99,
		Currency:    "EUR",
		Items:       map[string]string{"zucchini": "2.00", "apples": "3.00", "milk": "4.99"},
	}
	want := "Vendor: Market, Items: apples, milk, zucchini, Total: 9.99 EUR"
	for i := 0; i < 10; i++ {
		assert.Equal(t, want, r.SummaryText())
	}
}

func TestReceipt_SummaryTextNoItems(t *testing.T) {
	r := Receipt{Vendor: "Kiosk", TotalAmount: 1.00, Currency: "USD"}
	assert.Equal(t, "Vendor: Kiosk, Items: , Total: 1.00 USD", r.SummaryText())
}
