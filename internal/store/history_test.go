package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/core"
)

func TestAddToHistory(t *testing.T) {
	tests := []struct {
		name  string
		list  []string
		value string
		limit int
		want  []string
	}{
		{"prepend", []string{"b"}, "a", 10, []string{"a", "b"}},
		{"trim", nil, "  Shop ", 10, []string{"Shop"}},
		{"blank ignored", []string{"b"}, "   ", 10, []string{"b"}},
		{"case-insensitive move to front", []string{"a", "SHOP", "c"}, "shop", 10, []string{"shop", "a", "c"}},
		{"capped", []string{"a", "b", "c"}, "d", 3, []string{"d", "a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AddToHistory(tt.list, tt.value, tt.limit)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSuggest(t *testing.T) {
	list := []string{"Groceries", "Gym", "Rent", "Grocery outlet", "Restaurant"}

	assert.Equal(t, []string{"Groceries", "Grocery outlet"}, Suggest(list, "GROC"))
	assert.Equal(t, list, Suggest(list, ""))
	assert.Equal(t, []string{"Rent", "Restaurant"}, Suggest(list, "re"))

	// No substring match: fall back to near misses on the prefix.
	assert.Equal(t, []string{"Groceries", "Grocery outlet"}, Suggest(list, "grocre"))
	assert.Empty(t, Suggest(list, "zzzzzz"))

	var many []string
	for i := range 25 {
		many = append(many, fmt.Sprintf("item %d", i))
	}
	assert.Len(t, Suggest(many, "item"), SuggestLimit)
}

func TestStoreHistory(t *testing.T) {
	st := New(WithLogger(discardLogger()), WithIDGenerator(sequentialIDs()), WithHistoryLimit(3))
	a := st.ActiveAccountID()
	ctx := context.Background()

	h := st.History(a)
	assert.Equal(t, []string{}, h.Payees)
	assert.Equal(t, []string{}, h.Descriptions)

	_, err := st.AddTemplate(ctx, a, core.Template{
		Date: core.NewDate(2024, 1, 1), Description: "Coffee", Payee: "Bar", Amount: core.Money{Cents: -250},
	}, "")
	require.NoError(t, err)
	require.NoError(t, st.RecordHistory(a, "", "Tea"))

	h = st.History(a)
	assert.Equal(t, []string{"Bar"}, h.Payees)
	assert.Equal(t, []string{"Tea", "Coffee"}, h.Descriptions)

	require.NoError(t, st.SetHistory(a, History{
		Payees:       []string{" A ", "a", "", "B", "C", "D"},
		Descriptions: nil,
	}))
	h = st.History(a)
	assert.Equal(t, []string{"A", "B", "C"}, h.Payees)
	assert.Equal(t, []string{}, h.Descriptions)

	assert.ErrorIs(t, st.SetHistory("nope", History{}), ErrAccountNotFound)
	assert.ErrorIs(t, st.RecordHistory("nope", "x", "y"), ErrAccountNotFound)
}
