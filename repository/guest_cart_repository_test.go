package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepaktraders/storefront-backend/models"
)

func TestDecodeCartItemsAcceptsValidPayload(t *testing.T) {
	items, ok := DecodeCartItems([]byte(`[{"product_id":"p1","qty":2},{"product_id":"p2","qty":99}]`))
	require.True(t, ok)
	assert.Equal(t, []models.CartItem{
		{ProductID: "p1", Qty: 2},
		{ProductID: "p2", Qty: 99},
	}, items)
}

func TestDecodeCartItemsRejectsMalformedContent(t *testing.T) {
	cases := []string{
		`not json`,
		`{"product_id":"p1"}`,
		`[{"product_id":"","qty":1}]`,
		`[{"product_id":"p1","qty":0}]`,
		`[{"product_id":"p1","qty":100}]`,
		`[{"product_id":"p1","qty":-3}]`,
	}
	for _, payload := range cases {
		_, ok := DecodeCartItems([]byte(payload))
		assert.False(t, ok, "payload should be rejected: %s", payload)
	}
}

func TestDecodeCartItemsEmptyArrayIsValid(t *testing.T) {
	items, ok := DecodeCartItems([]byte(`[]`))
	require.True(t, ok)
	assert.Empty(t, items)
}
