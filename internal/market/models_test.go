package market

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestLineItemSubtotal(t *testing.T) {
	it := LineItem{ProductID: "p1", Quantity: 3, UnitPrice: decimal.RequireFromString("9.99")}
	require.True(t, it.Subtotal().Equal(decimal.RequireFromString("29.97")))
}

func TestOrderJSONRoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	o := Order{
		ID:     "ord-1",
		UserID: "u-1",
		Items: []LineItem{
			{ProductID: "p1", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
			{ProductID: "p2", Quantity: 1, UnitPrice: decimal.RequireFromString("4.50")},
		},
		TotalAmount: decimal.RequireFromString("24.50"),
		Status:      StatusPending,
		ShippingAddress: Address{
			Line1: "Jl. Sudirman 1", City: "Jakarta", PostalCode: "10110", Country: "ID",
		},
		PaymentMethod: PaymentCard,
		PaymentStatus: PaymentPaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	b, err := json.Marshal(o)
	require.NoError(t, err)

	var got Order
	require.NoError(t, json.Unmarshal(b, &got))
	require.Equal(t, o.ID, got.ID)
	require.Equal(t, o.UserID, got.UserID)
	require.Len(t, got.Items, 2)
	require.True(t, got.Items[0].UnitPrice.Equal(o.Items[0].UnitPrice))
	require.True(t, got.TotalAmount.Equal(o.TotalAmount))
	require.Equal(t, o.Status, got.Status)
	require.Equal(t, o.ShippingAddress, got.ShippingAddress)
	require.Equal(t, o.PaymentMethod, got.PaymentMethod)
	require.Equal(t, o.PaymentStatus, got.PaymentStatus)
	require.True(t, got.CreatedAt.Equal(o.CreatedAt))
}

func TestPaymentMethodValid(t *testing.T) {
	require.True(t, PaymentCashOnDelivery.Valid())
	require.True(t, PaymentCard.Valid())
	require.True(t, PaymentWallet.Valid())
	require.False(t, PaymentMethod("bitcoin").Valid())
	require.False(t, PaymentMethod("").Valid())
}
