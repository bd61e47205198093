package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ariefcatur/go-marketplace.git/internal/market"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func testOrder(id, userID string, status market.Status, createdAt time.Time) market.Order {
	return market.Order{
		ID:     id,
		UserID: userID,
		Items: []market.LineItem{
			{ProductID: "p1", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
		},
		TotalAmount:   decimal.RequireFromString("20.00"),
		Status:        status,
		PaymentMethod: market.PaymentCard,
		PaymentStatus: market.PaymentPaid,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
}

func TestAppendAndGet(t *testing.T) {
	l := NewMemoryLedger()
	o := testOrder("o1", "u1", market.StatusPending, time.Now().UTC())

	require.NoError(t, l.Append(context.Background(), o))

	got, err := l.Get(context.Background(), "o1")
	require.NoError(t, err)
	require.Equal(t, o.ID, got.ID)
	require.True(t, got.TotalAmount.Equal(o.TotalAmount))
	require.Equal(t, o.Items, got.Items)

	// append-only: the same id cannot enter twice
	require.Error(t, l.Append(context.Background(), o))
}

func TestGetUnknownOrder(t *testing.T) {
	l := NewMemoryLedger()
	_, err := l.Get(context.Background(), "missing")
	require.ErrorIs(t, err, market.ErrOrderNotFound)
}

func TestGetReturnsCopy(t *testing.T) {
	l := NewMemoryLedger()
	require.NoError(t, l.Append(context.Background(), testOrder("o1", "u1", market.StatusPending, time.Now().UTC())))

	got, _ := l.Get(context.Background(), "o1")
	got.Items[0].Quantity = 99

	again, _ := l.Get(context.Background(), "o1")
	require.Equal(t, 2, again.Items[0].Quantity)
}

func TestSetStatusHappyPathBumpsUpdatedAt(t *testing.T) {
	l := NewMemoryLedger()
	created := time.Now().UTC().Add(-time.Minute)
	require.NoError(t, l.Append(context.Background(), testOrder("o1", "u1", market.StatusPending, created)))

	o, from, err := l.SetStatus(context.Background(), "o1", market.StatusProcessing)
	require.NoError(t, err)
	require.Equal(t, market.StatusPending, from)
	require.Equal(t, market.StatusProcessing, o.Status)
	require.True(t, o.UpdatedAt.After(created))

	prev := o.UpdatedAt
	o, _, err = l.SetStatus(context.Background(), "o1", market.StatusShipped)
	require.NoError(t, err)
	require.False(t, o.UpdatedAt.Before(prev))

	o, _, err = l.SetStatus(context.Background(), "o1", market.StatusDelivered)
	require.NoError(t, err)
	require.Equal(t, market.StatusDelivered, o.Status)
}

func TestSetStatusRejectsInvalidTransitions(t *testing.T) {
	l := NewMemoryLedger()
	require.NoError(t, l.Append(context.Background(), testOrder("o1", "u1", market.StatusPending, time.Now().UTC())))

	// pending -> shipped skips processing
	_, _, err := l.SetStatus(context.Background(), "o1", market.StatusShipped)
	var transition *market.InvalidTransitionError
	require.True(t, errors.As(err, &transition))
	require.Equal(t, market.StatusPending, transition.From)
	require.Equal(t, market.StatusShipped, transition.To)

	// order untouched
	o, _ := l.Get(context.Background(), "o1")
	require.Equal(t, market.StatusPending, o.Status)
}

func TestTerminalStatusAcceptsNothing(t *testing.T) {
	l := NewMemoryLedger()
	require.NoError(t, l.Append(context.Background(), testOrder("o1", "u1", market.StatusPending, time.Now().UTC())))

	for _, s := range []market.Status{market.StatusProcessing, market.StatusShipped, market.StatusDelivered} {
		_, _, err := l.SetStatus(context.Background(), "o1", s)
		require.NoError(t, err)
	}

	_, _, err := l.SetStatus(context.Background(), "o1", market.StatusCancelled)
	var transition *market.InvalidTransitionError
	require.True(t, errors.As(err, &transition))

	o, _ := l.Get(context.Background(), "o1")
	require.Equal(t, market.StatusDelivered, o.Status)
}

func TestSetStatusUnknownOrder(t *testing.T) {
	l := NewMemoryLedger()
	_, _, err := l.SetStatus(context.Background(), "missing", market.StatusProcessing)
	require.ErrorIs(t, err, market.ErrOrderNotFound)
}

func TestListFiltersAndPaginates(t *testing.T) {
	l := NewMemoryLedger()
	base := time.Now().UTC()
	for i := 0; i < 25; i++ {
		userID := "u1"
		if i%2 == 1 {
			userID = "u2"
		}
		o := testOrder(fmt.Sprintf("o%02d", i), userID, market.StatusPending, base.Add(time.Duration(i)*time.Second))
		require.NoError(t, l.Append(context.Background(), o))
	}
	_, _, err := l.SetStatus(context.Background(), "o00", market.StatusCancelled)
	require.NoError(t, err)

	t.Run("newest first with default paging", func(t *testing.T) {
		out, err := l.List(context.Background(), Filter{}, 0, 0)
		require.NoError(t, err)
		require.Len(t, out, DefaultPageLimit)
		require.Equal(t, "o24", out[0].ID)
	})

	t.Run("second page", func(t *testing.T) {
		out, err := l.List(context.Background(), Filter{}, 2, 20)
		require.NoError(t, err)
		require.Len(t, out, 5)
	})

	t.Run("past the end", func(t *testing.T) {
		out, err := l.List(context.Background(), Filter{}, 9, 20)
		require.NoError(t, err)
		require.Empty(t, out)
	})

	t.Run("filter by user", func(t *testing.T) {
		out, err := l.List(context.Background(), Filter{UserID: "u2"}, 1, 100)
		require.NoError(t, err)
		require.Len(t, out, 12)
		for _, o := range out {
			require.Equal(t, "u2", o.UserID)
		}
	})

	t.Run("filter by status", func(t *testing.T) {
		out, err := l.List(context.Background(), Filter{Status: market.StatusCancelled}, 1, 100)
		require.NoError(t, err)
		require.Len(t, out, 1)
		require.Equal(t, "o00", out[0].ID)
	})

	t.Run("combined filter", func(t *testing.T) {
		out, err := l.List(context.Background(), Filter{Status: market.StatusPending, UserID: "u1"}, 1, 100)
		require.NoError(t, err)
		require.Len(t, out, 12) // 13 u1 orders, one of them cancelled
	})
}
