package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusPending, OrderStatusDispatched, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusDelivered, false},
		{OrderStatusProcessing, OrderStatusDispatched, true},
		{OrderStatusDispatched, OrderStatusDelivered, true},
		{OrderStatusDelivered, OrderStatusPending, false},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatus("bogus"), OrderStatusPending, false},
	}

	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []OrderStatus{OrderStatusDelivered, OrderStatusCancelled} {
		if !s.IsTerminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	for _, s := range []OrderStatus{OrderStatusPending, OrderStatusProcessing, OrderStatusDispatched} {
		if s.IsTerminal() {
			t.Errorf("expected %s to be non-terminal", s)
		}
	}
}

func TestFreezeItemsCopiesValues(t *testing.T) {
	lines := []CartLine{
		{ProductID: "p1", Name: "Free Range Chicken", UnitPrice: decimal.NewFromInt(850), Quantity: 2},
	}

	items := FreezeItems(lines)

	lines[0].Name = "renamed"
	lines[0].Quantity = 9

	if items[0].Name != "Free Range Chicken" || items[0].Quantity != 2 {
		t.Errorf("frozen item changed with the cart line: %+v", items[0])
	}
	if !ItemsTotal(items).Equal(decimal.NewFromInt(1700)) {
		t.Errorf("expected total 1700, got %s", ItemsTotal(items))
	}
}
