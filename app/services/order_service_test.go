package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/adityaraj/bazario/app/models"
	"github.com/adityaraj/bazario/app/services"
	"github.com/adityaraj/bazario/pkg/apperr"
	"github.com/adityaraj/bazario/pkg/metrics"
)

func TestPlaceOrderHappyPath(t *testing.T) {
	svc, _, db := newOrderService(t)
	ctx := context.Background()

	buyer := seedUser(t, db, "buyer@example.com", models.RoleUser)
	mouse := seedProduct(t, db, "Mouse", 899, 10)
	keyboard := seedProduct(t, db, "Keyboard", 4499, 5)

	order, err := svc.PlaceOrder(ctx, buyer.ID, []services.CartLine{
		{ProductID: mouse.ID, Quantity: 2},
		{ProductID: keyboard.ID, Quantity: 1},
	}, "card")
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	if order.Status != models.StatusPending {
		t.Errorf("new orders must be pending, got %q", order.Status)
	}
	if want := 2*899.0 + 4499.0; order.TotalAmount != want {
		t.Errorf("total = %v, want %v", order.TotalAmount, want)
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(order.Items))
	}

	// Stock must be decremented by exactly the ordered quantities.
	var m, k models.Product
	db.First(&m, mouse.ID)
	db.First(&k, keyboard.ID)
	if m.Stock != 8 || k.Stock != 4 {
		t.Errorf("stock after order: mouse=%d keyboard=%d, want 8 and 4", m.Stock, k.Stock)
	}
}

// Repricing the product later must not change what existing orders recorded.
func TestOrderFreezesUnitPrice(t *testing.T) {
	svc, _, db := newOrderService(t)
	ctx := context.Background()

	buyer := seedUser(t, db, "b@example.com", models.RoleUser)
	p := seedProduct(t, db, "Bottle", 799, 50)

	order, err := svc.PlaceOrder(ctx, buyer.ID, []services.CartLine{{ProductID: p.ID, Quantity: 1}}, "upi")
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	db.Model(&models.Product{}).Where("id = ?", p.ID).Update("price", 999)

	admin := seedUser(t, db, "a@example.com", models.RoleAdmin)
	reread, err := svc.GetOrder(ctx, order.ID, admin)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if reread.Items[0].UnitPrice != 799 {
		t.Errorf("unit price changed after repricing: %v", reread.Items[0].UnitPrice)
	}
	if reread.TotalAmount != 799 {
		t.Errorf("total changed after repricing: %v", reread.TotalAmount)
	}
}

func TestPlaceOrderValidation(t *testing.T) {
	svc, _, db := newOrderService(t)
	ctx := context.Background()
	buyer := seedUser(t, db, "b@example.com", models.RoleUser)
	p := seedProduct(t, db, "Mat", 1199, 3)

	cases := []struct {
		name   string
		cart   []services.CartLine
		method string
		kind   apperr.Kind
	}{
		{"empty cart", nil, "card", apperr.Validation},
		{"zero quantity", []services.CartLine{{ProductID: p.ID, Quantity: 0}}, "card", apperr.Validation},
		{"missing product id", []services.CartLine{{ProductID: 0, Quantity: 1}}, "card", apperr.Validation},
		{"bad payment method", []services.CartLine{{ProductID: p.ID, Quantity: 1}}, "cheque", apperr.Validation},
		{"unknown product", []services.CartLine{{ProductID: 9999, Quantity: 1}}, "card", apperr.NotFound},
		{"short stock", []services.CartLine{{ProductID: p.ID, Quantity: 4}}, "card", apperr.Conflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.PlaceOrder(ctx, buyer.ID, tc.cart, tc.method)
			if !apperr.Is(err, tc.kind) {
				t.Errorf("expected %v error, got %v", tc.kind, err)
			}
		})
	}

	// Nothing above may have touched stock.
	var fresh models.Product
	db.First(&fresh, p.ID)
	if fresh.Stock != 3 {
		t.Errorf("stock leaked on failed placements: %d", fresh.Stock)
	}
}

// Duplicate cart lines for one product are folded together before the
// stock check, so they cannot sneak past it.
func TestPlaceOrderFoldsDuplicateLines(t *testing.T) {
	svc, _, db := newOrderService(t)
	ctx := context.Background()
	buyer := seedUser(t, db, "b@example.com", models.RoleUser)
	p := seedProduct(t, db, "Shoes", 2999, 3)

	_, err := svc.PlaceOrder(ctx, buyer.ID, []services.CartLine{
		{ProductID: p.ID, Quantity: 2},
		{ProductID: p.ID, Quantity: 2},
	}, "cod")
	if !apperr.Is(err, apperr.Conflict) {
		t.Fatalf("folded quantity 4 must fail against stock 3, got %v", err)
	}

	order, err := svc.PlaceOrder(ctx, buyer.ID, []services.CartLine{
		{ProductID: p.ID, Quantity: 1},
		{ProductID: p.ID, Quantity: 2},
	}, "cod")
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if len(order.Items) != 1 || order.Items[0].Quantity != 3 {
		t.Errorf("expected one folded line of quantity 3, got %+v", order.Items)
	}
}

// Two orders racing for the last unit: exactly one succeeds, stock never
// goes negative.
func TestPlaceOrderLastUnit(t *testing.T) {
	svc, _, db := newOrderService(t)
	ctx := context.Background()
	buyer := seedUser(t, db, "b@example.com", models.RoleUser)
	p := seedProduct(t, db, "Last One", 100, 1)

	if _, err := svc.PlaceOrder(ctx, buyer.ID, []services.CartLine{{ProductID: p.ID, Quantity: 1}}, "card"); err != nil {
		t.Fatalf("first order: %v", err)
	}

	_, err := svc.PlaceOrder(ctx, buyer.ID, []services.CartLine{{ProductID: p.ID, Quantity: 1}}, "card")
	if !apperr.Is(err, apperr.Conflict) {
		t.Fatalf("second order must lose, got %v", err)
	}

	var fresh models.Product
	db.First(&fresh, p.ID)
	if fresh.Stock != 0 {
		t.Errorf("stock = %d, want 0", fresh.Stock)
	}
}

// Two placements racing for the last unit, actually in parallel: exactly
// one commits, the other gets a conflict, and stock lands at zero.
func TestConcurrentPlacementsLastUnit(t *testing.T) {
	svc, _, db := newOrderService(t)
	ctx := context.Background()
	buyer := seedUser(t, db, "b@example.com", models.RoleUser)
	p := seedProduct(t, db, "Final Unit", 100, 1)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PlaceOrder(ctx, buyer.ID, []services.CartLine{{ProductID: p.ID, Quantity: 1}}, "card")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var won, lost int
	for err := range errs {
		switch {
		case err == nil:
			won++
		case apperr.Is(err, apperr.Conflict):
			lost++
		default:
			t.Fatalf("unexpected placement error: %v", err)
		}
	}
	if won != 1 || lost != 1 {
		t.Errorf("winners=%d losers=%d, want exactly one of each", won, lost)
	}

	var fresh models.Product
	db.First(&fresh, p.ID)
	if fresh.Stock != 0 {
		t.Errorf("stock = %d, want 0", fresh.Stock)
	}
	var count int64
	db.Model(&models.Order{}).Count(&count)
	if count != 1 {
		t.Errorf("order count = %d, want 1", count)
	}
}

// A shortfall the snapshot already saw fails on the first attempt. Only a
// decrement lost to a concurrent writer loops, and only those losses count
// toward the conflict metric.
func TestShortStockFailsWithoutRetry(t *testing.T) {
	svc, _, db := newOrderService(t)
	ctx := context.Background()
	buyer := seedUser(t, db, "b@example.com", models.RoleUser)
	p := seedProduct(t, db, "Scarce", 50, 2)

	before := testutil.ToFloat64(metrics.OrderConflictsTotal)
	_, err := svc.PlaceOrder(ctx, buyer.ID, []services.CartLine{{ProductID: p.ID, Quantity: 3}}, "card")
	if !apperr.Is(err, apperr.Conflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if after := testutil.ToFloat64(metrics.OrderConflictsTotal); after != before {
		t.Errorf("pre-checked shortfall recorded %v retry conflicts, want none", after-before)
	}
}

// A multi-line order where one line is short must roll back entirely.
func TestPlaceOrderAtomicRollback(t *testing.T) {
	svc, _, db := newOrderService(t)
	ctx := context.Background()
	buyer := seedUser(t, db, "b@example.com", models.RoleUser)
	ok := seedProduct(t, db, "Plenty", 10, 100)
	short := seedProduct(t, db, "Scarce", 10, 1)

	_, err := svc.PlaceOrder(ctx, buyer.ID, []services.CartLine{
		{ProductID: ok.ID, Quantity: 5},
		{ProductID: short.ID, Quantity: 2},
	}, "card")
	if !apperr.Is(err, apperr.Conflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	var a, b models.Product
	db.First(&a, ok.ID)
	db.First(&b, short.ID)
	if a.Stock != 100 || b.Stock != 1 {
		t.Errorf("partial decrement leaked: plenty=%d scarce=%d", a.Stock, b.Stock)
	}

	var orderCount int64
	db.Model(&models.Order{}).Count(&orderCount)
	if orderCount != 0 {
		t.Errorf("rolled-back order persisted, count=%d", orderCount)
	}
}

func TestGetOrderAccess(t *testing.T) {
	svc, _, db := newOrderService(t)
	ctx := context.Background()

	owner := seedUser(t, db, "owner@example.com", models.RoleUser)
	stranger := seedUser(t, db, "stranger@example.com", models.RoleUser)
	admin := seedUser(t, db, "admin@example.com", models.RoleAdmin)
	p := seedProduct(t, db, "Thing", 10, 10)

	order, err := svc.PlaceOrder(ctx, owner.ID, []services.CartLine{{ProductID: p.ID, Quantity: 1}}, "card")
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	if _, err := svc.GetOrder(ctx, order.ID, owner); err != nil {
		t.Errorf("owner read: %v", err)
	}
	if _, err := svc.GetOrder(ctx, order.ID, admin); err != nil {
		t.Errorf("admin read: %v", err)
	}
	// Denial is explicit, not a 404.
	if _, err := svc.GetOrder(ctx, order.ID, stranger); !apperr.Is(err, apperr.Authorization) {
		t.Errorf("stranger read: expected authorization error, got %v", err)
	}
	if _, err := svc.GetOrder(ctx, 9999, admin); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("missing order: expected not found, got %v", err)
	}
}

func TestStatusLifecycle(t *testing.T) {
	svc, _, db := newOrderService(t)
	ctx := context.Background()

	owner := seedUser(t, db, "owner@example.com", models.RoleUser)
	admin := seedUser(t, db, "admin@example.com", models.RoleAdmin)
	p := seedProduct(t, db, "Thing", 10, 10)

	order, err := svc.PlaceOrder(ctx, owner.ID, []services.CartLine{{ProductID: p.ID, Quantity: 1}}, "card")
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	// Owner cannot advance the order.
	if _, err := svc.UpdateStatus(ctx, order.ID, models.StatusProcessing, owner); !apperr.Is(err, apperr.Authorization) {
		t.Errorf("owner advance: expected authorization error, got %v", err)
	}

	// Skipping states is illegal even for admins.
	if _, err := svc.UpdateStatus(ctx, order.ID, models.StatusShipped, admin); !apperr.Is(err, apperr.Validation) {
		t.Errorf("pending→shipped: expected validation error, got %v", err)
	}

	for _, status := range []string{models.StatusProcessing, models.StatusShipped, models.StatusDelivered} {
		if _, err := svc.UpdateStatus(ctx, order.ID, status, admin); err != nil {
			t.Fatalf("transition to %s: %v", status, err)
		}
	}

	// Delivered is terminal.
	if _, err := svc.UpdateStatus(ctx, order.ID, models.StatusCancelled, admin); !apperr.Is(err, apperr.Validation) {
		t.Errorf("delivered→cancelled: expected validation error, got %v", err)
	}
}

func TestCancelRestocks(t *testing.T) {
	svc, _, db := newOrderService(t)
	ctx := context.Background()

	owner := seedUser(t, db, "owner@example.com", models.RoleUser)
	p := seedProduct(t, db, "Thing", 10, 5)

	order, err := svc.PlaceOrder(ctx, owner.ID, []services.CartLine{{ProductID: p.ID, Quantity: 3}}, "card")
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	if _, err := svc.UpdateStatus(ctx, order.ID, models.StatusCancelled, owner); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	var fresh models.Product
	db.First(&fresh, p.ID)
	if fresh.Stock != 5 {
		t.Errorf("stock after cancel = %d, want 5", fresh.Stock)
	}
}

func TestOwnerCannotCancelShipped(t *testing.T) {
	svc, _, db := newOrderService(t)
	ctx := context.Background()

	owner := seedUser(t, db, "owner@example.com", models.RoleUser)
	admin := seedUser(t, db, "admin@example.com", models.RoleAdmin)
	p := seedProduct(t, db, "Thing", 10, 5)

	order, err := svc.PlaceOrder(ctx, owner.ID, []services.CartLine{{ProductID: p.ID, Quantity: 1}}, "card")
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	for _, status := range []string{models.StatusProcessing, models.StatusShipped} {
		if _, err := svc.UpdateStatus(ctx, order.ID, status, admin); err != nil {
			t.Fatalf("transition to %s: %v", status, err)
		}
	}

	if _, err := svc.UpdateStatus(ctx, order.ID, models.StatusCancelled, owner); !apperr.Is(err, apperr.Validation) {
		t.Errorf("shipped order cancelled by owner: %v", err)
	}
}

func TestListMineAndAll(t *testing.T) {
	svc, _, db := newOrderService(t)
	ctx := context.Background()

	a := seedUser(t, db, "a@example.com", models.RoleUser)
	b := seedUser(t, db, "b@example.com", models.RoleUser)
	p := seedProduct(t, db, "Thing", 10, 100)

	for i := 0; i < 3; i++ {
		if _, err := svc.PlaceOrder(ctx, a.ID, []services.CartLine{{ProductID: p.ID, Quantity: 1}}, "card"); err != nil {
			t.Fatalf("place: %v", err)
		}
	}
	if _, err := svc.PlaceOrder(ctx, b.ID, []services.CartLine{{ProductID: p.ID, Quantity: 1}}, "card"); err != nil {
		t.Fatalf("place: %v", err)
	}

	mine, pg, err := svc.ListMine(ctx, a.ID, 1, 10)
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	if len(mine) != 3 || pg.Total != 3 {
		t.Errorf("a's orders = %d (total %d), want 3", len(mine), pg.Total)
	}

	all, pg, err := svc.ListAll(ctx, 1, 10)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 4 || pg.Total != 4 {
		t.Errorf("all orders = %d (total %d), want 4", len(all), pg.Total)
	}
}

func TestExpirePending(t *testing.T) {
	svc, _, db := newOrderService(t)
	ctx := context.Background()

	owner := seedUser(t, db, "owner@example.com", models.RoleUser)
	p := seedProduct(t, db, "Thing", 10, 10)

	order, err := svc.PlaceOrder(ctx, owner.ID, []services.CartLine{{ProductID: p.ID, Quantity: 2}}, "cod")
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	// Age the order past the cutoff.
	old := time.Now().Add(-72 * time.Hour)
	db.Model(&models.Order{}).Where("id = ?", order.ID).Update("created_at", old)

	n, err := svc.ExpirePending(ctx, 48*time.Hour)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if n != 1 {
		t.Errorf("expired %d orders, want 1", n)
	}

	admin := seedUser(t, db, "admin@example.com", models.RoleAdmin)
	reread, err := svc.GetOrder(ctx, order.ID, admin)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if reread.Status != models.StatusCancelled {
		t.Errorf("status = %q, want cancelled", reread.Status)
	}

	var fresh models.Product
	db.First(&fresh, p.ID)
	if fresh.Stock != 10 {
		t.Errorf("stock after expiry = %d, want 10", fresh.Stock)
	}
}
