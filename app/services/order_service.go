package services

import (
	"context"
	"sort"
	"time"

	"github.com/adityaraj/bazario/app/models"
	"github.com/adityaraj/bazario/app/repositories"
	"github.com/adityaraj/bazario/pkg/apperr"
	"github.com/adityaraj/bazario/pkg/collection"
	"github.com/adityaraj/bazario/pkg/event"
	"github.com/adityaraj/bazario/pkg/logger"
	"github.com/adityaraj/bazario/pkg/metrics"
	"gorm.io/gorm"
)

// placeRetries bounds the optimistic retry loop when a conditional stock
// decrement loses a race. Each retry re-reads prices and stock from scratch.
const placeRetries = 3

// CartLine is one requested (product, quantity) pair.
type CartLine struct {
	ProductID uint `json:"product_id" validate:"required,gte=1"`
	Quantity  int  `json:"quantity"   validate:"required,gte=1"`
}

// OrderService runs the placement pipeline and the status lifecycle.
type OrderService struct {
	orders   *repositories.OrderRepository
	products *repositories.ProductRepository
	catalog  *CatalogService
}

func NewOrderService(orders *repositories.OrderRepository, products *repositories.ProductRepository, catalog *CatalogService) *OrderService {
	return &OrderService{orders: orders, products: products, catalog: catalog}
}

// PlaceOrder validates the cart, snapshots prices, checks stock, and commits
// the order and all stock decrements as one transaction. There is no partial
// outcome: an unknown product, a short line, or a lost decrement race rolls
// everything back.
func (s *OrderService) PlaceOrder(ctx context.Context, userID uint, cart []CartLine, paymentMethod string) (models.Order, error) {
	lines, err := normalizeCart(cart, paymentMethod)
	if err != nil {
		return models.Order{}, err
	}

	var lastErr error
	for attempt := 0; attempt < placeRetries; attempt++ {
		order, raced, err := s.tryPlace(ctx, userID, lines, paymentMethod)
		if err == nil {
			metrics.OrdersPlacedTotal.Inc()
			logger.WithCtx(ctx).Info("order placed",
				"order_id", order.ID, "user_id", userID, "total", order.TotalAmount)
			event.Fire(event.OrderPlaced, order)
			return order, nil
		}

		lastErr = err
		// Only a lost decrement race is worth retrying: the next snapshot
		// may find restocked quantity from a cancellation. A shortfall the
		// pre-check already saw is final, as are validation and not-found.
		if !raced {
			return models.Order{}, err
		}
		metrics.OrderConflictsTotal.Inc()
	}
	return models.Order{}, lastErr
}

// tryPlace runs one PriceSnapshot → StockCheck → Commit attempt. raced is
// true only when a conditional decrement lost to a concurrent writer after
// the snapshot passed — the one failure mode a retry can recover from.
func (s *OrderService) tryPlace(ctx context.Context, userID uint, lines []CartLine, paymentMethod string) (_ models.Order, raced bool, _ error) {
	ids := collection.Map(lines, func(l CartLine) uint { return l.ProductID })

	// PriceSnapshot: one batched read for every distinct product.
	snapshot, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return models.Order{}, false, storeErr("orders: snapshot products", err)
	}
	byID := make(map[uint]models.Product, len(snapshot))
	for _, p := range snapshot {
		byID[p.ID] = p
	}

	// StockCheck against the snapshot. The conditional decrement below is
	// what actually protects against concurrent placements; this pass just
	// rejects obviously short carts before opening a transaction.
	items := make([]models.OrderItem, 0, len(lines))
	total := 0.0
	for _, line := range lines {
		product, ok := byID[line.ProductID]
		if !ok {
			return models.Order{}, false, apperr.NotFoundf("product %d does not exist", line.ProductID)
		}
		if product.Stock < line.Quantity {
			return models.Order{}, false, apperr.Conflictf("insufficient stock for product %d", line.ProductID)
		}
		items = append(items, models.OrderItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: product.Price, // frozen here, never re-read
		})
		total += product.Price * float64(line.Quantity)
	}

	// A disconnect is honoured up to this point. The commit itself runs
	// detached from the request context so it can never be interrupted
	// halfway through.
	if err := ctx.Err(); err != nil {
		return models.Order{}, false, apperr.Wrap(apperr.Unavailable, "request cancelled", err)
	}
	commitCtx := context.WithoutCancel(ctx)

	order := models.Order{
		UserID:        userID,
		Items:         items,
		TotalAmount:   total,
		Status:        models.StatusPending,
		PaymentMethod: paymentMethod,
	}

	err = s.orders.DB().WithContext(commitCtx).Transaction(func(tx *gorm.DB) error {
		if err := s.orders.Create(tx, &order); err != nil {
			return storeErr("orders: create", err)
		}
		for _, line := range lines {
			ok, err := s.products.DecrementStock(tx, line.ProductID, line.Quantity)
			if err != nil {
				return storeErr("orders: decrement stock", err)
			}
			if !ok {
				// Raced with another placement since the snapshot.
				raced = true
				return apperr.Conflictf("insufficient stock for product %d", line.ProductID)
			}
		}
		return nil
	})
	if err != nil {
		return models.Order{}, raced, err
	}

	s.catalog.invalidate(ids...)
	return order, false, nil
}

// GetOrder returns the order if actor owns it or is an admin. Existence is
// not hidden: a non-owner gets an authorization failure, not a 404.
func (s *OrderService) GetOrder(ctx context.Context, orderID uint, actor models.User) (models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if notFound(err) {
			return models.Order{}, apperr.NotFoundf("order %d not found", orderID)
		}
		return models.Order{}, storeErr("orders: lookup", err)
	}
	if order.UserID != actor.ID && !actor.IsAdmin() {
		return models.Order{}, apperr.Authorizationf("not authorized to view this order")
	}
	return order, nil
}

// UpdateStatus applies one legal lifecycle transition. Owners may only
// cancel orders that have not shipped; admins may apply any legal
// transition. Cancelling returns every line's quantity to stock in the same
// transaction.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uint, newStatus string, actor models.User) (models.Order, error) {
	if !models.ValidStatus(newStatus) {
		return models.Order{}, apperr.Validationf("unknown order status %q", newStatus)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if notFound(err) {
			return models.Order{}, apperr.NotFoundf("order %d not found", orderID)
		}
		return models.Order{}, storeErr("orders: lookup", err)
	}

	switch {
	case actor.IsAdmin():
		// any legal transition
	case order.UserID == actor.ID:
		if newStatus != models.StatusCancelled {
			return models.Order{}, apperr.Authorizationf("only an admin can change order status")
		}
		if !models.Cancellable(order.Status) {
			return models.Order{}, apperr.Validationf("a %s order can no longer be cancelled", order.Status)
		}
	default:
		return models.Order{}, apperr.Authorizationf("not authorized to modify this order")
	}

	if !models.CanTransition(order.Status, newStatus) {
		return models.Order{}, apperr.Validationf("cannot move order from %s to %s", order.Status, newStatus)
	}

	err = s.orders.DB().WithContext(context.WithoutCancel(ctx)).Transaction(func(tx *gorm.DB) error {
		ok, err := s.orders.TransitionStatus(tx, order.ID, order.Status, newStatus)
		if err != nil {
			return storeErr("orders: transition", err)
		}
		if !ok {
			return apperr.Conflictf("order %d changed state, refresh and retry", order.ID)
		}
		if newStatus == models.StatusCancelled {
			for _, item := range order.Items {
				if err := s.products.IncrementStock(tx, item.ProductID, item.Quantity); err != nil {
					return storeErr("orders: restock", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}

	if newStatus == models.StatusCancelled {
		s.catalog.invalidate(collection.Map(order.Items, func(i models.OrderItem) uint { return i.ProductID })...)
	}

	order.Status = newStatus
	logger.WithCtx(ctx).Info("order status changed",
		"order_id", order.ID, "status", newStatus, "by", actor.ID)
	event.Fire(event.OrderStatusChanged, order)
	return order, nil
}

// ListMine returns a page of the actor's own orders.
func (s *OrderService) ListMine(ctx context.Context, userID uint, page, limit int) ([]models.Order, repositories.Pagination, error) {
	orders, p, err := s.orders.ByUser(ctx, userID, page, limit)
	if err != nil {
		return nil, p, storeErr("orders: list mine", err)
	}
	return orders, p, nil
}

// ListAll returns a page of every order. Admin only — enforced at the route.
func (s *OrderService) ListAll(ctx context.Context, page, limit int) ([]models.Order, repositories.Pagination, error) {
	orders, p, err := s.orders.All(ctx, page, limit)
	if err != nil {
		return nil, p, storeErr("orders: list all", err)
	}
	return orders, p, nil
}

// ExpirePending cancels pending orders older than the given age and
// restocks their lines. Called by the scheduler; returns how many were
// cancelled.
func (s *OrderService) ExpirePending(ctx context.Context, olderThan time.Duration) (int, error) {
	stale, err := s.orders.PendingOlderThan(ctx, time.Now().Add(-olderThan), 100)
	if err != nil {
		return 0, storeErr("orders: find stale", err)
	}

	admin := models.User{Role: models.RoleAdmin} // system actor
	expired := 0
	for _, order := range stale {
		if _, err := s.UpdateStatus(ctx, order.ID, models.StatusCancelled, admin); err != nil {
			logger.WithCtx(ctx).Warn("order expiry failed", "order_id", order.ID, "error", err)
			continue
		}
		expired++
	}
	return expired, nil
}

// normalizeCart validates the request and folds duplicate product ids into
// single lines so the snapshot queries each product once.
func normalizeCart(cart []CartLine, paymentMethod string) ([]CartLine, error) {
	if len(cart) == 0 {
		return nil, apperr.Validationf("cart must contain at least one product")
	}
	if !models.ValidPaymentMethod(paymentMethod) {
		return nil, apperr.Validationf("payment method must be one of: card, upi, netbanking, cod")
	}

	byProduct := map[uint]int{}
	for _, line := range cart {
		if line.ProductID == 0 {
			return nil, apperr.Validationf("cart line is missing a product id")
		}
		if line.Quantity < 1 {
			return nil, apperr.Validationf("quantity for product %d must be at least 1", line.ProductID)
		}
		byProduct[line.ProductID] += line.Quantity
	}

	lines := make([]CartLine, 0, len(byProduct))
	for id, qty := range byProduct {
		lines = append(lines, CartLine{ProductID: id, Quantity: qty})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines, nil
}
