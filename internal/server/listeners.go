package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/adityaraj/bazario/app/jobs"
	"github.com/adityaraj/bazario/app/models"
	"github.com/adityaraj/bazario/app/repositories"
	"github.com/adityaraj/bazario/app/services"
	"github.com/adityaraj/bazario/config"
	"github.com/adityaraj/bazario/pkg/auth"
	"github.com/adityaraj/bazario/pkg/event"
	"github.com/adityaraj/bazario/pkg/logger"
	"github.com/adityaraj/bazario/pkg/queue"
	"github.com/adityaraj/bazario/pkg/schedule"
	"github.com/adityaraj/bazario/pkg/ws"
)

func newIssuer() *auth.Issuer {
	return auth.NewIssuer(config.JWTSecret(), config.JWTTTL())
}

// registerListeners connects domain events to background jobs and the
// order status WebSocket stream. Email work never runs on a request
// goroutine; it is dispatched to the queue.
func registerListeners(users *repositories.UserRepository, hub *ws.Hub) {
	mailEnabled := config.SMTPHost() != ""

	event.Listen(event.UserRegistered, func(payload interface{}) {
		user, ok := payload.(models.User)
		if !ok || !mailEnabled {
			return
		}
		if err := queue.Dispatch(&jobs.WelcomeEmailJob{Name: user.Name, Email: user.Email}); err != nil {
			logger.Error("dispatch welcome email", "error", err)
		}
	})

	event.Listen(event.OrderPlaced, func(payload interface{}) {
		order, ok := payload.(models.Order)
		if !ok {
			return
		}

		broadcastOrder(hub, order)

		if !mailEnabled {
			return
		}
		buyer, err := lookupBuyer(users, order.UserID)
		if err != nil {
			logger.Warn("order confirmation skipped", "order_id", order.ID, "error", err)
			return
		}
		if err := queue.Dispatch(&jobs.OrderConfirmationJob{
			OrderID: order.ID,
			Email:   buyer.Email,
			Total:   order.TotalAmount,
		}); err != nil {
			logger.Error("dispatch order confirmation", "error", err)
		}
	})

	event.Listen(event.OrderStatusChanged, func(payload interface{}) {
		order, ok := payload.(models.Order)
		if !ok {
			return
		}

		broadcastOrder(hub, order)

		if !mailEnabled {
			return
		}
		buyer, err := lookupBuyer(users, order.UserID)
		if err != nil {
			logger.Warn("status email skipped", "order_id", order.ID, "error", err)
			return
		}
		if err := queue.Dispatch(&jobs.OrderStatusEmailJob{
			OrderID: order.ID,
			Email:   buyer.Email,
			Status:  order.Status,
		}); err != nil {
			logger.Error("dispatch status email", "error", err)
		}
	})
}

func lookupBuyer(users *repositories.UserRepository, id uint) (models.User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return users.FindByID(ctx, id)
}

func broadcastOrder(hub *ws.Hub, order models.Order) {
	msg, err := json.Marshal(map[string]interface{}{
		"event":    "order.status",
		"order_id": order.ID,
		"user_id":  order.UserID,
		"status":   order.Status,
	})
	if err != nil {
		return
	}
	select {
	case hub.Broadcast <- msg:
	default:
	}
}

// registerSchedules sets up recurring maintenance work.
func registerSchedules(orders *services.OrderService) {
	schedule.Hourly().Name("orders.expire_pending").WithoutOverlapping().Run(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		n, err := orders.ExpirePending(ctx, config.OrderExpiry())
		if err != nil {
			logger.Error("pending order sweep failed", "error", err)
			return
		}
		if n > 0 {
			logger.Info("expired stale pending orders", "count", n)
		}
	})
}
