// Package jobs defines the background jobs the store dispatches: transactional
// email and other deferred work that must not block a request.
package jobs

import (
	"fmt"

	"github.com/adityaraj/bazario/pkg/mail"
	"github.com/adityaraj/bazario/pkg/queue"
)

// RegisterAll makes every job type available for deserialization by the
// queue workers. Call once at boot.
func RegisterAll() {
	queue.Register("*jobs.WelcomeEmailJob", func() queue.Job { return &WelcomeEmailJob{} })
	queue.Register("*jobs.OrderConfirmationJob", func() queue.Job { return &OrderConfirmationJob{} })
	queue.Register("*jobs.OrderStatusEmailJob", func() queue.Job { return &OrderStatusEmailJob{} })
}

// WelcomeEmailJob greets a freshly registered account.
type WelcomeEmailJob struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (j *WelcomeEmailJob) Handle() error {
	return mail.To(j.Email).
		Subject("Welcome to Bazario").
		Body(fmt.Sprintf(`<p>Hi %s,</p><p>Your Bazario account is ready. Happy shopping!</p>`, j.Name)).
		Send()
}

// OrderConfirmationJob is dispatched when an order is placed.
type OrderConfirmationJob struct {
	OrderID uint    `json:"order_id"`
	Email   string  `json:"email"`
	Total   float64 `json:"total"`
}

func (j *OrderConfirmationJob) Handle() error {
	return mail.To(j.Email).
		Subject(fmt.Sprintf("Order #%d confirmed", j.OrderID)).
		Body(fmt.Sprintf(`<p>We received your order <strong>#%d</strong> for a total of %.2f.</p><p>We will let you know when it ships.</p>`, j.OrderID, j.Total)).
		Send()
}

// OrderStatusEmailJob notifies the buyer of a lifecycle change.
type OrderStatusEmailJob struct {
	OrderID uint   `json:"order_id"`
	Email   string `json:"email"`
	Status  string `json:"status"`
}

func (j *OrderStatusEmailJob) Handle() error {
	return mail.To(j.Email).
		Subject(fmt.Sprintf("Order #%d is now %s", j.OrderID, j.Status)).
		Body(fmt.Sprintf(`<p>Your order <strong>#%d</strong> is now <strong>%s</strong>.</p>`, j.OrderID, j.Status)).
		Send()
}
