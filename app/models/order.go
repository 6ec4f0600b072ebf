package models

import "gorm.io/gorm"

// Order lifecycle states.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
)

// Accepted payment methods.
var PaymentMethods = []string{"card", "upi", "netbanking", "cod"}

// statusTransitions enumerates the legal next states per current state.
// Delivered and cancelled are terminal.
var statusTransitions = map[string][]string{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusCancelled},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// Order is a placed order. TotalAmount is derived at creation from the
// frozen line prices and is never edited independently.
type Order struct {
	gorm.Model
	UserID        uint        `gorm:"not null;index" json:"user_id"`
	Items         []OrderItem `gorm:"constraint:OnDelete:CASCADE"  json:"items"`
	TotalAmount   float64     `gorm:"not null" json:"total_amount"`
	Status        string      `gorm:"size:50;not null;default:pending" json:"status"`
	PaymentMethod string      `gorm:"size:50;not null" json:"payment_method"`
}

// OrderItem is one line of an order. UnitPrice is the catalogue price at the
// moment the order was placed; later repricing or deletion of the product
// never changes it.
type OrderItem struct {
	gorm.Model
	OrderID   uint    `gorm:"not null;index" json:"-"`
	ProductID uint    `gorm:"not null" json:"product_id"`
	Quantity  int     `gorm:"not null" json:"quantity"`
	UnitPrice float64 `gorm:"not null" json:"unit_price"`
}

// ValidStatus reports whether s is a known order status.
func ValidStatus(s string) bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Cancellable reports whether the owner may still cancel an order in this
// state. Owners can back out while the order is pending or processing;
// anything later needs an admin.
func Cancellable(status string) bool {
	return status == StatusPending || status == StatusProcessing
}

// ValidPaymentMethod reports whether m is one of the accepted methods.
func ValidPaymentMethod(m string) bool {
	for _, pm := range PaymentMethods {
		if pm == m {
			return true
		}
	}
	return false
}
