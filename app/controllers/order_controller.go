package controllers

import (
	"net/http"

	"github.com/adityaraj/bazario/app/models"
	"github.com/adityaraj/bazario/app/services"
	"github.com/adityaraj/bazario/pkg/bind"
	"github.com/adityaraj/bazario/pkg/response"
	"github.com/adityaraj/bazario/pkg/validate"
)

// OrderController covers placement, reads, and the status lifecycle.
type OrderController struct {
	orders *services.OrderService
	auth   *services.AuthService
}

func NewOrderController(orders *services.OrderService, auth *services.AuthService) *OrderController {
	return &OrderController{orders: orders, auth: auth}
}

type placeOrderRequest struct {
	Items         []services.CartLine `json:"items"`
	PaymentMethod string              `json:"payment_method" validate:"required,in=card,upi,netbanking,cod"`
}

func (c *OrderController) Place(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, c.auth)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	var body placeOrderRequest
	if errs, err := bind.JSON(r, &body); err != nil {
		response.FromError(w, r, err)
		return
	} else if validate.HasErrors(errs) {
		response.ValidationError(w, errs)
		return
	}

	order, err := c.orders.PlaceOrder(r.Context(), user.ID, body.Items, body.PaymentMethod)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Created(w, order)
}

func (c *OrderController) Get(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, c.auth)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	id, err := paramUint(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	order, err := c.orders.GetOrder(r.Context(), id, user)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Success(w, order)
}

// ListMine returns a page of the caller's own orders.
func (c *OrderController) ListMine(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, c.auth)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	page, limit := pageParams(r)
	orders, p, err := c.orders.ListMine(r.Context(), user.ID, page, limit)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Paginated(w, orders, p)
}

// ListAll returns a page of every order. Mounted behind the admin guard.
func (c *OrderController) ListAll(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	orders, p, err := c.orders.ListAll(r.Context(), page, limit)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Paginated(w, orders, p)
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateStatus applies one lifecycle transition. The service decides what
// the caller may do: owners can only cancel, admins can apply any legal move.
func (c *OrderController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, c.auth)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	id, err := paramUint(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	var body updateStatusRequest
	if errs, err := bind.JSON(r, &body); err != nil {
		response.FromError(w, r, err)
		return
	} else if validate.HasErrors(errs) {
		response.ValidationError(w, errs)
		return
	}

	order, err := c.orders.UpdateStatus(r.Context(), id, body.Status, user)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Success(w, order)
}

// Cancel is shorthand for a cancellation transition on the caller's order.
func (c *OrderController) Cancel(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, c.auth)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	id, err := paramUint(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	order, err := c.orders.UpdateStatus(r.Context(), id, models.StatusCancelled, user)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Success(w, order)
}
