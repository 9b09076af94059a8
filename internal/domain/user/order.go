package user

import "time"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	// OrderStatusDraft marks an order that exists only in memory.
	OrderStatusDraft OrderStatus = "draft"
)

// Order represents an order placed on behalf of a user.
// There is no order store; orders are never persisted.
type Order struct {
	UserID    int64
	Status    OrderStatus
	CreatedAt time.Time
}

// NewDraftOrder creates an in-memory draft order for u.
func NewDraftOrder(u *User) Order {
	o := Order{
		Status:    OrderStatusDraft,
		CreatedAt: time.Now().UTC(),
	}
	if u != nil {
		o.UserID = u.ID
	}
	return o
}
