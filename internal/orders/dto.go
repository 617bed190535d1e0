package orders

import "github.com/AKAPP611/al-jameel-mes/internal/inventory"

type CreateOrderRequest struct {
	CustomerName  string             `json:"customerName" validate:"required,max=200"`
	CustomerEmail string             `json:"customerEmail" validate:"omitempty,email"`
	Items         []OrderLineRequest `json:"items" validate:"required,min=1,dive"`
	Notes         string             `json:"notes" validate:"max=2000"`
}

type OrderLineRequest struct {
	SKU      string  `json:"sku" validate:"required,max=64"`
	Quantity float64 `json:"quantity" validate:"required,gt=0"`
}

type ShipmentRequest struct {
	TrackingNumber string `json:"trackingNumber" validate:"max=100"`
	Carrier        string `json:"carrier" validate:"max=100"`
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// OrderFilter narrows GetOrders. Zero values match everything; Customer is a
// case-insensitive substring of the customer name.
type OrderFilter struct {
	Status   inventory.OrderStatus `json:"status,omitempty"`
	Customer string                `json:"customer,omitempty"`
}
