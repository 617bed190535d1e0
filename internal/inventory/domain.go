package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemType classifies catalogue items.
type ItemType string

const (
	ItemTypeRaw       ItemType = "raw"
	ItemTypeFinished  ItemType = "finished"
	ItemTypePackaging ItemType = "packaging"
	ItemTypeByproduct ItemType = "byproduct"
)

// ItemStatusActive is the default status of new items.
const ItemStatusActive = "active"

// MovementType enumerates supported inventory movements.
type MovementType string

const (
	// MovementIn represents an inbound movement.
	MovementIn MovementType = "IN"
	// MovementOut represents an outbound movement.
	MovementOut MovementType = "OUT"
	// MovementTransfer moves stock between locations of one factory.
	MovementTransfer MovementType = "TRANSFER"
)

// Reasons recorded on movements when the caller supplies none.
const (
	ReasonManualAdd        = "manual_add"
	ReasonManualRemove     = "manual_remove"
	ReasonTransfer         = "transfer"
	ReasonOrderFulfillment = "order_fulfillment"
)

// OrderStatus is the order lifecycle state.
type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "DRAFT"
	OrderStatusReserved  OrderStatus = "RESERVED"
	OrderStatusFulfilled OrderStatus = "FULFILLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Terminal reports whether no transition leaves the status.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusFulfilled || s == OrderStatusCancelled
}

// StateDocument is the unit of persistence and consistency: one per factory.
type StateDocument struct {
	FactoryID   string            `json:"factoryId"`
	Items       []Item            `json:"items"`
	Inventory   []InventoryRecord `json:"inventory"`
	Movements   []Movement        `json:"movements"`
	Orders      []Order           `json:"orders"`
	Locations   []Location        `json:"locations"`
	CreatedAt   time.Time         `json:"createdAt"`
	LastUpdated time.Time         `json:"lastUpdated"`
}

// Item is a catalogue entry keyed by SKU.
type Item struct {
	ID        string          `json:"id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Type      ItemType        `json:"type,omitempty"`
	UOM       string          `json:"uom,omitempty"`
	UnitCost  decimal.Decimal `json:"unitCost"`
	SalePrice decimal.Decimal `json:"salePrice"`
	MinStock  float64         `json:"minStock,omitempty"`
	MaxStock  float64         `json:"maxStock,omitempty"`
	Status    string          `json:"status,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
}

// Price returns the sale price, falling back to unit cost when no sale price is set.
func (i Item) Price() decimal.Decimal {
	if !i.SalePrice.IsZero() {
		return i.SalePrice
	}
	return i.UnitCost
}

// InventoryRecord is the balance of one SKU at one location. An empty Location is the
// factory's default location.
type InventoryRecord struct {
	SKU         string    `json:"sku"`
	Qty         float64   `json:"qty"`
	Reserved    float64   `json:"reserved"`
	Location    string    `json:"location,omitempty"`
	FactoryID   string    `json:"factoryId,omitempty"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Available is the quantity not held by reservations.
func (r InventoryRecord) Available() float64 {
	return r.Qty - r.Reserved
}

// Movement is an immutable ledger entry.
type Movement struct {
	ID           string       `json:"id"`
	Type         MovementType `json:"type"`
	SKU          string       `json:"sku"`
	Quantity     float64      `json:"quantity"`
	Reason       string       `json:"reason,omitempty"`
	FromQty      *float64     `json:"fromQty,omitempty"`
	ToQty        *float64     `json:"toQty,omitempty"`
	FromLocation string       `json:"fromLocation,omitempty"`
	ToLocation   string       `json:"toLocation,omitempty"`
	OrderID      string       `json:"orderId,omitempty"`
	Notes        string       `json:"notes,omitempty"`
	FactoryID    string       `json:"factoryId"`
	Timestamp    time.Time    `json:"timestamp"`
}

// OrderLine is a requested SKU quantity.
type OrderLine struct {
	SKU      string  `json:"sku"`
	Quantity float64 `json:"quantity"`
}

// Shipment describes how a fulfilled order left the factory.
type Shipment struct {
	TrackingNumber string    `json:"trackingNumber"`
	Carrier        string    `json:"carrier"`
	ShippedAt      time.Time `json:"shippedAt"`
}

// Order is a customer order moving through DRAFT → RESERVED → FULFILLED, or CANCELLED.
type Order struct {
	ID                 string          `json:"id"`
	FactoryID          string          `json:"factoryId"`
	CustomerName       string          `json:"customerName"`
	CustomerEmail      string          `json:"customerEmail,omitempty"`
	Items              []OrderLine     `json:"items"`
	Status             OrderStatus     `json:"status"`
	TotalValue         decimal.Decimal `json:"totalValue"`
	Notes              string          `json:"notes"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
	ReservedAt         *time.Time      `json:"reservedAt,omitempty"`
	FulfilledAt        *time.Time      `json:"fulfilledAt,omitempty"`
	CancelledAt        *time.Time      `json:"cancelledAt,omitempty"`
	CancellationReason string          `json:"cancellationReason,omitempty"`
	Shipment           *Shipment       `json:"shipment,omitempty"`
}

// Location is an opaque descriptor of a storage place inside a factory.
type Location struct {
	Code string `json:"code"`
	Name string `json:"name,omitempty"`
	Kind string `json:"kind,omitempty"`
}

// NewItem is the typed request for AddItem.
type NewItem struct {
	ID        string          `json:"id"`
	SKU       string          `json:"sku" validate:"required,max=64"`
	Name      string          `json:"name" validate:"required,max=200"`
	Type      ItemType        `json:"type" validate:"omitempty,oneof=raw finished packaging byproduct"`
	UOM       string          `json:"uom" validate:"max=20"`
	UnitCost  decimal.Decimal `json:"unitCost"`
	SalePrice decimal.Decimal `json:"salePrice"`
	MinStock  float64         `json:"minStock" validate:"gte=0"`
	MaxStock  float64         `json:"maxStock" validate:"gte=0"`
	Status    string          `json:"status" validate:"max=32"`
}

// ItemUpdate merges non-nil fields into an item. The SKU is the item's identity and
// cannot be changed.
type ItemUpdate struct {
	Name      *string          `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Type      *ItemType        `json:"type,omitempty" validate:"omitempty,oneof=raw finished packaging byproduct"`
	UOM       *string          `json:"uom,omitempty" validate:"omitempty,max=20"`
	UnitCost  *decimal.Decimal `json:"unitCost,omitempty"`
	SalePrice *decimal.Decimal `json:"salePrice,omitempty"`
	MinStock  *float64         `json:"minStock,omitempty" validate:"omitempty,gte=0"`
	MaxStock  *float64         `json:"maxStock,omitempty" validate:"omitempty,gte=0"`
	Status    *string          `json:"status,omitempty" validate:"omitempty,max=32"`
}

// InventoryUpdate upserts the record keyed by (sku, Location).
type InventoryUpdate struct {
	Location string   `json:"location"`
	Qty      *float64 `json:"qty,omitempty"`
	Reserved *float64 `json:"reserved,omitempty"`
}

// NewMovement is the typed request for AddMovement.
type NewMovement struct {
	Type         MovementType `json:"type" validate:"required,oneof=IN OUT TRANSFER"`
	SKU          string       `json:"sku" validate:"required"`
	Quantity     float64      `json:"quantity" validate:"gt=0"`
	Reason       string       `json:"reason"`
	FromQty      *float64     `json:"fromQty,omitempty"`
	ToQty        *float64     `json:"toQty,omitempty"`
	FromLocation string       `json:"fromLocation"`
	ToLocation   string       `json:"toLocation"`
	OrderID      string       `json:"orderId"`
	Notes        string       `json:"notes"`
}
