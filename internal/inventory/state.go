package inventory

import (
	"fmt"
	"math"
	"time"
)

// Clone returns a deep copy that shares no mutable memory with d.
func (d StateDocument) Clone() StateDocument {
	out := d
	out.Items = make([]Item, len(d.Items))
	for i, item := range d.Items {
		out.Items[i] = item.Clone()
	}
	out.Inventory = append(make([]InventoryRecord, 0, len(d.Inventory)), d.Inventory...)
	out.Movements = make([]Movement, len(d.Movements))
	for i, m := range d.Movements {
		out.Movements[i] = m.Clone()
	}
	out.Orders = make([]Order, len(d.Orders))
	for i, o := range d.Orders {
		out.Orders[i] = o.Clone()
	}
	out.Locations = append(make([]Location, 0, len(d.Locations)), d.Locations...)
	return out
}

// Clone returns a deep copy of the item.
func (i Item) Clone() Item {
	i.UpdatedAt = cloneTime(i.UpdatedAt)
	return i
}

// Clone returns a deep copy of the movement.
func (m Movement) Clone() Movement {
	m.FromQty = cloneFloat(m.FromQty)
	m.ToQty = cloneFloat(m.ToQty)
	return m
}

// Clone returns a deep copy of the order.
func (o Order) Clone() Order {
	o.Items = append(make([]OrderLine, 0, len(o.Items)), o.Items...)
	o.ReservedAt = cloneTime(o.ReservedAt)
	o.FulfilledAt = cloneTime(o.FulfilledAt)
	o.CancelledAt = cloneTime(o.CancelledAt)
	if o.Shipment != nil {
		s := *o.Shipment
		o.Shipment = &s
	}
	return o
}

// Item looks an item up by sku.
func (d *StateDocument) Item(sku string) (Item, bool) {
	for _, item := range d.Items {
		if item.SKU == sku {
			return item, true
		}
	}
	return Item{}, false
}

// Record returns the inventory record for (sku, location), or nil.
func (d *StateDocument) Record(sku, location string) *InventoryRecord {
	for i := range d.Inventory {
		if d.Inventory[i].SKU == sku && d.Inventory[i].Location == location {
			return &d.Inventory[i]
		}
	}
	return nil
}

// Order returns the order with id, or nil.
func (d *StateDocument) Order(id string) *Order {
	for i := range d.Orders {
		if d.Orders[i].ID == id {
			return &d.Orders[i]
		}
	}
	return nil
}

// normalize replaces nil collections so documents always encode as empty arrays.
func (d *StateDocument) normalize(factoryID string) {
	d.FactoryID = factoryID
	if d.Items == nil {
		d.Items = []Item{}
	}
	if d.Inventory == nil {
		d.Inventory = []InventoryRecord{}
	}
	if d.Movements == nil {
		d.Movements = []Movement{}
	}
	if d.Orders == nil {
		d.Orders = []Order{}
	}
	if d.Locations == nil {
		d.Locations = []Location{}
	}
}

func emptyState(factoryID string, now time.Time) StateDocument {
	doc := StateDocument{CreatedAt: now, LastUpdated: now}
	doc.normalize(factoryID)
	return doc
}

// StockShortageError reports a line that cannot be served from available stock.
type StockShortageError struct {
	SKU       string
	Available float64
	Required  float64
}

func (e *StockShortageError) Error() string {
	return fmt.Sprintf("Insufficient stock for %s. Available: %s, Required: %s", e.SKU, FormatQty(e.Available), FormatQty(e.Required))
}

// Unwrap lets errors.Is match ErrInsufficientStock.
func (e *StockShortageError) Unwrap() error {
	return ErrInsufficientStock
}

// FormatQty renders a quantity without trailing zeros.
func FormatQty(v float64) string {
	return fmt.Sprintf("%g", RoundQty(v))
}

// RoundQty trims float drift from quantity arithmetic.
func RoundQty(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// ValidQuantity reports whether q is a finite positive quantity.
func ValidQuantity(q float64) bool {
	return q > 0 && !math.IsInf(q, 0) && !math.IsNaN(q)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}
