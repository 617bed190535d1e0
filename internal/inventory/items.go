package inventory

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/AKAPP611/al-jameel-mes/internal/shared"
)

// AddItem appends a catalogue item. SKUs are unique per factory.
func (r *Repository) AddItem(ctx context.Context, factoryID string, input NewItem) (Item, error) {
	input.SKU = strings.TrimSpace(input.SKU)
	input.Name = strings.TrimSpace(input.Name)
	if err := r.validate.Struct(input); err != nil {
		return Item{}, shared.ValidationError(err)
	}
	if input.UnitCost.IsNegative() || input.SalePrice.IsNegative() {
		return Item{}, ErrNegativePrice
	}

	var created Item
	_, err := r.Update(ctx, factoryID, func(doc *StateDocument) error {
		for _, existing := range doc.Items {
			if existing.SKU == input.SKU {
				return fmt.Errorf("%w: %s", ErrDuplicateSKU, input.SKU)
			}
			if input.ID != "" && existing.ID == input.ID {
				return fmt.Errorf("%w: %s", ErrDuplicateItemID, input.ID)
			}
		}
		item := Item{
			ID:        input.ID,
			SKU:       input.SKU,
			Name:      input.Name,
			Type:      input.Type,
			UOM:       input.UOM,
			UnitCost:  input.UnitCost,
			SalePrice: input.SalePrice,
			MinStock:  input.MinStock,
			MaxStock:  input.MaxStock,
			Status:    input.Status,
			CreatedAt: r.clock(),
		}
		if item.ID == "" {
			item.ID = r.newID()
		}
		if item.Status == "" {
			item.Status = ItemStatusActive
		}
		doc.Items = append(doc.Items, item)
		created = item
		return nil
	})
	if err != nil {
		return Item{}, err
	}
	return created.Clone(), nil
}

// UpdateItem merges non-nil fields into the item whose id or sku equals ref.
func (r *Repository) UpdateItem(ctx context.Context, factoryID, ref string, upd ItemUpdate) (Item, error) {
	if err := r.validate.Struct(upd); err != nil {
		return Item{}, shared.ValidationError(err)
	}
	if negative(upd.UnitCost) || negative(upd.SalePrice) {
		return Item{}, ErrNegativePrice
	}

	var updated Item
	_, err := r.Update(ctx, factoryID, func(doc *StateDocument) error {
		idx := -1
		for i := range doc.Items {
			if doc.Items[i].ID == ref || doc.Items[i].SKU == ref {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrItemNotFound, ref)
		}
		item := &doc.Items[idx]
		if upd.Name != nil {
			item.Name = strings.TrimSpace(*upd.Name)
		}
		if upd.Type != nil {
			item.Type = *upd.Type
		}
		if upd.UOM != nil {
			item.UOM = *upd.UOM
		}
		if upd.UnitCost != nil {
			item.UnitCost = *upd.UnitCost
		}
		if upd.SalePrice != nil {
			item.SalePrice = *upd.SalePrice
		}
		if upd.MinStock != nil {
			item.MinStock = *upd.MinStock
		}
		if upd.MaxStock != nil {
			item.MaxStock = *upd.MaxStock
		}
		if upd.Status != nil {
			item.Status = *upd.Status
		}
		now := r.clock()
		item.UpdatedAt = &now
		updated = item.Clone()
		return nil
	})
	if err != nil {
		return Item{}, err
	}
	return updated, nil
}

// UpdateInventory sets qty and/or reserved on the record for (sku, location), creating
// it with zero quantity when absent. Unspecified fields keep their values.
func (r *Repository) UpdateInventory(ctx context.Context, factoryID, sku string, upd InventoryUpdate) (InventoryRecord, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return InventoryRecord{}, fmt.Errorf("%w: sku required", shared.ErrValidation)
	}
	if invalidStock(upd.Qty) || invalidStock(upd.Reserved) {
		return InventoryRecord{}, ErrNegativeStock
	}

	var result InventoryRecord
	_, err := r.Update(ctx, factoryID, func(doc *StateDocument) error {
		rec := doc.Record(sku, upd.Location)
		if rec == nil {
			doc.Inventory = append(doc.Inventory, InventoryRecord{
				SKU:       sku,
				Location:  upd.Location,
				FactoryID: factoryID,
			})
			rec = &doc.Inventory[len(doc.Inventory)-1]
		}
		if upd.Qty != nil {
			rec.Qty = RoundQty(*upd.Qty)
		}
		if upd.Reserved != nil {
			rec.Reserved = RoundQty(*upd.Reserved)
		}
		if rec.Reserved > rec.Qty {
			return fmt.Errorf("%w: %s reserved %s of %s", ErrReservationExceedsStock, sku, FormatQty(rec.Reserved), FormatQty(rec.Qty))
		}
		rec.LastUpdated = r.clock()
		result = *rec
		return nil
	})
	if err != nil {
		return InventoryRecord{}, err
	}
	return result, nil
}

// AddMovement appends a ledger entry without touching balances. Stock operations call
// this path internally; use it directly for imported history.
func (r *Repository) AddMovement(ctx context.Context, factoryID string, input NewMovement) (Movement, error) {
	if err := r.validate.Struct(input); err != nil {
		return Movement{}, shared.ValidationError(err)
	}
	var created Movement
	_, err := r.Update(ctx, factoryID, func(doc *StateDocument) error {
		created = r.appendMovement(doc, Movement{
			Type:         input.Type,
			SKU:          input.SKU,
			Quantity:     input.Quantity,
			Reason:       input.Reason,
			FromQty:      cloneFloat(input.FromQty),
			ToQty:        cloneFloat(input.ToQty),
			FromLocation: input.FromLocation,
			ToLocation:   input.ToLocation,
			OrderID:      input.OrderID,
			Notes:        input.Notes,
		})
		return nil
	})
	if err != nil {
		return Movement{}, err
	}
	r.metrics.RecordMovement(factoryID, created.Type)
	return created.Clone(), nil
}

// AppendMovement stamps m with an id, factory and timestamp and appends it to doc.
// Callers must be inside Update.
func (r *Repository) AppendMovement(doc *StateDocument, m Movement) Movement {
	return r.appendMovement(doc, m)
}

func (r *Repository) appendMovement(doc *StateDocument, m Movement) Movement {
	m.ID = r.newID()
	m.FactoryID = doc.FactoryID
	m.Timestamp = r.clock()
	doc.Movements = append(doc.Movements, m)
	return m
}

func negative(d *decimal.Decimal) bool {
	return d != nil && d.IsNegative()
}

func invalidStock(v *float64) bool {
	return v != nil && (*v < 0 || math.IsNaN(*v) || math.IsInf(*v, 0))
}
