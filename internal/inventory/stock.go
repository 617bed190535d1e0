package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
)

// AddStock raises the default-location balance of sku and records an IN movement.
func (r *Repository) AddStock(ctx context.Context, factoryID, sku string, qty float64, reason string) (Movement, error) {
	if !ValidQuantity(qty) {
		return Movement{}, ErrInvalidQuantity
	}
	if reason == "" {
		reason = ReasonManualAdd
	}
	var mv Movement
	_, err := r.Update(ctx, factoryID, func(doc *StateDocument) error {
		rec := doc.Record(sku, "")
		if rec == nil {
			return fmt.Errorf("%w: %s", ErrInventoryNotFound, sku)
		}
		before := rec.Qty
		rec.Qty = RoundQty(before + qty)
		rec.LastUpdated = r.clock()
		mv = r.appendMovement(doc, Movement{
			Type:     MovementIn,
			SKU:      sku,
			Quantity: qty,
			Reason:   reason,
			FromQty:  floatPtr(before),
			ToQty:    floatPtr(rec.Qty),
		})
		return nil
	})
	if err != nil {
		return Movement{}, err
	}
	r.recordStockChange(factoryID, mv)
	return mv.Clone(), nil
}

// RemoveStock lowers the default-location balance of sku and records an OUT movement.
// Reserved stock cannot be removed.
func (r *Repository) RemoveStock(ctx context.Context, factoryID, sku string, qty float64, reason string) (Movement, error) {
	if !ValidQuantity(qty) {
		return Movement{}, ErrInvalidQuantity
	}
	if reason == "" {
		reason = ReasonManualRemove
	}
	var mv Movement
	_, err := r.Update(ctx, factoryID, func(doc *StateDocument) error {
		rec := doc.Record(sku, "")
		if rec == nil {
			return fmt.Errorf("%w: %s", ErrInventoryNotFound, sku)
		}
		if err := checkWithdrawal(rec, qty); err != nil {
			return err
		}
		before := rec.Qty
		rec.Qty = RoundQty(math.Max(0, before-qty))
		rec.LastUpdated = r.clock()
		mv = r.appendMovement(doc, Movement{
			Type:     MovementOut,
			SKU:      sku,
			Quantity: qty,
			Reason:   reason,
			FromQty:  floatPtr(before),
			ToQty:    floatPtr(rec.Qty),
		})
		return nil
	})
	if err != nil {
		return Movement{}, err
	}
	r.recordStockChange(factoryID, mv)
	return mv.Clone(), nil
}

// TransferStock moves qty of sku between two locations of one factory. The destination
// record is created when missing.
func (r *Repository) TransferStock(ctx context.Context, factoryID, sku string, qty float64, from, to, reason string) (Movement, error) {
	if !ValidQuantity(qty) {
		return Movement{}, ErrInvalidQuantity
	}
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == to {
		return Movement{}, ErrSameLocation
	}
	if reason == "" {
		reason = ReasonTransfer
	}
	var mv Movement
	_, err := r.Update(ctx, factoryID, func(doc *StateDocument) error {
		src := doc.Record(sku, from)
		if src == nil {
			return fmt.Errorf("%w: %s at %q", ErrInventoryNotFound, sku, from)
		}
		if err := checkWithdrawal(src, qty); err != nil {
			return err
		}
		now := r.clock()
		before := src.Qty
		src.Qty = RoundQty(before - qty)
		src.LastUpdated = now

		dst := doc.Record(sku, to)
		if dst == nil {
			doc.Inventory = append(doc.Inventory, InventoryRecord{SKU: sku, Location: to, FactoryID: factoryID})
			dst = &doc.Inventory[len(doc.Inventory)-1]
		}
		dst.Qty = RoundQty(dst.Qty + qty)
		dst.LastUpdated = now

		mv = r.appendMovement(doc, Movement{
			Type:         MovementTransfer,
			SKU:          sku,
			Quantity:     qty,
			Reason:       reason,
			FromLocation: from,
			ToLocation:   to,
		})
		return nil
	})
	if err != nil {
		return Movement{}, err
	}
	r.recordStockChange(factoryID, mv)
	return mv.Clone(), nil
}

func checkWithdrawal(rec *InventoryRecord, qty float64) error {
	if rec.Qty < qty {
		return &StockShortageError{SKU: rec.SKU, Available: rec.Qty, Required: qty}
	}
	if rec.Qty-qty < rec.Reserved {
		return fmt.Errorf("%w: %s has %s reserved of %s", ErrReservedStock, rec.SKU, FormatQty(rec.Reserved), FormatQty(rec.Qty))
	}
	return nil
}

func (r *Repository) recordStockChange(factoryID string, mv Movement) {
	r.metrics.RecordMovement(factoryID, mv.Type)
	r.logger.Debug("stock movement",
		slog.String("factory_id", factoryID),
		slog.String("sku", mv.SKU),
		slog.String("type", string(mv.Type)),
		slog.Float64("quantity", mv.Quantity),
	)
}
