// Package orders implements the order lifecycle of one factory on top of the inventory
// repository: DRAFT → RESERVED → FULFILLED, with CANCELLED reachable from DRAFT and
// RESERVED.
package orders

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"

	"github.com/AKAPP611/al-jameel-mes/internal/inventory"
	"github.com/AKAPP611/al-jameel-mes/internal/shared"
)

// Manager is a stateless facade bound to one factory. All state lives in the repository.
type Manager struct {
	repo      *inventory.Repository
	factoryID string
	logger    *slog.Logger
	validate  *validator.Validate
	clock     func() time.Time
	suffix    func(n int) string
}

// NewManager constructs Manager.
func NewManager(repo *inventory.Repository, factoryID string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		repo:      repo,
		factoryID: factoryID,
		logger:    logger.With(slog.String("factory_id", factoryID)),
		validate:  validator.New(),
		clock:     repo.Now,
		suffix:    randomSuffix,
	}
}

// FactoryID returns the factory the manager is bound to.
func (m *Manager) FactoryID() string {
	return m.factoryID
}

// CreateOrder stores a DRAFT order priced from the current catalogue. Unknown SKUs are
// accepted and priced at zero.
func (m *Manager) CreateOrder(ctx context.Context, req CreateOrderRequest) (inventory.Order, error) {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	if err := m.validate.Struct(req); err != nil {
		return inventory.Order{}, shared.ValidationError(err)
	}
	var created inventory.Order
	_, err := m.repo.Update(ctx, m.factoryID, func(doc *inventory.StateDocument) error {
		now := m.clock()
		lines := make([]inventory.OrderLine, 0, len(req.Items))
		for _, l := range req.Items {
			lines = append(lines, inventory.OrderLine{SKU: strings.TrimSpace(l.SKU), Quantity: l.Quantity})
		}
		order := inventory.Order{
			ID:            m.uniqueOrderID(doc, now),
			FactoryID:     m.factoryID,
			CustomerName:  req.CustomerName,
			CustomerEmail: req.CustomerEmail,
			Items:         lines,
			Status:        inventory.OrderStatusDraft,
			TotalValue:    orderValue(doc, lines),
			Notes:         req.Notes,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		doc.Orders = append(doc.Orders, order)
		created = order.Clone()
		return nil
	})
	if err != nil {
		return inventory.Order{}, err
	}
	m.transitioned(created, "order created")
	return created, nil
}

// ReserveOrder reserves every line of a DRAFT order. Either all lines are reserved or the
// state is left untouched.
func (m *Manager) ReserveOrder(ctx context.Context, orderID string) (inventory.Order, error) {
	var reserved inventory.Order
	_, err := m.repo.Update(ctx, m.factoryID, func(doc *inventory.StateDocument) error {
		order := doc.Order(orderID)
		if order == nil {
			return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		if order.Status != inventory.OrderStatusDraft {
			return fmt.Errorf("%w: %s is %s", ErrCannotReserve, orderID, order.Status)
		}
		required := requiredBySKU(order.Items)
		for _, sku := range required.order {
			available := 0.0
			if rec := doc.Record(sku, ""); rec != nil {
				available = inventory.RoundQty(rec.Available())
			}
			if available < required.qty[sku] {
				return &inventory.StockShortageError{SKU: sku, Available: available, Required: required.qty[sku]}
			}
		}
		now := m.clock()
		for _, sku := range required.order {
			rec := doc.Record(sku, "")
			rec.Reserved = inventory.RoundQty(rec.Reserved + required.qty[sku])
			rec.LastUpdated = now
		}
		order.Status = inventory.OrderStatusReserved
		order.ReservedAt = &now
		order.UpdatedAt = now
		reserved = order.Clone()
		return nil
	})
	if err != nil {
		return inventory.Order{}, err
	}
	m.transitioned(reserved, "order reserved")
	return reserved, nil
}

// FulfillOrder ships a RESERVED order: stock and reservations drop by each line and one
// OUT movement per line is recorded.
func (m *Manager) FulfillOrder(ctx context.Context, orderID string, shipment ShipmentRequest) (inventory.Order, error) {
	if err := m.validate.Struct(shipment); err != nil {
		return inventory.Order{}, shared.ValidationError(err)
	}
	var fulfilled inventory.Order
	_, err := m.repo.Update(ctx, m.factoryID, func(doc *inventory.StateDocument) error {
		order := doc.Order(orderID)
		if order == nil {
			return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		if order.Status != inventory.OrderStatusReserved {
			return fmt.Errorf("%w: %s is %s", ErrCannotFulfill, orderID, order.Status)
		}
		required := requiredBySKU(order.Items)
		for _, sku := range required.order {
			qty := 0.0
			if rec := doc.Record(sku, ""); rec != nil {
				qty = rec.Qty
			}
			if qty < required.qty[sku] {
				return &inventory.StockShortageError{SKU: sku, Available: qty, Required: required.qty[sku]}
			}
		}
		now := m.clock()
		for _, line := range order.Items {
			rec := doc.Record(line.SKU, "")
			before := rec.Qty
			rec.Qty = inventory.RoundQty(before - line.Quantity)
			rec.Reserved = inventory.RoundQty(max(0, rec.Reserved-line.Quantity))
			rec.LastUpdated = now
			after := rec.Qty
			m.repo.AppendMovement(doc, inventory.Movement{
				Type:     inventory.MovementOut,
				SKU:      line.SKU,
				Quantity: line.Quantity,
				Reason:   inventory.ReasonOrderFulfillment,
				FromQty:  &before,
				ToQty:    &after,
				OrderID:  order.ID,
			})
		}
		order.Status = inventory.OrderStatusFulfilled
		order.FulfilledAt = &now
		order.UpdatedAt = now
		order.Shipment = &inventory.Shipment{
			TrackingNumber: shipment.TrackingNumber,
			Carrier:        shipment.Carrier,
			ShippedAt:      now,
		}
		fulfilled = order.Clone()
		return nil
	})
	if err != nil {
		return inventory.Order{}, err
	}
	for range fulfilled.Items {
		m.repo.Metrics().RecordMovement(m.factoryID, inventory.MovementOut)
	}
	m.transitioned(fulfilled, "order fulfilled")
	return fulfilled, nil
}

// CancelOrder cancels a DRAFT or RESERVED order. Reservations of a RESERVED order are
// released; a reservation that was reduced elsewhere is clamped at zero.
func (m *Manager) CancelOrder(ctx context.Context, orderID, reason string) (inventory.Order, error) {
	if err := m.validate.Struct(CancelRequest{Reason: reason}); err != nil {
		return inventory.Order{}, shared.ValidationError(err)
	}
	var cancelled inventory.Order
	var clamped []string
	_, err := m.repo.Update(ctx, m.factoryID, func(doc *inventory.StateDocument) error {
		clamped = clamped[:0]
		order := doc.Order(orderID)
		if order == nil {
			return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		if order.Status.Terminal() {
			return fmt.Errorf("%w: %s is %s", ErrCannotCancel, orderID, order.Status)
		}
		now := m.clock()
		if order.Status == inventory.OrderStatusReserved {
			for _, line := range order.Items {
				rec := doc.Record(line.SKU, "")
				if rec == nil {
					clamped = append(clamped, line.SKU)
					continue
				}
				if rec.Reserved < line.Quantity {
					clamped = append(clamped, line.SKU)
				}
				rec.Reserved = inventory.RoundQty(max(0, rec.Reserved-line.Quantity))
				rec.LastUpdated = now
			}
		}
		order.Status = inventory.OrderStatusCancelled
		order.CancelledAt = &now
		order.UpdatedAt = now
		order.CancellationReason = reason
		cancelled = order.Clone()
		return nil
	})
	if err != nil {
		return inventory.Order{}, err
	}
	if len(clamped) > 0 {
		m.logger.Warn("reservation release clamped at zero",
			slog.String("order_id", orderID),
			slog.Any("skus", clamped),
		)
	}
	m.transitioned(cancelled, "order cancelled")
	return cancelled, nil
}

// GetOrders lists orders matching filter, newest first.
func (m *Manager) GetOrders(ctx context.Context, filter OrderFilter) ([]inventory.Order, error) {
	doc, err := m.repo.GetState(ctx, m.factoryID)
	if err != nil {
		return nil, err
	}
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(filter.Customer))
	out := make([]inventory.Order, 0, len(doc.Orders))
	for _, o := range doc.Orders {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if needle != "" && !strings.Contains(fold.String(o.CustomerName), needle) {
			continue
		}
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// GetOrder returns one order.
func (m *Manager) GetOrder(ctx context.Context, orderID string) (inventory.Order, error) {
	doc, err := m.repo.GetState(ctx, m.factoryID)
	if err != nil {
		return inventory.Order{}, err
	}
	order := doc.Order(orderID)
	if order == nil {
		return inventory.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return *order, nil
}

func (m *Manager) transitioned(order inventory.Order, msg string) {
	m.repo.Metrics().RecordOrderTransition(m.factoryID, order.Status)
	m.logger.Info(msg,
		slog.String("order_id", order.ID),
		slog.String("status", string(order.Status)),
		slog.String("total_value", order.TotalValue.String()),
	)
}

func orderValue(doc *inventory.StateDocument, lines []inventory.OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		item, ok := doc.Item(l.SKU)
		if !ok {
			continue
		}
		total = total.Add(item.Price().Mul(decimal.NewFromFloat(l.Quantity)))
	}
	return total
}

type skuTotals struct {
	order []string
	qty   map[string]float64
}

// requiredBySKU sums line quantities per SKU, preserving first-seen order.
func requiredBySKU(lines []inventory.OrderLine) skuTotals {
	t := skuTotals{qty: make(map[string]float64, len(lines))}
	for _, l := range lines {
		if _, ok := t.qty[l.SKU]; !ok {
			t.order = append(t.order, l.SKU)
		}
		t.qty[l.SKU] = inventory.RoundQty(t.qty[l.SKU] + l.Quantity)
	}
	return t
}
