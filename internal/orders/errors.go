package orders

import (
	"fmt"

	"github.com/AKAPP611/al-jameel-mes/internal/inventory"
	"github.com/AKAPP611/al-jameel-mes/internal/shared"
)

var (
	// ErrOrderNotFound indicates no order with the id exists in the factory.
	ErrOrderNotFound = fmt.Errorf("orders: order %w", shared.ErrNotFound)
	// ErrCannotReserve indicates the order is not in DRAFT.
	ErrCannotReserve = fmt.Errorf("orders: only draft orders can be reserved: %w", shared.ErrConflict)
	// ErrCannotFulfill indicates the order is not in RESERVED.
	ErrCannotFulfill = fmt.Errorf("orders: only reserved orders can be fulfilled: %w", shared.ErrConflict)
	// ErrCannotCancel indicates the order already reached a terminal status.
	ErrCannotCancel = fmt.Errorf("orders: order can no longer be cancelled: %w", shared.ErrConflict)
	// ErrInsufficientStock indicates a line cannot be covered; the concrete error is an
	// *inventory.StockShortageError.
	ErrInsufficientStock = inventory.ErrInsufficientStock
	// ErrValidation indicates a malformed request.
	ErrValidation = shared.ErrValidation
)
