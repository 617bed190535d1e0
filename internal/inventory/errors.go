package inventory

import (
	"errors"
	"fmt"

	"github.com/AKAPP611/al-jameel-mes/internal/shared"
)

var (
	// ErrFactoryRequired indicates a blank factory id.
	ErrFactoryRequired = fmt.Errorf("inventory: factory id required: %w", shared.ErrValidation)
	// ErrInvalidQuantity indicates a zero or negative quantity.
	ErrInvalidQuantity = fmt.Errorf("inventory: quantity must be greater than zero: %w", shared.ErrValidation)
	// ErrNegativeStock indicates an inventory update with a negative qty or reservation.
	ErrNegativeStock = fmt.Errorf("inventory: negative stock not allowed: %w", shared.ErrValidation)
	// ErrSameLocation indicates a transfer whose source and destination match.
	ErrSameLocation = fmt.Errorf("inventory: source and destination location must differ: %w", shared.ErrValidation)
	// ErrNegativePrice indicates a negative unit cost or sale price.
	ErrNegativePrice = fmt.Errorf("inventory: price must not be negative: %w", shared.ErrValidation)

	// ErrItemNotFound indicates no item matched the id or sku.
	ErrItemNotFound = fmt.Errorf("inventory: item %w", shared.ErrNotFound)
	// ErrInventoryNotFound indicates no inventory record exists for the sku/location.
	ErrInventoryNotFound = fmt.Errorf("inventory: record %w", shared.ErrNotFound)

	// ErrDuplicateSKU indicates an item with the same sku already exists.
	ErrDuplicateSKU = fmt.Errorf("inventory: duplicate sku: %w", shared.ErrConflict)
	// ErrDuplicateItemID indicates an explicit item id is already taken.
	ErrDuplicateItemID = fmt.Errorf("inventory: duplicate item id: %w", shared.ErrConflict)
	// ErrInsufficientStock indicates the record holds less than requested.
	ErrInsufficientStock = fmt.Errorf("inventory: insufficient stock: %w", shared.ErrConflict)
	// ErrReservedStock indicates the change would leave less stock than is reserved.
	ErrReservedStock = fmt.Errorf("inventory: stock is reserved: %w", shared.ErrConflict)
	// ErrReservationExceedsStock indicates reserved > qty on an inventory update.
	ErrReservationExceedsStock = fmt.Errorf("inventory: reserved exceeds quantity: %w", shared.ErrConflict)

	// ErrCorruptState indicates a stored document that no longer decodes.
	ErrCorruptState = errors.New("inventory: stored state is corrupt")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("inventory: repository closed")
)
