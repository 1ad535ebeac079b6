package model

import "errors"

var (
	// ErrProductNotFound indicates an unknown product id.
	ErrProductNotFound = errors.New("inventory: product not found")
	// ErrHasHistory blocks deleting a product with lots or movements.
	ErrHasHistory = errors.New("inventory: product has lots or movements")
	// ErrInvalidQuantity indicates a quantity that is <= 0 or not finite.
	ErrInvalidQuantity = errors.New("inventory: quantity must be a positive number")
	// ErrInsufficientStock is raised only when negative stock is forbidden.
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	// ErrNoRecentImport means there is no purchase batch to revert.
	ErrNoRecentImport = errors.New("inventory: no recent import")
	// ErrLaterMovementsExist blocks a revert that is not the latest activity.
	ErrLaterMovementsExist = errors.New("inventory: later movements exist")
	// ErrInvalidFactor indicates a presentation factor <= 0 or not finite.
	ErrInvalidFactor = errors.New("inventory: presentation factor must be a positive number")
	// ErrPendingNotFound indicates an unknown or already resolved pending entry.
	ErrPendingNotFound = errors.New("inventory: pending entry not found")
	// ErrInvalidSettings indicates rejected engine settings.
	ErrInvalidSettings = errors.New("inventory: invalid settings")
	// ErrNothingToRevert means no movement carries the requested reference.
	ErrNothingToRevert = errors.New("inventory: no movements for document")
)

var (
	// ErrInvalidProduct indicates a product without a usable description.
	ErrInvalidProduct = errors.New("inventory: product description required")
	// ErrDuplicateCode indicates a product code already used by another product.
	ErrDuplicateCode = errors.New("inventory: product code already in use")
)
