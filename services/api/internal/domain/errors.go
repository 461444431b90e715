package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidID           = errors.New("invalid id")
	ErrUserRequired        = errors.New("user id required")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrInvalidAddress      = errors.New("invalid address")
	ErrVariantNotFound     = errors.New("variant not found")
	ErrInvalidDiscountCode = errors.New("invalid discount code")

	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrIntentNotFound      = errors.New("order intent not found")
	ErrIntentAlreadyActive = errors.New("order intent already active")
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrIntentNoLongerValid = errors.New("order intent no longer valid")
	ErrOrderNotFound       = errors.New("order not found")

	ErrLockSetMismatch   = errors.New("inventory locks do not match cart snapshot")
	ErrStockCommitFailed = errors.New("stock commit failed")
)

// InsufficientStockError names the variant that could not be reserved.
type InsufficientStockError struct {
	VariantID string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for variant %s", e.VariantID)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// TransitionError reports a state change that is not legal from the current status.
type TransitionError struct {
	From IntentStatus
	To   IntentStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
