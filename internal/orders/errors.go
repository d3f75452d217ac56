package orders

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores when a row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateOrder is returned by LedgerStore.InsertOrder when (buyer, idempotency key) already exists.
var ErrDuplicateOrder = errors.New("order already exists")

type Kind string

const (
	KindUnauthenticated   Kind = "UNAUTHENTICATED"
	KindForbidden         Kind = "FORBIDDEN"
	KindInvalidQuantity   Kind = "INVALID_QUANTITY"
	KindInvalidProduct    Kind = "INVALID_PRODUCT"
	KindProductNotFound   Kind = "PRODUCT_NOT_FOUND"
	KindOrderNotFound     Kind = "ORDER_NOT_FOUND"
	KindInsufficientStock Kind = "INSUFFICIENT_STOCK"
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	KindStoreUnavailable  Kind = "STORE_UNAVAILABLE"

	KindIdempotencyConflict Kind = "IDEMPOTENCY_CONFLICT"
)

var defaultReasons = map[Kind]string{
	KindUnauthenticated:   "please sign in to continue",
	KindForbidden:         "staff privileges required",
	KindInvalidQuantity:   "quantity must be a positive whole number",
	KindInvalidProduct:    "product needs a name and a non-negative price",
	KindProductNotFound:   "product does not exist",
	KindOrderNotFound:     "order does not exist",
	KindInsufficientStock: "not enough stock for this order",
	KindInvalidTransition: "order cannot move to that status",
	KindStoreUnavailable:  "store is temporarily unavailable, try again",

	KindIdempotencyConflict: "idempotency key was already used for a different order",
}

// Error is a typed rejection. Reason is safe to show to the caller.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrInsufficientStock) works
// regardless of the reason text.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrUnauthenticated   = &Error{Kind: KindUnauthenticated, Reason: defaultReasons[KindUnauthenticated]}
	ErrForbidden         = &Error{Kind: KindForbidden, Reason: defaultReasons[KindForbidden]}
	ErrInvalidQuantity   = &Error{Kind: KindInvalidQuantity, Reason: defaultReasons[KindInvalidQuantity]}
	ErrInvalidProduct    = &Error{Kind: KindInvalidProduct, Reason: defaultReasons[KindInvalidProduct]}
	ErrProductNotFound   = &Error{Kind: KindProductNotFound, Reason: defaultReasons[KindProductNotFound]}
	ErrOrderNotFound     = &Error{Kind: KindOrderNotFound, Reason: defaultReasons[KindOrderNotFound]}
	ErrInsufficientStock = &Error{Kind: KindInsufficientStock, Reason: defaultReasons[KindInsufficientStock]}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition, Reason: defaultReasons[KindInvalidTransition]}
	ErrStoreUnavailable  = &Error{Kind: KindStoreUnavailable, Reason: defaultReasons[KindStoreUnavailable]}

	ErrIdempotencyConflict = &Error{Kind: KindIdempotencyConflict, Reason: defaultReasons[KindIdempotencyConflict]}
)

// Reject builds an *Error of kind with a formatted reason.
func Reject(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Unavailable wraps a backing-store failure. Typed errors pass through untouched.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindStoreUnavailable, Reason: defaultReasons[KindStoreUnavailable], Err: err}
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ReasonOf returns the caller-facing reason of err.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return defaultReasons[KindStoreUnavailable]
}
