package orders

import "context"

// CatalogStore is CRUD over products. ListProducts returns newest first.
type CatalogStore interface {
	GetProduct(ctx context.Context, id string) (Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
	InsertProduct(ctx context.Context, p NewProduct) (Product, error)
	UpdateProduct(ctx context.Context, id string, patch ProductPatch) (Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// LedgerStore holds orders. There is no delete.
type LedgerStore interface {
	GetOrder(ctx context.Context, id string) (Order, error)
	FindOrderByIdempotencyKey(ctx context.Context, buyerID, key string) (Order, error)
	ListOrders(ctx context.Context, f OrderFilter) ([]Order, error)

	// InsertOrder persists o. With decrementStock the product's tracked quantity is reduced by
	// o.Quantity in the same transaction; ErrInsufficientStock (and no write) when it would go
	// negative, ErrProductNotFound when the product vanished.
	InsertOrder(ctx context.Context, o Order, decrementStock bool) (Order, error)

	// TransitionStatus sets status to `to` only if it is currently `from`.
	TransitionStatus(ctx context.Context, id string, from, to Status) (Order, error)

	CountUnnotified(ctx context.Context) (int, error)
	MarkAllNotified(ctx context.Context) (int, error)
}

// ProfileStore holds user contact data and the staff membership table.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (Profile, error)
	UpsertProfile(ctx context.Context, p Profile) (Profile, error)
	ListStaffContacts(ctx context.Context) ([]StaffContact, error)

	IsStaff(ctx context.Context, userID string) (bool, error)
	GrantStaff(ctx context.Context, userID string) error
	RevokeStaff(ctx context.Context, userID string) error
}
