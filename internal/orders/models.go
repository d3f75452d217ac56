package orders

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// UnitsPerPrice is the pack size price_per_1000 refers to.
const UnitsPerPrice = 1000

// MaxQuantity is the largest stock or order quantity the ledger columns hold.
const MaxQuantity = math.MaxInt32

type Availability string

const (
	AvailabilityUntracked  Availability = "untracked"
	AvailabilityInStock    Availability = "in_stock"
	AvailabilityOutOfStock Availability = "out_of_stock"
)

// AvailabilityOf derives availability from a quantity; nil means untracked.
func AvailabilityOf(qty *int) Availability {
	switch {
	case qty == nil:
		return AvailabilityUntracked
	case *qty <= 0:
		return AvailabilityOutOfStock
	default:
		return AvailabilityInStock
	}
}

type Product struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Size             string          `json:"size"`
	Color            string          `json:"color"`
	ThicknessMicrons *int            `json:"thickness_microns"`
	PricePer1000     decimal.Decimal `json:"price_per_1000"`
	Quantity         *int            `json:"quantity"` // nil = untracked
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (p Product) Availability() Availability { return AvailabilityOf(p.Quantity) }

func (p Product) OutOfStock() bool { return p.Availability() == AvailabilityOutOfStock }

// PriceFor returns the order total for qty units, rounded to cents.
func (p Product) PriceFor(qty int) decimal.Decimal {
	return p.PricePer1000.
		Mul(decimal.NewFromInt(int64(qty))).
		Div(decimal.NewFromInt(UnitsPerPrice)).
		Round(2)
}

// ProductView is the catalog presentation of a product.
type ProductView struct {
	Product
	Availability Availability `json:"availability"`
	Orderable    bool         `json:"orderable"`
}

func ViewOf(p Product) ProductView {
	return ProductView{Product: p, Availability: p.Availability(), Orderable: !p.OutOfStock()}
}

type NewProduct struct {
	Name             string           `json:"name"`
	Size             string           `json:"size"`
	Color            string           `json:"color"`
	ThicknessMicrons *int             `json:"thickness_microns"`
	PricePer1000     *decimal.Decimal `json:"price_per_1000"` // required
	Quantity         *int             `json:"quantity"`
}

// Price is the submitted price, zero when none was sent.
func (np NewProduct) Price() decimal.Decimal {
	if np.PricePer1000 == nil {
		return decimal.Zero
	}
	return *np.PricePer1000
}

// ProductPatch carries only the fields to change.
type ProductPatch struct {
	Name             *string          `json:"name"`
	Size             *string          `json:"size"`
	Color            *string          `json:"color"`
	ThicknessMicrons *int             `json:"thickness_microns"`
	PricePer1000     *decimal.Decimal `json:"price_per_1000"`
	Quantity         *int             `json:"quantity"`
}

func (p ProductPatch) Apply(to *Product) {
	if p.Name != nil {
		to.Name = *p.Name
	}
	if p.Size != nil {
		to.Size = *p.Size
	}
	if p.Color != nil {
		to.Color = *p.Color
	}
	if p.ThicknessMicrons != nil {
		v := *p.ThicknessMicrons
		to.ThicknessMicrons = &v
	}
	if p.PricePer1000 != nil {
		to.PricePer1000 = *p.PricePer1000
	}
	if p.Quantity != nil {
		v := *p.Quantity
		to.Quantity = &v
	}
}

// ContactSnapshot is copied onto the order at placement and never refreshed.
type ContactSnapshot struct {
	Email string `json:"customer_email"`
	Phone string `json:"customer_phone"`
}

type Order struct {
	ID             string          `json:"id"`
	ProductID      string          `json:"product_id"`
	BuyerID        string          `json:"user_id"`
	Quantity       int             `json:"quantity"`
	Status         Status          `json:"status"`
	NotifiedAdmins bool            `json:"notified_admins"`
	Contact        ContactSnapshot `json:"contact"`
	Total          decimal.Decimal `json:"total"`
	IdempotencyKey string          `json:"-"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// OrderView is an order joined with its product name for the staff listing.
type OrderView struct {
	Order
	ProductName string `json:"product_name"`
}

// ProductLabel is the display name for productID, falling back when the product is gone.
func ProductLabel(productID string, names map[string]string) string {
	if n, ok := names[productID]; ok {
		return n
	}
	return fmt.Sprintf("Product ID: %s", productID)
}

type SortOrder int

const (
	NewestFirst SortOrder = iota
	OldestFirst
)

type OrderFilter struct {
	BuyerID        string
	UnnotifiedOnly bool
	Status         Status
	Sort           SortOrder
}

// Matches reports whether o passes the filter (sort is ignored).
func (f OrderFilter) Matches(o Order) bool {
	if f.BuyerID != "" && o.BuyerID != f.BuyerID {
		return false
	}
	if f.UnnotifiedOnly && o.NotifiedAdmins {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	return true
}

// Profile is user-editable contact data. It carries no privilege signal.
type Profile struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	DisplayName  string    `json:"display_name"`
	ContactEmail string    `json:"contact_email"`
	ContactPhone string    `json:"contact_phone"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type StaffContact struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

// StaffContactOf builds the buyer-facing contact card for a staff profile.
func StaffContactOf(p Profile) StaffContact {
	c := StaffContact{
		DisplayName: p.DisplayName,
		Email:       firstNonEmpty(p.ContactEmail, p.Email),
		Phone:       firstNonEmpty(p.ContactPhone, p.Phone),
	}
	if c.DisplayName == "" {
		c.DisplayName = firstNonEmpty(c.Email, "Staff")
	}
	return c
}

type AlertKind string

const (
	AlertNewOrder    AlertKind = "new_order"
	AlertOutOfStock  AlertKind = "out_of_stock"
	AlertBackInStock AlertKind = "back_in_stock"
)

// StaffAlert is one entry of the staff alert feed.
type StaffAlert struct {
	EventID   string    `json:"event_id"`
	Kind      AlertKind `json:"kind"`
	OrderID   string    `json:"order_id,omitempty"`
	ProductID string    `json:"product_id,omitempty"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
