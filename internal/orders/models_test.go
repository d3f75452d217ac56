package orders

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int { return &v }

func TestAvailabilityIsDerivedFromQuantity(t *testing.T) {
	assert.Equal(t, AvailabilityUntracked, AvailabilityOf(nil))
	assert.Equal(t, AvailabilityOutOfStock, AvailabilityOf(intp(0)))
	assert.Equal(t, AvailabilityOutOfStock, AvailabilityOf(intp(-3)))
	assert.Equal(t, AvailabilityInStock, AvailabilityOf(intp(1)))

	for _, q := range []int{-5, -1, 0, 1, 500} {
		p := Product{Quantity: intp(q)}
		assert.Equal(t, q <= 0, p.OutOfStock(), "quantity %d", q)
		assert.Equal(t, q > 0, ViewOf(p).Orderable, "quantity %d", q)
	}
	assert.True(t, ViewOf(Product{}).Orderable, "untracked is always orderable")
}

func TestPriceForIsPerThousandUnits(t *testing.T) {
	p := Product{PricePer1000: decimal.RequireFromString("12.50")}

	assert.Equal(t, "25", p.PriceFor(2000).String())
	assert.Equal(t, "0.01", p.PriceFor(1).String())
	assert.True(t, p.PriceFor(0).IsZero())
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusPaid))
	assert.True(t, CanTransition(StatusPending, StatusCancelled))
	assert.True(t, CanTransition(StatusPaid, StatusFulfilled))

	assert.False(t, CanTransition(StatusPaid, StatusCancelled))
	assert.False(t, CanTransition(StatusPending, StatusFulfilled))
	for _, s := range []Status{StatusFulfilled, StatusCancelled} {
		assert.True(t, s.Terminal())
		assert.False(t, CanTransition(s, StatusPending), "%s must not go back to pending", s)
	}
	assert.False(t, Status("shipped").Valid())
}

func TestProductLabelFallsBack(t *testing.T) {
	names := map[string]string{"P1": "Trash bags 60L"}

	assert.Equal(t, "Trash bags 60L", ProductLabel("P1", names))
	assert.Equal(t, "Product ID: P9", ProductLabel("P9", names))
}

func TestStaffContactOf(t *testing.T) {
	c := StaffContactOf(Profile{Email: "ops@example.com", ContactPhone: "+1 555"})
	assert.Equal(t, StaffContact{DisplayName: "ops@example.com", Email: "ops@example.com", Phone: "+1 555"}, c)

	c = StaffContactOf(Profile{DisplayName: "Dana", ContactEmail: "dana@example.com", Email: "d@example.com"})
	assert.Equal(t, "dana@example.com", c.Email)
	assert.Equal(t, "Dana", c.DisplayName)

	assert.Equal(t, "Staff", StaffContactOf(Profile{}).DisplayName)
}

func TestErrorKindsMatchWithErrorsIs(t *testing.T) {
	err := fmt.Errorf("place: %w", Reject(KindInsufficientStock, "only %d units left", 3))

	assert.True(t, errors.Is(err, ErrInsufficientStock))
	assert.False(t, errors.Is(err, ErrInvalidQuantity))
	assert.Equal(t, KindInsufficientStock, KindOf(err))
	assert.Equal(t, "only 3 units left", ReasonOf(err))
}

func TestUnavailableWrapsOnlyUntypedErrors(t *testing.T) {
	assert.NoError(t, Unavailable(nil))

	raw := errors.New("connection refused")
	wrapped := Unavailable(raw)
	require.ErrorIs(t, wrapped, ErrStoreUnavailable)
	assert.ErrorIs(t, wrapped, raw)

	assert.Same(t, ErrProductNotFound, Unavailable(ErrProductNotFound))
}

func TestReasonsAreDistinctPerKind(t *testing.T) {
	seen := map[string]Kind{}
	for k, r := range defaultReasons {
		prev, dup := seen[r]
		assert.False(t, dup, "%s and %s share a reason", k, prev)
		seen[r] = k
	}
}

func TestOrderFilterMatches(t *testing.T) {
	o := Order{BuyerID: "U1", Status: StatusPending}

	assert.True(t, OrderFilter{}.Matches(o))
	assert.True(t, OrderFilter{BuyerID: "U1", UnnotifiedOnly: true}.Matches(o))
	assert.False(t, OrderFilter{BuyerID: "U2"}.Matches(o))
	assert.False(t, OrderFilter{Status: StatusPaid}.Matches(o))

	o.NotifiedAdmins = true
	assert.False(t, OrderFilter{UnnotifiedOnly: true}.Matches(o))
}
