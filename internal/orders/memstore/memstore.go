// Package memstore is an in-process implementation of the catalog, ledger and profile stores.
// It backs STORE_DRIVER=memory and the service tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/bagstore/internal/orders"
	"github.com/google/uuid"
)

type productRow struct {
	seq int64
	p   orders.Product
}

type orderRow struct {
	seq int64
	o   orders.Order
}

// Store satisfies orders.CatalogStore, orders.LedgerStore and orders.ProfileStore.
// One mutex guards everything, so InsertOrder with a decrement is atomic.
type Store struct {
	mu       sync.Mutex
	seq      int64
	products map[string]*productRow
	orders   map[string]*orderRow
	profiles map[string]orders.Profile
	staff    map[string]time.Time

	// Now is the clock; tests may pin it.
	Now func() time.Time
}

var (
	_ orders.CatalogStore = (*Store)(nil)
	_ orders.LedgerStore  = (*Store)(nil)
	_ orders.ProfileStore = (*Store)(nil)
)

func New() *Store {
	return &Store{
		products: map[string]*productRow{},
		orders:   map[string]*orderRow{},
		profiles: map[string]orders.Profile{},
		staff:    map[string]time.Time{},
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) next() int64 {
	s.seq++
	return s.seq
}

func cloneProduct(p orders.Product) orders.Product {
	if p.Quantity != nil {
		q := *p.Quantity
		p.Quantity = &q
	}
	if p.ThicknessMicrons != nil {
		t := *p.ThicknessMicrons
		p.ThicknessMicrons = &t
	}
	return p
}

// PutProduct inserts p with its own id; for fixtures that need stable ids.
func (s *Store) PutProduct(p orders.Product) orders.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := s.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	s.products[p.ID] = &productRow{seq: s.next(), p: cloneProduct(p)}
	return cloneProduct(p)
}

func (s *Store) GetProduct(_ context.Context, id string) (orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.products[id]
	if !ok {
		return orders.Product{}, orders.ErrNotFound
	}
	return cloneProduct(row.p), nil
}

func (s *Store) ListProducts(_ context.Context) ([]orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]*productRow, 0, len(s.products))
	for _, r := range s.products {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })
	out := make([]orders.Product, 0, len(rows))
	for _, r := range rows {
		out = append(out, cloneProduct(r.p))
	}
	return out, nil
}

func (s *Store) InsertProduct(_ context.Context, np orders.NewProduct) (orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.Now()
	p := cloneProduct(orders.Product{
		ID:               uuid.NewString(),
		Name:             np.Name,
		Size:             np.Size,
		Color:            np.Color,
		ThicknessMicrons: np.ThicknessMicrons,
		PricePer1000:     np.Price(),
		Quantity:         np.Quantity,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	s.products[p.ID] = &productRow{seq: s.next(), p: p}
	return cloneProduct(p), nil
}

func (s *Store) UpdateProduct(_ context.Context, id string, patch orders.ProductPatch) (orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.products[id]
	if !ok {
		return orders.Product{}, orders.ErrNotFound
	}
	patch.Apply(&row.p)
	row.p.UpdatedAt = s.Now()
	return cloneProduct(row.p), nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return orders.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *Store) GetOrder(_ context.Context, id string) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	return row.o, nil
}

func (s *Store) FindOrderByIdempotencyKey(_ context.Context, buyerID, key string) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key == "" {
		return orders.Order{}, orders.ErrNotFound
	}
	for _, row := range s.orders {
		if row.o.BuyerID == buyerID && row.o.IdempotencyKey == key {
			return row.o, nil
		}
	}
	return orders.Order{}, orders.ErrNotFound
}

func (s *Store) ListOrders(_ context.Context, f orders.OrderFilter) ([]orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []*orderRow
	for _, r := range s.orders {
		if f.Matches(r.o) {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if f.Sort == orders.OldestFirst {
			return rows[i].seq < rows[j].seq
		}
		return rows[i].seq > rows[j].seq
	})
	out := make([]orders.Order, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.o)
	}
	return out, nil
}

func (s *Store) InsertOrder(_ context.Context, o orders.Order, decrementStock bool) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o.IdempotencyKey != "" {
		for _, row := range s.orders {
			if row.o.BuyerID == o.BuyerID && row.o.IdempotencyKey == o.IdempotencyKey {
				return orders.Order{}, orders.ErrDuplicateOrder
			}
		}
	}

	if decrementStock {
		row, ok := s.products[o.ProductID]
		if !ok {
			return orders.Order{}, orders.ErrProductNotFound
		}
		if q := row.p.Quantity; q != nil {
			if *q < o.Quantity {
				return orders.Order{}, orders.Reject(orders.KindInsufficientStock, "only %d units left", max(*q, 0))
			}
			left := *q - o.Quantity
			row.p.Quantity = &left
			row.p.UpdatedAt = s.Now()
		}
	}

	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	now := s.Now()
	o.CreatedAt, o.UpdatedAt = now, now
	s.orders[o.ID] = &orderRow{seq: s.next(), o: o}
	return o, nil
}

func (s *Store) TransitionStatus(_ context.Context, id string, from, to orders.Status) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	if row.o.Status != from {
		return orders.Order{}, orders.Reject(orders.KindInvalidTransition, "order is %s, expected %s", row.o.Status, from)
	}
	row.o.Status = to
	row.o.UpdatedAt = s.Now()
	return row.o, nil
}

func (s *Store) CountUnnotified(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.orders {
		if !r.o.NotifiedAdmins {
			n++
		}
	}
	return n, nil
}

func (s *Store) MarkAllNotified(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	now := s.Now()
	for _, r := range s.orders {
		if !r.o.NotifiedAdmins {
			r.o.NotifiedAdmins = true
			r.o.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (s *Store) GetProfile(_ context.Context, userID string) (orders.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return orders.Profile{}, orders.ErrNotFound
	}
	return p, nil
}

func (s *Store) UpsertProfile(_ context.Context, p orders.Profile) (orders.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.UpdatedAt = s.Now()
	s.profiles[p.UserID] = p
	return p, nil
}

func (s *Store) ListStaffContacts(_ context.Context) ([]orders.StaffContact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.staff))
	for id := range s.staff {
		if _, ok := s.profiles[id]; ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		if !s.staff[ids[i]].Equal(s.staff[ids[j]]) {
			return s.staff[ids[i]].Before(s.staff[ids[j]])
		}
		return ids[i] < ids[j]
	})
	out := make([]orders.StaffContact, 0, len(ids))
	for _, id := range ids {
		out = append(out, orders.StaffContactOf(s.profiles[id]))
	}
	return out, nil
}

func (s *Store) IsStaff(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.staff[userID]
	return ok, nil
}

func (s *Store) GrantStaff(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.staff[userID]; !ok {
		s.staff[userID] = s.Now()
	}
	return nil
}

func (s *Store) RevokeStaff(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.staff[userID]; !ok {
		return orders.ErrNotFound
	}
	delete(s.staff, userID)
	return nil
}
