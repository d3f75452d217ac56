package memstore

import (
	"context"
	"sync"

	"github.com/ariefcatur/bagstore/internal/orders"
)

// Alerts is a capped in-process staff alert feed, newest first.
type Alerts struct {
	Size int

	mu   sync.Mutex
	list []orders.StaffAlert
}

func (a *Alerts) Push(_ context.Context, al orders.StaffAlert) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.list = append([]orders.StaffAlert{al}, a.list...)
	if a.Size > 0 && len(a.list) > a.Size {
		a.list = a.list[:a.Size]
	}
	return nil
}

func (a *Alerts) Recent(_ context.Context, n int) ([]orders.StaffAlert, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n <= 0 || n > len(a.list) {
		n = len(a.list)
	}
	out := make([]orders.StaffAlert, n)
	copy(out, a.list[:n])
	return out, nil
}
