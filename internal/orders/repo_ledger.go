package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type LedgerRepo struct{ DB *pgxpool.Pool }

const orderColumns = `id, product_id, buyer_id, quantity, status, notified_admins,
	customer_email, customer_phone, total::text, idempotency_key, created_at, updated_at`

func scanOrder(row rowScanner) (Order, error) {
	var (
		o      Order
		status string
		total  string
		idem   *string
	)
	err := row.Scan(&o.ID, &o.ProductID, &o.BuyerID, &o.Quantity, &status, &o.NotifiedAdmins,
		&o.Contact.Email, &o.Contact.Phone, &total, &idem, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	o.Status = Status(status)
	if idem != nil {
		o.IdempotencyKey = *idem
	}
	if o.Total, err = decimal.NewFromString(total); err != nil {
		return Order{}, fmt.Errorf("order %s: bad total %q: %w", o.ID, total, err)
	}
	return o, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *LedgerRepo) GetOrder(ctx context.Context, id string) (Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

func (r *LedgerRepo) FindOrderByIdempotencyKey(ctx context.Context, buyerID, key string) (Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE buyer_id=$1 AND idempotency_key=$2`, buyerID, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

func (r *LedgerRepo) ListOrders(ctx context.Context, f OrderFilter) ([]Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE true`
	var args []any
	if f.BuyerID != "" {
		args = append(args, f.BuyerID)
		q += fmt.Sprintf(" AND buyer_id=$%d", len(args))
	}
	if f.UnnotifiedOnly {
		q += " AND notified_admins = false"
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		q += fmt.Sprintf(" AND status=$%d", len(args))
	}
	if f.Sort == OldestFirst {
		q += " ORDER BY seq ASC"
	} else {
		q += " ORDER BY seq DESC"
	}

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// InsertOrder: optional stock decrement (row lock FOR UPDATE -> conditional update) and the
// order insert share one transaction. Any rejection rolls both back.
func (r *LedgerRepo) InsertOrder(ctx context.Context, o Order, decrementStock bool) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if decrementStock {
		var stock *int
		err := tx.QueryRow(ctx, `SELECT quantity FROM products WHERE id=$1 FOR UPDATE`, o.ProductID).Scan(&stock)
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrProductNotFound
		}
		if err != nil {
			return Order{}, err
		}
		if stock != nil {
			if *stock < o.Quantity {
				return Order{}, Reject(KindInsufficientStock, "only %d units left", max(*stock, 0))
			}
			ct, err := tx.Exec(ctx, `
				UPDATE products SET quantity = quantity - $2, updated_at = now()
				WHERE id=$1 AND quantity >= $2`, o.ProductID, o.Quantity)
			if err != nil {
				return Order{}, err
			}
			if ct.RowsAffected() != 1 {
				return Order{}, ErrInsufficientStock
			}
		}
	}

	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	created, err := scanOrder(tx.QueryRow(ctx, `
		INSERT INTO orders(id, product_id, buyer_id, quantity, status, notified_admins,
		                   customer_email, customer_phone, total, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::numeric, $10)
		ON CONFLICT (buyer_id, idempotency_key) DO NOTHING
		RETURNING `+orderColumns,
		o.ID, o.ProductID, o.BuyerID, o.Quantity, string(o.Status), o.NotifiedAdmins,
		o.Contact.Email, o.Contact.Phone, o.Total.String(), nullable(o.IdempotencyKey),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrDuplicateOrder
	}
	if err != nil {
		return Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return created, nil
}

func (r *LedgerRepo) TransitionStatus(ctx context.Context, id string, from, to Status) (Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `
		UPDATE orders SET status=$3, updated_at=now()
		WHERE id=$1 AND status=$2
		RETURNING `+orderColumns, id, string(from), string(to)))
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Order{}, err
	}

	// lost the compare-and-set: tell missing apart from moved-on
	var cur string
	err = r.DB.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1`, id).Scan(&cur)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	return Order{}, Reject(KindInvalidTransition, "order is %s, expected %s", cur, from)
}

func (r *LedgerRepo) CountUnnotified(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE notified_admins = false`).Scan(&n)
	return n, err
}

// MarkAllNotified flips every currently unnotified order in one statement.
func (r *LedgerRepo) MarkAllNotified(ctx context.Context) (int, error) {
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET notified_admins = true, updated_at = now() WHERE notified_admins = false`)
	if err != nil {
		return 0, err
	}
	return int(ct.RowsAffected()), nil
}
