package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type CatalogRepo struct{ DB *pgxpool.Pool }

const productColumns = `id, name, size, color, thickness_microns, price_per_1000::text, quantity, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var (
		p     Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Size, &p.Color, &p.ThicknessMicrons, &price, &p.Quantity, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Product{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return Product{}, fmt.Errorf("product %s: bad price %q: %w", p.ID, price, err)
	}
	p.PricePer1000 = d
	return p, nil
}

func (r *CatalogRepo) GetProduct(ctx context.Context, id string) (Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (r *CatalogRepo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY seq DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *CatalogRepo) InsertProduct(ctx context.Context, np NewProduct) (Product, error) {
	return scanProduct(r.DB.QueryRow(ctx, `
		INSERT INTO products(id, name, size, color, thickness_microns, price_per_1000, quantity)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7)
		RETURNING `+productColumns,
		uuid.NewString(), np.Name, np.Size, np.Color, np.ThicknessMicrons, np.Price().String(), np.Quantity,
	))
}

// UpdateProduct builds the SET list from the non-nil patch fields.
func (r *CatalogRepo) UpdateProduct(ctx context.Context, id string, patch ProductPatch) (Product, error) {
	sets := []string{"updated_at = now()"}
	args := []any{id}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Size != nil {
		add("size", *patch.Size)
	}
	if patch.Color != nil {
		add("color", *patch.Color)
	}
	if patch.ThicknessMicrons != nil {
		add("thickness_microns", *patch.ThicknessMicrons)
	}
	if patch.PricePer1000 != nil {
		args = append(args, patch.PricePer1000.String())
		sets = append(sets, fmt.Sprintf("price_per_1000 = $%d::numeric", len(args)))
	}
	if patch.Quantity != nil {
		add("quantity", *patch.Quantity)
	}

	p, err := scanProduct(r.DB.QueryRow(ctx,
		`UPDATE products SET `+strings.Join(sets, ", ")+` WHERE id=$1 RETURNING `+productColumns, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

// DeleteProduct is a hard delete; orders keep their product_id.
func (r *CatalogRepo) DeleteProduct(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
