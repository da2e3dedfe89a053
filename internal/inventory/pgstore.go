package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is the postgres-backed Store.
type PGStore struct{ DB *pgxpool.Pool }

const productCols = `id, sku, name, description, price, stock, active, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *PGStore) Insert(ctx context.Context, p Product) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO products(id, sku, name, description, price, stock, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		p.ID, p.SKU, p.Name, p.Description, p.Price, p.Stock, p.Active, p.CreatedAt, p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("sku %s: %w", p.SKU, ErrDuplicateSKU)
	}
	return err
}

func (s *PGStore) Get(ctx context.Context, id string) (Product, error) {
	p, err := scanProduct(s.DB.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("product %s: %w", id, ErrProductNotFound)
	}
	return p, err
}

func (s *PGStore) GetBySKU(ctx context.Context, sku string) (Product, error) {
	p, err := scanProduct(s.DB.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE sku=$1`, sku))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("sku %s: %w", sku, ErrProductNotFound)
	}
	return p, err
}

func (s *PGStore) List(ctx context.Context, activeOnly bool) ([]Product, error) {
	q := `SELECT ` + productCols + ` FROM products ORDER BY sku`
	if activeOnly {
		q = `SELECT ` + productCols + ` FROM products WHERE active ORDER BY sku`
	}
	rows, err := s.DB.Query(ctx, q)
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

func (s *PGStore) Update(ctx context.Context, p Product) error {
	ct, err := s.DB.Exec(ctx, `
		UPDATE products SET sku=$2, name=$3, description=$4, price=$5, active=$6, updated_at=$7
		WHERE id=$1`,
		p.ID, p.SKU, p.Name, p.Description, p.Price, p.Active, p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("sku %s: %w", p.SKU, ErrDuplicateSKU)
	}
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("product %s: %w", p.ID, ErrProductNotFound)
	}
	return nil
}

func (s *PGStore) SetActive(ctx context.Context, id string, active bool) error {
	ct, err := s.DB.Exec(ctx, `UPDATE products SET active=$2, updated_at=now() WHERE id=$1`, id, active)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("product %s: %w", id, ErrProductNotFound)
	}
	return nil
}

// AdjustStock locks the row (FOR UPDATE), checks the result would stay
// non-negative, then writes. The row lock mirrors the in-process product
// lock for multi-instance deployments.
func (s *PGStore) AdjustStock(ctx context.Context, id string, delta int) (int, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var stock int
	err = tx.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1 FOR UPDATE`, id).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("product %s: %w", id, ErrProductNotFound)
	}
	if err != nil {
		return 0, err
	}

	next := stock + delta
	if next < 0 {
		return stock, &StockShortage{ProductID: id, Available: stock, Requested: -delta}
	}
	if _, err := tx.Exec(ctx, `UPDATE products SET stock=$2, updated_at=now() WHERE id=$1`, id, next); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return next, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
