package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is the postgres-backed order Store.
type PGStore struct{ DB *pgxpool.Pool }

// Insert writes the order and all its items in one transaction: the single
// atomic aggregate write.
func (s *PGStore) Insert(ctx context.Context, o Order) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, customer_name, customer_email, customer_phone, shipping_address,
		                   status, total_amount, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		o.ID, o.CustomerName, o.CustomerEmail, o.CustomerPhone, o.ShippingAddress,
		o.Status, o.TotalAmount, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return err
	}

	for i, it := range o.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items(order_id, position, product_id, product_name, quantity, price, subtotal)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			o.ID, i, it.ProductID, it.ProductName, it.Quantity, it.Price, it.Subtotal,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *PGStore) Get(ctx context.Context, id string) (Order, error) {
	var o Order
	err := s.DB.QueryRow(ctx, `
		SELECT id, customer_name, customer_email, customer_phone, shipping_address,
		       status, total_amount, created_at, updated_at
		FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone, &o.ShippingAddress,
			&o.Status, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("order %s: %w", id, ErrOrderNotFound)
	}
	if err != nil {
		return Order{}, err
	}

	rows, err := s.DB.Query(ctx, `
		SELECT product_id, product_name, quantity, price, subtotal
		FROM order_items WHERE order_id=$1 ORDER BY position`, id)
	if err != nil {
		return Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ProductID, &it.ProductName, &it.Quantity, &it.Price, &it.Subtotal); err != nil {
			return Order{}, err
		}
		o.Items = append(o.Items, it)
	}
	return o, rows.Err()
}

func (s *PGStore) List(ctx context.Context) ([]Order, error) {
	return s.list(ctx, `SELECT id FROM orders ORDER BY created_at`)
}

func (s *PGStore) ListByStatus(ctx context.Context, status Status) ([]Order, error) {
	return s.list(ctx, `SELECT id FROM orders WHERE status=$1 ORDER BY created_at`, status)
}

func (s *PGStore) ListByEmail(ctx context.Context, email string) ([]Order, error) {
	return s.list(ctx, `SELECT id FROM orders WHERE customer_email=$1 ORDER BY created_at`, email)
}

func (s *PGStore) list(ctx context.Context, q string, args ...any) ([]Order, error) {
	rows, err := s.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Order, 0, len(ids))
	for _, id := range ids {
		o, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *PGStore) UpdateStatus(ctx context.Context, id string, status Status) error {
	ct, err := s.DB.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("order %s: %w", id, ErrOrderNotFound)
	}
	return nil
}
