package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-marketplace.git/internal/market"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PGLedger persists orders in Postgres:
//
//	orders(id TEXT PK, user_id TEXT, total_amount NUMERIC(12,2), status TEXT,
//	       shipping_address JSONB, payment_method TEXT, payment_status TEXT,
//	       created_at, updated_at)
//	order_items(order_id TEXT, position INT, product_id TEXT,
//	            quantity INT, unit_price NUMERIC(12,2),
//	            PRIMARY KEY(order_id, position))
//
// position preserves the input ordering of line items.
type PGLedger struct{ DB *pgxpool.Pool }

func (l *PGLedger) Append(ctx context.Context, o market.Order) error {
	addr, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("encode shipping address: %w", err)
	}

	tx, err := l.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, total_amount, status, shipping_address,
		                   payment_method, payment_status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		o.ID, o.UserID, o.TotalAmount.String(), string(o.Status), addr,
		string(o.PaymentMethod), string(o.PaymentStatus), o.CreatedAt, o.UpdatedAt,
	); err != nil {
		return err
	}

	for i, it := range o.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(order_id, position, product_id, quantity, unit_price)
			VALUES ($1,$2,$3,$4,$5)`,
			o.ID, i, it.ProductID, it.Quantity, it.UnitPrice.String(),
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (l *PGLedger) Get(ctx context.Context, orderID string) (market.Order, error) {
	row := l.DB.QueryRow(ctx, `
		SELECT id, user_id, total_amount::text, status, shipping_address,
		       payment_method, payment_status, created_at, updated_at
		FROM orders WHERE id=$1`, orderID)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return market.Order{}, market.ErrOrderNotFound
	}
	if err != nil {
		return market.Order{}, err
	}
	if o.Items, err = l.loadItems(ctx, orderID); err != nil {
		return market.Order{}, err
	}
	return o, nil
}

func (l *PGLedger) List(ctx context.Context, f Filter, page, limit int) ([]market.Order, error) {
	page, limit = ClampPage(page, limit)

	where := ""
	args := []any{}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where += fmt.Sprintf(" AND status=$%d", len(args))
	}
	if f.UserID != "" {
		args = append(args, f.UserID)
		where += fmt.Sprintf(" AND user_id=$%d", len(args))
	}
	args = append(args, limit, (page-1)*limit)

	rows, err := l.DB.Query(ctx, fmt.Sprintf(`
		SELECT id, user_id, total_amount::text, status, shipping_address,
		       payment_method, payment_status, created_at, updated_at
		FROM orders WHERE true%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []market.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Items, err = l.loadItems(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (l *PGLedger) SetStatus(ctx context.Context, orderID string, to market.Status) (market.Order, market.Status, error) {
	tx, err := l.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return market.Order{}, "", err
	}
	defer tx.Rollback(ctx)

	var cur string
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&cur)
	if errors.Is(err, pgx.ErrNoRows) {
		return market.Order{}, "", market.ErrOrderNotFound
	}
	if err != nil {
		return market.Order{}, "", err
	}

	from := market.Status(cur)
	if !to.Valid() || !market.CanTransition(from, to) {
		return market.Order{}, "", &market.InvalidTransitionError{From: from, To: to}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE orders SET status=$2, updated_at=GREATEST(updated_at, now())
		WHERE id=$1`, orderID, string(to)); err != nil {
		return market.Order{}, "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return market.Order{}, "", err
	}

	o, err := l.Get(ctx, orderID)
	if err != nil {
		return market.Order{}, "", err
	}
	return o, from, nil
}

func (l *PGLedger) loadItems(ctx context.Context, orderID string) ([]market.LineItem, error) {
	rows, err := l.DB.Query(ctx, `
		SELECT product_id, quantity, unit_price::text
		FROM order_items WHERE order_id=$1 ORDER BY position`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []market.LineItem
	for rows.Next() {
		var (
			it    market.LineItem
			price string
		)
		if err := rows.Scan(&it.ProductID, &it.Quantity, &price); err != nil {
			return nil, err
		}
		if it.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func scanOrder(row pgx.Row) (market.Order, error) {
	var (
		o      market.Order
		total  string
		status string
		method string
		pay    string
		addr   []byte
	)
	if err := row.Scan(&o.ID, &o.UserID, &total, &status, &addr,
		&method, &pay, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return market.Order{}, err
	}
	var err error
	if o.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return market.Order{}, err
	}
	if err := json.Unmarshal(addr, &o.ShippingAddress); err != nil {
		return market.Order{}, fmt.Errorf("decode shipping address: %w", err)
	}
	o.Status = market.Status(status)
	o.PaymentMethod = market.PaymentMethod(method)
	o.PaymentStatus = market.PaymentStatus(pay)
	return o, nil
}
