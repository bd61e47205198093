package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-marketplace.git/internal/market"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PGStore backs the contract with Postgres row locks:
//
//	products(id TEXT PK, seller_id TEXT, price NUMERIC(12,2),
//	         stock INT, active BOOL, created_at, updated_at)
//
// SELECT ... FOR UPDATE serializes concurrent reserves on the same product
// while rows for other products stay unlocked.
type PGStore struct{ DB *pgxpool.Pool }

func (s *PGStore) Get(ctx context.Context, productID string) (market.Product, error) {
	var (
		p     market.Product
		price string
	)
	err := s.DB.QueryRow(ctx, `
		SELECT id, seller_id, price::text, stock, active, created_at, updated_at
		FROM products WHERE id=$1`, productID).
		Scan(&p.ID, &p.SellerID, &price, &p.Stock, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return market.Product{}, market.ErrProductNotFound
	}
	if err != nil {
		return market.Product{}, err
	}
	p.Price, err = decimal.NewFromString(price)
	if err != nil {
		return market.Product{}, fmt.Errorf("parse price for product %s: %w", productID, err)
	}
	return p, nil
}

func (s *PGStore) Reserve(ctx context.Context, productID string, qty int) (Snapshot, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Snapshot{}, err
	}
	defer tx.Rollback(ctx)

	var (
		sellerID string
		price    string
		stock    int
		active   bool
	)
	err = tx.QueryRow(ctx, `
		SELECT seller_id, price::text, stock, active
		FROM products WHERE id=$1 FOR UPDATE`, productID).
		Scan(&sellerID, &price, &stock, &active)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, &market.ProductUnavailableError{ProductID: productID, Reason: market.ErrProductNotFound}
	}
	if err != nil {
		return Snapshot{}, err
	}
	if !active {
		return Snapshot{}, &market.ProductUnavailableError{ProductID: productID, Reason: market.ErrProductInactive}
	}
	if stock < qty {
		return Snapshot{}, &market.InsufficientStockError{ProductID: productID, Requested: qty, Available: stock}
	}

	unitPrice, err := decimal.NewFromString(price)
	if err != nil {
		return Snapshot{}, fmt.Errorf("parse price for product %s: %w", productID, err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id=$1`, productID, qty); err != nil {
		return Snapshot{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Snapshot{}, err
	}
	return Snapshot{ProductID: productID, SellerID: sellerID, UnitPrice: unitPrice}, nil
}

func (s *PGStore) Release(ctx context.Context, productID string, qty int) error {
	// Additive; zero rows affected means the product vanished, which a
	// compensation path can safely ignore.
	_, err := s.DB.Exec(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id=$1`, productID, qty)
	return err
}
