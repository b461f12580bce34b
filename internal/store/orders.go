package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Order is the persisted order header. Totals are computed once at creation
// and never recomputed.
type Order struct {
	ID             pgtype.UUID
	Status         string
	Currency       string
	Subtotal       int64
	Shipping       int64
	Total          int64
	TaxIncluded    int64
	ShippingMethod string
	Contact        []byte
	Address        []byte
	Notes          pgtype.Text
	CreatedAt      pgtype.Timestamptz
}

// OrderItem is one persisted order line with its immutable display snapshot.
type OrderItem struct {
	ID        pgtype.UUID
	OrderID   pgtype.UUID
	Kind      string
	VariantID pgtype.UUID
	ConfigID  pgtype.UUID
	Qty       int32
	UnitPrice int64
	LineTotal int64
	Snapshot  []byte
}

// CreateOrderParams carries the insert values for an order header.
type CreateOrderParams struct {
	Status         string
	Currency       string
	Subtotal       int64
	Shipping       int64
	Total          int64
	TaxIncluded    int64
	ShippingMethod string
	Contact        []byte
	Address        []byte
	Notes          pgtype.Text
}

// CreateOrderItemParams carries the insert values for one order item.
type CreateOrderItemParams struct {
	OrderID   pgtype.UUID
	Kind      string
	VariantID pgtype.UUID
	ConfigID  pgtype.UUID
	Qty       int32
	UnitPrice int64
	LineTotal int64
	Snapshot  []byte
}

// CreateOrder inserts an order header and returns the stored row.
func (s *Store) CreateOrder(ctx context.Context, p CreateOrderParams) (Order, error) {
	row := s.db.QueryRow(ctx, `INSERT INTO orders
(status, currency, subtotal, shipping, total, tax_included, shipping_method, contact, address, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id, status, currency, subtotal, shipping, total, tax_included, shipping_method, contact, address, notes, created_at`,
		p.Status, p.Currency, p.Subtotal, p.Shipping, p.Total, p.TaxIncluded, p.ShippingMethod, p.Contact, p.Address, p.Notes)
	var o Order
	err := row.Scan(&o.ID, &o.Status, &o.Currency, &o.Subtotal, &o.Shipping, &o.Total, &o.TaxIncluded,
		&o.ShippingMethod, &o.Contact, &o.Address, &o.Notes, &o.CreatedAt)
	return o, err
}

// CreateOrderItem inserts one order item row.
func (s *Store) CreateOrderItem(ctx context.Context, p CreateOrderItemParams) error {
	_, err := s.db.Exec(ctx, `INSERT INTO order_items
(order_id, kind, variant_id, config_id, qty, unit_price, line_total, snapshot)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.OrderID, p.Kind, p.VariantID, p.ConfigID, p.Qty, p.UnitPrice, p.LineTotal, p.Snapshot)
	return err
}

// CreateOrderWithItems inserts the header and all item rows in a single
// transaction. A failed item insert rolls the header back so an order can
// never be left without its lines.
func (s *Store) CreateOrderWithItems(ctx context.Context, pool *pgxpool.Pool, p CreateOrderParams, items []CreateOrderItemParams) (Order, error) {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	qtx := s.WithTx(tx)
	ord, err := qtx.CreateOrder(ctx, p)
	if err != nil {
		return Order{}, err
	}
	for _, item := range items {
		item.OrderID = ord.ID
		if err := qtx.CreateOrderItem(ctx, item); err != nil {
			return Order{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return ord, nil
}

// GetOrderByID loads one order header.
func (s *Store) GetOrderByID(ctx context.Context, id pgtype.UUID) (Order, error) {
	row := s.db.QueryRow(ctx, `SELECT id, status, currency, subtotal, shipping, total, tax_included, shipping_method, contact, address, notes, created_at
FROM orders
WHERE id = $1`, id)
	var o Order
	err := row.Scan(&o.ID, &o.Status, &o.Currency, &o.Subtotal, &o.Shipping, &o.Total, &o.TaxIncluded,
		&o.ShippingMethod, &o.Contact, &o.Address, &o.Notes, &o.CreatedAt)
	return o, err
}

// ListOrderItemsByOrder returns the items of an order in insertion order.
func (s *Store) ListOrderItemsByOrder(ctx context.Context, orderID pgtype.UUID) ([]OrderItem, error) {
	rows, err := s.db.Query(ctx, `SELECT id, order_id, kind, variant_id, config_id, qty, unit_price, line_total, snapshot
FROM order_items
WHERE order_id = $1
ORDER BY seq`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.Kind, &it.VariantID, &it.ConfigID, &it.Qty, &it.UnitPrice, &it.LineTotal, &it.Snapshot); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ListOrders returns recent orders, newest first.
func (s *Store) ListOrders(ctx context.Context, limit, offset int32) ([]Order, error) {
	rows, err := s.db.Query(ctx, `SELECT id, status, currency, subtotal, shipping, total, tax_included, shipping_method, contact, address, notes, created_at
FROM orders
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.Status, &o.Currency, &o.Subtotal, &o.Shipping, &o.Total, &o.TaxIncluded,
			&o.ShippingMethod, &o.Contact, &o.Address, &o.Notes, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// CountOrders returns the total number of orders.
func (s *Store) CountOrders(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM orders`).Scan(&total)
	return total, err
}
