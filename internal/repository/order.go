package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seoulglow/kbeauty-store/internal/domain/auth"
	"github.com/seoulglow/kbeauty-store/internal/domain/order"
	"github.com/seoulglow/kbeauty-store/internal/domain/product"
)

const (
	orderColumns = `o.id, o.user_id, o.status, o.total_amount, o.shipping_address,
		o.stripe_session_id, o.created_at, o.updated_at,
		u.id, u.name, u.email, u.role`

	getOrderSQL = `SELECT ` + orderColumns + `
	FROM orders o JOIN users u ON u.id = o.user_id
	WHERE o.id = $1`

	// $1 is an empty string to list every order.
	listOrdersSQL = `SELECT ` + orderColumns + `
	FROM orders o JOIN users u ON u.id = o.user_id
	WHERE $1 = '' OR o.user_id = $1
	ORDER BY o.created_at DESC, o.id`

	listItemsSQL = `SELECT i.id, i.order_id, i.product_id, i.quantity, i.price,
		p.id, p.name, p.brand, p.price, p.images, p.category, p.stock, p.is_vegan, p.is_cruelty_free
	FROM order_items i JOIN products p ON p.id = i.product_id
	WHERE i.order_id = ANY($1)
	ORDER BY i.order_id, i.id`

	updateOrderStatusSQL = `UPDATE orders SET status = $3, updated_at = now()
	WHERE id = $1 AND status = $2
	RETURNING updated_at`

	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`

	createOrderSQL = `INSERT INTO orders
		(id, user_id, status, total_amount, shipping_address, stripe_session_id, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`

	createOrderItemSQL = `INSERT INTO order_items (id, order_id, product_id, quantity, price)
	VALUES ($1, $2, $3, $4, $5)`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Get returns the order with its customer and items-with-product resolved.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}

	orders := []order.Order{o}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// List returns orders newest first with relations resolved.
func (r *OrderRepository) List(ctx context.Context, filter order.ListFilter) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL, filter.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatus performs a compare-and-set on the status column.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to order.Status) (time.Time, error) {
	var updatedAt time.Time
	err := r.pool.QueryRow(ctx, updateOrderStatusSQL, id, string(from), string(to)).Scan(&updatedAt)
	if err == nil {
		return updatedAt, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, errors.Wrapf(err, "update order %q status", id)
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, orderExistsSQL, id).Scan(&exists); err != nil {
		return time.Time{}, errors.Wrapf(err, "check order %q", id)
	}
	if !exists {
		return time.Time{}, order.ErrNotFound
	}
	return time.Time{}, order.ErrConcurrentUpdate
}

// Create persists a new order and its items in one transaction.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	address, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return errors.Wrap(err, "encode shipping address")
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	o.UpdatedAt = o.CreatedAt

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, createOrderSQL,
			o.ID, o.UserID, string(o.Status), o.TotalAmount, string(address),
			o.StripeSessionID, o.CreatedAt,
		); err != nil {
			return errors.Wrapf(err, "create order %q", o.ID)
		}

		batch := &pgx.Batch{}
		for _, it := range o.Items {
			batch.Queue(createOrderItemSQL, it.ID, o.ID, it.ProductID, it.Quantity, it.Price)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrapf(err, "create items of order %q", o.ID)
		}
		return nil
	})
}

// attachItems loads items-with-product for all orders in one query.
func (r *OrderRepository) attachItems(ctx context.Context, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
		orders[i].Items = []order.Item{}
	}

	rows, err := r.pool.Query(ctx, listItemsSQL, ids)
	if err != nil {
		return errors.Wrap(err, "list order items")
	}
	items, err := pgx.CollectRows(rows, scanItem)
	if err != nil {
		return errors.Wrap(err, "list order items")
	}
	for _, it := range items {
		i := index[it.OrderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o       order.Order
		u       auth.User
		status  string
		role    string
		address string
	)
	if err := row.Scan(
		&o.ID, &o.UserID, &status, &o.TotalAmount, &address,
		&o.StripeSessionID, &o.CreatedAt, &o.UpdatedAt,
		&u.ID, &u.Name, &u.Email, &role,
	); err != nil {
		return o, err
	}
	if err := json.Unmarshal([]byte(address), &o.ShippingAddress); err != nil {
		return o, errors.Wrapf(err, "decode shipping address of %q", o.ID)
	}
	o.Status = order.Status(status)
	u.Role = auth.Role(role)
	o.User = &u
	return o, nil
}

func scanItem(row pgx.CollectableRow) (order.Item, error) {
	var (
		it     order.Item
		p      product.Product
		images string
	)
	if err := row.Scan(
		&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.Price,
		&p.ID, &p.Name, &p.Brand, &p.Price, &images, &p.Category, &p.Stock, &p.IsVegan, &p.IsCrueltyFree,
	); err != nil {
		return it, err
	}
	if err := json.Unmarshal([]byte(images), &p.Images); err != nil {
		return it, errors.Wrapf(err, "decode images of %q", p.ID)
	}
	it.Product = &p
	return it, nil
}
