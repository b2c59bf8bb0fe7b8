package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mercata/orderflow/internal/core/domain"
)

// MySQLAdapter implements the catalog, stock ledger and order repositories
// against MySQL. Stock arithmetic is always a single conditional UPDATE so
// concurrent decrements can never drive stock negative.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	var p domain.Product
	err := m.db.QueryRowContext(ctx, `
		SELECT id, title, price, stock, created_at, updated_at
		FROM products WHERE id = ?`, productID,
	).Scan(&p.ID, &p.Title, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}

	return &p, nil
}

// DecrementStock is the single atomic stock authority. The guarded UPDATE
// either applies fully or reports insufficient stock without mutating
// anything; an unknown product id reports the same way. Update and readback
// share one transaction: the row lock held until commit makes the returned
// level exactly the one this decrement produced.
func (m *MySQLAdapter) DecrementStock(ctx context.Context, productID string, quantity int) (int, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("decrement stock: begin: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - ?, updated_at = NOW()
		WHERE id = ? AND stock >= ?`,
		quantity, productID, quantity,
	)
	if err != nil {
		return 0, fmt.Errorf("decrement stock: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return 0, fmt.Errorf("%w: product %s", domain.ErrInsufficientStock, productID)
	}

	var newStock int
	if err := tx.QueryRowContext(ctx,
		`SELECT stock FROM products WHERE id = ?`, productID,
	).Scan(&newStock); err != nil {
		return 0, fmt.Errorf("decrement stock: readback: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("decrement stock: commit: %w", err)
	}

	return newStock, nil
}

func (m *MySQLAdapter) RestoreStock(ctx context.Context, productID string, quantity int) error {
	_, err := m.db.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + ?, updated_at = NOW()
		WHERE id = ?`,
		quantity, productID,
	)
	if err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) InsertOrder(ctx context.Context, order domain.Order) error {
	var source, medium, campaign sql.NullString
	if order.Attribution != nil {
		source = sql.NullString{String: order.Attribution.Source, Valid: true}
		medium = sql.NullString{String: order.Attribution.Medium, Valid: true}
		campaign = sql.NullString{String: order.Attribution.Campaign, Valid: true}
	}

	_, err := m.db.ExecContext(ctx, `
		INSERT INTO orders (
			id, order_number, user_id, status,
			subtotal, shipping, discount, total, promo_code,
			ship_name, ship_email, ship_phone, ship_address, ship_city, ship_postal_code,
			attr_source, attr_medium, attr_campaign,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.OrderNumber, nullIfEmpty(order.UserID), order.Status,
		order.Totals.Subtotal, order.Totals.Shipping, order.Totals.Discount, order.Totals.Total,
		nullIfEmpty(order.PromoCode),
		order.Shipping.Name, order.Shipping.Email, order.Shipping.Phone,
		order.Shipping.Address, order.Shipping.City, order.Shipping.PostalCode,
		source, medium, campaign,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// InsertLineItems writes the batch in one transaction so a mid-batch failure
// leaves no rows behind.
func (m *MySQLAdapter) InsertLineItems(ctx context.Context, items []domain.OrderLineItem) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert line items: begin: %w", err)
	}
	defer tx.Rollback()

	for _, item := range items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_line_items (order_id, product_id, quantity, unit_price)
			VALUES (?, ?, ?, ?)`,
			item.OrderID, item.ProductID, item.Quantity, item.UnitPrice,
		)
		if err != nil {
			return fmt.Errorf("insert line item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert line items: commit: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) DeleteLineItems(ctx context.Context, orderID string) error {
	_, err := m.db.ExecContext(ctx,
		`DELETE FROM order_line_items WHERE order_id = ?`, orderID)
	if err != nil {
		return fmt.Errorf("delete line items: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) DeleteOrder(ctx context.Context, orderID string) error {
	_, err := m.db.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, orderID)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetOrder(ctx context.Context, orderID string) (*domain.Order, []domain.OrderLineItem, error) {
	var o domain.Order
	var userID, promoCode, source, medium, campaign sql.NullString
	err := m.db.QueryRowContext(ctx, `
		SELECT id, order_number, user_id, status,
			subtotal, shipping, discount, total, promo_code,
			ship_name, ship_email, ship_phone, ship_address, ship_city, ship_postal_code,
			attr_source, attr_medium, attr_campaign,
			created_at, updated_at
		FROM orders WHERE id = ?`, orderID,
	).Scan(
		&o.ID, &o.OrderNumber, &userID, &o.Status,
		&o.Totals.Subtotal, &o.Totals.Shipping, &o.Totals.Discount, &o.Totals.Total, &promoCode,
		&o.Shipping.Name, &o.Shipping.Email, &o.Shipping.Phone,
		&o.Shipping.Address, &o.Shipping.City, &o.Shipping.PostalCode,
		&source, &medium, &campaign,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("query order: %w", err)
	}

	o.UserID = userID.String
	o.PromoCode = promoCode.String
	if source.Valid || medium.Valid || campaign.Valid {
		o.Attribution = &domain.Attribution{
			Source:   source.String,
			Medium:   medium.String,
			Campaign: campaign.String,
		}
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT order_id, product_id, quantity, unit_price
		FROM order_line_items WHERE order_id = ?`, orderID)
	if err != nil {
		return nil, nil, fmt.Errorf("query line items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderLineItem
	for rows.Next() {
		var item domain.OrderLineItem
		if err := rows.Scan(&item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, nil, fmt.Errorf("scan line item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate line items: %w", err)
	}

	return &o, items, nil
}

func (m *MySQLAdapter) TransitionStatus(ctx context.Context, orderID string, from, to domain.OrderStatus) (bool, error) {
	result, err := m.db.ExecContext(ctx, `
		UPDATE orders SET status = ?, updated_at = NOW()
		WHERE id = ? AND status = ?`,
		to, orderID, from,
	)
	if err != nil {
		return false, fmt.Errorf("transition status: %w", err)
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (m *MySQLAdapter) CountOrdersByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := m.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM orders
		WHERE user_id = ? AND status != ?`,
		userID, domain.OrderStatusCancelled,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return count, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
