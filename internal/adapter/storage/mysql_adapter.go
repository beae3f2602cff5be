package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/builderhub/checkout/internal/core/domain"
)

// MySQLAdapter is the durable store for items, orders, notifications
// and user profiles. Stock only ever changes through the conditional
// decrement/increment statements below.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) InitSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS items (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			price DECIMAL(12,2) NOT NULL,
			stock INT NOT NULL,
			owner_id VARCHAR(64) NOT NULL,
			images TEXT,
			description TEXT,
			category VARCHAR(64),
			color VARCHAR(32),
			created_at DATETIME NOT NULL,
			CHECK (stock >= 0)
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id VARCHAR(64) PRIMARY KEY,
			item_id VARCHAR(64) NOT NULL,
			item_name VARCHAR(255) NOT NULL,
			seller_id VARCHAR(64) NOT NULL,
			buyer_id VARCHAR(64) NOT NULL,
			quantity INT NOT NULL,
			total_price DECIMAL(12,2) NOT NULL,
			payment_method VARCHAR(32) NOT NULL,
			status VARCHAR(32) NOT NULL,
			address TEXT NOT NULL,
			contact_number VARCHAR(16) NOT NULL,
			payment_ref VARCHAR(64),
			created_at DATETIME NOT NULL,
			INDEX idx_orders_seller (seller_id),
			INDEX idx_orders_buyer (buyer_id)
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id VARCHAR(64) PRIMARY KEY,
			type VARCHAR(32) NOT NULL,
			recipient_id VARCHAR(64) NOT NULL,
			actor_id VARCHAR(64) NOT NULL,
			order_id VARCHAR(64) NOT NULL,
			message TEXT NOT NULL,
			is_read BOOLEAN NOT NULL DEFAULT FALSE,
			created_at DATETIME NOT NULL,
			INDEX idx_notifications_recipient (recipient_id)
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(64) PRIMARY KEY,
			display_name VARCHAR(255) NOT NULL,
			created_at DATETIME NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) GetItem(ctx context.Context, itemID string) (*domain.Item, error) {
	var (
		item   domain.Item
		images sql.NullString
	)
	err := m.db.QueryRowContext(ctx, `
		SELECT id, name, price, stock, owner_id, images, description, category, color, created_at
		FROM items WHERE id = ?`, itemID,
	).Scan(&item.ID, &item.Name, &item.Price, &item.Stock, &item.OwnerID,
		&images, &item.Description, &item.Category, &item.Color, &item.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", err)
	}

	if images.Valid && images.String != "" {
		if err := json.Unmarshal([]byte(images.String), &item.Images); err != nil {
			return nil, fmt.Errorf("decode item images: %w", err)
		}
	}
	return &item, nil
}

func (m *MySQLAdapter) ListItems(ctx context.Context) ([]domain.Item, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, name, price, stock, owner_id, images, description, category, color, created_at
		FROM items ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var (
			item   domain.Item
			images sql.NullString
		)
		if err := rows.Scan(&item.ID, &item.Name, &item.Price, &item.Stock, &item.OwnerID,
			&images, &item.Description, &item.Category, &item.Color, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		if images.Valid && images.String != "" {
			if err := json.Unmarshal([]byte(images.String), &item.Images); err != nil {
				return nil, fmt.Errorf("decode item images: %w", err)
			}
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (m *MySQLAdapter) CreateItem(ctx context.Context, item *domain.Item) error {
	images, err := json.Marshal(item.Images)
	if err != nil {
		return fmt.Errorf("encode item images: %w", err)
	}

	_, err = m.db.ExecContext(ctx, `
		INSERT INTO items (id, name, price, stock, owner_id, images, description, category, color, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.Price, item.Stock, item.OwnerID,
		string(images), item.Description, item.Category, item.Color, item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

// DecrementStock is a single conditional update; it reports false when
// stock < quantity so callers can refuse the purchase without ever
// driving stock negative.
func (m *MySQLAdapter) DecrementStock(ctx context.Context, itemID string, quantity int) (bool, error) {
	result, err := m.db.ExecContext(ctx, `
		UPDATE items SET stock = stock - ?
		WHERE id = ? AND stock >= ?`,
		quantity, itemID, quantity,
	)
	if err != nil {
		return false, fmt.Errorf("decrement stock: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decrement stock: %w", err)
	}
	return rows > 0, nil
}

func (m *MySQLAdapter) IncrementStock(ctx context.Context, itemID string, quantity int) error {
	_, err := m.db.ExecContext(ctx, `
		UPDATE items SET stock = stock + ? WHERE id = ?`,
		quantity, itemID,
	)
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) CreateOrder(ctx context.Context, order domain.Order) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO orders (id, item_id, item_name, seller_id, buyer_id, quantity,
			total_price, payment_method, status, address, contact_number, payment_ref, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.ItemID, order.ItemName, order.SellerID, order.BuyerID, order.Quantity,
		order.TotalPrice, order.PaymentMethod, order.Status, order.Address,
		order.ContactNumber, nullable(order.PaymentRef), order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var (
		order      domain.Order
		paymentRef sql.NullString
	)
	err := m.db.QueryRowContext(ctx, `
		SELECT id, item_id, item_name, seller_id, buyer_id, quantity,
			total_price, payment_method, status, address, contact_number, payment_ref, created_at
		FROM orders WHERE id = ?`, orderID,
	).Scan(&order.ID, &order.ItemID, &order.ItemName, &order.SellerID, &order.BuyerID, &order.Quantity,
		&order.TotalPrice, &order.PaymentMethod, &order.Status, &order.Address,
		&order.ContactNumber, &paymentRef, &order.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	order.PaymentRef = paymentRef.String
	return &order, nil
}

func (m *MySQLAdapter) CreateNotification(ctx context.Context, n domain.Notification) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO notifications (id, type, recipient_id, actor_id, order_id, message, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.Type, n.RecipientID, n.ActorID, n.OrderID, n.Message, n.Read, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) ListNotifications(ctx context.Context, recipientID string) ([]domain.Notification, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, type, recipient_id, actor_id, order_id, message, is_read, created_at
		FROM notifications WHERE recipient_id = ? ORDER BY created_at DESC`, recipientID)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var notifs []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.Type, &n.RecipientID, &n.ActorID,
			&n.OrderID, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifs = append(notifs, n)
	}
	return notifs, rows.Err()
}

func (m *MySQLAdapter) MarkNotificationRead(ctx context.Context, notificationID string) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE WHERE id = ?`, notificationID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (m *MySQLAdapter) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	var u domain.User
	err := m.db.QueryRowContext(ctx, `
		SELECT id, display_name, created_at FROM users WHERE id = ?`, userID,
	).Scan(&u.ID, &u.DisplayName, &u.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
