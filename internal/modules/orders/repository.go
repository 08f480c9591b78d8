package orders

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/robo-trader/internal/domain"
)

// Repository persists the order book in SQLite
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates an order repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "orders").Logger(),
	}
}

// SaveBatch inserts a batch and all of its orders in one transaction
func (r *Repository) SaveBatch(batch domain.OrderBatch) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO order_batches (id, as_of, created_at) VALUES (?, ?, ?)`,
		batch.ID, batch.AsOf, batch.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO orders
		(id, batch_id, account_id, security_id, side, quantity, price, state, created_at, as_of)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare order insert: %w", err)
	}
	defer stmt.Close()

	for _, order := range batch.Orders {
		_, err = stmt.Exec(
			order.ID,
			batch.ID,
			order.AccountID,
			order.SecurityID,
			string(order.Side),
			order.Quantity,
			order.Price,
			string(order.State),
			order.CreatedAt.Format(time.RFC3339),
			order.AsOf,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order %s: %w", order.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}

	return nil
}

// UpdateState persists an order state transition
func (r *Repository) UpdateState(orderID string, state domain.OrderState) error {
	result, err := r.db.Exec(`UPDATE orders SET state = ? WHERE id = ?`, string(state), orderID)
	if err != nil {
		return fmt.Errorf("failed to update order state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("order %s not found", orderID)
	}

	return nil
}

// LoadBatches loads all persisted batches with their orders
func (r *Repository) LoadBatches() ([]domain.OrderBatch, error) {
	rows, err := r.db.Query(`SELECT id, as_of, created_at FROM order_batches`)
	if err != nil {
		return nil, fmt.Errorf("failed to load batches: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*domain.OrderBatch)
	var batchOrder []string
	for rows.Next() {
		var batch domain.OrderBatch
		var createdAt string
		if err := rows.Scan(&batch.ID, &batch.AsOf, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			batch.CreatedAt = t
		}
		byID[batch.ID] = &batch
		batchOrder = append(batchOrder, batch.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating batches: %w", err)
	}

	orderRows, err := r.db.Query(`
		SELECT id, batch_id, account_id, security_id, side, quantity, price, state, created_at, as_of
		FROM orders
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	defer orderRows.Close()

	for orderRows.Next() {
		order, err := scanOrder(orderRows)
		if err != nil {
			return nil, err
		}
		if batch, ok := byID[order.BatchID]; ok {
			batch.Orders = append(batch.Orders, order)
		}
	}
	if err := orderRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	batches := make([]domain.OrderBatch, 0, len(batchOrder))
	for _, id := range batchOrder {
		batches = append(batches, *byID[id])
	}

	return batches, nil
}

func scanOrder(rows *sql.Rows) (domain.Order, error) {
	var order domain.Order
	var side, state, createdAt string

	err := rows.Scan(
		&order.ID,
		&order.BatchID,
		&order.AccountID,
		&order.SecurityID,
		&side,
		&order.Quantity,
		&order.Price,
		&state,
		&createdAt,
		&order.AsOf,
	)
	if err != nil {
		return order, fmt.Errorf("failed to scan order: %w", err)
	}

	order.Side = domain.OrderSide(side)
	order.State = domain.OrderState(state)
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		order.CreatedAt = t
	}

	return order, nil
}
