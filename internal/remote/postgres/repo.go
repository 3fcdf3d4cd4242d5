// Package postgres talks to the hosted backend's Postgres database directly,
// the same way the back-office service does.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/riolentius/cahaya-gading-terminal/internal/model"
	"github.com/riolentius/cahaya-gading-terminal/internal/remote"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

// NewPool connects and pings the backend database.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func (r *Repo) FetchProducts(ctx context.Context) ([]model.Product, error) {
	const q = `
SELECT
  id::text, name, sku, barcode, description, category_id::text,
  price::text, stock_quantity, low_stock_threshold, is_active
FROM products
ORDER BY name;
`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, remote.Errf("fetch products", err)
	}
	defer rows.Close()

	out := make([]model.Product, 0)
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.SKU,
			&p.Barcode,
			&p.Description,
			&p.CategoryID,
			&p.Price,
			&p.StockQuantity,
			&p.LowStockThreshold,
			&p.IsActive,
		); err != nil {
			return nil, remote.Errf("fetch products", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, remote.Errf("fetch products", err)
	}
	return out, nil
}

func (r *Repo) FetchCategories(ctx context.Context) ([]model.Category, error) {
	const q = `SELECT id::text, name, description FROM categories ORDER BY name;`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, remote.Errf("fetch categories", err)
	}
	defer rows.Close()

	out := make([]model.Category, 0)
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, remote.Errf("fetch categories", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, remote.Errf("fetch categories", err)
	}
	return out, nil
}

func (r *Repo) FetchCustomers(ctx context.Context) ([]model.Customer, error) {
	const q = `SELECT id::text, name, phone, email, loyalty_points FROM customers ORDER BY name;`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, remote.Errf("fetch customers", err)
	}
	defer rows.Close()

	out := make([]model.Customer, 0)
	for rows.Next() {
		var c model.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.LoyaltyPoints); err != nil {
			return nil, remote.Errf("fetch customers", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, remote.Errf("fetch customers", err)
	}
	return out, nil
}

// CreateTransaction inserts the header idempotently on client_ref: a
// resubmission after a lost ack returns the id of the row already accepted
// instead of creating a duplicate sale.
func (r *Repo) CreateTransaction(ctx context.Context, h model.TransactionHeader) (string, error) {
	const q = `
INSERT INTO transactions
  (client_ref, cashier_id, customer_id, subtotal, tax, discount, total, payment_method, status, created_at)
VALUES
  ($1::uuid, $2::uuid, $3::uuid, $4::numeric, $5::numeric, $6::numeric, $7::numeric, $8, $9, $10)
ON CONFLICT (client_ref) DO NOTHING
RETURNING id::text;
`
	var id string
	err := r.db.QueryRow(ctx, q,
		h.ClientRef,
		h.CashierID,
		h.CustomerID,
		h.Subtotal,
		h.Tax,
		h.Discount,
		h.Total,
		h.PaymentMethod,
		h.Status,
		h.CreatedAt,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", remote.Errf("create transaction", err)
	}

	// conflict path: the header was accepted on an earlier attempt
	const sel = `SELECT id::text FROM transactions WHERE client_ref = $1::uuid;`
	if err := r.db.QueryRow(ctx, sel, h.ClientRef).Scan(&id); err != nil {
		return "", remote.Errf("create transaction", err)
	}
	return id, nil
}

// CreateTransactionItems inserts all line items in one database transaction.
func (r *Repo) CreateTransactionItems(ctx context.Context, items []model.TransactionItem) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return remote.Errf("create transaction items", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// dedupe on line number, not product: a sale may carry the same
	// product on more than one line
	const q = `
INSERT INTO transaction_items (transaction_id, line_no, product_id, quantity, unit_price, total)
VALUES ($1::uuid, $2, $3::uuid, $4, $5::numeric, $6::numeric)
ON CONFLICT (transaction_id, line_no) DO NOTHING;
`
	for _, it := range items {
		if _, err := tx.Exec(ctx, q, it.TransactionID, it.LineNo, it.ProductID, it.Quantity, it.Price, it.Total); err != nil {
			return remote.Errf("create transaction items", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return remote.Errf("create transaction items", err)
	}
	return nil
}
