package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/riolentius/cahaya-gading-terminal/internal/model"
)

// Integration tests against a real backend database. They run only when
// DATABASE_URL points at a scratch database; apply scripts/schema.sql first.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set; skipping backend integration tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := NewPool(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func seedProduct(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()

	var id string
	err := pool.QueryRow(context.Background(), `
INSERT INTO products (sku, name, price, stock_quantity)
VALUES ($1, $2, 10000.00, 5)
RETURNING id::text;
`, "IT-"+uuid.NewString()[:8], "Integration Product").Scan(&id)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM products WHERE id = $1::uuid;`, id)
	})
	return id
}

func header(clientRef string) model.TransactionHeader {
	return model.TransactionHeader{
		ClientRef:     clientRef,
		CashierID:     uuid.NewString(),
		Subtotal:      "10000.00",
		Tax:           "1000.00",
		Discount:      "0.00",
		Total:         "11000.00",
		PaymentMethod: "cash",
		Status:        model.StatusCompleted,
		CreatedAt:     time.Now().UTC(),
	}
}

// This test validates:
// - the catalog fetches decode every column the terminal mirrors
func TestRepo_FetchCatalog(t *testing.T) {
	pool := testPool(t)
	repo := NewRepo(pool)
	ctx := context.Background()

	seedProduct(t, pool)

	products, err := repo.FetchProducts(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, products)
	for _, p := range products {
		require.NotEmpty(t, p.ID)
		require.NotEmpty(t, p.SKU)
		require.NotEmpty(t, p.Price)
	}

	_, err = repo.FetchCategories(ctx)
	require.NoError(t, err)
	_, err = repo.FetchCustomers(ctx)
	require.NoError(t, err)
}

// This test validates:
// - resubmitting a header with the same client ref returns the id of the
//   already-accepted row instead of creating a duplicate sale
func TestRepo_CreateTransaction_Idempotent(t *testing.T) {
	pool := testPool(t)
	repo := NewRepo(pool)
	ctx := context.Background()

	h := header(uuid.NewString())
	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, `DELETE FROM transactions WHERE client_ref = $1::uuid;`, h.ClientRef)
	})

	first, err := repo.CreateTransaction(ctx, h)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := repo.CreateTransaction(ctx, h)
	require.NoError(t, err)
	require.Equal(t, first, second)

	var count int
	err = pool.QueryRow(ctx, `SELECT count(*) FROM transactions WHERE client_ref = $1::uuid;`, h.ClientRef).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

// This test validates:
// - line items land in one database transaction and a retried insert after
//   a header reuse does not duplicate them
func TestRepo_CreateTransactionItems_RetrySafe(t *testing.T) {
	pool := testPool(t)
	repo := NewRepo(pool)
	ctx := context.Background()

	productID := seedProduct(t, pool)

	h := header(uuid.NewString())
	txID, err := repo.CreateTransaction(ctx, h)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, `DELETE FROM transaction_items WHERE transaction_id = $1::uuid;`, txID)
		_, _ = pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1::uuid;`, txID)
	})

	items := []model.TransactionItem{{
		TransactionID: txID,
		LineNo:        0,
		ProductID:     productID,
		Quantity:      2,
		Price:         "10000.00",
		Total:         "20000.00",
	}}

	require.NoError(t, repo.CreateTransactionItems(ctx, items))
	require.NoError(t, repo.CreateTransactionItems(ctx, items)) // retry after lost ack

	var count int
	err = pool.QueryRow(ctx, `SELECT count(*) FROM transaction_items WHERE transaction_id = $1::uuid;`, txID).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

// This test validates:
// - one product appearing on two sale lines lands as two rows; the retry
//   dedupe keys on line number, not product
func TestRepo_CreateTransactionItems_DuplicateProductLines(t *testing.T) {
	pool := testPool(t)
	repo := NewRepo(pool)
	ctx := context.Background()

	productID := seedProduct(t, pool)

	h := header(uuid.NewString())
	txID, err := repo.CreateTransaction(ctx, h)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, `DELETE FROM transaction_items WHERE transaction_id = $1::uuid;`, txID)
		_, _ = pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1::uuid;`, txID)
	})

	items := []model.TransactionItem{
		{TransactionID: txID, LineNo: 0, ProductID: productID, Quantity: 1, Price: "10000.00", Total: "10000.00"},
		{TransactionID: txID, LineNo: 1, ProductID: productID, Quantity: 3, Price: "10000.00", Total: "30000.00"},
	}
	require.NoError(t, repo.CreateTransactionItems(ctx, items))

	var count int
	err = pool.QueryRow(ctx, `SELECT count(*) FROM transaction_items WHERE transaction_id = $1::uuid;`, txID).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}
