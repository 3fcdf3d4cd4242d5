// Package model holds the typed records exchanged with the remote backend
// and persisted in the terminal's local store. Backend responses are decoded
// into these structs at the boundary; nothing downstream works on raw maps.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Product is a catalog snapshot mirrored from the remote source of truth.
type Product struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	SKU               string  `json:"sku"`
	Barcode           *string `json:"barcode,omitempty"`
	Description       *string `json:"description,omitempty"`
	CategoryID        *string `json:"category_id,omitempty"`
	Price             string  `json:"price"`
	StockQuantity     int     `json:"stock_quantity"`
	LowStockThreshold int     `json:"low_stock_threshold"`
	IsActive          bool    `json:"is_active"`
}

type Category struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

type Customer struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Phone         *string `json:"phone,omitempty"`
	Email         *string `json:"email,omitempty"`
	LoyaltyPoints int     `json:"loyalty_points"`
}

// SaleItem is one checkout line. Amounts are decimal strings; the terminal
// never does money arithmetic, it forwards what the till computed.
type SaleItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
	Total     string `json:"total"`
}

// SalePayload is the immutable snapshot of a completed sale.
type SalePayload struct {
	Items         []SaleItem `json:"items"`
	Subtotal      string     `json:"subtotal"`
	Tax           string     `json:"tax"`
	Discount      string     `json:"discount"`
	Total         string     `json:"total"`
	PaymentMethod string     `json:"payment_method"`
	CustomerID    *string    `json:"customer_id,omitempty"`
	CashierID     string     `json:"cashier_id"`
}

var (
	ErrNoItems     = errors.New("sale has no line items")
	ErrInvalidItem = errors.New("invalid sale item")
)

// Validate checks the minimum shape a sale needs before it may be queued or
// submitted. Stock sufficiency is the remote database's problem, not ours.
func (p SalePayload) Validate() error {
	if len(p.Items) == 0 {
		return ErrNoItems
	}
	for i, it := range p.Items {
		if it.ProductID == "" {
			return fmt.Errorf("%w: item %d has no product id", ErrInvalidItem, i)
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: item %d quantity must be positive", ErrInvalidItem, i)
		}
	}
	return nil
}

// QueuedTransaction is a locally persisted, not-yet-confirmed sale.
type QueuedTransaction struct {
	LocalID      int64       `json:"local_id"`
	ClientRef    string      `json:"client_ref"`
	Payload      SalePayload `json:"payload"`
	QueuedAt     time.Time   `json:"queued_at"`
	Synced       bool        `json:"synced"`
	SyncAttempts int         `json:"sync_attempts"`
	LastError    *string     `json:"last_error,omitempty"`
}

// TransactionHeader is the remote-side transaction row the terminal creates.
type TransactionHeader struct {
	ClientRef     string    `json:"client_ref"`
	CashierID     string    `json:"cashier_id"`
	CustomerID    *string   `json:"customer_id,omitempty"`
	Subtotal      string    `json:"subtotal"`
	Tax           string    `json:"tax"`
	Discount      string    `json:"discount"`
	Total         string    `json:"total"`
	PaymentMethod string    `json:"payment_method"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

type TransactionItem struct {
	TransactionID string `json:"transaction_id"`
	LineNo        int    `json:"line_no"`
	ProductID     string `json:"product_id"`
	Quantity      int    `json:"quantity"`
	Price         string `json:"price"`
	Total         string `json:"total"`
}

const StatusCompleted = "completed"

// HeaderFromSale builds the remote header for a sale completed at the given
// time. The original sale time is kept so reporting reflects when the sale
// happened, not when it reached the server.
func HeaderFromSale(clientRef string, p SalePayload, at time.Time) TransactionHeader {
	return TransactionHeader{
		ClientRef:     clientRef,
		CashierID:     p.CashierID,
		CustomerID:    p.CustomerID,
		Subtotal:      p.Subtotal,
		Tax:           p.Tax,
		Discount:      p.Discount,
		Total:         p.Total,
		PaymentMethod: p.PaymentMethod,
		Status:        StatusCompleted,
		CreatedAt:     at,
	}
}

// ItemsFromSale expands the sale lines into remote item rows for the
// server-assigned transaction id. Line numbers follow sale order; they key
// the item-level retry dedupe, so a product may appear on several lines.
func ItemsFromSale(transactionID string, p SalePayload) []TransactionItem {
	out := make([]TransactionItem, 0, len(p.Items))
	for i, it := range p.Items {
		out = append(out, TransactionItem{
			TransactionID: transactionID,
			LineNo:        i,
			ProductID:     it.ProductID,
			Quantity:      it.Quantity,
			Price:         it.Price,
			Total:         it.Total,
		})
	}
	return out
}

// ChangeEvent is one realtime change notification.
type ChangeEvent struct {
	Topic  string          `json:"topic"`
	Event  string          `json:"event"`
	Record json.RawMessage `json:"record,omitempty"`
}
