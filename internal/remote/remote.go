// Package remote defines the terminal's view of the hosted backend: CRUD
// over named resource collections plus "insert and return assigned id".
package remote

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/riolentius/cahaya-gading-terminal/internal/model"
)

// Service is implemented against the hosted backend. Implementations must
// be safe for concurrent use.
type Service interface {
	FetchProducts(ctx context.Context) ([]model.Product, error)
	FetchCategories(ctx context.Context) ([]model.Category, error)
	FetchCustomers(ctx context.Context) ([]model.Customer, error)

	// CreateTransaction inserts the transaction header and returns the
	// server-assigned id. Inserts are idempotent on the header's client
	// reference: resubmitting the same reference yields the id of the row
	// already accepted.
	CreateTransaction(ctx context.Context, h model.TransactionHeader) (string, error)
	CreateTransactionItems(ctx context.Context, items []model.TransactionItem) error
}

// RemoteError is any failed remote call: validation, permission, network.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string { return fmt.Sprintf("remote: %s: %v", e.Op, e.Err) }
func (e *RemoteError) Unwrap() error { return e.Err }

func Errf(op string, err error) error {
	return &RemoteError{Op: op, Err: err}
}

// IsRemote reports whether err originated from a remote call.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

// Unavailable reports whether err means the backend could not be reached,
// as opposed to the backend rejecting the call. The delivery layer feeds
// these outcomes into the connectivity monitor.
func Unavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}
