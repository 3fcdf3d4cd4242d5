package store

import "context"

// Collection names used by the terminal.
const (
	Products            = "products"
	Categories          = "categories"
	Customers           = "customers"
	OfflineTransactions = "offline_transactions"
	SyncQueue           = "sync_queue" // reserved for non-transaction sync items
)

// SchemaVersion is bumped whenever a collection's key or indexes change;
// the bump triggers the migration callback on the next open.
const SchemaVersion = 1

// TerminalCollections declares the fixed schema of the terminal store.
func TerminalCollections() []Collection {
	return []Collection{
		{
			Name:    Products,
			KeyPath: "id",
			Indexes: []Index{
				{Name: "barcode", JSONPath: "$.barcode"},
				{Name: "sku", JSONPath: "$.sku"},
				{Name: "category_id", JSONPath: "$.category_id"},
			},
		},
		{
			Name:    Categories,
			KeyPath: "id",
		},
		{
			Name:    Customers,
			KeyPath: "id",
			Indexes: []Index{
				{Name: "phone", JSONPath: "$.phone"},
			},
		},
		{
			Name:    OfflineTransactions,
			AutoKey: true,
			KeyPath: "local_id",
			Indexes: []Index{
				{Name: "queued_at", JSONPath: "$.queued_at"},
				{Name: "synced", JSONPath: "$.synced"},
			},
		},
		{
			Name:    SyncQueue,
			AutoKey: true,
			KeyPath: "local_id",
			Indexes: []Index{
				{Name: "timestamp", JSONPath: "$.timestamp"},
				{Name: "synced", JSONPath: "$.synced"},
			},
		},
	}
}

// OpenTerminal opens the store with the terminal schema. Only schema v1
// exists today; the migration callback is wired for the first bump.
func OpenTerminal(ctx context.Context, dataDir string) (*Store, error) {
	return Open(ctx, dataDir, SchemaVersion, TerminalCollections(), nil)
}
