package order

import (
	"context"
	"time"

	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Filter narrows admin order listings
type Filter struct {
	shared.Filter
	Status Status
	UserID *uuid.UUID
	Email  string
	From   *time.Time
	To     *time.Time
}

// Repository persists orders with their items.
// Create and Save write the aggregate's pending events to the outbox in the same transaction.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// FindByIDForUpdate locks the order row until the surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByNumber(ctx context.Context, number int64) (*Order, error)
	List(ctx context.Context, filter Filter) ([]*Order, int64, error)
	Create(ctx context.Context, o *Order) error
	// Save updates the order with an optimistic version check. Items are immutable and not rewritten.
	Save(ctx context.Context, o *Order) error
	Delete(ctx context.Context, id uuid.UUID) error
	AppendAudit(ctx context.Context, audit StatusAudit) error
	ListAudit(ctx context.Context, orderID uuid.UUID) ([]StatusAudit, error)
}

// NumberAllocator hands out unique, increasing order numbers
type NumberAllocator interface {
	Next(ctx context.Context) (int64, error)
}

// StockLine is a quantity to take from one product
type StockLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// StockResult is the outcome of a decrement for one line
type StockResult struct {
	ProductID uuid.UUID
	Requested int
	// Available is the stock before the decrement
	Available int
	Short     bool
}

// StockWriter decrements product stock inside the current transaction.
// A line whose stock is short is clamped to zero and reported as Short.
type StockWriter interface {
	Decrement(ctx context.Context, lines []StockLine) ([]StockResult, error)
}

// TxRepositories are repositories bound to one database transaction
type TxRepositories interface {
	Orders() Repository
	Numbers() NumberAllocator
	Stock() StockWriter
}

// TransactionScope runs fn inside a database transaction, committing when fn returns nil.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TxRepositories) error) error
}
