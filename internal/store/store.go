package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salepoint/backend/internal/domain"
)

// Sentinel error classes. Structured errors below match these through
// errors.Is so callers can branch on the class and still read the payload
// with errors.As.
var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrTimeout           = errors.New("operation timed out")
)

// NotFoundError names the entity a lookup failed on.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StockError reports a cart line that asked for more than is available.
type StockError struct {
	ProductID string
	Available int
	Requested int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

func (e *StockError) Is(target error) bool { return target == ErrInsufficientStock }

// TransitionError reports a status change rejected by the state machine,
// which for this engine always means the transaction is already terminal.
type TransitionError struct {
	TransactionID string
	From          domain.TxStatus
	To            domain.TxStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transaction %s: illegal transition %s -> %s", e.TransactionID, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// Repository is the storage contract for the sale posting and refund engine.
// CreateSale and UpdateTransactionStatus are the only multi-row atomic units;
// each either fully commits or returns one error with no observable side
// effects. Product quantity and customer spending are mutated exclusively
// inside those two operations (plus the explicit stock primitives below).
type Repository interface {
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
	UpdateProductPrice(ctx context.Context, id string, sellingPriceCents int64) (*domain.Product, error)
	IncreaseStock(ctx context.Context, productID string, qty int) error

	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	GetCustomerByID(ctx context.Context, id string) (*domain.Customer, error)

	// CreateSale prices every cart line from the live product row, verifies
	// and decrements stock, credits the customer's spending, and persists the
	// transaction with its items as one atomic unit. The input carries only
	// identity, refs and cart lines; prices and totals are computed here, at
	// commit time, under the same isolation as the decrement.
	CreateSale(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error)

	GetTransactionByID(ctx context.Context, id string) (*domain.Transaction, error)
	GetTransactionView(ctx context.Context, id string) (*domain.TransactionView, error)

	// UpdateTransactionStatus applies the status state machine. A transition
	// out of a terminal state fails with a TransitionError; COMPLETED ->
	// REFUNDED additionally restores each item's quantity and reverses the
	// customer spending credit, atomically with the status write.
	UpdateTransactionStatus(ctx context.Context, id string, next domain.TxStatus, at time.Time) (*domain.Transaction, error)

	GetStatsSummary(ctx context.Context, from time.Time, to time.Time) (domain.StatsSummary, error)
	GetStatsTrend(ctx context.Context, from time.Time, to time.Time) (domain.StatsTrend, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)
}
