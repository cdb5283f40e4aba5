package domain

import "time"

type Product struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	SellingPriceCents int64  `json:"selling_price_cents"`
	CostPriceCents    int64  `json:"cost_price_cents"`
	Quantity          int    `json:"quantity"`
}

type ProductCreateRequest struct {
	Name              string `json:"name"`
	SellingPriceCents int64  `json:"selling_price_cents"`
	CostPriceCents    int64  `json:"cost_price_cents"`
	InitialQuantity   int    `json:"initial_quantity"`
}

type Customer struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Email              string `json:"email,omitempty"`
	Phone              string `json:"phone,omitempty"`
	Address            string `json:"address,omitempty"`
	TotalSpendingCents int64  `json:"total_spending_cents"`
}

type CustomerCreateRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

type PaymentMode string

const (
	PaymentCash         PaymentMode = "CASH"
	PaymentCard         PaymentMode = "CARD"
	PaymentUPI          PaymentMode = "UPI"
	PaymentBankTransfer PaymentMode = "BANK_TRANSFER"
)

func (m PaymentMode) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentUPI, PaymentBankTransfer:
		return true
	}
	return false
}

type ActorKind string

const (
	ActorEmployee ActorKind = "employee"
	ActorUser     ActorKind = "user"
)

// Actor identifies who is performing an operation. An outer auth layer is
// expected to resolve credentials to an Actor before the service is called.
type Actor struct {
	Kind ActorKind
	ID   string
	Name string
}

type CartLine struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type SaleRequest struct {
	Cart        []CartLine  `json:"cart"`
	PaymentMode PaymentMode `json:"payment_mode"`
	CustomerID  string      `json:"customer_id,omitempty"`
	EmployeeID  string      `json:"employee_id,omitempty"`
	UserID      string      `json:"user_id,omitempty"`
}

// TransactionItem is priced at commit time; PriceAtSaleCents is a snapshot of
// the product's selling price and is never re-read from the live product.
type TransactionItem struct {
	ID               string `json:"id"`
	TransactionID    string `json:"transaction_id"`
	ProductID        string `json:"product_id"`
	Qty              int    `json:"qty"`
	PriceAtSaleCents int64  `json:"price_at_sale_cents"`
	SubtotalCents    int64  `json:"subtotal_cents"`
}

// Transaction is immutable after commit except for Status.
type Transaction struct {
	ID          string            `json:"id"`
	TotalCents  int64             `json:"total_cents"`
	PaymentMode PaymentMode       `json:"payment_mode"`
	Status      TxStatus          `json:"status"`
	CustomerID  string            `json:"customer_id,omitempty"`
	EmployeeID  string            `json:"employee_id,omitempty"`
	UserID      string            `json:"user_id,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	Items       []TransactionItem `json:"items"`
}

type CustomerSummary struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	TotalSpendingCents int64  `json:"total_spending_cents"`
}

type TransactionItemView struct {
	ProductID        string `json:"product_id"`
	ProductName      string `json:"product_name"`
	Qty              int    `json:"qty"`
	PriceAtSaleCents int64  `json:"price_at_sale_cents"`
	SubtotalCents    int64  `json:"subtotal_cents"`
}

// TransactionView is the hydrated read model assembled after commit; the
// write path only ever returns the committed identity.
type TransactionView struct {
	ID          string                `json:"id"`
	TotalCents  int64                 `json:"total_cents"`
	PaymentMode PaymentMode           `json:"payment_mode"`
	Status      TxStatus              `json:"status"`
	Customer    *CustomerSummary      `json:"customer,omitempty"`
	EmployeeID  string                `json:"employee_id,omitempty"`
	UserID      string                `json:"user_id,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	Items       []TransactionItemView `json:"items"`
}

type StatusChangeRequest struct {
	Status TxStatus `json:"status"`
}

type PaymentModeStat struct {
	PaymentMode  PaymentMode `json:"payment_mode"`
	Transactions int64       `json:"transactions"`
	RevenueCents int64       `json:"revenue_cents"`
}

type StatsSummary struct {
	From              string            `json:"from"`
	To                string            `json:"to"`
	Transactions      int64             `json:"transactions"`
	RevenueCents      int64             `json:"revenue_cents"`
	AverageOrderCents int64             `json:"average_order_cents"`
	ByPaymentMode     []PaymentModeStat `json:"by_payment_mode"`
}

type TrendPoint struct {
	Date         string `json:"date"`
	Transactions int64  `json:"transactions"`
	RevenueCents int64  `json:"revenue_cents"`
}

type StatsTrend struct {
	From   string       `json:"from"`
	To     string       `json:"to"`
	Points []TrendPoint `json:"points"`
}

type AuditLog struct {
	ID         string    `json:"id"`
	ActorKind  string    `json:"actor_kind,omitempty"`
	ActorID    string    `json:"actor_id,omitempty"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}
