package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"salepoint/backend/internal/domain"
	"salepoint/backend/internal/store"
	"salepoint/backend/internal/xid"
)

// Store is an in-process Repository used for tests and dev mode. A single
// mutex held across validate-then-mutate gives every operation the same
// all-or-nothing behavior the postgres store gets from serializable
// transactions.
type Store struct {
	mu               sync.RWMutex
	products         map[string]domain.Product
	customers        map[string]domain.Customer
	transactionsByID map[string]*domain.Transaction
	auditLogs        []domain.AuditLog
}

func New() *Store {
	return &Store{
		products:         make(map[string]domain.Product),
		customers:        make(map[string]domain.Customer),
		transactionsByID: make(map[string]*domain.Transaction),
		auditLogs:        make([]domain.AuditLog, 0, 128),
	}
}

func NewSeeded() *Store {
	s := New()

	products := []domain.Product{
		{ID: "prod-notebook-01", Name: "Spiral Notebook A5", SellingPriceCents: 450, CostPriceCents: 210, Quantity: 120},
		{ID: "prod-pen-01", Name: "Gel Pen Black", SellingPriceCents: 120, CostPriceCents: 40, Quantity: 300},
		{ID: "prod-stapler-01", Name: "Desk Stapler", SellingPriceCents: 1550, CostPriceCents: 820, Quantity: 45},
		{ID: "prod-tape-01", Name: "Packing Tape Roll", SellingPriceCents: 380, CostPriceCents: 150, Quantity: 80},
		{ID: "prod-marker-01", Name: "Whiteboard Marker", SellingPriceCents: 260, CostPriceCents: 95, Quantity: 150},
		{ID: "prod-folder-01", Name: "Document Folder", SellingPriceCents: 200, CostPriceCents: 70, Quantity: 200},
	}
	for _, p := range products {
		s.products[p.ID] = p
	}

	customers := []domain.Customer{
		{ID: "cust-regular-01", Name: "Asha Nair", Email: "asha@example.com", Phone: "9800011122"},
		{ID: "cust-regular-02", Name: "Rohit Verma", Phone: "9800033344"},
	}
	for _, c := range customers {
		s.customers[c.ID] = c
	}

	return s
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.SellingPriceCents < 1 || product.CostPriceCents < 0 || product.Quantity < 0 {
		return nil, store.ErrInvalidRequest
	}
	if product.CostPriceCents >= product.SellingPriceCents {
		return nil, store.ErrInvalidRequest
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if _, exists := s.products[product.ID]; exists {
		return nil, store.ErrInvalidRequest
	}

	s.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, &store.NotFoundError{Entity: "product", ID: id}
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) GetProductsByIDs(_ context.Context, ids []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			result[id] = p
		}
	}
	return result, nil
}

func (s *Store) UpdateProductPrice(_ context.Context, id string, sellingPriceCents int64) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[id]
	if !exists {
		return nil, &store.NotFoundError{Entity: "product", ID: id}
	}
	if sellingPriceCents < 1 || product.CostPriceCents >= sellingPriceCents {
		return nil, store.ErrInvalidRequest
	}

	product.SellingPriceCents = sellingPriceCents
	s.products[id] = product
	updated := product
	return &updated, nil
}

func (s *Store) IncreaseStock(_ context.Context, productID string, qty int) error {
	if qty < 1 {
		return store.ErrInvalidRequest
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[productID]
	if !exists {
		return &store.NotFoundError{Entity: "product", ID: productID}
	}
	product.Quantity += qty
	s.products[productID] = product
	return nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.Name == "" {
		return nil, store.ErrInvalidRequest
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.ID == "" {
		customer.ID = xid.New("cust")
	}
	if _, exists := s.customers[customer.ID]; exists {
		return nil, store.ErrInvalidRequest
	}

	s.customers[customer.ID] = customer
	created := customer
	return &created, nil
}

func (s *Store) GetCustomerByID(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, exists := s.customers[id]
	if !exists {
		return nil, &store.NotFoundError{Entity: "customer", ID: id}
	}
	copyCustomer := customer
	return &copyCustomer, nil
}

func (s *Store) CreateSale(_ context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	if len(tx.Items) == 0 || !tx.PaymentMode.Valid() {
		return nil, store.ErrInvalidRequest
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole cart before touching anything so a failure partway
	// leaves no partial state.
	for _, item := range tx.Items {
		if item.Qty < 1 {
			return nil, store.ErrInvalidRequest
		}
		product, exists := s.products[item.ProductID]
		if !exists {
			return nil, &store.NotFoundError{Entity: "product", ID: item.ProductID}
		}
		if product.Quantity < item.Qty {
			return nil, &store.StockError{ProductID: item.ProductID, Available: product.Quantity, Requested: item.Qty}
		}
	}
	if tx.CustomerID != "" {
		if _, exists := s.customers[tx.CustomerID]; !exists {
			return nil, &store.NotFoundError{Entity: "customer", ID: tx.CustomerID}
		}
	}

	if tx.ID == "" {
		tx.ID = xid.New("tx")
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	if tx.Status == "" {
		tx.Status = domain.TxStatusCompleted
	}

	totalCents := int64(0)
	pricedItems := make([]domain.TransactionItem, 0, len(tx.Items))
	for _, item := range tx.Items {
		product := s.products[item.ProductID]
		product.Quantity -= item.Qty
		s.products[item.ProductID] = product

		subtotal := product.SellingPriceCents * int64(item.Qty)
		pricedItems = append(pricedItems, domain.TransactionItem{
			ID:               xid.New("txi"),
			TransactionID:    tx.ID,
			ProductID:        item.ProductID,
			Qty:              item.Qty,
			PriceAtSaleCents: product.SellingPriceCents,
			SubtotalCents:    subtotal,
		})
		totalCents += subtotal
	}
	tx.Items = pricedItems
	tx.TotalCents = totalCents

	if tx.CustomerID != "" && tx.Status == domain.TxStatusCompleted {
		customer := s.customers[tx.CustomerID]
		customer.TotalSpendingCents += totalCents
		s.customers[tx.CustomerID] = customer
	}

	stored := tx
	stored.Items = slices.Clone(tx.Items)
	s.transactionsByID[tx.ID] = &stored

	created := tx
	created.Items = slices.Clone(tx.Items)
	return &created, nil
}

func (s *Store) GetTransactionByID(_ context.Context, id string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, exists := s.transactionsByID[id]
	if !exists {
		return nil, &store.NotFoundError{Entity: "transaction", ID: id}
	}
	copyTx := *tx
	copyTx.Items = slices.Clone(tx.Items)
	return &copyTx, nil
}

func (s *Store) GetTransactionView(_ context.Context, id string) (*domain.TransactionView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, exists := s.transactionsByID[id]
	if !exists {
		return nil, &store.NotFoundError{Entity: "transaction", ID: id}
	}

	view := domain.TransactionView{
		ID:          tx.ID,
		TotalCents:  tx.TotalCents,
		PaymentMode: tx.PaymentMode,
		Status:      tx.Status,
		EmployeeID:  tx.EmployeeID,
		UserID:      tx.UserID,
		CreatedAt:   tx.CreatedAt,
		Items:       make([]domain.TransactionItemView, 0, len(tx.Items)),
	}
	for _, item := range tx.Items {
		name := ""
		if product, ok := s.products[item.ProductID]; ok {
			name = product.Name
		}
		view.Items = append(view.Items, domain.TransactionItemView{
			ProductID:        item.ProductID,
			ProductName:      name,
			Qty:              item.Qty,
			PriceAtSaleCents: item.PriceAtSaleCents,
			SubtotalCents:    item.SubtotalCents,
		})
	}
	if tx.CustomerID != "" {
		if customer, ok := s.customers[tx.CustomerID]; ok {
			view.Customer = &domain.CustomerSummary{
				ID:                 customer.ID,
				Name:               customer.Name,
				TotalSpendingCents: customer.TotalSpendingCents,
			}
		}
	}

	return &view, nil
}

func (s *Store) UpdateTransactionStatus(_ context.Context, id string, next domain.TxStatus, _ time.Time) (*domain.Transaction, error) {
	if !next.Valid() {
		return nil, store.ErrInvalidRequest
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, exists := s.transactionsByID[id]
	if !exists {
		return nil, &store.NotFoundError{Entity: "transaction", ID: id}
	}
	if !tx.Status.CanTransitionTo(next) {
		return nil, &store.TransitionError{TransactionID: id, From: tx.Status, To: next}
	}

	if domain.NeedsRefundCompensation(tx.Status, next) {
		for _, item := range tx.Items {
			product, ok := s.products[item.ProductID]
			if !ok {
				return nil, &store.NotFoundError{Entity: "product", ID: item.ProductID}
			}
			product.Quantity += item.Qty
			s.products[item.ProductID] = product
		}
		if tx.CustomerID != "" {
			if customer, ok := s.customers[tx.CustomerID]; ok {
				customer.TotalSpendingCents -= tx.TotalCents
				s.customers[tx.CustomerID] = customer
			}
		}
	}

	tx.Status = next

	copyTx := *tx
	copyTx.Items = slices.Clone(tx.Items)
	return &copyTx, nil
}

func (s *Store) GetStatsSummary(_ context.Context, from time.Time, to time.Time) (domain.StatsSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := domain.StatsSummary{
		ByPaymentMode: make([]domain.PaymentModeStat, 0, 4),
	}
	byMode := make(map[domain.PaymentMode]*domain.PaymentModeStat, 4)
	for _, tx := range s.transactionsByID {
		if tx.Status != domain.TxStatusCompleted {
			continue
		}
		if tx.CreatedAt.Before(from) || !tx.CreatedAt.Before(to) {
			continue
		}
		summary.Transactions++
		summary.RevenueCents += tx.TotalCents

		stat, ok := byMode[tx.PaymentMode]
		if !ok {
			stat = &domain.PaymentModeStat{PaymentMode: tx.PaymentMode}
			byMode[tx.PaymentMode] = stat
		}
		stat.Transactions++
		stat.RevenueCents += tx.TotalCents
	}

	if summary.Transactions > 0 {
		summary.AverageOrderCents = summary.RevenueCents / summary.Transactions
	}
	for _, stat := range byMode {
		summary.ByPaymentMode = append(summary.ByPaymentMode, *stat)
	}
	slices.SortFunc(summary.ByPaymentMode, func(a, b domain.PaymentModeStat) int {
		return strings.Compare(string(a.PaymentMode), string(b.PaymentMode))
	})

	return summary, nil
}

func (s *Store) GetStatsTrend(_ context.Context, from time.Time, to time.Time) (domain.StatsTrend, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byDay := make(map[string]*domain.TrendPoint, 32)
	for _, tx := range s.transactionsByID {
		if tx.Status != domain.TxStatusCompleted {
			continue
		}
		if tx.CreatedAt.Before(from) || !tx.CreatedAt.Before(to) {
			continue
		}
		day := tx.CreatedAt.UTC().Format("2006-01-02")
		point, ok := byDay[day]
		if !ok {
			point = &domain.TrendPoint{Date: day}
			byDay[day] = point
		}
		point.Transactions++
		point.RevenueCents += tx.TotalCents
	}

	trend := domain.StatsTrend{Points: make([]domain.TrendPoint, 0, len(byDay))}
	for _, point := range byDay {
		trend.Points = append(trend.Points, *point)
	}
	slices.SortFunc(trend.Points, func(a, b domain.TrendPoint) int {
		return strings.Compare(a.Date, b.Date)
	})

	return trend, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]domain.AuditLog, 0, limit)
	for _, entry := range s.auditLogs {
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		logs = append(logs, entry)
		if limit > 0 && len(logs) >= limit {
			break
		}
	}
	return logs, nil
}
