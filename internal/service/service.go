package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"salepoint/backend/internal/cache"
	"salepoint/backend/internal/domain"
	"salepoint/backend/internal/store"
	"salepoint/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

const defaultCommitTimeout = 10 * time.Second

type Service struct {
	repo          store.Repository
	viewCache     cache.TransactionCache
	commitTimeout time.Duration
	viewCacheTTL  time.Duration
}

func New(repo store.Repository, viewCache cache.TransactionCache, commitTimeout time.Duration, viewCacheTTL time.Duration) *Service {
	if viewCache == nil {
		viewCache = cache.NoopTransactionCache{}
	}
	if commitTimeout <= 0 {
		commitTimeout = defaultCommitTimeout
	}
	if viewCacheTTL <= 0 {
		viewCacheTTL = time.Minute
	}

	return &Service{
		repo:          repo,
		viewCache:     viewCache,
		commitTimeout: commitTimeout,
		viewCacheTTL:  viewCacheTTL,
	}
}

func (s *Service) RegisterProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.SellingPriceCents < 1 || req.CostPriceCents < 0 || req.InitialQuantity < 0 {
		return domain.Product{}, store.ErrInvalidRequest
	}
	if req.CostPriceCents >= req.SellingPriceCents {
		return domain.Product{}, fmt.Errorf("%w: cost price must be below selling price", store.ErrInvalidRequest)
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		ID:                xid.New("prod"),
		Name:              req.Name,
		SellingPriceCents: req.SellingPriceCents,
		CostPriceCents:    req.CostPriceCents,
		Quantity:          req.InitialQuantity,
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_register", "product", created.ID, fmt.Sprintf("name=%s,price=%d,qty=%d", created.Name, created.SellingPriceCents, created.Quantity))
	return *created, nil
}

func (s *Service) RegisterCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Customer{}, store.ErrInvalidRequest
	}

	created, err := s.repo.CreateCustomer(ctx, domain.Customer{
		ID:      xid.New("cust"),
		Name:    req.Name,
		Email:   strings.TrimSpace(req.Email),
		Phone:   strings.TrimSpace(req.Phone),
		Address: strings.TrimSpace(req.Address),
	})
	if err != nil {
		return domain.Customer{}, err
	}

	s.logAudit(ctx, "customer_register", "customer", created.ID, "name="+created.Name)
	return *created, nil
}

// PostSale validates a cart, prices it against the live catalog, and commits
// the transaction, its items, the stock decrements and the customer spending
// credit as one atomic unit. Any failure leaves no observable side effects.
func (s *Service) PostSale(ctx context.Context, req domain.SaleRequest) (domain.TransactionView, error) {
	if !req.PaymentMode.Valid() {
		return domain.TransactionView{}, fmt.Errorf("%w: unsupported payment mode %q", store.ErrInvalidRequest, req.PaymentMode)
	}
	if req.EmployeeID != "" && req.UserID != "" {
		return domain.TransactionView{}, fmt.Errorf("%w: a sale carries at most one actor reference", store.ErrInvalidRequest)
	}

	cart, err := normalizeCart(req.Cart)
	if err != nil {
		return domain.TransactionView{}, err
	}

	// Pre-validate the cart for precise errors. The store re-verifies stock
	// at decrement time under its own isolation, so a race between this check
	// and the commit still cannot oversell.
	ids := make([]string, 0, len(cart))
	for _, line := range cart {
		ids = append(ids, line.ProductID)
	}
	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return domain.TransactionView{}, err
	}
	for _, line := range cart {
		product, exists := products[line.ProductID]
		if !exists {
			return domain.TransactionView{}, &store.NotFoundError{Entity: "product", ID: line.ProductID}
		}
		if product.Quantity < line.Qty {
			return domain.TransactionView{}, &store.StockError{ProductID: line.ProductID, Available: product.Quantity, Requested: line.Qty}
		}
	}
	if req.CustomerID != "" {
		if _, err := s.repo.GetCustomerByID(ctx, req.CustomerID); err != nil {
			return domain.TransactionView{}, err
		}
	}

	items := make([]domain.TransactionItem, 0, len(cart))
	for _, line := range cart {
		items = append(items, domain.TransactionItem{ProductID: line.ProductID, Qty: line.Qty})
	}

	tx := domain.Transaction{
		ID:          xid.New("tx"),
		PaymentMode: req.PaymentMode,
		Status:      domain.TxStatusCompleted,
		CustomerID:  req.CustomerID,
		EmployeeID:  req.EmployeeID,
		UserID:      req.UserID,
		CreatedAt:   time.Now().UTC(),
		Items:       items,
	}

	commitCtx, cancel := context.WithTimeout(ctx, s.commitTimeout)
	defer cancel()

	created, err := s.repo.CreateSale(commitCtx, tx)
	if err != nil {
		return domain.TransactionView{}, s.classifyCommitErr(ctx, err, "sale posting")
	}

	s.logAudit(ctx, "sale_post", "transaction", created.ID,
		fmt.Sprintf("total=%d,payment=%s,lines=%d,customer=%s", created.TotalCents, created.PaymentMode, len(created.Items), created.CustomerID))

	// Read-after-commit hydration keeps the write path free of join logic.
	view, err := s.repo.GetTransactionView(ctx, created.ID)
	if err != nil {
		return domain.TransactionView{}, err
	}
	s.cacheView(ctx, view)

	return *view, nil
}

// SetTransactionStatus applies the status state machine. COMPLETED->REFUNDED
// restores inventory and reverses the customer spending credit atomically
// with the status write; a transaction already in a terminal state rejects
// every further transition, so compensation can never fire twice.
func (s *Service) SetTransactionStatus(ctx context.Context, transactionID string, next domain.TxStatus) (domain.TransactionView, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return domain.TransactionView{}, store.ErrInvalidRequest
	}
	if !next.Valid() {
		return domain.TransactionView{}, fmt.Errorf("%w: unknown status %q", store.ErrInvalidRequest, next)
	}

	commitCtx, cancel := context.WithTimeout(ctx, s.commitTimeout)
	defer cancel()

	updated, err := s.repo.UpdateTransactionStatus(commitCtx, transactionID, next, time.Now().UTC())
	if err != nil {
		return domain.TransactionView{}, s.classifyCommitErr(ctx, err, "status change")
	}

	if err := s.viewCache.Delete(ctx, transactionID); err != nil {
		log.Printf("[service] WARN: failed to evict cached view %s: %v", transactionID, err)
	}

	detail := fmt.Sprintf("status=%s", updated.Status)
	if next == domain.TxStatusRefunded {
		detail = fmt.Sprintf("status=%s,restored_lines=%d,reversed=%d", updated.Status, len(updated.Items), updated.TotalCents)
	}
	s.logAudit(ctx, "status_change", "transaction", updated.ID, detail)

	view, err := s.repo.GetTransactionView(ctx, updated.ID)
	if err != nil {
		return domain.TransactionView{}, err
	}
	s.cacheView(ctx, view)

	return *view, nil
}

func (s *Service) GetTransaction(ctx context.Context, transactionID string) (domain.TransactionView, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return domain.TransactionView{}, store.ErrInvalidRequest
	}

	if cached, ok, err := s.viewCache.Get(ctx, transactionID); err != nil {
		log.Printf("[service] WARN: view cache read failed for %s: %v", transactionID, err)
	} else if ok {
		return *cached, nil
	}

	view, err := s.repo.GetTransactionView(ctx, transactionID)
	if err != nil {
		return domain.TransactionView{}, err
	}
	s.cacheView(ctx, view)

	return *view, nil
}

func (s *Service) StatsSummary(ctx context.Context, fromDate string, toDate string) (domain.StatsSummary, error) {
	from, to, err := parseDateRange(fromDate, toDate)
	if err != nil {
		return domain.StatsSummary{}, err
	}

	summary, err := s.repo.GetStatsSummary(ctx, from, to)
	if err != nil {
		return domain.StatsSummary{}, err
	}
	summary.From = from.Format("2006-01-02")
	summary.To = to.Format("2006-01-02")
	return summary, nil
}

func (s *Service) StatsTrend(ctx context.Context, fromDate string, toDate string) (domain.StatsTrend, error) {
	from, to, err := parseDateRange(fromDate, toDate)
	if err != nil {
		return domain.StatsTrend{}, err
	}

	trend, err := s.repo.GetStatsTrend(ctx, from, to)
	if err != nil {
		return domain.StatsTrend{}, err
	}
	trend.From = from.Format("2006-01-02")
	trend.To = to.Format("2006-01-02")
	return trend, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, fromDate string, toDate string, limit int) ([]domain.AuditLog, error) {
	from, to, err := parseDateRange(fromDate, toDate)
	if err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

// classifyCommitErr maps a deadline hit inside the atomic unit to the timeout
// error class. The unit rolled back, so the caller may retry; every other
// error passes through for the caller to classify.
func (s *Service) classifyCommitErr(ctx context.Context, err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w: %s aborted after %s", store.ErrTimeout, op, s.commitTimeout)
	}
	return err
}

func (s *Service) cacheView(ctx context.Context, view *domain.TransactionView) {
	if err := s.viewCache.Set(ctx, view, s.viewCacheTTL); err != nil {
		log.Printf("[service] WARN: failed to cache view %s: %v", view.ID, err)
	}
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	entry := domain.AuditLog{
		ID:         xid.New("audit"),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	}
	if actor, ok := ActorFromContext(ctx); ok {
		entry.ActorKind = string(actor.Kind)
		entry.ActorID = actor.ID
	}
	if err := s.repo.CreateAuditLog(ctx, entry); err != nil {
		log.Printf("[service] WARN: failed to write audit log action=%s entity=%s: %v", action, entityID, err)
	}
}

// normalizeCart drops empty lines and merges duplicate product references so
// the stock check sees the combined quantity.
func normalizeCart(lines []domain.CartLine) ([]domain.CartLine, error) {
	merged := make(map[string]int, len(lines))
	order := make([]string, 0, len(lines))
	for _, line := range lines {
		id := strings.TrimSpace(line.ProductID)
		if id == "" {
			continue
		}
		if line.Qty < 1 {
			return nil, fmt.Errorf("%w: quantity for product %s must be positive", store.ErrInvalidRequest, id)
		}
		if _, seen := merged[id]; !seen {
			order = append(order, id)
		}
		merged[id] += line.Qty
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("%w: empty cart", store.ErrInvalidRequest)
	}

	normalized := make([]domain.CartLine, 0, len(order))
	for _, id := range order {
		normalized = append(normalized, domain.CartLine{ProductID: id, Qty: merged[id]})
	}
	return normalized, nil
}

func parseDateRange(fromDate string, toDate string) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	from := to.Add(-30 * 24 * time.Hour)

	if strings.TrimSpace(fromDate) != "" {
		parsed, err := time.Parse("2006-01-02", fromDate)
		if err != nil {
			return time.Time{}, time.Time{}, store.ErrInvalidRequest
		}
		from = parsed.UTC()
	}
	if strings.TrimSpace(toDate) != "" {
		parsed, err := time.Parse("2006-01-02", toDate)
		if err != nil {
			return time.Time{}, time.Time{}, store.ErrInvalidRequest
		}
		// Inclusive end date.
		to = parsed.UTC().Add(24 * time.Hour)
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, store.ErrInvalidRequest
	}
	return from, to, nil
}
