package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"salepoint/backend/internal/domain"
	"salepoint/backend/internal/store"
	"salepoint/backend/internal/store/memory"
)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	repo := memory.NewSeeded()
	return New(repo, nil, 0, 0), repo
}

func TestPostSaleComputesTotalsAndDecrementsStock(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	view, err := svc.PostSale(ctx, domain.SaleRequest{
		Cart: []domain.CartLine{
			{ProductID: "prod-notebook-01", Qty: 2}, // 2 x 450
			{ProductID: "prod-pen-01", Qty: 5},      // 5 x 120
		},
		PaymentMode: domain.PaymentCash,
		CustomerID:  "cust-regular-01",
	})
	if err != nil {
		t.Fatalf("PostSale failed: %v", err)
	}

	if want := int64(2*450 + 5*120); view.TotalCents != want {
		t.Fatalf("expected total %d, got %d", want, view.TotalCents)
	}
	if view.Status != domain.TxStatusCompleted {
		t.Fatalf("expected COMPLETED status, got %s", view.Status)
	}
	if len(view.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(view.Items))
	}
	for _, item := range view.Items {
		if item.SubtotalCents != item.PriceAtSaleCents*int64(item.Qty) {
			t.Fatalf("item %s subtotal %d does not match price %d x qty %d",
				item.ProductID, item.SubtotalCents, item.PriceAtSaleCents, item.Qty)
		}
	}
	if view.Customer == nil || view.Customer.ID != "cust-regular-01" {
		t.Fatalf("expected hydrated customer summary, got %+v", view.Customer)
	}

	notebook, err := repo.GetProductByID(ctx, "prod-notebook-01")
	if err != nil {
		t.Fatalf("GetProductByID failed: %v", err)
	}
	if notebook.Quantity != 118 {
		t.Fatalf("expected notebook stock 118 after sale, got %d", notebook.Quantity)
	}

	customer, err := repo.GetCustomerByID(ctx, "cust-regular-01")
	if err != nil {
		t.Fatalf("GetCustomerByID failed: %v", err)
	}
	if customer.TotalSpendingCents != view.TotalCents {
		t.Fatalf("expected customer spending %d, got %d", view.TotalCents, customer.TotalSpendingCents)
	}
}

func TestPostSaleMergesDuplicateCartLines(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	view, err := svc.PostSale(ctx, domain.SaleRequest{
		Cart: []domain.CartLine{
			{ProductID: "prod-pen-01", Qty: 2},
			{ProductID: "prod-pen-01", Qty: 3},
		},
		PaymentMode: domain.PaymentCard,
	})
	if err != nil {
		t.Fatalf("PostSale failed: %v", err)
	}
	if len(view.Items) != 1 {
		t.Fatalf("expected merged single line, got %d", len(view.Items))
	}
	if view.Items[0].Qty != 5 {
		t.Fatalf("expected merged qty 5, got %d", view.Items[0].Qty)
	}

	pen, err := repo.GetProductByID(ctx, "prod-pen-01")
	if err != nil {
		t.Fatalf("GetProductByID failed: %v", err)
	}
	if pen.Quantity != 295 {
		t.Fatalf("expected pen stock 295, got %d", pen.Quantity)
	}
}

func TestPostSaleRejectsBadRequests(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  domain.SaleRequest
	}{
		{"empty cart", domain.SaleRequest{PaymentMode: domain.PaymentCash}},
		{"blank product ids only", domain.SaleRequest{
			Cart:        []domain.CartLine{{ProductID: "  ", Qty: 1}},
			PaymentMode: domain.PaymentCash,
		}},
		{"zero quantity", domain.SaleRequest{
			Cart:        []domain.CartLine{{ProductID: "prod-pen-01", Qty: 0}},
			PaymentMode: domain.PaymentCash,
		}},
		{"negative quantity", domain.SaleRequest{
			Cart:        []domain.CartLine{{ProductID: "prod-pen-01", Qty: -2}},
			PaymentMode: domain.PaymentCash,
		}},
		{"unsupported payment mode", domain.SaleRequest{
			Cart:        []domain.CartLine{{ProductID: "prod-pen-01", Qty: 1}},
			PaymentMode: "CHEQUE",
		}},
		{"two actor references", domain.SaleRequest{
			Cart:        []domain.CartLine{{ProductID: "prod-pen-01", Qty: 1}},
			PaymentMode: domain.PaymentCash,
			EmployeeID:  "emp-1",
			UserID:      "user-1",
		}},
	}

	for _, tc := range cases {
		if _, err := svc.PostSale(ctx, tc.req); !errors.Is(err, store.ErrInvalidRequest) {
			t.Fatalf("%s: expected ErrInvalidRequest, got %v", tc.name, err)
		}
	}
}

func TestPostSaleUnknownProduct(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.PostSale(context.Background(), domain.SaleRequest{
		Cart:        []domain.CartLine{{ProductID: "prod-nope", Qty: 1}},
		PaymentMode: domain.PaymentCash,
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var nf *store.NotFoundError
	if !errors.As(err, &nf) || nf.Entity != "product" || nf.ID != "prod-nope" {
		t.Fatalf("expected product not-found detail, got %v", err)
	}
}

func TestPostSaleUnknownCustomer(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.PostSale(context.Background(), domain.SaleRequest{
		Cart:        []domain.CartLine{{ProductID: "prod-pen-01", Qty: 1}},
		PaymentMode: domain.PaymentCash,
		CustomerID:  "cust-ghost",
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostSaleInsufficientStockDetail(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	if _, err := repo.CreateProduct(ctx, domain.Product{
		ID: "prod-clip-01", Name: "Binder Clip", SellingPriceCents: 100, CostPriceCents: 30, Quantity: 5,
	}); err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}

	_, err := svc.PostSale(ctx, domain.SaleRequest{
		Cart:        []domain.CartLine{{ProductID: "prod-clip-01", Qty: 8}},
		PaymentMode: domain.PaymentCash,
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	var stockErr *store.StockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected StockError detail, got %v", err)
	}
	if stockErr.ProductID != "prod-clip-01" || stockErr.Available != 5 || stockErr.Requested != 8 {
		t.Fatalf("unexpected stock error detail: %+v", stockErr)
	}

	// The failed posting left the stock untouched.
	clip, err := repo.GetProductByID(ctx, "prod-clip-01")
	if err != nil {
		t.Fatalf("GetProductByID failed: %v", err)
	}
	if clip.Quantity != 5 {
		t.Fatalf("expected stock unchanged at 5, got %d", clip.Quantity)
	}
}

func TestPostSalePriceSnapshotSurvivesRepricing(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	view, err := svc.PostSale(ctx, domain.SaleRequest{
		Cart:        []domain.CartLine{{ProductID: "prod-stapler-01", Qty: 1}},
		PaymentMode: domain.PaymentCard,
	})
	if err != nil {
		t.Fatalf("PostSale failed: %v", err)
	}
	if view.TotalCents != 1550 {
		t.Fatalf("expected total 1550, got %d", view.TotalCents)
	}

	if _, err := repo.UpdateProductPrice(ctx, "prod-stapler-01", 2100); err != nil {
		t.Fatalf("UpdateProductPrice failed: %v", err)
	}

	reread, err := svc.GetTransaction(ctx, view.ID)
	if err != nil {
		t.Fatalf("GetTransaction failed: %v", err)
	}
	if reread.TotalCents != 1550 || reread.Items[0].PriceAtSaleCents != 1550 {
		t.Fatalf("expected snapshotted price 1550 after repricing, got total=%d price=%d",
			reread.TotalCents, reread.Items[0].PriceAtSaleCents)
	}
}

func TestConcurrentPostingsNeverOversell(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	if _, err := repo.CreateProduct(ctx, domain.Product{
		ID: "prod-ruler-01", Name: "Steel Ruler", SellingPriceCents: 300, CostPriceCents: 110, Quantity: 10,
	}); err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PostSale(ctx, domain.SaleRequest{
				Cart:        []domain.CartLine{{ProductID: "prod-ruler-01", Qty: 3}},
				PaymentMode: domain.PaymentCash,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		if !errors.Is(err, store.ErrInsufficientStock) {
			t.Fatalf("unexpected failure mode: %v", err)
		}
	}

	ruler, err := repo.GetProductByID(ctx, "prod-ruler-01")
	if err != nil {
		t.Fatalf("GetProductByID failed: %v", err)
	}
	if ruler.Quantity != 10-succeeded*3 {
		t.Fatalf("stock drifted: %d sales succeeded but quantity is %d", succeeded, ruler.Quantity)
	}
	if ruler.Quantity < 0 {
		t.Fatalf("oversold: quantity went negative (%d)", ruler.Quantity)
	}
	if succeeded != 3 {
		t.Fatalf("expected exactly 3 postings of qty 3 against stock 10, got %d", succeeded)
	}
}

func TestConcurrentPostingsExactOverlap(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	if _, err := repo.CreateProduct(ctx, domain.Product{
		ID: "prod-eraser-01", Name: "Rubber Eraser", SellingPriceCents: 100, CostPriceCents: 35, Quantity: 5,
	}); err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.PostSale(ctx, domain.SaleRequest{
				Cart:        []domain.CartLine{{ProductID: "prod-eraser-01", Qty: 3}},
				PaymentMode: domain.PaymentCash,
			})
		}(i)
	}
	wg.Wait()

	var failures []error
	for _, err := range errs {
		if err != nil {
			failures = append(failures, err)
		}
	}
	if len(failures) != 1 {
		t.Fatalf("expected exactly one of two overlapping postings to fail, got %d failures", len(failures))
	}

	var stockErr *store.StockError
	if !errors.As(failures[0], &stockErr) {
		t.Fatalf("expected StockError, got %v", failures[0])
	}
	if stockErr.Available != 2 || stockErr.Requested != 3 {
		t.Fatalf("expected available=2 requested=3, got %+v", stockErr)
	}

	eraser, err := repo.GetProductByID(ctx, "prod-eraser-01")
	if err != nil {
		t.Fatalf("GetProductByID failed: %v", err)
	}
	if eraser.Quantity != 2 {
		t.Fatalf("expected quantity 2 after single successful posting, got %d", eraser.Quantity)
	}
}

func TestRefundRestoresStockAndSpending(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	if _, err := repo.CreateProduct(ctx, domain.Product{
		ID: "prod-glue-01", Name: "Glue Stick", SellingPriceCents: 100, CostPriceCents: 30, Quantity: 5,
	}); err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}

	view, err := svc.PostSale(ctx, domain.SaleRequest{
		Cart:        []domain.CartLine{{ProductID: "prod-glue-01", Qty: 3}},
		PaymentMode: domain.PaymentUPI,
		CustomerID:  "cust-regular-02",
	})
	if err != nil {
		t.Fatalf("PostSale failed: %v", err)
	}
	if view.TotalCents != 300 {
		t.Fatalf("expected total 300, got %d", view.TotalCents)
	}

	customer, err := repo.GetCustomerByID(ctx, "cust-regular-02")
	if err != nil {
		t.Fatalf("GetCustomerByID failed: %v", err)
	}
	if customer.TotalSpendingCents != 300 {
		t.Fatalf("expected spending 300 after sale, got %d", customer.TotalSpendingCents)
	}

	refunded, err := svc.SetTransactionStatus(ctx, view.ID, domain.TxStatusRefunded)
	if err != nil {
		t.Fatalf("SetTransactionStatus failed: %v", err)
	}
	if refunded.Status != domain.TxStatusRefunded {
		t.Fatalf("expected REFUNDED status, got %s", refunded.Status)
	}

	glue, err := repo.GetProductByID(ctx, "prod-glue-01")
	if err != nil {
		t.Fatalf("GetProductByID failed: %v", err)
	}
	if glue.Quantity != 5 {
		t.Fatalf("expected stock fully restored to 5, got %d", glue.Quantity)
	}

	customer, err = repo.GetCustomerByID(ctx, "cust-regular-02")
	if err != nil {
		t.Fatalf("GetCustomerByID failed: %v", err)
	}
	if customer.TotalSpendingCents != 0 {
		t.Fatalf("expected spending back to 0 after refund, got %d", customer.TotalSpendingCents)
	}
}

func TestRefundCompensatesExactlyOnce(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	view, err := svc.PostSale(ctx, domain.SaleRequest{
		Cart:        []domain.CartLine{{ProductID: "prod-tape-01", Qty: 2}},
		PaymentMode: domain.PaymentCash,
	})
	if err != nil {
		t.Fatalf("PostSale failed: %v", err)
	}

	if _, err := svc.SetTransactionStatus(ctx, view.ID, domain.TxStatusRefunded); err != nil {
		t.Fatalf("first refund failed: %v", err)
	}

	_, err = svc.SetTransactionStatus(ctx, view.ID, domain.TxStatusRefunded)
	if !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on second refund, got %v", err)
	}

	tape, err := repo.GetProductByID(ctx, "prod-tape-01")
	if err != nil {
		t.Fatalf("GetProductByID failed: %v", err)
	}
	if tape.Quantity != 80 {
		t.Fatalf("expected stock restored once to 80, got %d", tape.Quantity)
	}
}

func TestTerminalStatesRejectEveryTransition(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	view, err := svc.PostSale(ctx, domain.SaleRequest{
		Cart:        []domain.CartLine{{ProductID: "prod-marker-01", Qty: 1}},
		PaymentMode: domain.PaymentCash,
	})
	if err != nil {
		t.Fatalf("PostSale failed: %v", err)
	}

	if _, err := svc.SetTransactionStatus(ctx, view.ID, domain.TxStatusCancelled); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	for _, next := range []domain.TxStatus{
		domain.TxStatusPending, domain.TxStatusCompleted, domain.TxStatusCancelled, domain.TxStatusRefunded,
	} {
		if _, err := svc.SetTransactionStatus(ctx, view.ID, next); !errors.Is(err, store.ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition to %s from CANCELLED, got %v", next, err)
		}
	}
}

func TestCancelDoesNotCompensate(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	view, err := svc.PostSale(ctx, domain.SaleRequest{
		Cart:        []domain.CartLine{{ProductID: "prod-folder-01", Qty: 4}},
		PaymentMode: domain.PaymentCash,
		CustomerID:  "cust-regular-01",
	})
	if err != nil {
		t.Fatalf("PostSale failed: %v", err)
	}

	if _, err := svc.SetTransactionStatus(ctx, view.ID, domain.TxStatusCancelled); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	folder, err := repo.GetProductByID(ctx, "prod-folder-01")
	if err != nil {
		t.Fatalf("GetProductByID failed: %v", err)
	}
	if folder.Quantity != 196 {
		t.Fatalf("cancel must not restore stock: expected 196, got %d", folder.Quantity)
	}

	customer, err := repo.GetCustomerByID(ctx, "cust-regular-01")
	if err != nil {
		t.Fatalf("GetCustomerByID failed: %v", err)
	}
	if customer.TotalSpendingCents != view.TotalCents {
		t.Fatalf("cancel must not reverse spending: expected %d, got %d", view.TotalCents, customer.TotalSpendingCents)
	}
}

func TestSetStatusValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.SetTransactionStatus(ctx, "tx-missing", domain.TxStatusCancelled); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.SetTransactionStatus(ctx, "tx-any", "SHIPPED"); !errors.Is(err, store.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for unknown status, got %v", err)
	}
	if _, err := svc.SetTransactionStatus(ctx, "   ", domain.TxStatusCancelled); !errors.Is(err, store.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for blank id, got %v", err)
	}
}

func TestRegisterProductValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []domain.ProductCreateRequest{
		{Name: "", SellingPriceCents: 100, CostPriceCents: 40},
		{Name: "Free Sample", SellingPriceCents: 0, CostPriceCents: 0},
		{Name: "Loss Leader", SellingPriceCents: 100, CostPriceCents: 100},
		{Name: "Negative Stock", SellingPriceCents: 100, CostPriceCents: 40, InitialQuantity: -1},
	}
	for _, req := range cases {
		if _, err := svc.RegisterProduct(ctx, req); !errors.Is(err, store.ErrInvalidRequest) {
			t.Fatalf("expected ErrInvalidRequest for %+v, got %v", req, err)
		}
	}

	created, err := svc.RegisterProduct(ctx, domain.ProductCreateRequest{
		Name: "  Sticky Notes  ", SellingPriceCents: 250, CostPriceCents: 90, InitialQuantity: 60,
	})
	if err != nil {
		t.Fatalf("RegisterProduct failed: %v", err)
	}
	if created.Name != "Sticky Notes" {
		t.Fatalf("expected trimmed name, got %q", created.Name)
	}
	if created.ID == "" || created.Quantity != 60 {
		t.Fatalf("unexpected created product: %+v", created)
	}
}

func TestRegisterCustomer(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	if _, err := svc.RegisterCustomer(ctx, domain.CustomerCreateRequest{Name: "   "}); !errors.Is(err, store.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for blank name, got %v", err)
	}

	created, err := svc.RegisterCustomer(ctx, domain.CustomerCreateRequest{Name: "Priya Singh", Email: "priya@example.com"})
	if err != nil {
		t.Fatalf("RegisterCustomer failed: %v", err)
	}
	stored, err := repo.GetCustomerByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetCustomerByID failed: %v", err)
	}
	if stored.TotalSpendingCents != 0 {
		t.Fatalf("new customer must start with zero spending, got %d", stored.TotalSpendingCents)
	}
}

func TestStatsSummaryCountsCompletedOnly(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.PostSale(ctx, domain.SaleRequest{
		Cart:        []domain.CartLine{{ProductID: "prod-pen-01", Qty: 2}},
		PaymentMode: domain.PaymentCash,
	})
	if err != nil {
		t.Fatalf("PostSale failed: %v", err)
	}
	second, err := svc.PostSale(ctx, domain.SaleRequest{
		Cart:        []domain.CartLine{{ProductID: "prod-notebook-01", Qty: 1}},
		PaymentMode: domain.PaymentCard,
	})
	if err != nil {
		t.Fatalf("PostSale failed: %v", err)
	}
	if _, err := svc.SetTransactionStatus(ctx, second.ID, domain.TxStatusRefunded); err != nil {
		t.Fatalf("refund failed: %v", err)
	}

	summary, err := svc.StatsSummary(ctx, "", "")
	if err != nil {
		t.Fatalf("StatsSummary failed: %v", err)
	}
	if summary.Transactions != 1 {
		t.Fatalf("expected 1 completed transaction in summary, got %d", summary.Transactions)
	}
	if summary.RevenueCents != first.TotalCents {
		t.Fatalf("expected revenue %d, got %d", first.TotalCents, summary.RevenueCents)
	}
	if summary.AverageOrderCents != first.TotalCents {
		t.Fatalf("expected average %d, got %d", first.TotalCents, summary.AverageOrderCents)
	}
	if len(summary.ByPaymentMode) != 1 || summary.ByPaymentMode[0].PaymentMode != domain.PaymentCash {
		t.Fatalf("unexpected payment mode split: %+v", summary.ByPaymentMode)
	}

	trend, err := svc.StatsTrend(ctx, "", "")
	if err != nil {
		t.Fatalf("StatsTrend failed: %v", err)
	}
	var total int64
	for _, point := range trend.Points {
		total += point.RevenueCents
	}
	if total != first.TotalCents {
		t.Fatalf("expected trend revenue %d, got %d", first.TotalCents, total)
	}
}

func TestStatsRejectsBadDateRange(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.StatsSummary(ctx, "not-a-date", ""); !errors.Is(err, store.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for malformed date, got %v", err)
	}
	if _, err := svc.StatsSummary(ctx, "2026-08-10", "2026-08-01"); !errors.Is(err, store.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for inverted range, got %v", err)
	}
}

func TestAuditTrailRecordsActor(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := WithActor(context.Background(), domain.Actor{Kind: domain.ActorEmployee, ID: "emp-7", Name: "Kiran"})

	view, err := svc.PostSale(ctx, domain.SaleRequest{
		Cart:        []domain.CartLine{{ProductID: "prod-pen-01", Qty: 1}},
		PaymentMode: domain.PaymentCash,
	})
	if err != nil {
		t.Fatalf("PostSale failed: %v", err)
	}
	if _, err := svc.SetTransactionStatus(ctx, view.ID, domain.TxStatusRefunded); err != nil {
		t.Fatalf("refund failed: %v", err)
	}

	logs, err := svc.ListAuditLogs(ctx, "", "", 50)
	if err != nil {
		t.Fatalf("ListAuditLogs failed: %v", err)
	}
	if len(logs) < 2 {
		t.Fatalf("expected at least 2 audit entries, got %d", len(logs))
	}
	var sawPosting, sawStatus bool
	for _, entry := range logs {
		if entry.EntityID != view.ID {
			continue
		}
		if entry.ActorID != "emp-7" {
			t.Fatalf("expected actor emp-7 on entry %s, got %q", entry.Action, entry.ActorID)
		}
		switch entry.Action {
		case "sale_post":
			sawPosting = true
		case "status_change":
			sawStatus = true
		}
	}
	if !sawPosting || !sawStatus {
		t.Fatalf("expected posting and status audit entries, got posting=%v status=%v", sawPosting, sawStatus)
	}
}
