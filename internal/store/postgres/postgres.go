package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"salepoint/backend/internal/domain"
	"salepoint/backend/internal/store"
	"salepoint/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.SellingPriceCents < 1 || product.CostPriceCents < 0 || product.Quantity < 0 {
		return nil, store.ErrInvalidRequest
	}
	if product.CostPriceCents >= product.SellingPriceCents {
		return nil, store.ErrInvalidRequest
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, selling_price_cents, cost_price_cents, quantity, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now(),now())
	`, product.ID, product.Name, product.SellingPriceCents, product.CostPriceCents, product.Quantity)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidRequest
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	var product domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, selling_price_cents, cost_price_cents, quantity
		FROM products
		WHERE id = $1
	`, id).Scan(&product.ID, &product.Name, &product.SellingPriceCents, &product.CostPriceCents, &product.Quantity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &store.NotFoundError{Entity: "product", ID: id}
		}
		return nil, err
	}
	return &product, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	result := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, selling_price_cents, cost_price_cents, quantity
		FROM products
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.SellingPriceCents, &p.CostPriceCents, &p.Quantity); err != nil {
			return nil, err
		}
		result[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *Store) UpdateProductPrice(ctx context.Context, id string, sellingPriceCents int64) (*domain.Product, error) {
	if sellingPriceCents < 1 {
		return nil, store.ErrInvalidRequest
	}

	var product domain.Product
	err := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET selling_price_cents = $2, updated_at = now()
		WHERE id = $1 AND cost_price_cents < $2
		RETURNING id, name, selling_price_cents, cost_price_cents, quantity
	`, id, sellingPriceCents).Scan(&product.ID, &product.Name, &product.SellingPriceCents, &product.CostPriceCents, &product.Quantity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Either the product is missing or the new price breaks the
			// margin constraint; disambiguate with a plain read.
			if _, lookupErr := s.GetProductByID(ctx, id); lookupErr != nil {
				return nil, lookupErr
			}
			return nil, store.ErrInvalidRequest
		}
		return nil, err
	}
	return &product, nil
}

func (s *Store) IncreaseStock(ctx context.Context, productID string, qty int) error {
	if qty < 1 {
		return store.ErrInvalidRequest
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET quantity = quantity + $1, updated_at = now()
		WHERE id = $2
	`, qty, productID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &store.NotFoundError{Entity: "product", ID: productID}
	}
	return nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.Name == "" {
		return nil, store.ErrInvalidRequest
	}
	if customer.ID == "" {
		customer.ID = xid.New("cust")
	}
	customer.TotalSpendingCents = 0

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, email, phone, address, total_spending_cents, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,0,now(),now())
	`, customer.ID, customer.Name, nullIfEmpty(customer.Email), nullIfEmpty(customer.Phone), nullIfEmpty(customer.Address))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidRequest
		}
		return nil, err
	}

	created := customer
	return &created, nil
}

func (s *Store) GetCustomerByID(ctx context.Context, id string) (*domain.Customer, error) {
	var customer domain.Customer
	var email, phone, address sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, phone, address, total_spending_cents
		FROM customers
		WHERE id = $1
	`, id).Scan(&customer.ID, &customer.Name, &email, &phone, &address, &customer.TotalSpendingCents)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &store.NotFoundError{Entity: "customer", ID: id}
		}
		return nil, err
	}
	if email.Valid {
		customer.Email = email.String
	}
	if phone.Valid {
		customer.Phone = phone.String
	}
	if address.Valid {
		customer.Address = address.String
	}
	return &customer, nil
}

func (s *Store) CreateSale(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	if len(tx.Items) == 0 || !tx.PaymentMode.Valid() {
		return nil, store.ErrInvalidRequest
	}
	for _, item := range tx.Items {
		if item.Qty < 1 {
			return nil, store.ErrInvalidRequest
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

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	ids := make([]string, 0, len(tx.Items))
	for _, item := range tx.Items {
		ids = append(ids, item.ProductID)
	}

	productRows, err := pgTx.QueryContext(ctx, `
		SELECT id, selling_price_cents, quantity
		FROM products
		WHERE id = ANY($1)
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, err
	}
	type productState struct {
		priceCents int64
		quantity   int
	}
	productMap := make(map[string]productState, len(ids))
	for productRows.Next() {
		var id string
		var state productState
		if err := productRows.Scan(&id, &state.priceCents, &state.quantity); err != nil {
			_ = productRows.Close()
			return nil, err
		}
		productMap[id] = state
	}
	if err := productRows.Err(); err != nil {
		_ = productRows.Close()
		return nil, err
	}
	_ = productRows.Close()

	for _, item := range tx.Items {
		product, exists := productMap[item.ProductID]
		if !exists {
			return nil, &store.NotFoundError{Entity: "product", ID: item.ProductID}
		}
		if product.quantity < item.Qty {
			return nil, &store.StockError{ProductID: item.ProductID, Available: product.quantity, Requested: item.Qty}
		}
	}

	if tx.CustomerID != "" {
		var customerID string
		err = pgTx.QueryRowContext(ctx, `
			SELECT id FROM customers WHERE id = $1 FOR UPDATE
		`, tx.CustomerID).Scan(&customerID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, &store.NotFoundError{Entity: "customer", ID: tx.CustomerID}
			}
			return nil, err
		}
	}

	totalCents := int64(0)
	pricedItems := make([]domain.TransactionItem, 0, len(tx.Items))
	for _, item := range tx.Items {
		product := productMap[item.ProductID]

		// The decrement re-verifies availability at write time. A row that
		// lost stock since the locked read simply does not match, so the
		// update affects zero rows and the whole unit rolls back.
		res, err := pgTx.ExecContext(ctx, `
			UPDATE products
			SET quantity = quantity - $1, updated_at = now()
			WHERE id = $2 AND quantity >= $1
		`, item.Qty, item.ProductID)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, &store.StockError{ProductID: item.ProductID, Available: product.quantity, Requested: item.Qty}
		}

		subtotal := product.priceCents * int64(item.Qty)
		pricedItems = append(pricedItems, domain.TransactionItem{
			ID:               xid.New("txi"),
			TransactionID:    tx.ID,
			ProductID:        item.ProductID,
			Qty:              item.Qty,
			PriceAtSaleCents: product.priceCents,
			SubtotalCents:    subtotal,
		})
		totalCents += subtotal
	}
	tx.Items = pricedItems
	tx.TotalCents = totalCents

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO transactions (
			id, total_cents, payment_mode, status, customer_id, employee_id, user_id, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, tx.ID, tx.TotalCents, tx.PaymentMode, tx.Status, nullIfEmpty(tx.CustomerID), nullIfEmpty(tx.EmployeeID), nullIfEmpty(tx.UserID), tx.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidRequest
		}
		return nil, err
	}

	for _, item := range tx.Items {
		_, err := pgTx.ExecContext(ctx, `
			INSERT INTO transaction_items (id, transaction_id, product_id, qty, price_at_sale_cents, subtotal_cents)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, item.ID, item.TransactionID, item.ProductID, item.Qty, item.PriceAtSaleCents, item.SubtotalCents)
		if err != nil {
			return nil, err
		}
	}

	if tx.CustomerID != "" && tx.Status == domain.TxStatusCompleted {
		_, err = pgTx.ExecContext(ctx, `
			UPDATE customers
			SET total_spending_cents = total_spending_cents + $2, updated_at = now()
			WHERE id = $1
		`, tx.CustomerID, tx.TotalCents)
		if err != nil {
			return nil, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	return &tx, nil
}

func (s *Store) GetTransactionByID(ctx context.Context, id string) (*domain.Transaction, error) {
	var tx domain.Transaction
	var customerID, employeeID, userID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, total_cents, payment_mode, status, customer_id, employee_id, user_id, created_at
		FROM transactions
		WHERE id = $1
	`, id).Scan(&tx.ID, &tx.TotalCents, &tx.PaymentMode, &tx.Status, &customerID, &employeeID, &userID, &tx.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &store.NotFoundError{Entity: "transaction", ID: id}
		}
		return nil, err
	}
	if customerID.Valid {
		tx.CustomerID = customerID.String
	}
	if employeeID.Valid {
		tx.EmployeeID = employeeID.String
	}
	if userID.Valid {
		tx.UserID = userID.String
	}
	tx.CreatedAt = tx.CreatedAt.UTC()

	items, err := s.listTransactionItems(ctx, tx.ID)
	if err != nil {
		return nil, err
	}
	tx.Items = items

	return &tx, nil
}

func (s *Store) listTransactionItems(ctx context.Context, transactionID string) ([]domain.TransactionItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, product_id, qty, price_at_sale_cents, subtotal_cents
		FROM transaction_items
		WHERE transaction_id = $1
		ORDER BY id ASC
	`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.TransactionItem, 0, 8)
	for rows.Next() {
		var item domain.TransactionItem
		if err := rows.Scan(&item.ID, &item.TransactionID, &item.ProductID, &item.Qty, &item.PriceAtSaleCents, &item.SubtotalCents); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetTransactionView(ctx context.Context, id string) (*domain.TransactionView, error) {
	var view domain.TransactionView
	var customerID, customerName sql.NullString
	var customerSpending sql.NullInt64
	var employeeID, userID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT t.id, t.total_cents, t.payment_mode, t.status, t.employee_id, t.user_id, t.created_at,
			c.id, c.name, c.total_spending_cents
		FROM transactions t
		LEFT JOIN customers c ON c.id = t.customer_id
		WHERE t.id = $1
	`, id).Scan(&view.ID, &view.TotalCents, &view.PaymentMode, &view.Status, &employeeID, &userID, &view.CreatedAt,
		&customerID, &customerName, &customerSpending)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &store.NotFoundError{Entity: "transaction", ID: id}
		}
		return nil, err
	}
	if employeeID.Valid {
		view.EmployeeID = employeeID.String
	}
	if userID.Valid {
		view.UserID = userID.String
	}
	if customerID.Valid {
		view.Customer = &domain.CustomerSummary{
			ID:                 customerID.String,
			Name:               customerName.String,
			TotalSpendingCents: customerSpending.Int64,
		}
	}
	view.CreatedAt = view.CreatedAt.UTC()

	rows, err := s.db.QueryContext(ctx, `
		SELECT ti.product_id, COALESCE(p.name, ''), ti.qty, ti.price_at_sale_cents, ti.subtotal_cents
		FROM transaction_items ti
		LEFT JOIN products p ON p.id = ti.product_id
		WHERE ti.transaction_id = $1
		ORDER BY ti.id ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	view.Items = make([]domain.TransactionItemView, 0, 8)
	for rows.Next() {
		var item domain.TransactionItemView
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Qty, &item.PriceAtSaleCents, &item.SubtotalCents); err != nil {
			return nil, err
		}
		view.Items = append(view.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &view, nil
}

func (s *Store) UpdateTransactionStatus(ctx context.Context, id string, next domain.TxStatus, at time.Time) (*domain.Transaction, error) {
	if !next.Valid() {
		return nil, store.ErrInvalidRequest
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var tx domain.Transaction
	var customerID, employeeID, userID sql.NullString
	err = pgTx.QueryRowContext(ctx, `
		SELECT id, total_cents, payment_mode, status, customer_id, employee_id, user_id, created_at
		FROM transactions
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&tx.ID, &tx.TotalCents, &tx.PaymentMode, &tx.Status, &customerID, &employeeID, &userID, &tx.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &store.NotFoundError{Entity: "transaction", ID: id}
		}
		return nil, err
	}
	if customerID.Valid {
		tx.CustomerID = customerID.String
	}
	if employeeID.Valid {
		tx.EmployeeID = employeeID.String
	}
	if userID.Valid {
		tx.UserID = userID.String
	}
	tx.CreatedAt = tx.CreatedAt.UTC()

	if !tx.Status.CanTransitionTo(next) {
		return nil, &store.TransitionError{TransactionID: id, From: tx.Status, To: next}
	}

	if domain.NeedsRefundCompensation(tx.Status, next) {
		itemRows, err := pgTx.QueryContext(ctx, `
			SELECT product_id, qty
			FROM transaction_items
			WHERE transaction_id = $1
		`, id)
		if err != nil {
			return nil, err
		}
		type restoreLine struct {
			productID string
			qty       int
		}
		restores := make([]restoreLine, 0, 8)
		for itemRows.Next() {
			var line restoreLine
			if err := itemRows.Scan(&line.productID, &line.qty); err != nil {
				_ = itemRows.Close()
				return nil, err
			}
			restores = append(restores, line)
		}
		if err := itemRows.Err(); err != nil {
			_ = itemRows.Close()
			return nil, err
		}
		_ = itemRows.Close()

		for _, line := range restores {
			_, err := pgTx.ExecContext(ctx, `
				UPDATE products
				SET quantity = quantity + $1, updated_at = now()
				WHERE id = $2
			`, line.qty, line.productID)
			if err != nil {
				return nil, err
			}
		}

		if tx.CustomerID != "" {
			_, err = pgTx.ExecContext(ctx, `
				UPDATE customers
				SET total_spending_cents = total_spending_cents - $2, updated_at = now()
				WHERE id = $1
			`, tx.CustomerID, tx.TotalCents)
			if err != nil {
				return nil, err
			}
		}
	}

	// The status guard repeats the state check at write time so the
	// compensation above can only ever commit alongside the first
	// transition out of the prior status.
	res, err := pgTx.ExecContext(ctx, `
		UPDATE transactions
		SET status = $2, status_changed_at = $3
		WHERE id = $1 AND status = $4
	`, id, next, at, tx.Status)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, &store.TransitionError{TransactionID: id, From: tx.Status, To: next}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	tx.Status = next
	items, err := s.listTransactionItems(ctx, tx.ID)
	if err != nil {
		return nil, err
	}
	tx.Items = items

	return &tx, nil
}

func (s *Store) GetStatsSummary(ctx context.Context, from time.Time, to time.Time) (domain.StatsSummary, error) {
	summary := domain.StatsSummary{
		ByPaymentMode: make([]domain.PaymentModeStat, 0, 4),
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)::bigint, COALESCE(SUM(total_cents),0)::bigint
		FROM transactions
		WHERE status = $1
			AND created_at >= $2
			AND created_at < $3
	`, domain.TxStatusCompleted, from, to).Scan(&summary.Transactions, &summary.RevenueCents)
	if err != nil {
		return summary, err
	}
	if summary.Transactions > 0 {
		summary.AverageOrderCents = summary.RevenueCents / summary.Transactions
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT payment_mode, COUNT(*)::bigint, COALESCE(SUM(total_cents),0)::bigint
		FROM transactions
		WHERE status = $1
			AND created_at >= $2
			AND created_at < $3
		GROUP BY payment_mode
		ORDER BY payment_mode
	`, domain.TxStatusCompleted, from, to)
	if err != nil {
		return summary, err
	}
	defer rows.Close()

	for rows.Next() {
		var stat domain.PaymentModeStat
		if err := rows.Scan(&stat.PaymentMode, &stat.Transactions, &stat.RevenueCents); err != nil {
			return summary, err
		}
		summary.ByPaymentMode = append(summary.ByPaymentMode, stat)
	}
	if err := rows.Err(); err != nil {
		return summary, err
	}

	return summary, nil
}

func (s *Store) GetStatsTrend(ctx context.Context, from time.Time, to time.Time) (domain.StatsTrend, error) {
	trend := domain.StatsTrend{Points: make([]domain.TrendPoint, 0, 32)}

	rows, err := s.db.QueryContext(ctx, `
		SELECT to_char(date_trunc('day', created_at AT TIME ZONE 'UTC'), 'YYYY-MM-DD'),
			COUNT(*)::bigint, COALESCE(SUM(total_cents),0)::bigint
		FROM transactions
		WHERE status = $1
			AND created_at >= $2
			AND created_at < $3
		GROUP BY 1
		ORDER BY 1
	`, domain.TxStatusCompleted, from, to)
	if err != nil {
		return trend, err
	}
	defer rows.Close()

	for rows.Next() {
		var point domain.TrendPoint
		if err := rows.Scan(&point.Date, &point.Transactions, &point.RevenueCents); err != nil {
			return trend, err
		}
		trend.Points = append(trend.Points, point)
	}
	if err := rows.Err(); err != nil {
		return trend, err
	}

	return trend, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_kind, actor_id, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, nullIfEmpty(entry.ActorKind), nullIfEmpty(entry.ActorID), entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(actor_kind,''), COALESCE(actor_id,''), action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1
			AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorKind, &entry.ActorID, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
