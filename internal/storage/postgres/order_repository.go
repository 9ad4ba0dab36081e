package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

const orderColumns = `
	id, user_id, status,
	items_price_minor, shipping_price_minor, total_price_minor,
	payment_method, gateway_payment_id,
	payment_id, payment_status, payment_update_time, payer_email, card_brand, card_last_four,
	addr_full_name, addr_line1, addr_city, addr_postal_code, addr_country,
	paid_at, delivered_at, version, created_at, updated_at`

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

func (r *orderRepository) Create(order domain.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = insertOrderTx(ctx, tx, order); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}
	return nil
}

// insertOrderTx вставляет заказ и его позиции в рамках внешней транзакции —
// используется и напрямую, и из CheckoutStore вместе со списанием стока.
func insertOrderTx(ctx context.Context, tx *sql.Tx, order domain.Order) error {
	pr := paymentColumns(order.PaymentResult)

	_, err := tx.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)
	`,
		order.ID, order.UserID, string(order.Status),
		order.ItemsPriceMinor, order.ShippingPriceMinor, order.TotalPriceMinor,
		order.PaymentMethod, order.GatewayPaymentID,
		pr.id, pr.status, pr.updateTime, pr.payerEmail, pr.cardBrand, pr.cardLastFour,
		order.ShippingAddress.FullName, order.ShippingAddress.Line1, order.ShippingAddress.City,
		order.ShippingAddress.PostalCode, order.ShippingAddress.Country,
		nullableTime(order.PaidAt), nullableTime(order.DeliveredAt),
		order.Version, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrOrderVersionConflict
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for i, item := range order.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, position, product_id, name, qty, unit_price_minor, image)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, order.ID, i, item.ProductID, item.Name, item.Qty, item.UnitPriceMinor, item.Image); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func (r *orderRepository) Get(id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	items, err := r.loadItems(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items
	return order, nil
}

func (r *orderRepository) ListByUser(userID string, limit int) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+" LIMIT $2", userID, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("list user orders: %w", err)
	}
	defer rows.Close()

	return r.collectOrders(ctx, rows)
}

func (r *orderRepository) List(offset, limit int, sort domain.OrderSort) ([]domain.Order, int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 20
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT `+orderColumns+`
		FROM orders
		ORDER BY `+orderSortClause(sort)+`
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders, err := r.collectOrders(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// orderSortClause отображает OrderSort в фиксированный ORDER BY.
// Пользовательский ввод сюда не попадает: допустимы только известные поля.
func orderSortClause(sort domain.OrderSort) string {
	column := "created_at"
	if sort.Field == domain.OrderSortTotal {
		column = "total_price_minor"
	}
	direction := "DESC"
	if sort.Asc {
		direction = "ASC"
	}
	return column + " " + direction + ", id " + direction
}

func (r *orderRepository) Save(order domain.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	pr := paymentColumns(order.PaymentResult)

	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
		    gateway_payment_id = $2,
		    payment_id = $3,
		    payment_status = $4,
		    payment_update_time = $5,
		    payer_email = $6,
		    card_brand = $7,
		    card_last_four = $8,
		    paid_at = $9,
		    delivered_at = $10,
		    version = version + 1,
		    updated_at = $11
		WHERE id = $12
		  AND version = $13
	`,
		string(order.Status), order.GatewayPaymentID,
		pr.id, pr.status, pr.updateTime, pr.payerEmail, pr.cardBrand, pr.cardLastFour,
		nullableTime(order.PaidAt), nullableTime(order.DeliveredAt),
		order.UpdatedAt, order.ID, order.Version,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		exists, err := r.orderExists(ctx, order.ID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrOrderNotFound
		}
		return domain.ErrOrderVersionConflict
	}
	return nil
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row scannable) (domain.Order, error) {
	var (
		order             domain.Order
		status            string
		payID, payStatus  sql.NullString
		payUpdate         sql.NullTime
		payerEmail        sql.NullString
		cardBrand         sql.NullString
		cardLastFour      sql.NullString
		paidAt, delivered sql.NullTime
	)

	err := row.Scan(
		&order.ID, &order.UserID, &status,
		&order.ItemsPriceMinor, &order.ShippingPriceMinor, &order.TotalPriceMinor,
		&order.PaymentMethod, &order.GatewayPaymentID,
		&payID, &payStatus, &payUpdate, &payerEmail, &cardBrand, &cardLastFour,
		&order.ShippingAddress.FullName, &order.ShippingAddress.Line1, &order.ShippingAddress.City,
		&order.ShippingAddress.PostalCode, &order.ShippingAddress.Country,
		&paidAt, &delivered, &order.Version, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}

	order.Status = domain.OrderStatus(status)
	if payID.Valid {
		order.PaymentResult = &domain.PaymentResult{
			ID:           payID.String,
			Status:       domain.GatewayStatus(payStatus.String),
			UpdateTime:   payUpdate.Time,
			PayerEmail:   payerEmail.String,
			CardBrand:    cardBrand.String,
			CardLastFour: cardLastFour.String,
		}
	}
	if paidAt.Valid {
		t := paidAt.Time
		order.PaidAt = &t
	}
	if delivered.Valid {
		t := delivered.Time
		order.DeliveredAt = &t
	}
	return order, nil
}

func (r *orderRepository) collectOrders(ctx context.Context, rows *sql.Rows) ([]domain.Order, error) {
	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		items, err := r.loadItems(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		order.Items = items
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	return orders, nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, name, qty, unit_price_minor, image
		FROM order_items
		WHERE order_id = $1
		ORDER BY position ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Qty, &item.UnitPriceMinor, &item.Image); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return items, nil
}

func (r *orderRepository) orderExists(ctx context.Context, orderID string) (bool, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = $1`, orderID).Scan(&id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check order exists: %w", err)
}

type paymentColumnValues struct {
	id, status, payerEmail  sql.NullString
	cardBrand, cardLastFour sql.NullString
	updateTime              sql.NullTime
}

func paymentColumns(pr *domain.PaymentResult) paymentColumnValues {
	if pr == nil {
		return paymentColumnValues{}
	}
	return paymentColumnValues{
		id:           sql.NullString{String: pr.ID, Valid: true},
		status:       sql.NullString{String: string(pr.Status), Valid: true},
		updateTime:   sql.NullTime{Time: pr.UpdateTime, Valid: !pr.UpdateTime.IsZero()},
		payerEmail:   sql.NullString{String: pr.PayerEmail, Valid: true},
		cardBrand:    sql.NullString{String: pr.CardBrand, Valid: true},
		cardLastFour: sql.NullString{String: pr.CardLastFour, Valid: true},
	}
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.OrderRepository = (*orderRepository)(nil)
