package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

type checkoutStore struct {
	db *sql.DB
}

// NewCheckoutStore создаёт PostgreSQL-реализацию CheckoutStore.
//
// Заказ и списание стока выполняются одной транзакцией: либо заказ записан
// и весь сток по его позициям списан, либо не произошло ничего. Перед
// откатом по нехватке собираются все короткие позиции, а не первая.
func NewCheckoutStore(store *Store) domain.CheckoutStore {
	return &checkoutStore{db: store.DB()}
}

func (s *checkoutStore) CreateOrderReservingStock(order domain.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var shortages []domain.StockShortage
	for _, item := range order.Items {
		reserved, reserveErr := reserveItemTx(ctx, tx, item)
		if reserveErr != nil {
			err = reserveErr
			return err
		}
		if !reserved {
			shortage, shortErr := shortageFor(ctx, tx, item)
			if shortErr != nil {
				err = shortErr
				return err
			}
			shortages = append(shortages, shortage)
		}
	}
	if len(shortages) > 0 {
		err = &domain.InsufficientStockError{Shortages: shortages}
		return err
	}

	if err = insertOrderTx(ctx, tx, order); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit checkout: %w", err)
	}
	return nil
}

func reserveItemTx(ctx context.Context, tx *sql.Tx, item domain.OrderItem) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - $2
		WHERE id = $1
		  AND stock >= $2
	`, item.ProductID, item.Qty)
	if err != nil {
		return false, fmt.Errorf("reserve stock for %s: %w", item.ProductID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reserve rows affected: %w", err)
	}
	return affected > 0, nil
}

func shortageFor(ctx context.Context, tx *sql.Tx, item domain.OrderItem) (domain.StockShortage, error) {
	shortage := domain.StockShortage{
		ProductID: item.ProductID,
		Name:      item.Name,
		Requested: item.Qty,
	}

	var available int32
	err := tx.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = $1`, item.ProductID).Scan(&available)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return domain.StockShortage{}, fmt.Errorf("read stock for %s: %w", item.ProductID, err)
	}
	shortage.Available = available
	return shortage, nil
}

var _ domain.CheckoutStore = (*checkoutStore)(nil)
