package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

type inventoryRepository struct {
	db *sql.DB
}

// NewInventoryRepository создаёт PostgreSQL-реализацию складского учёта.
// Линеаризуемость на уровне товара обеспечивается блокировкой строки:
// SELECT ... FOR UPDATE сериализует конкурентные мутации одного product_id.
func NewInventoryRepository(store *Store) domain.InventoryLedger {
	return &inventoryRepository{db: store.DB()}
}

func (r *inventoryRepository) Reserve(ctx context.Context, req domain.ReservationRequest) error {
	if errs := req.Validate(); len(errs) > 0 {
		return errs[0]
	}

	return r.mutate(ctx, req.ProductID, func(rec *domain.InventoryRecord) error {
		if rec.Available < req.Qty {
			return fmt.Errorf("reserve product %d: available %d, requested %d: %w",
				req.ProductID, rec.Available, req.Qty, domain.ErrInsufficientStock)
		}
		rec.Available -= req.Qty
		rec.Reserved += req.Qty
		return nil
	})
}

func (r *inventoryRepository) Release(ctx context.Context, req domain.ReservationRequest) error {
	if errs := req.Validate(); len(errs) > 0 {
		return errs[0]
	}

	return r.mutate(ctx, req.ProductID, func(rec *domain.InventoryRecord) error {
		if rec.Reserved < req.Qty {
			return fmt.Errorf("release product %d: reserved %d, requested %d: %w",
				req.ProductID, rec.Reserved, req.Qty, domain.ErrInvalidReservation)
		}
		rec.Reserved -= req.Qty
		rec.Available += req.Qty
		return nil
	})
}

func (r *inventoryRepository) Confirm(ctx context.Context, req domain.ReservationRequest) error {
	if errs := req.Validate(); len(errs) > 0 {
		return errs[0]
	}

	return r.mutate(ctx, req.ProductID, func(rec *domain.InventoryRecord) error {
		if rec.Reserved < req.Qty {
			return fmt.Errorf("confirm product %d: reserved %d, requested %d: %w",
				req.ProductID, rec.Reserved, req.Qty, domain.ErrInvalidReservation)
		}
		rec.Reserved -= req.Qty
		return nil
	})
}

// mutate выполняет чтение-изменение-запись записи учёта под row lock.
func (r *inventoryRepository) mutate(ctx context.Context, productID int64, apply func(*domain.InventoryRecord) error) error {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(opCtx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var rec domain.InventoryRecord
	err = tx.QueryRowContext(opCtx, `
		SELECT product_id, available, reserved
		FROM inventory
		WHERE product_id = $1
		FOR UPDATE
	`, productID).Scan(&rec.ProductID, &rec.Available, &rec.Reserved)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = fmt.Errorf("product %d: %w", productID, domain.ErrProductNotFound)
			return err
		}
		return fmt.Errorf("select inventory row: %w", err)
	}

	if err = apply(&rec); err != nil {
		return err
	}

	if _, err = tx.ExecContext(opCtx, `
		UPDATE inventory
		SET available = $1, reserved = $2, updated_at = NOW()
		WHERE product_id = $3
	`, rec.Available, rec.Reserved, productID); err != nil {
		return fmt.Errorf("update inventory row: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit inventory update: %w", err)
	}

	return nil
}

func (r *inventoryRepository) AddStock(ctx context.Context, productID int64, qty int32) (domain.InventoryRecord, error) {
	if productID <= 0 {
		return domain.InventoryRecord{}, domain.ErrReservationProductRequired
	}
	if qty <= 0 {
		return domain.InventoryRecord{}, domain.ErrReservationQtyInvalid
	}

	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var rec domain.InventoryRecord
	err := r.db.QueryRowContext(opCtx, `
		INSERT INTO inventory (product_id, available, reserved, updated_at)
		VALUES ($1, $2, 0, NOW())
		ON CONFLICT (product_id)
		DO UPDATE SET available = inventory.available + EXCLUDED.available, updated_at = NOW()
		RETURNING product_id, available, reserved
	`, productID, qty).Scan(&rec.ProductID, &rec.Available, &rec.Reserved)
	if err != nil {
		return domain.InventoryRecord{}, fmt.Errorf("add stock for product %d: %w", productID, err)
	}

	return rec, nil
}

func (r *inventoryRepository) IsInStock(ctx context.Context, productID int64, qty int32) (bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var available int32
	err := r.db.QueryRowContext(opCtx, `
		SELECT available FROM inventory WHERE product_id = $1
	`, productID).Scan(&available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check stock for product %d: %w", productID, err)
	}

	return available >= qty, nil
}

func (r *inventoryRepository) Get(ctx context.Context, productID int64) (domain.InventoryRecord, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var rec domain.InventoryRecord
	err := r.db.QueryRowContext(opCtx, `
		SELECT product_id, available, reserved FROM inventory WHERE product_id = $1
	`, productID).Scan(&rec.ProductID, &rec.Available, &rec.Reserved)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.InventoryRecord{}, fmt.Errorf("get product %d: %w", productID, domain.ErrProductNotFound)
		}
		return domain.InventoryRecord{}, fmt.Errorf("select inventory row: %w", err)
	}

	return rec, nil
}

var _ domain.InventoryLedger = (*inventoryRepository)(nil)
