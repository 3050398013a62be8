package inventory

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

// Ledger — in-memory реализация складского учёта с эксклюзивной блокировкой
// на уровне отдельного product_id. Операции по разным товарам идут параллельно,
// операции по одному товару сериализуются. Глобальный mutex защищает только
// сами map'ы и никогда не удерживается на время мутации счётчиков.
type Ledger struct {
	mu      sync.RWMutex
	locks   map[int64]*sync.Mutex
	records map[int64]*domain.InventoryRecord
	logger  *log.Entry
}

// NewLedger создаёт пустой складской учёт. Записи появляются лениво при AddStock.
func NewLedger(logger *log.Entry) *Ledger {
	if logger == nil {
		logger = log.New().WithField("component", "inventory-ledger")
	}
	return &Ledger{
		locks:   make(map[int64]*sync.Mutex),
		records: make(map[int64]*domain.InventoryRecord),
		logger:  logger,
	}
}

// lockFor возвращает mutex, сериализующий операции по одному товару.
func (l *Ledger) lockFor(productID int64) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[productID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[productID] = m
	}
	return m
}

// record возвращает указатель на запись учёта. Счётчики записи можно мутировать
// только под lockFor соответствующего товара.
func (l *Ledger) record(productID int64) (*domain.InventoryRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, ok := l.records[productID]
	return rec, ok
}

// Reserve удерживает qty единиц под заказ: available -= qty, reserved += qty.
func (l *Ledger) Reserve(ctx context.Context, req domain.ReservationRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if errs := req.Validate(); len(errs) > 0 {
		return errs[0]
	}

	km := l.lockFor(req.ProductID)
	km.Lock()
	defer km.Unlock()

	rec, ok := l.record(req.ProductID)
	if !ok {
		return fmt.Errorf("reserve product %d: %w", req.ProductID, domain.ErrProductNotFound)
	}
	if rec.Available < req.Qty {
		return fmt.Errorf("reserve product %d: available %d, requested %d: %w",
			req.ProductID, rec.Available, req.Qty, domain.ErrInsufficientStock)
	}

	rec.Available -= req.Qty
	rec.Reserved += req.Qty

	l.logger.WithFields(log.Fields{
		"product_id": req.ProductID,
		"qty":        req.Qty,
		"available":  rec.Available,
		"reserved":   rec.Reserved,
	}).Debug("stock reserved")
	return nil
}

// Release снимает резерв обратно в свободный остаток (компенсация).
func (l *Ledger) Release(ctx context.Context, req domain.ReservationRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if errs := req.Validate(); len(errs) > 0 {
		return errs[0]
	}

	km := l.lockFor(req.ProductID)
	km.Lock()
	defer km.Unlock()

	rec, ok := l.record(req.ProductID)
	if !ok {
		return fmt.Errorf("release product %d: %w", req.ProductID, domain.ErrProductNotFound)
	}
	if rec.Reserved < req.Qty {
		return fmt.Errorf("release product %d: reserved %d, requested %d: %w",
			req.ProductID, rec.Reserved, req.Qty, domain.ErrInvalidReservation)
	}

	rec.Reserved -= req.Qty
	rec.Available += req.Qty

	l.logger.WithFields(log.Fields{
		"product_id": req.ProductID,
		"qty":        req.Qty,
	}).Debug("stock released")
	return nil
}

// Confirm окончательно списывает резерв: reserved -= qty, в available ничего
// не возвращается — товар продан.
func (l *Ledger) Confirm(ctx context.Context, req domain.ReservationRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if errs := req.Validate(); len(errs) > 0 {
		return errs[0]
	}

	km := l.lockFor(req.ProductID)
	km.Lock()
	defer km.Unlock()

	rec, ok := l.record(req.ProductID)
	if !ok {
		return fmt.Errorf("confirm product %d: %w", req.ProductID, domain.ErrProductNotFound)
	}
	if rec.Reserved < req.Qty {
		return fmt.Errorf("confirm product %d: reserved %d, requested %d: %w",
			req.ProductID, rec.Reserved, req.Qty, domain.ErrInvalidReservation)
	}

	rec.Reserved -= req.Qty

	l.logger.WithFields(log.Fields{
		"product_id": req.ProductID,
		"qty":        req.Qty,
	}).Debug("reservation confirmed")
	return nil
}

// AddStock пополняет свободный остаток, создавая запись при её отсутствии.
// Авторизацию привилегированного вызывающего выполняет внешний слой.
func (l *Ledger) AddStock(ctx context.Context, productID int64, qty int32) (domain.InventoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.InventoryRecord{}, err
	}
	if productID <= 0 {
		return domain.InventoryRecord{}, domain.ErrReservationProductRequired
	}
	if qty <= 0 {
		return domain.InventoryRecord{}, domain.ErrReservationQtyInvalid
	}

	km := l.lockFor(productID)
	km.Lock()
	defer km.Unlock()

	rec, ok := l.record(productID)
	if !ok {
		rec = &domain.InventoryRecord{ProductID: productID}
		l.mu.Lock()
		l.records[productID] = rec
		l.mu.Unlock()
	}
	rec.Available += qty

	l.logger.WithFields(log.Fields{
		"product_id": productID,
		"qty":        qty,
		"available":  rec.Available,
	}).Info("stock added")
	return *rec, nil
}

// IsInStock отвечает, хватает ли свободного остатка. Неизвестный товар — не в наличии.
func (l *Ledger) IsInStock(ctx context.Context, productID int64, qty int32) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	km := l.lockFor(productID)
	km.Lock()
	defer km.Unlock()

	rec, ok := l.record(productID)
	if !ok {
		return false, nil
	}
	return rec.Available >= qty, nil
}

// Get возвращает копию записи учёта или ErrProductNotFound.
func (l *Ledger) Get(ctx context.Context, productID int64) (domain.InventoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.InventoryRecord{}, err
	}

	km := l.lockFor(productID)
	km.Lock()
	defer km.Unlock()

	rec, ok := l.record(productID)
	if !ok {
		return domain.InventoryRecord{}, fmt.Errorf("get product %d: %w", productID, domain.ErrProductNotFound)
	}
	return *rec, nil
}

var _ domain.InventoryLedger = (*Ledger)(nil)
