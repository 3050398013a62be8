package domain

// InventoryRecord — складской учёт по одному товару. Сумма available+reserved
// равна физическому остатку и меняется только через AddStock.
type InventoryRecord struct {
	ProductID int64
	// Available — свободный остаток, доступный новым заказам.
	Available int32
	// Reserved — провизорно удержанный остаток незавершённых заказов.
	Reserved int32
}

// ReservationRequest — запрос на резервирование/снятие/подтверждение резерва.
// Один и тот же тип используется для всех трёх операций.
type ReservationRequest struct {
	ProductID int64
	Qty       int32
}

// Validate проверяет, корректно ли заполнены поля запроса.
func (r ReservationRequest) Validate() []error {
	var errs []error

	if r.ProductID <= 0 {
		errs = append(errs, ErrReservationProductRequired)
	}
	if r.Qty <= 0 {
		errs = append(errs, ErrReservationQtyInvalid)
	}

	return errs
}
