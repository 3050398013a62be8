package domain

// CartItem — строка корзины, как её отдаёт cart-сервис.
type CartItem struct {
	ProductID     int64  `json:"product_id"`
	Name          string `json:"name"`
	Qty           int32  `json:"qty"`
	PriceMinor    int64  `json:"price_minor"`
	SubtotalMinor int64  `json:"subtotal_minor"`
}

// Cart — снимок корзины пользователя. Пустой список позиций — валидный ответ.
type Cart struct {
	UserID     string     `json:"user_id"`
	Items      []CartItem `json:"items"`
	TotalMinor int64      `json:"total_minor"`
}

// IsEmpty сообщает, есть ли в корзине хоть одна позиция.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}
