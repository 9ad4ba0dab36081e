package domain

// CartLine — одна строка корзины пользователя.
type CartLine struct {
	ProductID      string
	Name           string
	Qty            int32
	UnitPriceMinor int64
	Image          string
}

// CartSnapshot — снимок корзины на момент оформления заказа.
// Корзина — внешний коллаборатор: этот сервис её читает и очищает, но не ведёт.
type CartSnapshot struct {
	UserID string
	Lines  []CartLine
}

// Empty сообщает, что в корзине нет ни одной строки.
func (c CartSnapshot) Empty() bool {
	return len(c.Lines) == 0
}

// ItemsPriceMinor возвращает сумму qty * unit price по всем строкам.
func (c CartSnapshot) ItemsPriceMinor() int64 {
	var total int64
	for _, line := range c.Lines {
		total += int64(line.Qty) * line.UnitPriceMinor
	}
	return total
}
