package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

type addressKey struct {
	userID    string
	addressID string
}

// AddressBook — in-memory реализация AddressService.
// Адресная книга ведётся внешней системой; оформлению заказа нужен только
// поиск адреса с проверкой принадлежности пользователю.
type AddressBook struct {
	mu    sync.RWMutex
	items map[addressKey]domain.Address
}

// NewAddressBook создаёт пустую адресную книгу.
func NewAddressBook() *AddressBook {
	return &AddressBook{items: make(map[addressKey]domain.Address)}
}

// Put добавляет адрес пользователя (сидинг).
func (b *AddressBook) Put(userID, addressID string, addr domain.Address) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items[addressKey{userID: userID, addressID: addressID}] = addr
}

// Get возвращает адрес, если он существует и принадлежит пользователю.
// Чужой адрес неотличим от отсутствующего.
func (b *AddressBook) Get(userID, addressID string) (domain.Address, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	addr, ok := b.items[addressKey{userID: userID, addressID: addressID}]
	if !ok {
		return domain.Address{}, domain.ErrAddressNotFound
	}
	return addr, nil
}

var _ domain.AddressService = (*AddressBook)(nil)
