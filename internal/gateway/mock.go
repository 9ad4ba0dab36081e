package gateway

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// MockClient — конфигурируемая заглушка GatewayClient для тестов и локального
// запуска без учётных данных шлюза.
type MockClient struct {
	mu sync.Mutex

	// CreateStatus — статус, который вернёт CreatePayment.
	CreateStatus domain.GatewayStatus
	// CreateErr, GetErr — заранее настроенные ошибки.
	CreateErr error
	GetErr    error

	CreateCalls int
	GetCalls    int

	// payments — платежи, "созданные" этим mock, для GetPayment.
	payments map[string]domain.GatewayResult
}

// NewMockClient возвращает mock с одобрением всех платежей по умолчанию.
func NewMockClient() *MockClient {
	return &MockClient{
		CreateStatus: domain.GatewayStatusApproved,
		payments:     make(map[string]domain.GatewayResult),
	}
}

// CreatePayment имитирует создание платежа и запоминает его для GetPayment.
func (m *MockClient) CreatePayment(req domain.GatewayRequest) (domain.GatewayResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CreateCalls++
	if m.CreateErr != nil {
		return domain.GatewayResult{}, m.CreateErr
	}

	result := domain.GatewayResult{
		ID:                     uuid.NewString(),
		Status:                 m.CreateStatus,
		ExternalReference:      req.ExternalReference,
		PaymentMethodID:        req.PaymentMethodID,
		Card:                   domain.GatewayCard{Brand: "visa", LastFour: "4242"},
		PayerEmail:             req.PayerEmail,
		TransactionAmountMinor: req.TransactionAmountMinor,
		DateLastUpdated:        time.Now().UTC(),
	}
	m.payments[result.ID] = result
	return result, nil
}

// GetPayment возвращает ранее созданный платёж или настроенную ошибку.
func (m *MockClient) GetPayment(id string) (domain.GatewayResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetCalls++
	if m.GetErr != nil {
		return domain.GatewayResult{}, m.GetErr
	}

	result, ok := m.payments[id]
	if !ok {
		return domain.GatewayResult{}, &domain.GatewayRequestError{StatusCode: 404, Message: "payment not found"}
	}
	return result, nil
}

// SetPayment задаёт платёж, который GetPayment вернёт по id (сидинг для webhook-тестов).
func (m *MockClient) SetPayment(result domain.GatewayResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[result.ID] = result
}

var _ domain.GatewayClient = (*MockClient)(nil)
