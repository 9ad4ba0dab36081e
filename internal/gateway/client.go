package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

const (
	defaultBaseURL = "https://api.paygate.example"
	defaultTimeout = 10 * time.Second
)

// Client — HTTP-клиент платёжного шлюза.
// Все вызовы ограничены таймаутом: зависший шлюз не должен держать запрос.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	logger      *log.Entry
}

// Config задаёт параметры подключения к шлюзу.
type Config struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
}

// NewClient создаёт клиент шлюза. Пустой AccessToken допустим: клиент
// создастся, но каждый вызов будет сразу падать с ErrGatewayUnavailable —
// платёжные ручки обязаны отказывать быстро, а не ходить в сеть.
func NewClient(cfg Config, logger *log.Entry) *Client {
	if logger == nil {
		logger = log.WithField("component", "gateway-client")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		baseURL:     cfg.BaseURL,
		accessToken: cfg.AccessToken,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		logger:      logger,
	}
}

// wirePayment — представление платежа на проводе шлюза.
// Суммы шлюз считает в основных единицах с двумя знаками.
type wirePayment struct {
	ID                string    `json:"id"`
	Status            string    `json:"status"`
	ExternalReference string    `json:"external_reference"`
	PaymentMethodID   string    `json:"payment_method_id"`
	TransactionAmount float64   `json:"transaction_amount"`
	DateLastUpdated   time.Time `json:"date_last_updated"`
	Card              *struct {
		Brand          string `json:"brand"`
		LastFourDigits string `json:"last_four_digits"`
	} `json:"card,omitempty"`
	Payer struct {
		Email string `json:"email"`
	} `json:"payer"`
}

type wireError struct {
	Message string `json:"message"`
}

// CreatePayment отправляет платёж в шлюз и возвращает немедленный результат.
func (c *Client) CreatePayment(req domain.GatewayRequest) (domain.GatewayResult, error) {
	if c.accessToken == "" {
		return domain.GatewayResult{}, domain.ErrGatewayUnavailable
	}

	body := map[string]interface{}{
		"transaction_amount": minorToAmount(req.TransactionAmountMinor),
		"token":              req.Token,
		"payment_method_id":  req.PaymentMethodID,
		"installments":       req.Installments,
		"external_reference": req.ExternalReference,
		"payer": map[string]string{
			"email": req.PayerEmail,
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return domain.GatewayResult{}, fmt.Errorf("marshal payment request: %w", err)
	}

	httpReq, err := http.NewRequest(http.MethodPost, c.baseURL+"/v1/payments", bytes.NewReader(payload))
	if err != nil {
		return domain.GatewayResult{}, fmt.Errorf("build payment request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)
	// Ключ идемпотентности защищает от двойного списания при сетевом retry.
	httpReq.Header.Set("X-Idempotency-Key", uuid.NewString())

	return c.do(httpReq)
}

// GetPayment запрашивает авторитетный статус платежа по его идентификатору.
func (c *Client) GetPayment(id string) (domain.GatewayResult, error) {
	if c.accessToken == "" {
		return domain.GatewayResult{}, domain.ErrGatewayUnavailable
	}

	httpReq, err := http.NewRequest(http.MethodGet, c.baseURL+"/v1/payments/"+id, nil)
	if err != nil {
		return domain.GatewayResult{}, fmt.Errorf("build get payment request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)

	return c.do(httpReq)
}

func (c *Client) do(req *http.Request) (domain.GatewayResult, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).Warn("gateway call failed")
		return domain.GatewayResult{}, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.GatewayResult{}, fmt.Errorf("read gateway response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var wire wirePayment
		if err := json.Unmarshal(raw, &wire); err != nil {
			return domain.GatewayResult{}, fmt.Errorf("decode gateway response: %w", err)
		}
		return wireToResult(wire), nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// Шлюз отверг сам запрос: состояние заказа менять нельзя.
		var gwErr wireError
		_ = json.Unmarshal(raw, &gwErr)
		if gwErr.Message == "" {
			gwErr.Message = http.StatusText(resp.StatusCode)
		}
		return domain.GatewayResult{}, &domain.GatewayRequestError{
			StatusCode: resp.StatusCode,
			Message:    gwErr.Message,
		}
	default:
		c.logger.WithField("status_code", resp.StatusCode).Warn("gateway returned server error")
		return domain.GatewayResult{}, fmt.Errorf("%w: http %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}
}

func wireToResult(wire wirePayment) domain.GatewayResult {
	result := domain.GatewayResult{
		ID:                     wire.ID,
		Status:                 domain.GatewayStatus(wire.Status),
		ExternalReference:      wire.ExternalReference,
		PaymentMethodID:        wire.PaymentMethodID,
		PayerEmail:             wire.Payer.Email,
		TransactionAmountMinor: amountToMinor(wire.TransactionAmount),
		DateLastUpdated:        wire.DateLastUpdated,
	}
	if wire.Card != nil {
		result.Card = domain.GatewayCard{
			Brand:    wire.Card.Brand,
			LastFour: wire.Card.LastFourDigits,
		}
	}
	return result
}

// minorToAmount переводит минорные единицы в сумму шлюза с двумя знаками.
func minorToAmount(minor int64) float64 {
	return float64(minor) / 100
}

func amountToMinor(amount float64) int64 {
	if amount < 0 {
		return int64(amount*100 - 0.5)
	}
	return int64(amount*100 + 0.5)
}

var _ domain.GatewayClient = (*Client)(nil)
