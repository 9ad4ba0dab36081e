package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/service/checkout"
	"github.com/vladislavdragonenkov/checkout/internal/service/payment"
)

// OrderHandlers обслуживает клиентские и админские операции над заказами.
type OrderHandlers struct {
	checkout *checkout.Service
	payments *payment.Initiator
	orders   domain.OrderRepository
	timeline domain.TimelineRepository
	logger   *log.Entry
}

// NewOrderHandlers конструирует обработчики заказов.
func NewOrderHandlers(
	checkoutService *checkout.Service,
	payments *payment.Initiator,
	orders domain.OrderRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
) *OrderHandlers {
	if logger == nil {
		logger = log.WithField("component", "api-orders")
	}
	return &OrderHandlers{
		checkout: checkoutService,
		payments: payments,
		orders:   orders,
		timeline: timeline,
		logger:   logger,
	}
}

type createOrderRequest struct {
	AddressID     string `json:"address_id" binding:"required"`
	PaymentMethod string `json:"payment_method" binding:"required"`
}

type payOrderRequest struct {
	Token           string `json:"token" binding:"required"`
	PaymentMethodID string `json:"payment_method_id" binding:"required"`
	Installments    int32  `json:"installments"`
	PayerEmail      string `json:"payer_email"`
}

type orderItemView struct {
	ProductID      string `json:"product_id"`
	Name           string `json:"name"`
	Qty            int32  `json:"qty"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
	Image          string `json:"image,omitempty"`
}

type addressView struct {
	FullName   string `json:"full_name"`
	Line1      string `json:"line1"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type paymentResultView struct {
	ID           string    `json:"id"`
	Status       string    `json:"status"`
	UpdateTime   time.Time `json:"update_time"`
	PayerEmail   string    `json:"payer_email,omitempty"`
	CardBrand    string    `json:"card_brand,omitempty"`
	CardLastFour string    `json:"card_last_four,omitempty"`
}

type orderView struct {
	ID                 string             `json:"id"`
	UserID             string             `json:"user_id"`
	Items              []orderItemView    `json:"items"`
	ShippingAddress    addressView        `json:"shipping_address"`
	ItemsPriceMinor    int64              `json:"items_price_minor"`
	ShippingPriceMinor int64              `json:"shipping_price_minor"`
	TotalPriceMinor    int64              `json:"total_price_minor"`
	PaymentMethod      string             `json:"payment_method"`
	Status             string             `json:"status"`
	PaymentResult      *paymentResultView `json:"payment_result,omitempty"`
	PaidAt             *time.Time         `json:"paid_at,omitempty"`
	DeliveredAt        *time.Time         `json:"delivered_at,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
}

func toOrderView(order domain.Order) orderView {
	items := make([]orderItemView, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemView{
			ProductID:      item.ProductID,
			Name:           item.Name,
			Qty:            item.Qty,
			UnitPriceMinor: item.UnitPriceMinor,
			Image:          item.Image,
		})
	}

	view := orderView{
		ID:     order.ID,
		UserID: order.UserID,
		Items:  items,
		ShippingAddress: addressView{
			FullName:   order.ShippingAddress.FullName,
			Line1:      order.ShippingAddress.Line1,
			City:       order.ShippingAddress.City,
			PostalCode: order.ShippingAddress.PostalCode,
			Country:    order.ShippingAddress.Country,
		},
		ItemsPriceMinor:    order.ItemsPriceMinor,
		ShippingPriceMinor: order.ShippingPriceMinor,
		TotalPriceMinor:    order.TotalPriceMinor,
		PaymentMethod:      order.PaymentMethod,
		Status:             string(order.Status),
		PaidAt:             order.PaidAt,
		DeliveredAt:        order.DeliveredAt,
		CreatedAt:          order.CreatedAt,
	}
	if order.PaymentResult != nil {
		view.PaymentResult = &paymentResultView{
			ID:           order.PaymentResult.ID,
			Status:       string(order.PaymentResult.Status),
			UpdateTime:   order.PaymentResult.UpdateTime,
			PayerEmail:   order.PaymentResult.PayerEmail,
			CardBrand:    order.PaymentResult.CardBrand,
			CardLastFour: order.PaymentResult.CardLastFour,
		}
	}
	return view
}

// Create — POST /api/orders: оформляет заказ из корзины пользователя.
func (h *OrderHandlers) Create(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, "address_id and payment_method are required")
		return
	}

	order, err := h.checkout.CreateOrder(userID(c), req.AddressID, req.PaymentMethod)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, toOrderView(order))
}

// Pay — POST /api/orders/:id/pay: синхронная оплата заказа.
func (h *OrderHandlers) Pay(c *gin.Context) {
	var req payOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, "token and payment_method_id are required")
		return
	}

	order, err := h.payments.Initiate(payment.InitiateRequest{
		OrderID:         c.Param("id"),
		UserID:          userID(c),
		Token:           req.Token,
		PaymentMethodID: req.PaymentMethodID,
		Installments:    req.Installments,
		PayerEmail:      req.PayerEmail,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, toOrderView(order))
}

// Get — GET /api/orders/:id: заказ виден владельцу и администратору.
func (h *OrderHandlers) Get(c *gin.Context) {
	order, err := h.orders.Get(c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if order.UserID != userID(c) && !c.GetBool(contextIsAdmin) {
		// Чужой заказ неотличим от несуществующего.
		respondDomainError(c, domain.ErrOrderNotFound)
		return
	}
	respondSuccess(c, http.StatusOK, toOrderView(order))
}

// ListMine — GET /api/orders/mine: заказы текущего пользователя.
func (h *OrderHandlers) ListMine(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	orders, err := h.orders.ListByUser(userID(c), limit)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	views := make([]orderView, 0, len(orders))
	for _, order := range orders {
		views = append(views, toOrderView(order))
	}
	respondSuccess(c, http.StatusOK, gin.H{"orders": views})
}

// orderSortValues — допустимые значения query-параметра sort.
var orderSortValues = map[string]domain.OrderSort{
	"created_at_desc": {Field: domain.OrderSortCreatedAt},
	"created_at_asc":  {Field: domain.OrderSortCreatedAt, Asc: true},
	"total_desc":      {Field: domain.OrderSortTotal},
	"total_asc":       {Field: domain.OrderSortTotal, Asc: true},
}

// List — GET /api/admin/orders: страница всех заказов для оператора.
// Сортировка задаётся параметром sort: created_at|total с суффиксом _asc/_desc.
func (h *OrderHandlers) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	sort, ok := orderSortValues[c.DefaultQuery("sort", "created_at_desc")]
	if !ok {
		respondFail(c, http.StatusBadRequest, "unknown sort: use created_at|total with _asc|_desc suffix")
		return
	}

	orders, total, err := h.orders.List((page-1)*limit, limit, sort)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	views := make([]orderView, 0, len(orders))
	for _, order := range orders {
		views = append(views, toOrderView(order))
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"orders": views,
		"page":   page,
		"limit":  limit,
		"sort":   c.DefaultQuery("sort", "created_at_desc"),
		"total":  total,
	})
}

// Ship — PUT /api/admin/orders/:id/ship.
func (h *OrderHandlers) Ship(c *gin.Context) {
	order, err := h.checkout.Ship(c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, toOrderView(order))
}

// Deliver — PUT /api/admin/orders/:id/deliver.
func (h *OrderHandlers) Deliver(c *gin.Context) {
	order, err := h.checkout.Deliver(c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, toOrderView(order))
}

// Timeline — GET /api/admin/orders/:id/timeline: события жизненного цикла заказа.
func (h *OrderHandlers) Timeline(c *gin.Context) {
	if _, err := h.orders.Get(c.Param("id")); err != nil {
		respondDomainError(c, err)
		return
	}

	events, err := h.timeline.List(c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	type eventView struct {
		Type     string    `json:"type"`
		Reason   string    `json:"reason,omitempty"`
		Occurred time.Time `json:"occurred"`
	}
	views := make([]eventView, 0, len(events))
	for _, event := range events {
		views = append(views, eventView{Type: event.Type, Reason: event.Reason, Occurred: event.Occurred})
	}
	respondSuccess(c, http.StatusOK, gin.H{"events": views})
}
