package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/service/webhook"
)

// SignatureHeader — заголовок с подписью доставки webhook.
const SignatureHeader = "X-Signature"

// WebhookHandler принимает уведомления платёжного шлюза.
type WebhookHandler struct {
	verifier   *webhook.Verifier
	reconciler *webhook.Reconciler
	logger     *log.Entry
}

// NewWebhookHandler конструирует обработчик webhook.
func NewWebhookHandler(verifier *webhook.Verifier, reconciler *webhook.Reconciler, logger *log.Entry) *WebhookHandler {
	if logger == nil {
		logger = log.WithField("component", "api-webhook")
	}
	return &WebhookHandler{verifier: verifier, reconciler: reconciler, logger: logger}
}

type webhookBody struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

// webhookResponse — ответ шлюзу. received=true для любой принятой доставки,
// processed=true только если переход был применён к заказу.
type webhookResponse struct {
	Received  bool   `json:"received"`
	Processed bool   `json:"processed"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Handle — POST /api/webhooks/payment.
//
// Единственный повод ответить не-200 — невалидная подпись: такие доставки
// шлюз обязан повторить после починки секрета. Все остальные исходы
// подтверждаются, чтобы шлюз не ретраил события, которым повтор не поможет.
func (h *WebhookHandler) Handle(c *gin.Context) {
	// Шлюз передаёт идентификатор события в query как data.id.
	eventID := c.Query("data.id")
	if err := h.verifier.Verify(c.GetHeader(SignatureHeader), eventID); err != nil {
		h.logger.WithError(err).WithField("event_id", eventID).Warn("webhook signature check failed")
		respondFail(c, http.StatusBadRequest, "Webhook Error: "+err.Error())
		return
	}

	var body webhookBody
	if err := c.ShouldBindJSON(&body); err != nil {
		// Подпись сошлась, но тело не разбирается: подтверждаем доставку,
		// повтор того же тела не станет валиднее.
		h.logger.WithError(err).WithField("event_id", eventID).Warn("webhook body unreadable")
		c.JSON(http.StatusOK, webhookResponse{Received: true, Error: "unreadable body"})
		return
	}

	res, err := h.reconciler.Reconcile(domain.WebhookNotification{
		EventID:   eventID,
		Type:      body.Type,
		Action:    body.Action,
		PaymentID: body.Data.ID,
	})
	if err != nil {
		c.JSON(http.StatusOK, webhookResponse{Received: true, Error: err.Error()})
		return
	}

	resp := webhookResponse{Received: true, Processed: res.Processed, Message: res.Message}
	if res.Outcome == domain.WebhookOutcomeFailed {
		resp.Message = ""
		resp.Error = res.Message
	}
	c.JSON(http.StatusOK, resp)
}
