package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// Response — единый конверт ответов API.
//
// status: "success" — операция выполнена, data заполнена;
// "fail" — проблема на стороне клиента (валидация, предусловия);
// "error" — сбой на стороне сервиса.
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func respondSuccess(c *gin.Context, code int, data interface{}) {
	c.JSON(code, Response{Status: "success", Data: data})
}

func respondFail(c *gin.Context, code int, message string) {
	c.JSON(code, Response{Status: "fail", Message: message})
}

func respondError(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, Response{Status: "error", Message: message})
}

// respondDomainError переводит доменную ошибку в HTTP-ответ.
// Внутренние детали в ответ не утекают: клиент видит текст доменной ошибки
// либо обезличенное "internal error".
func respondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrCartNotFound),
		errors.Is(err, domain.ErrAddressNotFound):
		respondFail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrCartEmpty),
		errors.Is(err, domain.ErrPaymentMethodRequired),
		errors.Is(err, domain.ErrOrderNotShippable),
		errors.Is(err, domain.ErrOrderNotDeliverable):
		respondFail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrOrderNotPending),
		errors.Is(err, domain.ErrPaymentAlreadyInitiated):
		respondFail(c, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrGatewayUnavailable):
		respondFail(c, http.StatusBadGateway, err.Error())
	default:
		if stockErr, ok := domain.IsInsufficientStock(err); ok {
			respondFail(c, http.StatusConflict, stockErr.Error())
			return
		}
		if reqErr, ok := domain.IsGatewayRequestError(err); ok {
			respondFail(c, http.StatusBadRequest, reqErr.Error())
			return
		}
		respondError(c, "internal error")
	}
}
