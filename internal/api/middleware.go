package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
)

const (
	contextUserID  = "user_id"
	contextIsAdmin = "is_admin"
)

// AuthRequired проверяет bearer-токен и кладёт user_id и is_admin в контекст
// запроса. Подпись — HMAC с общим секретом; прочие алгоритмы отклоняются.
func AuthRequired(secret []byte, logger *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			respondFail(c, http.StatusUnauthorized, "authorization header required")
			c.Abort()
			return
		}

		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			respondFail(c, http.StatusUnauthorized, "authorization header must be a bearer token")
			c.Abort()
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			if logger != nil {
				logger.WithError(err).Debug("jwt validation failed")
			}
			respondFail(c, http.StatusUnauthorized, "invalid token")
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			respondFail(c, http.StatusUnauthorized, "invalid token")
			c.Abort()
			return
		}
		userID, ok := claims[contextUserID].(string)
		if !ok || userID == "" {
			respondFail(c, http.StatusUnauthorized, "token has no user_id claim")
			c.Abort()
			return
		}

		isAdmin, _ := claims[contextIsAdmin].(bool)
		c.Set(contextUserID, userID)
		c.Set(contextIsAdmin, isAdmin)
		c.Next()
	}
}

// AdminRequired пускает дальше только пользователей с admin-признаком в токене.
// Должна стоять после AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(contextIsAdmin) {
			respondFail(c, http.StatusForbidden, "admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// userID возвращает идентификатор аутентифицированного пользователя.
func userID(c *gin.Context) string {
	return c.GetString(contextUserID)
}

// RequestLogger пишет краткую запись о каждом запросе.
func RequestLogger(logger *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.WithFields(log.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"status": c.Writer.Status(),
		}).Debug("http request")
	}
}
