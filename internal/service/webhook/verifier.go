package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// Verifier проверяет подпись входящих уведомлений шлюза.
//
// Шлюз подписывает строку "id:<event-id>;ts:<timestamp>" алгоритмом
// HMAC-SHA256 с общим секретом и передаёт результат в заголовке вида
// "ts=<unix-ms>,v1=<hex>". Метка времени берётся из заголовка как есть:
// она входит в подпись, поэтому подменить её нельзя.
type Verifier struct {
	secret []byte
}

// NewVerifier конструирует Verifier с общим секретом.
// Пустой секрет отключает проверку невозможно: подпись обязана сойтись.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify проверяет подпись доставки: header — значение заголовка подписи,
// eventID — идентификатор события из query string.
//
// Возвращает ErrMissingSignature, если заголовок или eventID отсутствуют
// или заголовок не разбирается, и ErrInvalidSignature при несовпадении.
func (v *Verifier) Verify(header, eventID string) error {
	if header == "" || eventID == "" {
		return domain.ErrMissingSignature
	}

	ts, signature, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	manifest := fmt.Sprintf("id:%s;ts:%s", eventID, ts)
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(manifest))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(signature))) {
		return domain.ErrInvalidSignature
	}
	return nil
}

// parseSignatureHeader разбирает "ts=<unix-ms>,v1=<hex>".
// Порядок частей не фиксирован, неизвестные части игнорируются.
func parseSignatureHeader(header string) (ts, signature string, err error) {
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			ts = strings.TrimSpace(value)
		case "v1":
			signature = strings.TrimSpace(value)
		}
	}
	if ts == "" || signature == "" {
		return "", "", domain.ErrMissingSignature
	}
	return ts, signature, nil
}

// Sign вычисляет заголовок подписи для события — используется в тестах
// и утилитах воспроизведения доставок.
func (v *Verifier) Sign(eventID, ts string) string {
	manifest := fmt.Sprintf("id:%s;ts:%s", eventID, ts)
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(manifest))
	return fmt.Sprintf("ts=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}
