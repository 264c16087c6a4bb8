// Package middleware содержит HTTP middleware витрины магазина.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/taash/storefront-system/internal/model"
)

type contextKey string

const sessionKey contextKey = "session"

const (
	authCookieName = "storefront_auth"
	authCookieTTL  = 365 * 24 * time.Hour
)

// AuthMiddleware выполняет проверку аутентификации по подписанному cookie.
// Значение cookie — «субъект.роль.подпись»; подпись покрывает и роль, чтобы
// покупатель не мог поднять себе привилегии правкой cookie.
type AuthMiddleware struct {
	secretKey []byte
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware с указанным секретным ключом.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &AuthMiddleware{
		secretKey: key,
	}
}

// Middleware проверяет cookie авторизации и добавляет сессию в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := a.sessionFromRequest(r)
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalMiddleware добавляет сессию в контекст, если cookie валиден,
// но не отклоняет запрос без него. Используется там, где анонимный
// запрос легален, а сессия лишь уточняет поведение.
func (a *AuthMiddleware) OptionalMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if session, ok := a.sessionFromRequest(r); ok {
			r = r.WithContext(context.WithValue(r.Context(), sessionKey, session))
		}
		next.ServeHTTP(w, r)
	})
}

// AdminMiddleware пропускает только сессии с административной ролью.
// Отсутствие сессии и недостаточная роль отвечают одинаковым 401:
// ответ не раскрывает, существует ли закрытая область.
func (a *AuthMiddleware) AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := a.sessionFromRequest(r)
		if !ok || !session.IsAdmin() {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *AuthMiddleware) sessionFromRequest(r *http.Request) (*model.Session, bool) {
	cookie, err := r.Cookie(authCookieName)
	if err != nil {
		return nil, false
	}
	return a.parseCookie(cookie.Value)
}

// SetAuthCookie устанавливает cookie авторизации для указанного субъекта и роли.
func (a *AuthMiddleware) SetAuthCookie(w http.ResponseWriter, subjectID string, role model.Role) {
	value := a.sign(subjectID, string(role))

	cookie := &http.Cookie{
		Name:     authCookieName,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(authCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	http.SetCookie(w, cookie)
}

// ClearAuthCookie удаляет cookie авторизации.
func (a *AuthMiddleware) ClearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *AuthMiddleware) sign(subjectID, role string) string {
	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(subjectID + "." + role))
	signature := mac.Sum(nil)
	return subjectID + "." + role + "." + hex.EncodeToString(signature)
}

func (a *AuthMiddleware) parseCookie(cookieValue string) (*model.Session, bool) {
	parts := strings.Split(cookieValue, ".")
	if len(parts) != 3 {
		return nil, false
	}

	subjectID, role, signature := parts[0], parts[1], parts[2]
	if subjectID == "" {
		return nil, false
	}

	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(subjectID + "." + role))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return nil, false
	}

	return &model.Session{
		SubjectID: subjectID,
		Role:      model.Role(role),
	}, true
}

// GetSessionFromContext извлекает сессию из контекста запроса.
func GetSessionFromContext(ctx context.Context) (*model.Session, bool) {
	session, ok := ctx.Value(sessionKey).(*model.Session)
	return session, ok
}
