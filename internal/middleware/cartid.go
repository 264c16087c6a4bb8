package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const cartIDKey contextKey = "cartID"

const (
	cartCookieName = "storefront_cart"
	cartCookieTTL  = 180 * 24 * time.Hour
)

// CartID выдаёт каждому браузерному профилю стабильный идентификатор корзины.
// Идентификатор анонимный и не привязан к аккаунту: корзина одна на профиль
// и переживает вход и выход.
func CartID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var cartID string

		if cookie, err := r.Cookie(cartCookieName); err == nil {
			if _, err := uuid.Parse(cookie.Value); err == nil {
				cartID = cookie.Value
			}
		}

		if cartID == "" {
			cartID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     cartCookieName,
				Value:    cartID,
				Path:     "/",
				Expires:  time.Now().Add(cartCookieTTL),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), cartIDKey, cartID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetCartIDFromContext извлекает идентификатор корзины из контекста запроса.
func GetCartIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(cartIDKey).(string)
	return id, ok
}
