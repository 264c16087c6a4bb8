package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/taash/storefront-system/internal/model"
)

func authedRequest(t *testing.T, m *AuthMiddleware, subjectID string, role model.Role) *http.Request {
	t.Helper()

	w := httptest.NewRecorder()
	m.SetAuthCookie(w, subjectID, role)

	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("no cookies set by SetAuthCookie")
	}

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.AddCookie(cookies[0])
	return r
}

func TestAuthMiddleware_WithValidCookie(t *testing.T) {
	m := NewAuthMiddleware("test-secret")

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		session, ok := GetSessionFromContext(r.Context())
		if !ok {
			t.Fatalf("session not in context")
		}
		if session.SubjectID != "uid-42" || session.Role != model.RoleCustomer {
			t.Fatalf("unexpected session: %+v", session)
		}
	})

	r := authedRequest(t, m, "uid-42", model.RoleCustomer)
	m.Middleware(next).ServeHTTP(httptest.NewRecorder(), r)

	if !nextCalled {
		t.Fatalf("next handler was not called")
	}
}

func TestAuthMiddleware_WithoutCookie(t *testing.T) {
	m := NewAuthMiddleware("test-secret")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/protected", nil)

	m.Middleware(next).ServeHTTP(w, r)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_TamperedRoleRejected(t *testing.T) {
	m := NewAuthMiddleware("test-secret")

	r := authedRequest(t, m, "uid-42", model.RoleCustomer)
	cookie, err := r.Cookie(authCookieName)
	if err != nil {
		t.Fatalf("cookie missing: %v", err)
	}

	// Подмена роли в значении cookie ломает подпись.
	forged := strings.Replace(cookie.Value, "."+string(model.RoleCustomer)+".", "."+string(model.RoleAdmin)+".", 1)
	forgedReq := httptest.NewRequest(http.MethodGet, "/protected", nil)
	forgedReq.AddCookie(&http.Cookie{Name: authCookieName, Value: forged})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("forged cookie accepted")
	})

	w := httptest.NewRecorder()
	m.AdminMiddleware(next).ServeHTTP(w, forgedReq)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestAdminMiddleware_IndistinguishableRefusal(t *testing.T) {
	m := NewAuthMiddleware("test-secret")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	})
	handler := m.AdminMiddleware(next)

	// Аноним и покупатель получают одинаковый ответ.
	anonW := httptest.NewRecorder()
	handler.ServeHTTP(anonW, httptest.NewRequest(http.MethodGet, "/admin", nil))

	custW := httptest.NewRecorder()
	handler.ServeHTTP(custW, authedRequest(t, m, "uid-7", model.RoleCustomer))

	anonRes, custRes := anonW.Result(), custW.Result()
	if anonRes.StatusCode != http.StatusUnauthorized || custRes.StatusCode != http.StatusUnauthorized {
		t.Fatalf("statuses = %d/%d, want both %d", anonRes.StatusCode, custRes.StatusCode, http.StatusUnauthorized)
	}
	if anonW.Body.String() != custW.Body.String() {
		t.Fatalf("refusal bodies differ: %q vs %q", anonW.Body.String(), custW.Body.String())
	}
}

func TestAdminMiddleware_AdminPasses(t *testing.T) {
	m := NewAuthMiddleware("test-secret")

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		session, _ := GetSessionFromContext(r.Context())
		if !session.IsAdmin() {
			t.Fatalf("session in context is not admin: %+v", session)
		}
	})

	m.AdminMiddleware(next).ServeHTTP(httptest.NewRecorder(), authedRequest(t, m, "uid-1", model.RoleAdmin))

	if !nextCalled {
		t.Fatalf("admin was not let through")
	}
}

func TestClearAuthCookie(t *testing.T) {
	m := NewAuthMiddleware("test-secret")

	w := httptest.NewRecorder()
	m.ClearAuthCookie(w)

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 || cookies[0].Value != "" {
		t.Fatalf("cookie not cleared: %+v", cookies)
	}
}
