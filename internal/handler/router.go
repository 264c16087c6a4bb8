package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	custommiddleware "github.com/taash/storefront-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware витрины магазина.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(custommiddleware.CartID)

	r.Route("/api", func(r chi.Router) {
		r.Post("/user/register", h.Register)
		r.Post("/user/login", h.Login)
		// Выход идемпотентен: без сессии он просто очищает cookie.
		r.With(h.authMiddleware.OptionalMiddleware).Post("/user/logout", h.Logout)
		r.With(h.authMiddleware.OptionalMiddleware).Get("/user/session", h.GetSession)

		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)
		r.Get("/categories", h.ListCategories)

		// Корзина доступна и анониму: вход требуется только на оформлении.
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddCartItem)
			r.Put("/items/{id}", h.UpdateCartItem)
			r.Delete("/items/{id}", h.RemoveCartItem)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/checkout", h.Checkout)
			r.Get("/user/orders", h.GetOrders)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.authMiddleware.AdminMiddleware)

			r.Get("/orders", h.GetAllOrders)
			r.Post("/products", h.AddProduct)
			r.Delete("/products/{id}", h.DeleteProduct)
			r.Post("/categories", h.AddCategory)
			r.Delete("/categories/{id}", h.DeleteCategory)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
