// Package handler содержит HTTP-обработчики API витрины магазина.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/taash/storefront-system/internal/checkout"
	"github.com/taash/storefront-system/internal/identity"
	"github.com/taash/storefront-system/internal/ledger"
	"github.com/taash/storefront-system/internal/middleware"
	"github.com/taash/storefront-system/internal/model"
	"github.com/taash/storefront-system/internal/session"
	"github.com/taash/storefront-system/internal/validation"
)

// SessionService определяет контракт охранника сессий, используемый обработчиками.
type SessionService interface {
	SignIn(ctx context.Context, email, password string) (*model.Session, error)
	Register(ctx context.Context, email, password, fullName string) (*model.Session, error)
	Resume(ctx context.Context, subjectID string) (*model.Session, error)
	SignOut(ctx context.Context, subjectID string) error
}

// CartService определяет контракт хранилища корзин, используемый обработчиками.
type CartService interface {
	AddToCart(ctx context.Context, cartID string, product model.Product)
	RemoveFromCart(ctx context.Context, cartID, productID string)
	UpdateQuantity(ctx context.Context, cartID, productID string, quantity int)
	ClearCart(ctx context.Context, cartID string)
	Snapshot(ctx context.Context, cartID string) model.Cart
}

// CheckoutService определяет контракт координатора оформления заказа.
type CheckoutService interface {
	PlaceOrder(ctx context.Context, cartID string, details model.CustomerDetails, session *model.Session) (string, error)
}

// LedgerService определяет контракт внешнего сервиса каталога и заказов.
type LedgerService interface {
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	AddProduct(ctx context.Context, p model.Product) (string, error)
	DeleteProduct(ctx context.Context, id string) error
	AddCategory(ctx context.Context, c model.Category) (string, error)
	DeleteCategory(ctx context.Context, id string) error
	GetOrdersForSubject(ctx context.Context, subjectID string) ([]model.Order, error)
	GetAllOrders(ctx context.Context) ([]model.Order, error)
}

// Handler реализует HTTP-обработчики API витрины магазина.
type Handler struct {
	sessions       SessionService
	carts          CartService
	checkout       CheckoutService
	ledger         LedgerService
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(sessions SessionService, carts CartService, co CheckoutService, lg LedgerService, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		sessions:       sessions,
		carts:          carts,
		checkout:       co,
		ledger:         lg,
		logger:         logger,
		authMiddleware: auth,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

type sessionResponse struct {
	SubjectID string `json:"subjectId"`
	Role      string `json:"role"`
}

// Register обрабатывает регистрацию нового покупателя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	session, err := h.sessions.Register(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		switch {
		case errors.Is(err, validation.ErrValidation):
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		case errors.Is(err, identity.ErrEmailInUse):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.logger.Error("register error", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	h.authMiddleware.SetAuthCookie(w, session.SubjectID, session.Role)
	h.writeJSON(w, http.StatusOK, sessionResponse{SubjectID: session.SubjectID, Role: string(session.Role)})
}

// Login выполняет вход покупателя и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	session, err := h.sessions.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, validation.ErrValidation):
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		case errors.Is(err, identity.ErrInvalidCredentials):
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		default:
			h.logger.Error("login error", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	h.authMiddleware.SetAuthCookie(w, session.SubjectID, session.Role)
	h.writeJSON(w, http.StatusOK, sessionResponse{SubjectID: session.SubjectID, Role: string(session.Role)})
}

// GetSession восстанавливает сессию после перезапуска клиента. Просроченная
// или отсутствующая сессия отвечает 401 и очищает cookie.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	cached, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	resumed, err := h.sessions.Resume(r.Context(), cached.SubjectID)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			h.authMiddleware.ClearAuthCookie(w)
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("resume session error", zap.Error(err), zap.String("subjectID", cached.SubjectID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	// Роль могла смениться с момента выдачи cookie — перевыпускаем его.
	h.authMiddleware.SetAuthCookie(w, resumed.SubjectID, resumed.Role)
	h.writeJSON(w, http.StatusOK, sessionResponse{SubjectID: resumed.SubjectID, Role: string(resumed.Role)})
}

// Logout завершает сессию. Операция идемпотентна: выход без сессии — тоже успех.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if session, ok := middleware.GetSessionFromContext(r.Context()); ok {
		if err := h.sessions.SignOut(r.Context(), session.SubjectID); err != nil {
			h.logger.Error("logout error", zap.Error(err), zap.String("subjectID", session.SubjectID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}

	h.authMiddleware.ClearAuthCookie(w)
	w.WriteHeader(http.StatusOK)
}

type productResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PriceCents  int64  `json:"priceCents"`
	Description string `json:"description"`
	ImageRef    string `json:"imageRef"`
	Category    string `json:"category"`
	Stock       int    `json:"stock"`
}

func toProductResponse(p model.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		PriceCents:  p.PriceCents,
		Description: p.Description,
		ImageRef:    p.ImageRef,
		Category:    p.Category,
		Stock:       p.Stock,
	}
}

// ListProducts возвращает все товары каталога.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.ledger.ListProducts(r.Context())
	if err != nil {
		h.logger.Error("list products error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, toProductResponse(p))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// GetProduct возвращает один товар каталога.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.ledger.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get product error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	h.writeJSON(w, http.StatusOK, toProductResponse(*p))
}

type categoryResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ListCategories возвращает все категории каталога.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.ledger.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("list categories error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	resp := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		resp = append(resp, categoryResponse{ID: c.ID, Name: c.Name})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type cartResponse struct {
	Items      model.Cart `json:"items"`
	TotalCents int64      `json:"totalCents"`
}

func (h *Handler) writeCart(w http.ResponseWriter, r *http.Request, cartID string) {
	snapshot := h.carts.Snapshot(r.Context(), cartID)
	h.writeJSON(w, http.StatusOK, cartResponse{Items: snapshot, TotalCents: snapshot.TotalCents()})
}

// GetCart возвращает текущее состояние корзины с пересчитанной суммой.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	cartID, ok := middleware.GetCartIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	h.writeCart(w, r, cartID)
}

type addItemRequest struct {
	ProductID string `json:"productId"`
}

// AddCartItem добавляет товар каталога в корзину.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	cartID, ok := middleware.GetCartIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	product, err := h.ledger.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("resolve product error", zap.Error(err), zap.String("productID", req.ProductID))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	h.carts.AddToCart(r.Context(), cartID, *product)
	h.writeCart(w, r, cartID)
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateCartItem устанавливает количество для позиции корзины.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	cartID, ok := middleware.GetCartIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	h.carts.UpdateQuantity(r.Context(), cartID, chi.URLParam(r, "id"), req.Quantity)
	h.writeCart(w, r, cartID)
}

// RemoveCartItem удаляет позицию из корзины.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	cartID, ok := middleware.GetCartIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	h.carts.RemoveFromCart(r.Context(), cartID, chi.URLParam(r, "id"))
	h.writeCart(w, r, cartID)
}

// ClearCart опустошает корзину.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	cartID, ok := middleware.GetCartIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	h.carts.ClearCart(r.Context(), cartID)
	h.writeCart(w, r, cartID)
}

type checkoutRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	ZipCode   string `json:"zipCode"`
}

type checkoutResponse struct {
	OrderID string `json:"orderId"`
}

// Checkout оформляет заказ по текущему наполнению корзины.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.GetSessionFromContext(r.Context())

	cartID, ok := middleware.GetCartIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	details := model.CustomerDetails{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   req.Address,
		City:      req.City,
		ZipCode:   req.ZipCode,
	}
	if err := validation.ValidateCustomer(req.FirstName, req.LastName, req.Email, req.Phone, req.Address, req.City, req.ZipCode); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	// Пустая корзина отсекается до обращения к координатору: покупатель
	// возвращается в корзину, оформление не начинается.
	if len(h.carts.Snapshot(r.Context(), cartID)) == 0 {
		http.Redirect(w, r, "/cart", http.StatusSeeOther)
		return
	}

	orderID, err := h.checkout.PlaceOrder(r.Context(), cartID, details, session)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrUnauthenticated):
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		case errors.Is(err, checkout.ErrEmptyCart):
			// Защитная ветка: корзина могла опустеть между проверкой и отправкой.
			http.Redirect(w, r, "/cart", http.StatusSeeOther)
		case errors.Is(err, checkout.ErrSubmissionInFlight):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.logger.Error("checkout error", zap.Error(err), zap.String("cartID", cartID))
			http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, checkoutResponse{OrderID: orderID})
}

type orderResponse struct {
	ID           string          `json:"id"`
	Items        []orderLineJSON `json:"items"`
	TotalCents   int64           `json:"totalCents"`
	Status       string          `json:"status"`
	Customer     checkoutRequest `json:"customer"`
	CreatedAt    string          `json:"createdAt"`
	DeliveryDate string          `json:"deliveryDate"`
}

type orderLineJSON struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func toOrderResponse(o model.Order) orderResponse {
	items := make([]orderLineJSON, 0, len(o.Lines))
	for _, l := range o.Lines {
		items = append(items, orderLineJSON{ProductID: l.ProductID, Quantity: l.Quantity})
	}

	return orderResponse{
		ID:         o.ID,
		Items:      items,
		TotalCents: o.TotalCents,
		Status:     string(o.Status),
		Customer: checkoutRequest{
			FirstName: o.Customer.FirstName,
			LastName:  o.Customer.LastName,
			Email:     o.Customer.Email,
			Phone:     o.Customer.Phone,
			Address:   o.Customer.Address,
			City:      o.Customer.City,
			ZipCode:   o.Customer.ZipCode,
		},
		CreatedAt:    o.CreatedAt.Format(time.RFC3339),
		DeliveryDate: o.DeliveryDate.Format(time.RFC3339),
	}
}

// GetOrders возвращает историю заказов текущего покупателя.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	orders, err := h.ledger.GetOrdersForSubject(r.Context(), session.SubjectID)
	if err != nil {
		h.logger.Error("get orders error", zap.Error(err), zap.String("subjectID", session.SubjectID))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// GetAllOrders возвращает глобальный реестр заказов для администратора.
func (h *Handler) GetAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.ledger.GetAllOrders(r.Context())
	if err != nil {
		h.logger.Error("get all orders error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type addProductRequest struct {
	Name        string `json:"name"`
	PriceCents  int64  `json:"priceCents"`
	Description string `json:"description"`
	ImageRef    string `json:"imageRef"`
	Category    string `json:"category"`
	Stock       int    `json:"stock"`
}

type createdResponse struct {
	ID string `json:"id"`
}

// AddProduct создаёт товар каталога.
func (h *Handler) AddProduct(w http.ResponseWriter, r *http.Request) {
	var req addProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Name == "" || req.PriceCents <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id, err := h.ledger.AddProduct(r.Context(), model.Product{
		Name:        req.Name,
		PriceCents:  req.PriceCents,
		Description: req.Description,
		ImageRef:    req.ImageRef,
		Category:    req.Category,
		Stock:       req.Stock,
	})
	if err != nil {
		h.logger.Error("add product error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	h.writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

// DeleteProduct удаляет товар каталога.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.logger.Error("delete product error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type addCategoryRequest struct {
	Name string `json:"name"`
}

// AddCategory создаёт категорию каталога.
func (h *Handler) AddCategory(w http.ResponseWriter, r *http.Request) {
	var req addCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id, err := h.ledger.AddCategory(r.Context(), model.Category{Name: req.Name})
	if err != nil {
		h.logger.Error("add category error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	h.writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

// DeleteCategory удаляет категорию каталога.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.logger.Error("delete category error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}
