// Package model содержит доменные сущности витрины магазина.
package model

import "time"

// Role описывает роль аутентифицированного пользователя.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Session содержит кэшированные данные сессии внешнего провайдера аутентификации.
type Session struct {
	SubjectID string
	Role      Role
	Token     string
}

// IsAdmin сообщает, имеет ли сессия повышенную роль.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

// User представляет профиль покупателя, хранящийся у внешнего сервиса заказов.
type User struct {
	ID       string
	Email    string
	FullName string
	IsAdmin  bool
}

// Product описывает товар каталога.
type Product struct {
	ID          string
	Name        string
	PriceCents  int64
	Description string
	ImageRef    string
	Category    string
	Stock       int
}

// Category описывает категорию каталога.
type Category struct {
	ID   string
	Name string
}

// CartLine описывает одну позицию корзины: товар и его количество.
// Инвариант: Quantity всегда >= 1, переход количества в ноль удаляет позицию.
type CartLine struct {
	ProductID      string `json:"productId"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	ImageRef       string `json:"imageRef"`
	Quantity       int    `json:"quantity"`
}

// Cart представляет корзину как упорядоченную последовательность позиций.
// Порядок соответствует порядку добавления товаров.
type Cart []CartLine

// TotalCents возвращает сумму корзины в центах. Значение всегда вычисляется заново.
func (c Cart) TotalCents() int64 {
	var total int64
	for _, l := range c {
		total += l.UnitPriceCents * int64(l.Quantity)
	}
	return total
}

// OrderStatus описывает статус обработки заказа.
// Переходы статусов выполняет внешний сервис заказов, клиент их не меняет.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
)

// OrderLine описывает позицию заказа.
type OrderLine struct {
	ProductID string
	Quantity  int
}

// CustomerDetails содержит контактные данные покупателя из формы оформления заказа.
type CustomerDetails struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string
	City      string
	ZipCode   string
}

// Order описывает заказ. Создаётся один раз при успешном оформлении
// и с точки зрения клиента неизменяем.
type Order struct {
	ID            string
	SubjectID     string
	SubmissionKey string
	Lines         []OrderLine
	TotalCents    int64
	Status        OrderStatus
	Customer      CustomerDetails
	CreatedAt     time.Time
	DeliveryDate  time.Time
}
