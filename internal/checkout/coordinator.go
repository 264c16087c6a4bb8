// Package checkout реализует координатор оформления заказа.
//
// Оформление — конечный автомат Idle → Submitting → {Success, Failed}.
// Failed возвращается в Idle и допускает повтор; Success терминален для
// текущего наполнения корзины. Пока заявка в полёте, повторная отправка
// той же корзины отклоняется.
package checkout

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taash/storefront-system/internal/model"
)

// ErrUnauthenticated возвращается при попытке оформления без сессии.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrEmptyCart возвращается при оформлении пустой корзины. Вызывающая
	// сторона обязана перенаправить пользователя обратно в корзину раньше,
	// поэтому здесь это защитная проверка, а не часть обычного потока.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrSubmissionInFlight возвращается при повторной отправке, пока
	// предыдущая ещё не завершилась.
	ErrSubmissionInFlight = errors.New("submission already in flight")
)

// State описывает состояние оформления для конкретной корзины.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSuccess    State = "success"
	StateFailed     State = "failed"
)

// OrderService описывает контракт внешнего сервиса заказов.
type OrderService interface {
	SubmitOrder(ctx context.Context, order model.Order) error
	DecrementStock(ctx context.Context, productID string, quantity int) error
}

// CartStore описывает используемую координатором часть хранилища корзин.
type CartStore interface {
	Snapshot(ctx context.Context, cartID string) model.Cart
	ClearCart(ctx context.Context, cartID string)
}

// Coordinator управляет отправкой заказов и их автоматом состояний.
type Coordinator struct {
	orders OrderService
	carts  CartStore
	logger *zap.Logger

	mu     sync.Mutex
	states map[string]State
}

// NewCoordinator создаёт координатор оформления поверх сервиса заказов и хранилища корзин.
func NewCoordinator(orders OrderService, carts CartStore, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		orders: orders,
		carts:  carts,
		logger: logger,
		states: make(map[string]State),
	}
}

// State возвращает текущее состояние оформления для корзины.
func (c *Coordinator) State(cartID string) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.states[cartID]; ok {
		return s
	}
	return StateIdle
}

// PlaceOrder оформляет заказ по снимку корзины.
//
// Без аутентифицированной сессии операция завершается ErrUnauthenticated и
// не выполняет ни одной удалённой записи. При любом сбое отправки корзина
// остаётся нетронутой, состояние возвращается в Idle и повтор разрешён.
// При успехе корзина очищается, а идентификатор заказа отдаётся вызывающему.
func (c *Coordinator) PlaceOrder(ctx context.Context, cartID string, details model.CustomerDetails, session *model.Session) (string, error) {
	if session == nil || session.SubjectID == "" {
		return "", ErrUnauthenticated
	}

	c.mu.Lock()
	if c.states[cartID] == StateSubmitting {
		c.mu.Unlock()
		return "", ErrSubmissionInFlight
	}

	snapshot := c.carts.Snapshot(ctx, cartID)
	if len(snapshot) == 0 {
		c.mu.Unlock()
		return "", ErrEmptyCart
	}

	c.states[cartID] = StateSubmitting
	c.mu.Unlock()

	now := time.Now().UTC()
	order := model.Order{
		ID:            newOrderID(now),
		SubjectID:     session.SubjectID,
		SubmissionKey: uuid.NewString(),
		TotalCents:    snapshot.TotalCents(),
		Status:        model.OrderStatusPending,
		Customer:      details,
		CreatedAt:     now,
		DeliveryDate:  now.AddDate(0, 0, 5),
	}
	for _, l := range snapshot {
		order.Lines = append(order.Lines, model.OrderLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
		})
	}

	if err := c.orders.SubmitOrder(ctx, order); err != nil {
		c.setState(cartID, StateFailed)
		// Failed сразу возвращается в Idle: повтор разрешён, корзина не тронута.
		c.setState(cartID, StateIdle)
		return "", fmt.Errorf("submit order: %w", err)
	}

	c.carts.ClearCart(ctx, cartID)
	c.setState(cartID, StateSuccess)

	// Списание остатков выполняется после принятия заказа, по одной позиции.
	// Сбой списания не отменяет уже принятый заказ.
	for _, l := range order.Lines {
		if err := c.orders.DecrementStock(ctx, l.ProductID, l.Quantity); err != nil {
			c.logger.Error("decrement stock",
				zap.Error(err),
				zap.String("orderID", order.ID),
				zap.String("productID", l.ProductID),
			)
		}
	}

	return order.ID, nil
}

func (c *Coordinator) setState(cartID string, s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[cartID] = s
}

// newOrderID генерирует идентификатор заказа вида ORD-YYYYMMDD-NNNN.
// Четыре случайные цифры дают лишь 10^4 вариантов в сутки, поэтому
// коллизия возможна; глобальный реестр отвергает повторный идентификатор
// при записи.
func newOrderID(now time.Time) string {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		// crypto/rand практически не отказывает; деградируем к наносекундам.
		return fmt.Sprintf("ORD-%s-%04d", now.Format("20060102"), now.Nanosecond()%10000)
	}
	return fmt.Sprintf("ORD-%s-%04d", now.Format("20060102"), n.Int64())
}
