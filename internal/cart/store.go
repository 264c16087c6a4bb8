// Package cart реализует локальное хранилище корзины покупателя.
//
// Хранилище — синхронный контейнер состояния: все переходы выполняются в
// памяти и сразу видны читателям, а снимок корзины сквозной записью
// сохраняется в долговременный слот. Сетевых обращений контейнер не делает;
// ошибки слота логируются и не влияют на результат операции.
package cart

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/taash/storefront-system/internal/model"
	"github.com/taash/storefront-system/internal/repository"
)

// Slot описывает порт долговременного хранения снимков корзины.
// В продакшене это PostgreSQL-репозиторий, в тестах — фейк в памяти.
type Slot interface {
	LoadCart(ctx context.Context, storeName, cartID string) (model.Cart, error)
	SaveCart(ctx context.Context, storeName, cartID string, cart model.Cart) error
	DeleteCart(ctx context.Context, storeName, cartID string) error
}

// Store содержит корзины всех активных сессий просмотра.
type Store struct {
	storeName string
	slot      Slot
	logger    *zap.Logger

	mu       sync.Mutex
	carts    map[string]model.Cart
	hydrated map[string]bool
}

// NewStore создаёт хранилище корзин с указанным именем магазина и слотом.
func NewStore(storeName string, slot Slot, logger *zap.Logger) *Store {
	return &Store{
		storeName: storeName,
		slot:      slot,
		logger:    logger,
		carts:     make(map[string]model.Cart),
		hydrated:  make(map[string]bool),
	}
}

// hydrate подгружает снимок корзины из слота при первом обращении.
// Вызывается под мьютексом.
func (s *Store) hydrate(ctx context.Context, cartID string) {
	if s.hydrated[cartID] {
		return
	}
	s.hydrated[cartID] = true

	lines, err := s.slot.LoadCart(ctx, s.storeName, cartID)
	if err != nil {
		if !errors.Is(err, repository.ErrSlotNotFound) {
			s.logger.Error("load cart slot", zap.Error(err), zap.String("cartID", cartID))
		}
		return
	}
	s.carts[cartID] = lines
}

// persist сохраняет снимок корзины в слот. Вызывается под мьютексом.
func (s *Store) persist(ctx context.Context, cartID string) {
	snapshot := append(model.Cart(nil), s.carts[cartID]...)

	var err error
	if len(snapshot) == 0 {
		err = s.slot.DeleteCart(ctx, s.storeName, cartID)
	} else {
		err = s.slot.SaveCart(ctx, s.storeName, cartID, snapshot)
	}
	if err != nil {
		// Переход состояния уже применён: память остаётся источником истины,
		// слот догонит её при следующей записи.
		s.logger.Error("persist cart slot", zap.Error(err), zap.String("cartID", cartID))
	}
}

// AddToCart добавляет товар в корзину. Если позиция уже есть, количество
// увеличивается на единицу. Операция не имеет ошибочных исходов.
func (s *Store) AddToCart(ctx context.Context, cartID string, product model.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hydrate(ctx, cartID)

	lines := s.carts[cartID]
	for i := range lines {
		if lines[i].ProductID == product.ID {
			lines[i].Quantity++
			s.carts[cartID] = lines
			s.persist(ctx, cartID)
			return
		}
	}

	s.carts[cartID] = append(lines, model.CartLine{
		ProductID:      product.ID,
		Name:           product.Name,
		UnitPriceCents: product.PriceCents,
		ImageRef:       product.ImageRef,
		Quantity:       1,
	})
	s.persist(ctx, cartID)
}

// RemoveFromCart удаляет позицию из корзины. Отсутствие позиции — no-op.
func (s *Store) RemoveFromCart(ctx context.Context, cartID, productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hydrate(ctx, cartID)

	lines := s.carts[cartID]
	for i := range lines {
		if lines[i].ProductID == productID {
			s.carts[cartID] = append(lines[:i], lines[i+1:]...)
			s.persist(ctx, cartID)
			return
		}
	}
}

// UpdateQuantity устанавливает количество для позиции. Нулевое количество
// эквивалентно удалению. Верхняя граница на этом уровне не проверяется:
// лимиты склада — забота сервиса заказов в момент оформления.
func (s *Store) UpdateQuantity(ctx context.Context, cartID, productID string, quantity int) {
	if quantity <= 0 {
		s.RemoveFromCart(ctx, cartID, productID)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.hydrate(ctx, cartID)

	lines := s.carts[cartID]
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i].Quantity = quantity
			s.carts[cartID] = lines
			s.persist(ctx, cartID)
			return
		}
	}
}

// ClearCart опустошает корзину и её долговременный слот.
func (s *Store) ClearCart(ctx context.Context, cartID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hydrate(ctx, cartID)

	delete(s.carts, cartID)
	s.persist(ctx, cartID)
}

// Snapshot возвращает копию текущего состояния корзины.
func (s *Store) Snapshot(ctx context.Context, cartID string) model.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hydrate(ctx, cartID)

	return append(model.Cart(nil), s.carts[cartID]...)
}

// TotalCents возвращает сумму корзины в центах, всегда вычисляя её заново.
func (s *Store) TotalCents(ctx context.Context, cartID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hydrate(ctx, cartID)

	return s.carts[cartID].TotalCents()
}
