// Package ledger содержит Firestore-реализацию внешнего сервиса заказов и каталога.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/taash/storefront-system/internal/model"
)

// ErrNotFound возвращается, если документ отсутствует.
var (
	ErrNotFound = errors.New("document not found")
	// ErrPermissionDenied возвращается при отказе в доступе со стороны хранилища.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrOrderExists возвращается при повторной записи заказа с тем же идентификатором.
	ErrOrderExists = errors.New("order already exists")
)

// FirestoreLedger предоставляет доступ к коллекциям заказов, товаров и категорий.
type FirestoreLedger struct {
	client *firestore.Client
}

// NewFirestoreLedger создаёт адаптер поверх установленного Firestore-клиента.
func NewFirestoreLedger(client *firestore.Client) *FirestoreLedger {
	return &FirestoreLedger{client: client}
}

func (l *FirestoreLedger) orders() *firestore.CollectionRef {
	return l.client.Collection("orders")
}

func (l *FirestoreLedger) users() *firestore.CollectionRef {
	return l.client.Collection("users")
}

func (l *FirestoreLedger) products() *firestore.CollectionRef {
	return l.client.Collection("products")
}

func (l *FirestoreLedger) categories() *firestore.CollectionRef {
	return l.client.Collection("categories")
}

// classify переводит ошибки хранилища в доменную таксономию.
func classify(err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return ErrNotFound
	case codes.PermissionDenied:
		return ErrPermissionDenied
	case codes.AlreadyExists:
		return ErrOrderExists
	default:
		return err
	}
}

// SubmitOrder записывает заказ в два места: глобальный реестр заказов и
// личный список заказов субъекта. Записи логически связаны одним orderId,
// но не атомарны: сбой между ними оставляет заказ видимым только в реестре.
// Этот компромисс зафиксирован в контракте сервиса, вызывающая сторона
// трактует любой сбой как неуспех всего оформления.
func (l *FirestoreLedger) SubmitOrder(ctx context.Context, order model.Order) error {
	if l.client == nil {
		return errors.New("firestore client is nil")
	}

	data := orderToDoc(order)

	if _, err := l.orders().Doc(order.ID).Create(ctx, data); err != nil {
		return fmt.Errorf("write order ledger: %w", classify(err))
	}

	personal := l.users().Doc(order.SubjectID).Collection("orders").Doc(order.ID)
	if _, err := personal.Create(ctx, data); err != nil {
		return fmt.Errorf("write personal order list: %w", classify(err))
	}

	return nil
}

// GetOrdersForSubject возвращает личный список заказов субъекта.
func (l *FirestoreLedger) GetOrdersForSubject(ctx context.Context, subjectID string) ([]model.Order, error) {
	if l.client == nil {
		return nil, errors.New("firestore client is nil")
	}

	it := l.users().Doc(subjectID).Collection("orders").Documents(ctx)
	defer it.Stop()

	return collectOrders(it)
}

// GetAllOrders возвращает глобальный реестр заказов для административного обзора.
func (l *FirestoreLedger) GetAllOrders(ctx context.Context) ([]model.Order, error) {
	if l.client == nil {
		return nil, errors.New("firestore client is nil")
	}

	it := l.orders().Documents(ctx)
	defer it.Stop()

	return collectOrders(it)
}

func collectOrders(it *firestore.DocumentIterator) ([]model.Order, error) {
	var orders []model.Order
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, classify(err)
		}
		orders = append(orders, docToOrder(doc))
	}
	return orders, nil
}

// DecrementStock уменьшает остаток товара на указанное количество.
// Чтение и запись выполняются в одной транзакции, чтобы параллельные
// оформления одного товара не теряли обновления друг друга.
func (l *FirestoreLedger) DecrementStock(ctx context.Context, productID string, quantity int) error {
	if l.client == nil {
		return errors.New("firestore client is nil")
	}

	ref := l.products().Doc(productID)

	err := l.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}

		stock := asInt(snap.Data()["stock"])
		stock -= quantity
		if stock < 0 {
			stock = 0
		}

		return tx.Update(ref, []firestore.Update{{Path: "stock", Value: stock}})
	})
	if err != nil {
		return fmt.Errorf("decrement stock %s: %w", productID, classify(err))
	}

	return nil
}

// GetProduct возвращает товар каталога по идентификатору.
func (l *FirestoreLedger) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	if l.client == nil {
		return nil, errors.New("firestore client is nil")
	}

	snap, err := l.products().Doc(id).Get(ctx)
	if err != nil {
		return nil, classify(err)
	}

	p := docToProduct(snap)
	return &p, nil
}

// ListProducts возвращает все товары каталога. Пустой каталог — не ошибка.
func (l *FirestoreLedger) ListProducts(ctx context.Context) ([]model.Product, error) {
	if l.client == nil {
		return nil, errors.New("firestore client is nil")
	}

	it := l.products().Documents(ctx)
	defer it.Stop()

	products := []model.Product{}
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, classify(err)
		}
		products = append(products, docToProduct(doc))
	}

	return products, nil
}

// ListCategories возвращает все категории каталога.
func (l *FirestoreLedger) ListCategories(ctx context.Context) ([]model.Category, error) {
	if l.client == nil {
		return nil, errors.New("firestore client is nil")
	}

	it := l.categories().Documents(ctx)
	defer it.Stop()

	categories := []model.Category{}
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, classify(err)
		}
		categories = append(categories, model.Category{
			ID:   doc.Ref.ID,
			Name: asString(doc.Data()["name"]),
		})
	}

	return categories, nil
}

// AddProduct создаёт товар каталога и возвращает присвоенный идентификатор.
func (l *FirestoreLedger) AddProduct(ctx context.Context, p model.Product) (string, error) {
	if l.client == nil {
		return "", errors.New("firestore client is nil")
	}

	ref := l.products().NewDoc()
	if _, err := ref.Create(ctx, productToDoc(p)); err != nil {
		return "", classify(err)
	}

	return ref.ID, nil
}

// DeleteProduct удаляет товар каталога. Отсутствие товара не является ошибкой.
func (l *FirestoreLedger) DeleteProduct(ctx context.Context, id string) error {
	if l.client == nil {
		return errors.New("firestore client is nil")
	}

	if _, err := l.products().Doc(id).Delete(ctx); err != nil {
		return classify(err)
	}
	return nil
}

// AddCategory создаёт категорию каталога и возвращает присвоенный идентификатор.
func (l *FirestoreLedger) AddCategory(ctx context.Context, c model.Category) (string, error) {
	if l.client == nil {
		return "", errors.New("firestore client is nil")
	}

	ref := l.categories().NewDoc()
	if _, err := ref.Create(ctx, map[string]any{"name": strings.TrimSpace(c.Name)}); err != nil {
		return "", classify(err)
	}

	return ref.ID, nil
}

// DeleteCategory удаляет категорию каталога.
func (l *FirestoreLedger) DeleteCategory(ctx context.Context, id string) error {
	if l.client == nil {
		return errors.New("firestore client is nil")
	}

	if _, err := l.categories().Doc(id).Delete(ctx); err != nil {
		return classify(err)
	}
	return nil
}

// SaveUser сохраняет профиль покупателя под users/{uid}.
func (l *FirestoreLedger) SaveUser(ctx context.Context, u model.User) error {
	if l.client == nil {
		return errors.New("firestore client is nil")
	}

	_, err := l.users().Doc(u.ID).Set(ctx, map[string]any{
		"email":    strings.TrimSpace(u.Email),
		"fullName": strings.TrimSpace(u.FullName),
		"isAdmin":  u.IsAdmin,
	}, firestore.MergeAll)
	if err != nil {
		return classify(err)
	}
	return nil
}
