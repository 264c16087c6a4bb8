package cart

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/taash/storefront-system/internal/model"
	"github.com/taash/storefront-system/internal/repository"
)

type fakeSlot struct {
	saved   map[string]model.Cart
	saveErr error
}

func newFakeSlot() *fakeSlot {
	return &fakeSlot{saved: make(map[string]model.Cart)}
}

func (f *fakeSlot) LoadCart(ctx context.Context, storeName, cartID string) (model.Cart, error) {
	cart, ok := f.saved[storeName+"/"+cartID]
	if !ok {
		return nil, repository.ErrSlotNotFound
	}
	return cart, nil
}

func (f *fakeSlot) SaveCart(ctx context.Context, storeName, cartID string, cart model.Cart) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved[storeName+"/"+cartID] = cart
	return nil
}

func (f *fakeSlot) DeleteCart(ctx context.Context, storeName, cartID string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	delete(f.saved, storeName+"/"+cartID)
	return nil
}

func newTestStore(t *testing.T) (*Store, *fakeSlot) {
	t.Helper()
	slot := newFakeSlot()
	return NewStore("taash-store", slot, zap.NewNop()), slot
}

var testProduct = model.Product{
	ID:         "p1",
	Name:       "Mug",
	PriceCents: 1000,
	ImageRef:   "img/p1.png",
}

func TestAddToCart_MergesIntoSingleLine(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		store.AddToCart(ctx, "c1", testProduct)
	}

	cart := store.Snapshot(ctx, "c1")
	if len(cart) != 1 {
		t.Fatalf("lines = %d, want exactly one line per product", len(cart))
	}
	if cart[0].Quantity != 5 {
		t.Fatalf("quantity = %d, want 5", cart[0].Quantity)
	}
}

func TestAddToCart_PreservesInsertionOrder(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	store.AddToCart(ctx, "c1", model.Product{ID: "a", PriceCents: 100})
	store.AddToCart(ctx, "c1", model.Product{ID: "b", PriceCents: 200})
	store.AddToCart(ctx, "c1", model.Product{ID: "a", PriceCents: 100})

	cart := store.Snapshot(ctx, "c1")
	if len(cart) != 2 || cart[0].ProductID != "a" || cart[1].ProductID != "b" {
		t.Fatalf("unexpected cart order: %+v", cart)
	}
}

func TestUpdateQuantity_ZeroEqualsRemove(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	store.AddToCart(ctx, "c1", testProduct)
	store.UpdateQuantity(ctx, "c1", testProduct.ID, 0)

	if cart := store.Snapshot(ctx, "c1"); len(cart) != 0 {
		t.Fatalf("cart not empty after quantity 0: %+v", cart)
	}

	store.AddToCart(ctx, "c2", testProduct)
	store.RemoveFromCart(ctx, "c2", testProduct.ID)

	if cart := store.Snapshot(ctx, "c2"); len(cart) != 0 {
		t.Fatalf("cart not empty after remove: %+v", cart)
	}
}

func TestUpdateQuantity_SetsExactValue(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	store.AddToCart(ctx, "c1", testProduct)
	store.UpdateQuantity(ctx, "c1", testProduct.ID, 7)

	cart := store.Snapshot(ctx, "c1")
	if len(cart) != 1 || cart[0].Quantity != 7 {
		t.Fatalf("unexpected cart: %+v", cart)
	}
}

func TestRemoveFromCart_AbsentIsNoop(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	store.AddToCart(ctx, "c1", testProduct)
	store.RemoveFromCart(ctx, "c1", "missing")

	if cart := store.Snapshot(ctx, "c1"); len(cart) != 1 {
		t.Fatalf("unexpected cart after removing absent line: %+v", cart)
	}
}

func TestClearCart_TotalIsZero(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	store.AddToCart(ctx, "c1", testProduct)
	store.AddToCart(ctx, "c1", model.Product{ID: "p2", PriceCents: 2500})
	store.ClearCart(ctx, "c1")

	if total := store.TotalCents(ctx, "c1"); total != 0 {
		t.Fatalf("total = %d, want 0", total)
	}
	if cart := store.Snapshot(ctx, "c1"); len(cart) != 0 {
		t.Fatalf("cart not empty after clear: %+v", cart)
	}
}

func TestTotalCents_Recomputed(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	store.AddToCart(ctx, "c1", model.Product{ID: "a", PriceCents: 1000})
	store.AddToCart(ctx, "c1", model.Product{ID: "a", PriceCents: 1000})
	store.AddToCart(ctx, "c1", model.Product{ID: "b", PriceCents: 2000})

	if total := store.TotalCents(ctx, "c1"); total != 4000 {
		t.Fatalf("total = %d, want 4000", total)
	}

	store.UpdateQuantity(ctx, "c1", "a", 1)
	if total := store.TotalCents(ctx, "c1"); total != 3000 {
		t.Fatalf("total after update = %d, want 3000", total)
	}
}

func TestStore_PersistsSnapshotWriteThrough(t *testing.T) {
	store, slot := newTestStore(t)
	ctx := context.Background()

	store.AddToCart(ctx, "c1", testProduct)

	saved, ok := slot.saved["taash-store/c1"]
	if !ok {
		t.Fatalf("snapshot was not persisted")
	}
	if len(saved) != 1 || saved[0].ProductID != "p1" || saved[0].Quantity != 1 {
		t.Fatalf("unexpected persisted snapshot: %+v", saved)
	}

	store.ClearCart(ctx, "c1")
	if _, ok := slot.saved["taash-store/c1"]; ok {
		t.Fatalf("slot not deleted after clear")
	}
}

func TestStore_HydratesFromSlot(t *testing.T) {
	slot := newFakeSlot()
	slot.saved["taash-store/c1"] = model.Cart{
		{ProductID: "p1", Name: "Mug", UnitPriceCents: 1000, Quantity: 3},
	}

	store := NewStore("taash-store", slot, zap.NewNop())

	cart := store.Snapshot(context.Background(), "c1")
	if len(cart) != 1 || cart[0].Quantity != 3 {
		t.Fatalf("hydrated cart = %+v, want one line with quantity 3", cart)
	}
}

func TestStore_SlotFailureDoesNotFailMutation(t *testing.T) {
	slot := newFakeSlot()
	slot.saveErr = errors.New("slot unavailable")

	store := NewStore("taash-store", slot, zap.NewNop())
	ctx := context.Background()

	store.AddToCart(ctx, "c1", testProduct)

	cart := store.Snapshot(ctx, "c1")
	if len(cart) != 1 || cart[0].Quantity != 1 {
		t.Fatalf("in-memory state lost on slot failure: %+v", cart)
	}
}
