package ledger

import (
	"testing"
	"time"

	"github.com/taash/storefront-system/internal/model"
)

func TestOrderFromData_Defensive(t *testing.T) {
	created := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	data := map[string]any{
		"userId": "uid-1",
		"total":  int64(4000),
		"status": "pending",
		"items": []any{
			map[string]any{"productId": "a", "quantity": int64(2)},
			map[string]any{"productId": "b", "quantity": int64(1)},
			map[string]any{"productId": "", "quantity": int64(3)},   // битая позиция
			map[string]any{"productId": "c", "quantity": int64(0)},  // нулевое количество
			"garbage",
		},
		"customer": map[string]any{
			"firstName": "Jane",
			"email":     "jane@example.com",
		},
		"createdAt": created,
	}

	o := orderFromData("ORD-20260830-0042", data)

	if o.ID != "ORD-20260830-0042" || o.SubjectID != "uid-1" {
		t.Fatalf("unexpected identity: %+v", o)
	}
	if o.TotalCents != 4000 {
		t.Fatalf("total = %d, want 4000", o.TotalCents)
	}
	if len(o.Lines) != 2 {
		t.Fatalf("lines = %d, want 2 (broken entries dropped)", len(o.Lines))
	}
	if o.Lines[0].ProductID != "a" || o.Lines[0].Quantity != 2 {
		t.Fatalf("unexpected first line: %+v", o.Lines[0])
	}
	if o.Customer.FirstName != "Jane" || o.Customer.Email != "jane@example.com" {
		t.Fatalf("unexpected customer: %+v", o.Customer)
	}
	if !o.CreatedAt.Equal(created) {
		t.Fatalf("createdAt = %v, want %v", o.CreatedAt, created)
	}
}

func TestOrderFromData_EmptyDocumentDefaults(t *testing.T) {
	o := orderFromData("ORD-20260830-0001", map[string]any{})

	if o.Status != model.OrderStatusPending {
		t.Fatalf("status = %q, want pending default", o.Status)
	}
	if len(o.Lines) != 0 || o.TotalCents != 0 {
		t.Fatalf("expected zero values, got %+v", o)
	}
}

func TestOrderRoundTrip(t *testing.T) {
	created := time.Date(2026, 8, 30, 9, 30, 0, 0, time.UTC)
	src := model.Order{
		ID:            "ORD-20260830-7777",
		SubjectID:     "uid-9",
		SubmissionKey: "3f2c1e9a",
		Lines: []model.OrderLine{
			{ProductID: "a", Quantity: 2},
			{ProductID: "b", Quantity: 1},
		},
		TotalCents:   4000,
		Status:       model.OrderStatusPending,
		Customer:     model.CustomerDetails{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Phone: "0703081617", Address: "12 Main St", City: "Colombo", ZipCode: "10100"},
		CreatedAt:    created,
		DeliveryDate: created.AddDate(0, 0, 5),
	}

	got := orderFromData(src.ID, orderToDoc(src))

	if got.SubjectID != src.SubjectID || got.SubmissionKey != src.SubmissionKey {
		t.Fatalf("identity lost: %+v", got)
	}
	if len(got.Lines) != 2 || got.Lines[1] != src.Lines[1] {
		t.Fatalf("lines lost: %+v", got.Lines)
	}
	if got.Customer != src.Customer {
		t.Fatalf("customer lost: %+v", got.Customer)
	}
	if !got.DeliveryDate.Equal(src.DeliveryDate) {
		t.Fatalf("deliveryDate = %v, want %v", got.DeliveryDate, src.DeliveryDate)
	}
}

func TestOrderFromData_TypedItemSlice(t *testing.T) {
	// Список позиций может прийти и типизированным срезом, не только []any.
	o := orderFromData("ORD-20260830-0002", map[string]any{
		"items": []map[string]any{
			{"productId": "a", "quantity": int64(2)},
			{"productId": "b", "quantity": int64(1)},
		},
	})

	if len(o.Lines) != 2 || o.Lines[0].Quantity != 2 || o.Lines[1].ProductID != "b" {
		t.Fatalf("lines lost from typed slice: %+v", o.Lines)
	}
}

func TestProductFromData_TypeMismatchDefaults(t *testing.T) {
	p := productFromData("p1", map[string]any{
		"name":  42,              // чужой тип
		"price": float64(1999),   // хранилище может вернуть число с плавающей точкой
		"stock": int64(7),
	})

	if p.Name != "" {
		t.Fatalf("name = %q, want empty for non-string", p.Name)
	}
	if p.PriceCents != 1999 {
		t.Fatalf("price = %d, want 1999", p.PriceCents)
	}
	if p.Stock != 7 {
		t.Fatalf("stock = %d, want 7", p.Stock)
	}
}
