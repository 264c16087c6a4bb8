package ledger

import (
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/taash/storefront-system/internal/model"
)

// Кодирование и декодирование документов хранилища. Снимки приходят как
// map[string]any с непроверенными ключами, поэтому каждое поле читается
// защищённо: отсутствующее или чужого типа значение заменяется нулевым,
// а не протаскивается дальше в бизнес-логику.

func orderToDoc(o model.Order) map[string]any {
	items := make([]any, 0, len(o.Lines))
	for _, l := range o.Lines {
		items = append(items, map[string]any{
			"productId": l.ProductID,
			"quantity":  l.Quantity,
		})
	}

	return map[string]any{
		"userId":        o.SubjectID,
		"submissionKey": o.SubmissionKey,
		"items":         items,
		"total":         o.TotalCents,
		"status":        string(o.Status),
		"customer": map[string]any{
			"firstName": o.Customer.FirstName,
			"lastName":  o.Customer.LastName,
			"email":     o.Customer.Email,
			"phone":     o.Customer.Phone,
			"address":   o.Customer.Address,
			"city":      o.Customer.City,
			"zipCode":   o.Customer.ZipCode,
		},
		"createdAt":    o.CreatedAt.UTC(),
		"deliveryDate": o.DeliveryDate.UTC(),
	}
}

func docToOrder(doc *firestore.DocumentSnapshot) model.Order {
	return orderFromData(doc.Ref.ID, doc.Data())
}

func orderFromData(id string, data map[string]any) model.Order {
	o := model.Order{
		ID:            id,
		SubjectID:     asString(data["userId"]),
		SubmissionKey: asString(data["submissionKey"]),
		TotalCents:    asInt64(data["total"]),
		Status:        model.OrderStatus(asString(data["status"])),
		CreatedAt:     asTime(data["createdAt"]),
		DeliveryDate:  asTime(data["deliveryDate"]),
	}

	if o.Status == "" {
		o.Status = model.OrderStatusPending
	}

	for _, m := range itemMaps(data["items"]) {
		line := model.OrderLine{
			ProductID: asString(m["productId"]),
			Quantity:  asInt(m["quantity"]),
		}
		if line.ProductID == "" || line.Quantity < 1 {
			continue
		}
		o.Lines = append(o.Lines, line)
	}

	if raw, ok := data["customer"].(map[string]any); ok {
		o.Customer = model.CustomerDetails{
			FirstName: asString(raw["firstName"]),
			LastName:  asString(raw["lastName"]),
			Email:     asString(raw["email"]),
			Phone:     asString(raw["phone"]),
			Address:   asString(raw["address"]),
			City:      asString(raw["city"]),
			ZipCode:   asString(raw["zipCode"]),
		}
	}

	return o
}

func productToDoc(p model.Product) map[string]any {
	return map[string]any{
		"name":        strings.TrimSpace(p.Name),
		"price":       p.PriceCents,
		"description": p.Description,
		"image":       p.ImageRef,
		"category":    p.Category,
		"stock":       p.Stock,
	}
}

func docToProduct(doc *firestore.DocumentSnapshot) model.Product {
	return productFromData(doc.Ref.ID, doc.Data())
}

func productFromData(id string, data map[string]any) model.Product {
	return model.Product{
		ID:          id,
		Name:        asString(data["name"]),
		PriceCents:  asInt64(data["price"]),
		Description: asString(data["description"]),
		ImageRef:    asString(data["image"]),
		Category:    asString(data["category"]),
		Stock:       asInt(data["stock"]),
	}
}

// itemMaps принимает обе формы списка позиций: хранилище отдаёт []any,
// свежезакодированный документ может нести []map[string]any.
func itemMaps(v any) []map[string]any {
	switch raw := v.(type) {
	case []map[string]any:
		return raw
	case []any:
		items := make([]map[string]any, 0, len(raw))
		for _, e := range raw {
			if m, ok := e.(map[string]any); ok {
				items = append(items, m)
			}
		}
		return items
	default:
		return nil
	}
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func asInt(v any) int {
	return int(asInt64(v))
}

func asTime(v any) time.Time {
	if t, ok := v.(time.Time); ok {
		return t.UTC()
	}
	return time.Time{}
}
