// Package slotfill decides whether the entities extracted from a
// conversation are enough to create an order, normalizes them, and phrases a
// friendly prompt for whatever is still missing.
package slotfill

import (
	"strings"

	"github.com/prontoa/order/internal/service/models/intent"
	"github.com/prontoa/order/internal/service/models/order"
)

// Field names reported in Result.Missing.
const (
	FieldProducts     = "products"
	FieldCustomerName = "customer_name"
	FieldDeliveryType = "delivery_type"
	FieldAddress      = "address"
)

// Keyword lists used to infer the delivery type from the raw message when
// the extractor did not fill the slot.
var (
	pickupKeywords = []string{
		"recoger", "recojo", "paso por", "retiro", "retirar", "pickup", "tienda", "local",
	}
	deliveryKeywords = []string{
		"domicilio", "delivery", "envio", "envíen", "enviar", "llevar", "entregar", "direccion", "dirección",
	}
)

// Result is the outcome of validating one set of extracted entities.
type Result struct {
	Ready   bool
	Missing []string
	Prompt  string
}

// MissingSet returns the missing fields as a set for convenient lookup.
func (r Result) MissingSet() map[string]bool {
	set := make(map[string]bool, len(r.Missing))
	for _, f := range r.Missing {
		set[f] = true
	}

	return set
}

// Validate checks and normalizes the entities in place. All rules are
// evaluated; failures accumulate instead of short-circuiting, so one prompt
// can name everything that is still missing.
func Validate(entities *intent.Entities, rawText string) Result {
	var missing []string

	// Products: entries without a name are dropped, quantities below one
	// are clamped to one.
	kept := entities.Products[:0]
	for _, p := range entities.Products {
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			continue
		}
		if p.Quantity < 1 {
			p.Quantity = 1
		}
		kept = append(kept, p)
	}
	entities.Products = kept
	if len(entities.Products) == 0 {
		missing = append(missing, FieldProducts)
	}

	entities.CustomerName = strings.TrimSpace(entities.CustomerName)
	if entities.CustomerName == "" {
		missing = append(missing, FieldCustomerName)
	}

	deliveryType := normalizeDeliveryType(entities.DeliveryType)
	if deliveryType == "" {
		deliveryType = inferDeliveryType(rawText)
	}
	entities.DeliveryType = string(deliveryType)
	if deliveryType == "" {
		missing = append(missing, FieldDeliveryType)
	}

	// An empty address blocks the order unless pickup was established: for
	// delivery it is required, and while the type is unknown it may yet be.
	// Flagging both lets the prompt ask the combined question.
	entities.Address = strings.TrimSpace(entities.Address)
	if deliveryType != order.TypePickup && entities.Address == "" {
		missing = append(missing, FieldAddress)
	}

	result := Result{
		Ready:   len(missing) == 0,
		Missing: missing,
	}
	if !result.Ready {
		result.Prompt = buildPrompt(missing)
	}

	return result
}

func normalizeDeliveryType(raw string) order.Type {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "delivery":
		return order.TypeDelivery
	case "pickup":
		return order.TypePickup
	default:
		return ""
	}
}

func inferDeliveryType(rawText string) order.Type {
	text := strings.ToLower(rawText)
	for _, kw := range pickupKeywords {
		if strings.Contains(text, kw) {
			return order.TypePickup
		}
	}
	for _, kw := range deliveryKeywords {
		if strings.Contains(text, kw) {
			return order.TypeDelivery
		}
	}

	return ""
}

// buildPrompt phrases the missing fields as one friendly Spanish sentence,
// never as raw field names.
func buildPrompt(missing []string) string {
	set := make(map[string]bool, len(missing))
	for _, f := range missing {
		set[f] = true
	}

	var parts []string
	if set[FieldProducts] {
		parts = append(parts, "qué productos deseas pedir")
	}
	if set[FieldCustomerName] {
		parts = append(parts, "tu nombre")
	}
	if set[FieldDeliveryType] && set[FieldAddress] {
		// Both unclear: ask for them together instead of twice.
		parts = append(parts, "si es para entrega a domicilio (y a qué dirección) o para recoger")
	} else {
		if set[FieldDeliveryType] {
			parts = append(parts, "si lo quieres a domicilio o para recoger")
		}
		if set[FieldAddress] {
			parts = append(parts, "la dirección de entrega")
		}
	}

	return "Para completar tu pedido me falta saber " + joinSpanish(parts) + ". 😊"
}

func joinSpanish(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + " y " + parts[len(parts)-1]
	}
}
