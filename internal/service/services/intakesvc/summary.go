package intakesvc

import (
	"fmt"
	"strings"

	"github.com/prontoa/order/internal/notifier"
	"github.com/prontoa/order/internal/service/models/intent"
	"github.com/prontoa/order/internal/service/models/order"
	"github.com/prontoa/order/internal/service/models/product"
)

// buildSummary renders the order the customer is about to confirm. Prices
// come from the catalog snapshot taken in this turn; unknown products are
// listed without a price and resolved again at creation time.
func buildSummary(entities intent.Entities, catalog []product.Product) string {
	byName := make(map[string]product.Product, len(catalog))
	for _, p := range catalog {
		byName[strings.ToLower(p.Name)] = p
	}

	var b strings.Builder
	b.WriteString("Este es tu pedido 📝\n\n")

	var total int64
	priced := true
	for _, item := range entities.Products {
		qty := item.Quantity
		if qty < 1 {
			qty = 1
		}
		if p, ok := byName[strings.ToLower(item.Name)]; ok {
			subtotal := p.PriceCents * int64(qty)
			total += subtotal
			fmt.Fprintf(&b, "• %s x%d - %s\n", p.Name, qty, notifier.FormatMoney(subtotal))
		} else {
			priced = false
			fmt.Fprintf(&b, "• %s x%d\n", item.Name, qty)
		}
	}

	if priced {
		fmt.Fprintf(&b, "\nTotal: %s\n", notifier.FormatMoney(total))
	}

	if entities.DeliveryType == string(order.TypeDelivery) {
		fmt.Fprintf(&b, "Entrega a domicilio: %s\n", entities.Address)
	} else {
		b.WriteString("Para recoger en tienda 🏪\n")
	}
	if entities.CustomerName != "" {
		fmt.Fprintf(&b, "A nombre de: %s\n", entities.CustomerName)
	}

	b.WriteString("\n¿Confirmas tu pedido? Responde *sí* para crearlo o *no* para cambiarlo.")

	return b.String()
}
