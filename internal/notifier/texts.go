package notifier

import (
	"fmt"
	"strings"

	"github.com/prontoa/order/internal/service/models/order"
)

// FormatMoney renders an amount of cents as the customer-facing peso string,
// e.g. 1550000 -> "$15.500".
func FormatMoney(cents int64) string {
	pesos := cents / 100
	s := fmt.Sprintf("%d", pesos)

	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s[i : i+3])
	}

	return "$" + b.String()
}

// OrderConfirmationText is the message sent right after an order is created.
func OrderConfirmationText(o *order.Order) string {
	var b strings.Builder

	fmt.Fprintf(&b, "*Pedido #%s* confirmado ✅\n\n", o.Number)
	for _, item := range o.Items {
		fmt.Fprintf(&b, "• %s x%d - %s\n", item.ProductName, item.Quantity, FormatMoney(item.SubtotalCents))
	}
	fmt.Fprintf(&b, "\nTotal: %s\nTipo: %s\n", FormatMoney(o.TotalCents), o.Type)
	if o.DeliveryAddress != "" {
		fmt.Fprintf(&b, "Dirección: %s\n", o.DeliveryAddress)
	}
	b.WriteString("\nGracias por pedir con Prontoa.")

	return b.String()
}

// OrderReadyText is the message sent when the kitchen marks an order ready.
func OrderReadyText(o *order.Order) string {
	statusLine := "Puedes recogerlo cuando gustes 🏪"
	if o.Type == order.TypeDelivery {
		statusLine = "Tu pedido va en camino 🚚"
	}

	return fmt.Sprintf("Pedido #%s listo ✅\n\n%s", o.Number, statusLine)
}

// OrderDeliveredText is the message sent once an order is closed.
func OrderDeliveredText(o *order.Order) string {
	return fmt.Sprintf("Pedido #%s entregado 🎉\n\nCuéntanos cómo estuvo todo. ¡Gracias por preferirnos!", o.Number)
}
