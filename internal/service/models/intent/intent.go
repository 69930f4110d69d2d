package intent

import "errors"

// Intents the extractor is asked to classify. They match the instructions in
// the system prompt, in Spanish like the rest of the customer-facing surface.
const (
	IntentPlaceOrder = "hacer_pedido"
	IntentInquiry    = "consulta"
	IntentComplaint  = "queja"
	IntentGreeting   = "saludo"
	IntentOther      = "otro"
)

// ErrExtraction marks a failed extractor call: timeout, transport error or a
// response so broken that even the fallback parse gave up.
var ErrExtraction = errors.New("intent extraction failed")

// ProductEntity is one requested product as the extractor understood it.
type ProductEntity struct {
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price,omitempty"`
}

// Entities holds everything slot filling needs to decide whether an order
// can be created.
type Entities struct {
	Products     []ProductEntity `json:"products,omitempty"`
	DeliveryType string          `json:"delivery_type,omitempty"`
	Address      string          `json:"address,omitempty"`
	CustomerName string          `json:"customer_name,omitempty"`
}

// Result is the structured output of one extractor call.
type Result struct {
	Intent             string   `json:"intent"`
	Confidence         float64  `json:"confidence"`
	Entities           Entities `json:"entities"`
	Response           string   `json:"response"`
	NeedsMoreInfo      bool     `json:"needs_more_info"`
	MissingInfo        []string `json:"missing_info,omitempty"`
	ReadyToCreateOrder bool     `json:"ready_to_create_order"`
}
