package model

// Metadata keys embedded into a checkout session.
const (
	MetaUserID          = "user_id"
	MetaUserEmail       = "user_email"
	MetaItems           = "items"
	MetaSubtotal        = "subtotal"
	MetaTax             = "tax"
	MetaDeliveryFee     = "delivery_fee"
	MetaTotal           = "total"
	MetaDeliveryAddress = "delivery_address"
	MetaPhone           = "phone"
	MetaInstructions    = "instructions"
)

// Names of the synthetic gateway line items that are not orderable.
const (
	LineItemTax         = "Tax"
	LineItemDeliveryFee = "Delivery Fee"
)

const PaymentStatusPaid = "paid"

// SessionIDPlaceholder in a success URL is replaced with the session id by the gateway.
const SessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

// CheckoutSession is the gateway's record of one payment attempt.
// Amounts are in major currency units.
type CheckoutSession struct {
	ID            string
	RedirectURL   string
	PaymentStatus string
	AmountTotal   float64
	CustomerEmail string
	LineItems     []LineItem
	Metadata      map[string]string
}

func (s *CheckoutSession) Paid() bool {
	return s.PaymentStatus == PaymentStatusPaid
}

type LineItem struct {
	Name      string   `json:"name"`
	UnitPrice float64  `json:"unit_price"`
	Quantity  int      `json:"quantity"`
	Images    []string `json:"images,omitempty"`
}

// SessionRequest is what the checkout service asks the gateway to create.
type SessionRequest struct {
	LineItems     []LineItem
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
	Currency      string
	Total         float64
	Metadata      map[string]string
}

// GatewayEvent is a signature-verified notification from the gateway.
type GatewayEvent struct {
	Type      string
	SessionID string
	Completed bool
}

// MetadataItem is the shape of each element in the "items" metadata value.
type MetadataItem struct {
	MenuItemID int64   `json:"menu_item_id"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
	Image      *string `json:"image,omitempty"`
}

// CheckoutRequest is the body of POST /checkout/session.
type CheckoutRequest struct {
	Items       []CheckoutItem `json:"items"`
	Delivery    DeliveryInfo   `json:"delivery_info"`
	Subtotal    float64        `json:"subtotal"`
	Tax         float64        `json:"tax"`
	DeliveryFee float64        `json:"delivery_fee"`
	Total       float64        `json:"total"`
}

type CheckoutItem struct {
	MenuItemID int64   `json:"menu_item_id"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
	Image      *string `json:"image,omitempty"`
}

type DeliveryInfo struct {
	Address      string `json:"address"`
	Phone        string `json:"phone"`
	Instructions string `json:"instructions,omitempty"`
}

type CheckoutResponse struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}
