package resend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"RestaurantAPI/internal/model"
)

type Mailer struct {
	apiKey  string
	from    string
	client  *http.Client
	baseURL string
}

func NewMailer(apiKey, from string) (*Mailer, error) {
	if apiKey == "" {
		return nil, errors.New("resend api key not set")
	}
	if from == "" {
		return nil, errors.New("mail from address not set")
	}

	return &Mailer{
		apiKey: apiKey,
		from:   from,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		baseURL: "https://api.resend.com",
	}, nil
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// SendOrderConfirmation mails a receipt for a freshly created order.
func (m *Mailer) SendOrderConfirmation(ctx context.Context, toEmail string, o *model.Order) error {
	body := sendRequest{
		From:    m.from,
		To:      []string{toEmail},
		Subject: "Your order " + shortID(o) + " is confirmed",
		HTML:    receiptHTML(o),
	}

	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/emails", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		buf := new(bytes.Buffer)
		buf.ReadFrom(resp.Body)
		return fmt.Errorf("send order confirmation: status %d: %s", resp.StatusCode, buf.String())
	}
	return nil
}

func shortID(o *model.Order) string {
	return strings.ToUpper(o.ID.String()[:8])
}

func receiptHTML(o *model.Order) string {
	var sb strings.Builder
	sb.WriteString("<p>Thanks for your order!</p><table>")
	for _, it := range o.Items {
		fmt.Fprintf(&sb, "<tr><td>%d &times; %s</td><td>%.2f</td></tr>",
			it.Quantity, html.EscapeString(it.Name), it.Price*float64(it.Quantity))
	}
	fmt.Fprintf(&sb, "<tr><td>Subtotal</td><td>%.2f</td></tr>", o.Subtotal)
	fmt.Fprintf(&sb, "<tr><td>Tax</td><td>%.2f</td></tr>", o.Tax)
	if o.DeliveryFee > 0 {
		fmt.Fprintf(&sb, "<tr><td>Delivery</td><td>%.2f</td></tr>", o.DeliveryFee)
	}
	fmt.Fprintf(&sb, "<tr><td><b>Total</b></td><td><b>%.2f</b></td></tr></table>", o.Total)
	fmt.Fprintf(&sb, "<p>Delivering to %s</p>", html.EscapeString(o.DeliveryAddress))
	return sb.String()
}
