package starkbank

// BrcodePreview is the provider's dynamic quote for a brcode. AllowChange is
// a pointer: the provider may omit the field, and an omitted value must not
// be mistaken for an explicit false.
type BrcodePreview struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Name        string `json:"name"`
	TaxID       string `json:"taxId"`
	AllowChange *bool  `json:"allowChange"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

// BrcodePayment is a fiat payout created against a brcode.
type BrcodePayment struct {
	ID          string `json:"id"`
	Brcode      string `json:"brcode"`
	TaxID       string `json:"taxId"`
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
	Status      string `json:"status"`
	// ExternalID is the caller-chosen idempotency key. The provider rejects
	// a second payment with the same external id.
	ExternalID string `json:"externalId"`
}

// Webhook is a provider event subscription.
type Webhook struct {
	ID            string   `json:"id"`
	URL           string   `json:"url"`
	Subscriptions []string `json:"subscriptions"`
}

// WebhookEvent is the envelope posted to the webhook endpoint.
type WebhookEvent struct {
	Event struct {
		ID      string `json:"id"`
		Subtype string `json:"subtype"`
		Log     struct {
			Type    string        `json:"type"`
			Payment BrcodePayment `json:"payment"`
		} `json:"log"`
	} `json:"event"`
}

type previewsResponse struct {
	Previews []BrcodePreview `json:"previews"`
}

type balanceResponse struct {
	Balances []struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	} `json:"balances"`
}

type paymentsRequest struct {
	Payments []BrcodePayment `json:"payments"`
}

type paymentsResponse struct {
	Payments []BrcodePayment `json:"payments"`
}

type webhookRequest struct {
	Webhook Webhook `json:"webhook"`
}

type webhookResponse struct {
	Webhook Webhook `json:"webhook"`
}
