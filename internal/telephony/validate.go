package telephony

import (
	"net/http"

	twilioclient "github.com/twilio/twilio-go/client"
)

// WebhookValidator checks the X-Twilio-Signature header on incoming webhook
// requests so spoofed requests can be rejected before any call handling.
type WebhookValidator struct {
	validator twilioclient.RequestValidator
	baseURL   string
}

// NewWebhookValidator creates a validator for webhooks delivered to baseURL.
func NewWebhookValidator(authToken, baseURL string) *WebhookValidator {
	return &WebhookValidator{
		validator: twilioclient.NewRequestValidator(authToken),
		baseURL:   baseURL,
	}
}

// Validate reports whether the request's signature matches the form payload
// Twilio signed for baseURL+endpoint.
func (v *WebhookValidator) Validate(r *http.Request, endpoint string) bool {
	signature := r.Header.Get("X-Twilio-Signature")
	if signature == "" {
		return false
	}

	if err := r.ParseForm(); err != nil {
		return false
	}
	params := make(map[string]string, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	return v.validator.Validate(v.baseURL+endpoint, params, signature)
}
