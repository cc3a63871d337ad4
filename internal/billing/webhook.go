package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	standardwebhooks "github.com/standard-webhooks/standard-webhooks/libraries/go"
)

// Tolerance is how far a webhook timestamp may drift from now.
const Tolerance = 5 * time.Minute

var (
	ErrMissingHeaders   = errors.New("webhook: missing signature headers")
	ErrInvalidSignature = errors.New("webhook: no matching signature")
	ErrStaleTimestamp   = errors.New("webhook: timestamp outside tolerance")
	ErrMissingSecret    = errors.New("webhook: signing secret not configured")
)

// VerifyWebhook checks a Standard Webhooks signature. secret may carry the
// "whsec_" prefix, in which case the rest is the base64 key.
//
// The timestamp is checked against now rather than the wall clock so
// handlers and tests can pin it.
func VerifyWebhook(secret string, h http.Header, body []byte, now time.Time) error {
	if secret == "" {
		return ErrMissingSecret
	}
	ts := h.Get(standardwebhooks.HeaderWebhookTimestamp)
	if h.Get(standardwebhooks.HeaderWebhookID) == "" || ts == "" || h.Get(standardwebhooks.HeaderWebhookSignature) == "" {
		return ErrMissingHeaders
	}

	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("webhook: bad timestamp %q: %w", ts, err)
	}
	sent := time.Unix(sec, 0)
	if now.Sub(sent) > Tolerance || sent.Sub(now) > Tolerance {
		return ErrStaleTimestamp
	}

	wh, err := newWebhook(secret)
	if err != nil {
		return err
	}
	if err := wh.VerifyIgnoringTimestamp(body, h); err != nil {
		if errors.Is(err, standardwebhooks.ErrNoMatchingSignature) {
			return ErrInvalidSignature
		}
		return fmt.Errorf("webhook: %w", err)
	}
	return nil
}

// Sign returns a "v1,<signature>" value for the webhook-signature header.
// secret follows the same rules as in VerifyWebhook.
func Sign(secret, id string, timestamp time.Time, body []byte) (string, error) {
	wh, err := newWebhook(secret)
	if err != nil {
		return "", err
	}
	return wh.Sign(id, timestamp, body)
}

func newWebhook(secret string) (*standardwebhooks.Webhook, error) {
	if strings.HasPrefix(secret, "whsec_") {
		wh, err := standardwebhooks.NewWebhook(secret)
		if err != nil {
			return nil, fmt.Errorf("webhook: bad signing secret: %w", err)
		}
		return wh, nil
	}
	return standardwebhooks.NewWebhookRaw([]byte(secret))
}

// Event is the part of a payments webhook the service acts on.
type Event struct {
	Type   string
	UserID string
	Email  string
}

type eventPayload struct {
	Type string `json:"type"`
	Data struct {
		Metadata map[string]string `json:"metadata"`
		Customer struct {
			Email string `json:"email"`
		} `json:"customer"`
	} `json:"data"`
}

// ParseEvent decodes a webhook body. The user id travels in the checkout
// metadata under "user_id".
func ParseEvent(body []byte) (Event, error) {
	var p eventPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return Event{}, fmt.Errorf("webhook: decode event: %w", err)
	}
	if p.Type == "" {
		return Event{}, errors.New("webhook: event has no type")
	}
	return Event{
		Type:   p.Type,
		UserID: p.Data.Metadata["user_id"],
		Email:  p.Data.Customer.Email,
	}, nil
}

// SubscriptionChange reports whether ev changes the user's subscription and
// to what. Unrelated events return changed == false.
func SubscriptionChange(ev Event) (subscribed, changed bool) {
	switch ev.Type {
	case "subscription.active", "subscription.renewed":
		return true, true
	case "subscription.cancelled", "subscription.expired", "subscription.failed":
		return false, true
	default:
		return false, false
	}
}
