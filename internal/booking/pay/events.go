package pay

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Provider event types handled by the settlement path.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventPaymentFailed       = "payment_intent.payment_failed"
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionDeleted = "customer.subscription.deleted"
	defaultFailureReason     = "payment failed"
)

// ErrMalformedEvent is returned for payloads that cannot be decoded.
var ErrMalformedEvent = errors.New("pay: malformed event")

// Event is one of CheckoutCompleted, PaymentFailed, SubscriptionChanged or
// Unhandled.
type Event interface {
	Envelope() EventEnvelope
}

// EventEnvelope carries the fields common to every provider event.
type EventEnvelope struct {
	ID      string
	Type    string
	Created time.Time
}

func (e EventEnvelope) Envelope() EventEnvelope { return e }

// CheckoutCompleted reports a successful checkout for a platform payment.
type CheckoutCompleted struct {
	EventEnvelope
	SessionID   string
	PaymentID   string
	BookingID   string
	AmountTotal int64
	Currency    string
}

// PaymentFailed reports a declined charge attempt.
type PaymentFailed struct {
	EventEnvelope
	PaymentID string
	Reason    string
}

// SubscriptionChanged reports a talent subscription being activated or cancelled.
type SubscriptionChanged struct {
	EventEnvelope
	SubscriptionID string
	UserID         string
	Active         bool
}

// Unhandled is any event type the platform does not act on.
type Unhandled struct {
	EventEnvelope
}

type rawEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type rawObject struct {
	ID          string            `json:"id"`
	AmountTotal int64             `json:"amount_total"`
	Currency    string            `json:"currency"`
	Status      string            `json:"status"`
	Metadata    map[string]string `json:"metadata"`
	LastError   *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"last_payment_error"`
}

// ParseEvent decodes a provider webhook body into its typed variant.
func ParseEvent(body []byte) (Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if strings.TrimSpace(raw.ID) == "" || strings.TrimSpace(raw.Type) == "" {
		return nil, fmt.Errorf("%w: id and type are required", ErrMalformedEvent)
	}
	env := EventEnvelope{ID: raw.ID, Type: raw.Type}
	if raw.Created > 0 {
		env.Created = time.Unix(raw.Created, 0).UTC()
	}

	switch raw.Type {
	case EventCheckoutCompleted, EventPaymentFailed, EventSubscriptionCreated, EventSubscriptionDeleted:
	default:
		return Unhandled{EventEnvelope: env}, nil
	}

	var obj rawObject
	if len(raw.Data.Object) == 0 {
		return nil, fmt.Errorf("%w: data.object is required", ErrMalformedEvent)
	}
	if err := json.Unmarshal(raw.Data.Object, &obj); err != nil {
		return nil, fmt.Errorf("%w: data.object: %v", ErrMalformedEvent, err)
	}

	switch raw.Type {
	case EventCheckoutCompleted:
		paymentID := obj.Metadata["payment_id"]
		if paymentID == "" {
			return nil, fmt.Errorf("%w: metadata.payment_id is required", ErrMalformedEvent)
		}
		return CheckoutCompleted{
			EventEnvelope: env,
			SessionID:     obj.ID,
			PaymentID:     paymentID,
			BookingID:     obj.Metadata["booking_id"],
			AmountTotal:   obj.AmountTotal,
			Currency:      strings.ToUpper(obj.Currency),
		}, nil
	case EventPaymentFailed:
		paymentID := obj.Metadata["payment_id"]
		if paymentID == "" {
			return nil, fmt.Errorf("%w: metadata.payment_id is required", ErrMalformedEvent)
		}
		reason := defaultFailureReason
		if obj.LastError != nil && strings.TrimSpace(obj.LastError.Message) != "" {
			reason = strings.TrimSpace(obj.LastError.Message)
		}
		return PaymentFailed{EventEnvelope: env, PaymentID: paymentID, Reason: reason}, nil
	default:
		userID := obj.Metadata["user_id"]
		if userID == "" {
			return nil, fmt.Errorf("%w: metadata.user_id is required", ErrMalformedEvent)
		}
		return SubscriptionChanged{
			EventEnvelope:  env,
			SubscriptionID: obj.ID,
			UserID:         userID,
			Active:         raw.Type == EventSubscriptionCreated,
		}, nil
	}
}
