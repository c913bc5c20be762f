package billing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v74/webhook"

	"github.com/platinummonkey/patentdesk/pkg/observability"
)

// stripeCheckoutSession is the part of a checkout session the ledger needs
type stripeCheckoutSession struct {
	ID                string            `json:"id"`
	ClientReferenceID string            `json:"client_reference_id"`
	PaymentIntent     json.RawMessage   `json:"payment_intent"`
	Metadata          map[string]string `json:"metadata"`
}

type stripePaymentIntent struct {
	ID               string            `json:"id"`
	Metadata         map[string]string `json:"metadata"`
	LastPaymentError *struct {
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

// orderRef prefers the client reference and falls back to metadata
func (cs *stripeCheckoutSession) orderRef() string {
	if cs.ClientReferenceID != "" {
		return cs.ClientReferenceID
	}
	return cs.Metadata["orderRef"]
}

// paymentID returns the payment intent id, expanded or not, else the session id
func (cs *stripeCheckoutSession) paymentID() string {
	if len(cs.PaymentIntent) > 0 {
		var id string
		if err := json.Unmarshal(cs.PaymentIntent, &id); err == nil && id != "" {
			return id
		}
		var expanded struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(cs.PaymentIntent, &expanded); err == nil && expanded.ID != "" {
			return expanded.ID
		}
	}
	return cs.ID
}

// HandleStripeEvent verifies and applies a Stripe webhook delivery. Events for unknown orders are
// acknowledged so Stripe stops retrying them.
func (s *Service) HandleStripeEvent(ctx context.Context, payload []byte, signatureHeader string) error {
	if s.stripeSecret == "" {
		return ErrInvalidSignature
	}
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, s.stripeSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		s.metrics.RecordPayment(string(MethodStripe), "invalid_signature")
		return ErrInvalidSignature
	}

	logger := observability.FromContext(ctx).WithFields(map[string]interface{}{
		"event_id":   event.ID,
		"event_type": event.Type,
	})
	logger.Info("processing stripe webhook event")

	switch event.Type {
	case "checkout.session.completed":
		var session stripeCheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return fmt.Errorf("failed to decode checkout session: %w", err)
		}
		orderRef := session.orderRef()
		if orderRef == "" {
			logger.Warn("checkout session carries no order reference")
			return nil
		}
		_, err := s.activateOrder(ctx, activation{
			orderRef:      orderRef,
			transactionID: session.paymentID(),
			method:        MethodStripe,
		})
		if isNotFound(err) {
			logger.WithField("order_ref", orderRef).Warn("checkout session for unknown order")
			return nil
		}
		return err

	case "payment_intent.payment_failed":
		var intent stripePaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return fmt.Errorf("failed to decode payment intent: %w", err)
		}
		orderRef := intent.Metadata["orderRef"]
		if orderRef == "" {
			return nil
		}
		reason := "payment failed"
		if intent.LastPaymentError != nil && intent.LastPaymentError.Message != "" {
			reason = intent.LastPaymentError.Message
		}
		err := s.Reject(ctx, orderRef, reason)
		if isNotFound(err) {
			logger.WithField("order_ref", orderRef).Warn("failed payment for unknown order")
			return nil
		}
		return err
	}
	return nil
}
