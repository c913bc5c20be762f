// Package billing owns the subscription ledger and its state machine.
//
// # Overview
//
// Every user has at most one main subscription row in an entitled status. Admins may stack
// additional rows on top of it; a stacked row carries the main row's id as its parent and the
// main row is never modified by stacking. Entitlement is the sum of the durations of all
// entitled rows, so overlapping windows count twice.
//
// # Payment rails
//
// UPI: the client creates an order, pays out of band and submits the 12 digit UTR. An admin
// approves the order once the transfer is confirmed.
//
// Razorpay: the checkout returns a payment id and an HMAC-SHA256 signature over
// "orderRef|paymentID". VerifyPayment recomputes it and fails closed on any mismatch.
//
// Stripe: checkout.session.completed and payment_intent.payment_failed webhooks activate or
// reject the order referenced by the session.
//
// # Usage Example
//
//	order, err := service.CreateOrder(ctx, userID, "individual-monthly")
//	// ... client completes the checkout
//	sub, err := service.VerifyPayment(ctx, userID, order.OrderRef, paymentID, signature)
//
//	agg, err := service.Aggregate(ctx, userID)
//	fmt.Printf("entitled for %d days until %s\n", agg.TotalDays, agg.LatestEndDate)
//
// # Related Packages
//
//   - pkg/plans: plan catalog and period math
//   - pkg/orgs: organization subscription snapshot
package billing
