// Package httputil provides the response envelope, typed HTTP errors, request parsing and
// common middleware shared by every PatentDesk handler.
//
// # Response Envelope
//
// Every response body has the shape {"statusCode": int, "message": string, "data": any}:
//
//	httputil.WriteSuccess(w, "plans fetched", plans)
//	httputil.WriteCreated(w, "order created", order)
//	httputil.WriteBadRequest(w, "planId is required")
//
// # Service Errors
//
// Handlers translate package sentinel errors with an ErrorMap; anything unmapped becomes a
// logged 500 with a generic message:
//
//	httputil.WriteServiceError(w, r, err, httputil.ErrorMap{
//		billing.ErrPlanNotFound:     http.StatusBadRequest,
//		billing.ErrAlreadySubscribed: http.StatusBadRequest,
//	})
//
// # Request Parsing
//
//	var req CreateOrderRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return
//	}
//	id, ok := httputil.ParsePathStringOrError(w, r, "id")
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware,
//		httputil.MaxBytesMiddleware(10<<20),
//	)
package httputil
