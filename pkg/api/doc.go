// Package api provides the HTTP REST API server for PatentDesk.
//
// # Overview
//
// The API is built on gorilla/mux and organized into handler groups, each with its own
// RegisterRoutes:
//
//   - Auth: signup, OTP verification, login and sessions
//   - Subscriptions: plan listing, orders, payment verification, trials and the entitlement summary
//   - Organization: creating an organization, invites and member management
//   - Saved patents: folders, workfiles and list imports
//   - Admin: user lookup, manual activations, order approval and plan pricing
//
// Every route lives under /api and answers with the envelope
//
//	{"statusCode": 200, "message": "...", "data": {...}}
//
// Service errors are translated with httputil.WriteServiceError and a per-group ErrorMap, so
// handlers never pick status codes for domain failures themselves.
//
// # Usage
//
//	server := api.NewServer(api.Services{...}, api.Options{Logger: logger, Metrics: metrics})
//	http.ListenAndServe(":8080", server)
package api
