// Package observability provides structured logging, Prometheus metrics, OpenTelemetry
// tracing and health probes for the PatentDesk API.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("order_ref", ref).Info("payment verified")
//
// Handlers pull a request-scoped logger from the context:
//
//	observability.FromContext(r.Context()).WithError(err).Error("failed to create order")
//
// # Prometheus Metrics
//
//	metrics := observability.NewMetrics(prometheus.NewRegistry())
//	metrics.SubscriptionTransitions.WithLabelValues("payment_pending", "active").Inc()
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient)
//	router.HandleFunc("/readyz", checker.Readiness)
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, cfg, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
package observability
