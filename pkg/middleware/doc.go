// Package middleware provides net/http middleware for the panel server.
//
// This package includes:
//   - OpenTelemetry tracing
//   - Prometheus request metrics
//   - Request logging and panic recovery with log/slog
//
// All middleware has the func(http.Handler) http.Handler shape, so it plugs
// straight into a chi router:
//
//	r := chi.NewRouter()
//	r.Use(
//	    middleware.Recover(logger),
//	    middleware.OpenTelemetry(),
//	    middleware.Prometheus(middleware.WithRegistry(reg)),
//	    middleware.Logger(logger),
//	)
//
// Labels and span names use the chi route pattern ("/api/tickets/{type}/next")
// rather than the raw path, which keeps metric cardinality bounded.
//
// # Context Propagation
//
// The tracing middleware stores the span in the request context, so state
// mutations started from a handler join the request trace:
//
//	func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
//	    s.operator.Adjust(r.Context(), t, state.Next)
//	}
package middleware
