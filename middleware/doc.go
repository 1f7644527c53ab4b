// Package middleware exposes HTTP route guards built on a goSession.Manager.
//
// # Guards
//
//   - [Guard] admits a request when the session is initialized,
//     authenticated and satisfies every [Requirement].
//   - [RequirePermission], [RequireRole], [RequireDashboard] and friends wrap
//     the Manager's predicates.
//   - [RetryHandler] re-runs the session check behind the error panel.
//
// Responses never conflate a failure with a denial: 503 while initializing,
// 500 for a blocking session error, 401 without a session, 403 when a
// requirement fails.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Manager calls. It does NOT
// implement session logic itself; all decisions come from the Manager.
//
// # What this package must NOT do
//
//   - Parse or inspect tokens.
//   - Touch token storage.
//   - Change session state other than through ClearError and CheckAuth.
package middleware
