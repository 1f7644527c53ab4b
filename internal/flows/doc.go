// Package flows contains the pure decision logic behind every Manager
// operation.
//
// Each function takes plain inputs (or a typed dependency struct of
// callbacks) and returns a decision value; the Manager applies the decision
// to session state under its own lock. This keeps the rules testable without
// a fake auth API and keeps the Manager type thin.
//
// # Architecture boundaries
//
// Flows classify server replies, derive access levels and expiry, and decide
// what a periodic tick must do. They do NOT hold session state, touch the
// token store, or publish broadcast signals; ownership stays with the Manager.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goSession (to avoid import cycles).
//   - Set an access level that did not come from a server reply.
package flows
