// Package permission provides the immutable permission set used by goSession
// authorization queries.
//
// # Wildcard
//
// A set containing [Wildcard] satisfies every permission check. Names are
// compared exactly; there is no prefix or hierarchy matching.
//
// # Architecture boundaries
//
// This package is a pure in-memory data structure with no I/O. It does not
// know where permission lists come from; the Manager builds a [Set] from the
// user record returned by the auth API.
//
// # What this package must NOT do
//
//   - Access storage or the network.
//   - Import goSession, jwt, or tokenstore.
//   - Mutate a Set after construction.
package permission
