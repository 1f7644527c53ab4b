// Package goSession is the client side of an authenticated session: it logs
// in against an auth API, keeps the access/refresh token pair, rotates it,
// times the session out, and answers the permission and access-level
// questions route guards ask.
//
// A [Manager] is built once with [New] and an injected [AuthClient], then
// shared by reference. Its methods are safe to call from multiple goroutines.
//
// # Concurrency
//
// [Manager.RefreshSession] and [Manager.CheckAuth] coalesce: concurrent
// callers join one in-flight call. Login does not. Every logout and login
// bumps a generation counter, and results from calls started under an older
// generation are discarded so a late reply never resurrects a logged-out
// session. Token store writes happen under the same lock as the in-memory
// change.
//
// # Architecture boundaries
//
// goSession is the public surface. Decision logic lives in internal/flows,
// persistence in tokenstore, cross-instance signalling in broadcast and
// claims reading in jwt. None of those import goSession.
//
// # What this package must NOT do
//
//   - Raise an access level that no server reply granted.
//   - Log token or password values.
//   - Leave memory and the token store disagreeing after an operation returns.
package goSession
