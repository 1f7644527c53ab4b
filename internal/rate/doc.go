// Package rate throttles client-side login attempts per identifier with
// token buckets from golang.org/x/time/rate.
//
// # Semantics
//
// Each normalized identifier gets its own bucket of Burst tokens refilled at
// PerMinute tokens per minute. A successful login resets that identifier.
// Idle buckets are pruned once they would be full again.
//
// # What this package must NOT do
//
//   - Replace server-side throttling; this only spares the auth API from a
//     client that retries in a loop.
//   - Be imported outside the goSession module.
package rate
