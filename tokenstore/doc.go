// Package tokenstore persists the access/refresh token pair of a client
// session so it survives restarts and can be shared between instances.
//
// # Backends
//
//   - [MemoryStore]: process-local, the default.
//   - [RedisStore]: shared between instances; save and clear run as a
//     single Lua script so both keys change together.
//   - [FileStore]: one encrypted file (XChaCha20-Poly1305, Argon2id key).
//   - [SQLiteStore]: a two-row key/value table updated in a transaction.
//
// [CookieMirror] is not a Store. It copies the pair into cookies so that
// server-side middleware reading the request can see the same tokens.
//
// # What this package must NOT do
//
//   - Interpret tokens (see package jwt).
//   - Log token values.
//   - Import goSession (no upward imports).
package tokenstore
