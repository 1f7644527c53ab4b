// Package jwt reads access-token claims on the client side of a session.
//
// # Modes
//
// Without verification keys the [Inspector] decodes claims without checking
// the signature; the result is advisory only and is used to learn when the
// held access token expires. With an HS256 secret or an Ed25519 public key
// the signature, issuer and audience are verified as well.
//
// # What this package must NOT do
//
//   - Issue or sign tokens.
//   - Make authorization decisions; the auth API stays authoritative.
//   - Import goSession or tokenstore.
package jwt
