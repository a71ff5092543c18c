// Package token issues and verifies the service's bearer tokens.
//
// Tokens are HS256 JWTs carrying the user id (sub), email and role, bounded by
// iat/exp and scoped by iss/aud. They are stateless: a token is valid when its
// signature, expiry, issuer and audience check out. There is no revocation.
//
// Environment (prefix supplied by the caller, e.g. "USERSVC_"):
//   - JWT_SECRET: HMAC key, at least 32 bytes (required)
//   - JWT_ISSUER: iss claim (required)
//   - JWT_AUDIENCE: aud claim (required)
//   - JWT_TTL: token lifetime, default 2h
package token
