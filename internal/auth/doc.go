// Package auth provides bearer-token authentication for the hvpsu API.
//
// Tokens are HS256 JWTs signed with security.jwt.secret. Each carries a
// subject and one of two roles:
//   - viewer: status, readings, relay state, audit trail
//   - operator: everything a viewer can do plus every command that reaches
//     hardware (connect, setpoints, relay, teardown)
//
// The role-permission mapping is static. There are no user accounts; tokens
// are minted by `hvpsuctl token` from the shared secret.
package auth
