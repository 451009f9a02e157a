// Package audit records every state-changing PSU command in the audit_logs
// table and serves paginated queries over it.
//
// The Recorder is registered as the psu.Manager command observer. Transports
// tag the request context with WithActor so each entry carries where the
// command came from (api, mqtt) and which token subject sent it. Commands
// issued without an actor, such as the shutdown teardown, are recorded with
// source "system".
package audit
