// Package billing owns the subscription lifecycle: the plan catalog,
// per-user subscription records, checkout initiation against the external
// billing provider, webhook-driven reconciliation of provider events into
// local state, and entitlement decisions derived from that state.
//
// The provider is abstracted behind the Provider interface so the reconciler
// is identical for Stripe and Paddle; provider-specific payload handling and
// signature verification live in the respective implementations.
//
// All state writes are full-record upserts keyed on stable identifiers
// (user id, provider subscription id). Webhook delivery is at-least-once and
// unordered, so every handler is idempotent: replaying an event converges to
// the same stored record.
package billing
