// Package dispatch sends one personalized notification per eligible
// campaign participant through an external email transport.
//
// The loop is strictly sequential: the transport enforces a hard per-tenant
// request quota, so sends are paced below the published ceiling rather than
// fanned out. Per-recipient failures are isolated, recorded in the delivery
// ledger, and surfaced in the outcome; only systemic failures (template
// provider, transport connectivity, quota exhaustion) abort the loop and
// propagate to the caller.
package dispatch
