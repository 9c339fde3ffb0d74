// Package activation implements the campaign activation state machine.
//
// Activation is the only place a campaign moves from draft to active. The
// service validates eligibility, hands the participant list to the
// notification dispatcher, and persists the transition with an atomic
// conditional update so two concurrent activation attempts cannot both
// succeed. On systemic dispatch failure it compensates by reverting the
// campaign to draft; delivery-ledger rows already written stay.
//
// Repository implementations live in repository/postgres.
package activation
