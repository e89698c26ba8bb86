package subscription

import "time"

// Status is the custom type to define the current state of a subscription.
// It mirrors the centro-level vocabulary but applies per purchase.
type Status string

// Defining different statuses for a Subscription
const (
	StatusTrial   Status = "trial"
	StatusActive  Status = "active"
	StatusPending Status = "pending"
	StatusExpired Status = "expired"
	StatusBlocked Status = "blocked"
)

// PaymentStatus is the custom type to define whether the operator has
// approved the purchase
type PaymentStatus string

// Defining the payment statuses of a Subscription
const (
	PaymentPending  PaymentStatus = "pending"
	PaymentApproved PaymentStatus = "approved"
	PaymentRejected PaymentStatus = "rejected"
)

// AccessCacheTTL is how long an access verdict stays cached before clients
// force a re-evaluation
const AccessCacheTTL = 30 * time.Second
