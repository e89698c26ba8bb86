package centro

import "time"

// Status is the custom type to define the billing standing of a Centro
type Status string

// Defining the subscription statuses of a Centro
const (
	StatusTrial   Status = "trial"
	StatusActive  Status = "active"
	StatusPending Status = "pending"
	StatusExpired Status = "expired"
	StatusBlocked Status = "blocked"
)

// TrialDays is the free-access window granted at registration
const TrialDays = 14

// Centro describes one training center tenant. Every other record in the
// system is scoped by CentroID. A Centro is never deleted in-flow; an operator
// blocks it instead.
type Centro struct {
	ID                 string     `json:"id" gorm:"primaryKey"`
	Name               string     `json:"name" gorm:"not null"`
	Email              string     `json:"email" gorm:"uniqueIndex;not null"`
	Phone              string     `json:"phone"`
	Address            string     `json:"address"`
	SubscriptionStatus Status     `json:"subscriptionStatus" gorm:"not null"`
	TrialEndsAt        *time.Time `json:"trialEndsAt"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}
