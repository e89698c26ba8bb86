package subscription

import "time"

// Subscription describes one purchased billing period of a Centro. A centro
// accumulates rows over time as history; more than one row may be active at
// once and the access evaluator accounts for that.
type Subscription struct {
	ID            string        `json:"id" gorm:"primaryKey"`
	CentroID      string        `json:"centroId" gorm:"index"`
	Plan          string        `json:"plan" gorm:"not null"`
	Months        int           `json:"months" gorm:"not null"`
	Status        Status        `json:"status" gorm:"not null"`
	StartDate     time.Time     `json:"startDate"`
	EndDate       time.Time     `json:"endDate"` // StartDate plus Months months, stamped at creation and never recomputed
	PaymentStatus PaymentStatus `json:"paymentStatus" gorm:"not null"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}
