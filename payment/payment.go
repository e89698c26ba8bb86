package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment describes a billing obligation tied to one student and one turma
// enrollment, split into one or two installments. InstallmentsPaid and Status
// are denormalized from the Schedule and maintained by the write path; every
// installment mutation recomputes them in the same transaction.
type Payment struct {
	ID               string          `json:"id" gorm:"primaryKey"`
	CentroID         string          `json:"centroId" gorm:"index"`
	StudentID        string          `json:"studentId" gorm:"index"`
	TurmaID          string          `json:"turmaId" gorm:"index"`
	Amount           decimal.Decimal `json:"amount" gorm:"type:numeric(12,2)"`
	Installments     int             `json:"installments" gorm:"not null"`
	InstallmentsPaid int             `json:"installmentsPaid" gorm:"not null;default:0"`
	Status           Status          `json:"status" gorm:"not null"`
	Method           Method          `json:"paymentMethod" gorm:"not null"`
	Schedule         []Installment   `json:"schedule" gorm:"foreignKey:PaymentID"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// Installment is one scheduled share of a Payment's amount. Created in a
// batch of exactly Payment.Installments records, never deleted.
type Installment struct {
	ID        string            `json:"id" gorm:"primaryKey"`
	PaymentID string            `json:"paymentId" gorm:"index"`
	Number    int               `json:"installmentNumber"` // 1-based
	Amount    decimal.Decimal   `json:"amount" gorm:"type:numeric(12,2)"`
	DueDate   time.Time         `json:"dueDate"`
	PaidAt    *time.Time        `json:"paidAt"`
	Status    InstallmentStatus `json:"status" gorm:"not null"`
	Reference string            `json:"reference"` // short receipt reference shown to the payer
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}
