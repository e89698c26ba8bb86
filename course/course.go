package course

import (
	"time"

	"github.com/shopspring/decimal"
)

// Course describes one course offered by a training center. Turmas are
// scheduled runs of a Course.
type Course struct {
	ID             string          `json:"id" gorm:"primaryKey"`
	CentroID       string          `json:"centroId" gorm:"index"`
	Name           string          `json:"name" gorm:"not null"`
	Description    string          `json:"description"`
	DurationMonths int             `json:"durationMonths"`
	Price          decimal.Decimal `json:"price" gorm:"type:numeric(12,2)"`
	Active         bool            `json:"active" gorm:"not null;default:true"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}
