package student

import "time"

// Student describes one learner of a training center
type Student struct {
	ID         string     `json:"id" gorm:"primaryKey"`
	CentroID   string     `json:"centroId" gorm:"index"`
	Name       string     `json:"name" gorm:"not null"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`
	BirthDate  *time.Time `json:"birthDate"`
	DocumentID string     `json:"documentId"` // national id card number
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}
