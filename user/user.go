package user

import (
	"time"

	"github.com/treinix/treinix/auth"
)

// User describes one login of a centro's staff, or a platform operator.
// PasswordHash is never serialized.
type User struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	CentroID     string    `json:"centroId" gorm:"index"`
	Name         string    `json:"name" gorm:"not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Role         auth.Role `json:"role" gorm:"not null"`
	Confirmed    bool      `json:"confirmed" gorm:"not null;default:false"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
