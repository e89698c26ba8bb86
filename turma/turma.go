package turma

import "time"

// EnrollmentStatus is the custom type to define the state of an enrollment
type EnrollmentStatus string

// Defining the enrollment statuses
const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentDropped   EnrollmentStatus = "dropped"
)

// Turma describes one scheduled run of a course, the class cohort students
// enroll into
type Turma struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	CentroID  string    `json:"centroId" gorm:"index"`
	CourseID  string    `json:"courseId" gorm:"index"`
	Name      string    `json:"name" gorm:"not null"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Schedule  string    `json:"schedule"` // e.g. "Seg/Qua/Sex 18h-20h"
	Capacity  int       `json:"capacity" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Enrollment ties one student to one turma. Payments reference the turma of
// the enrollment they settle.
type Enrollment struct {
	ID         string           `json:"id" gorm:"primaryKey"`
	TurmaID    string           `json:"turmaId" gorm:"index"`
	StudentID  string           `json:"studentId" gorm:"index"`
	EnrolledAt time.Time        `json:"enrolledAt"`
	Status     EnrollmentStatus `json:"status" gorm:"not null"`
}
