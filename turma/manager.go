package turma

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrTurmaFull signals an enrollment attempt on a cohort at capacity
var ErrTurmaFull = errors.New("turma is at capacity")

// ErrAlreadyEnrolled signals a duplicate enrollment of the same student
var ErrAlreadyEnrolled = errors.New("student is already enrolled in this turma")

// Manager handles the database operations relating to Turmas and Enrollments
type Manager struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewManager returns a new Manager for turmas
func NewManager(logger *zap.Logger, db *gorm.DB) (*Manager, error) {
	if err := db.AutoMigrate(&Turma{}, &Enrollment{}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot initialize turma.Manager")
	}
	return &Manager{
		db:     db,
		logger: logger,
	}, nil
}

// Create persists a new turma of the centro
func (m *Manager) Create(ctx context.Context, t *Turma) error {
	if len(t.ID) == 0 {
		t.ID = uuid.New().String()
	}
	result := m.db.WithContext(ctx).Create(t)
	if result.Error != nil {
		m.logger.Error("Unable to create new turma in database",
			zap.Error(result.Error),
		)
		return extErrors.Wrap(result.Error, "Cannot create turma")
	}
	return nil
}

// GetByID will try to return the turma, scoped by centro
func (m *Manager) GetByID(ctx context.Context, centroID, id string) (*Turma, error) {
	var t Turma

	result := m.db.WithContext(ctx).
		Where("centro_id = ?", centroID).
		First(&t, "id = ?", id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot get turma by id")
	}

	return &t, nil
}

// List returns all turmas of one centro, newest first
func (m *Manager) List(ctx context.Context, centroID string) ([]Turma, error) {
	results := make([]Turma, 0, 1)
	result := m.db.WithContext(ctx).
		Order("start_date desc").
		Find(&results, "centro_id = ?", centroID)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, result.Error
	}
	return results, nil
}

// Update persists changes to a turma
func (m *Manager) Update(ctx context.Context, t *Turma) error {
	result := m.db.WithContext(ctx).Save(t)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return extErrors.Wrap(result.Error, "Cannot update turma")
	}
	return nil
}

// Enroll adds a student to a turma, enforcing capacity inside a serializable
// transaction with the turma row locked so concurrent enrollments cannot
// oversubscribe the cohort
func (m *Manager) Enroll(ctx context.Context, centroID, turmaID, studentID string) (*Enrollment, error) {
	var enrollment Enrollment
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t Turma
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("centro_id = ?", centroID).
			First(&t, "id = ?", turmaID).Error; err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&Enrollment{}).
			Where("turma_id = ?", turmaID).
			Where("student_id = ?", studentID).
			Where("status = ?", EnrollmentActive).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyEnrolled
		}

		var active int64
		if err := tx.Model(&Enrollment{}).
			Where("turma_id = ?", turmaID).
			Where("status = ?", EnrollmentActive).
			Count(&active).Error; err != nil {
			return err
		}
		if t.Capacity > 0 && active >= int64(t.Capacity) {
			return ErrTurmaFull
		}

		enrollment = Enrollment{
			ID:         uuid.New().String(),
			TurmaID:    turmaID,
			StudentID:  studentID,
			EnrolledAt: time.Now(),
			Status:     EnrollmentActive,
		}
		return tx.Create(&enrollment).Error
	}, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if errors.Is(err, ErrTurmaFull) || errors.Is(err, ErrAlreadyEnrolled) {
		return nil, err
	}
	if err != nil {
		m.logger.Error("Unable to enroll student",
			zap.Error(err),
			zap.String("TurmaID", turmaID),
			zap.String("StudentID", studentID),
		)
		return nil, extErrors.Wrap(err, "Cannot enroll student")
	}
	return &enrollment, nil
}

// ListEnrollments returns the enrollments of one turma
func (m *Manager) ListEnrollments(ctx context.Context, turmaID string) ([]Enrollment, error) {
	results := make([]Enrollment, 0, 1)
	result := m.db.WithContext(ctx).
		Order("enrolled_at asc").
		Find(&results, "turma_id = ?", turmaID)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, result.Error
	}
	return results, nil
}

// SetEnrollmentStatus moves an enrollment to completed or dropped
func (m *Manager) SetEnrollmentStatus(ctx context.Context, id string, status EnrollmentStatus) error {
	result := m.db.WithContext(ctx).
		Model(&Enrollment{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return extErrors.Wrap(result.Error, "Cannot update enrollment")
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
