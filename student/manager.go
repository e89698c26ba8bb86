package student

import (
	"context"
	"errors"

	"github.com/google/uuid"
	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Manager handles the database operations relating to Students
type Manager struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewManager returns a new Manager for students
func NewManager(logger *zap.Logger, db *gorm.DB) (*Manager, error) {
	if err := db.AutoMigrate(&Student{}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot initialize student.Manager")
	}
	return &Manager{
		db:     db,
		logger: logger,
	}, nil
}

// Create persists a new student of the centro
func (m *Manager) Create(ctx context.Context, s *Student) error {
	if len(s.ID) == 0 {
		s.ID = uuid.New().String()
	}
	result := m.db.WithContext(ctx).Create(s)
	if result.Error != nil {
		m.logger.Error("Unable to create new student in database",
			zap.Error(result.Error),
		)
		return extErrors.Wrap(result.Error, "Cannot create student")
	}
	return nil
}

// GetByID will try to return the student, scoped by centro
func (m *Manager) GetByID(ctx context.Context, centroID, id string) (*Student, error) {
	var s Student

	result := m.db.WithContext(ctx).
		Where("centro_id = ?", centroID).
		First(&s, "id = ?", id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot get student by id")
	}

	return &s, nil
}

// List returns all students of one centro, newest first
func (m *Manager) List(ctx context.Context, centroID string) ([]Student, error) {
	results := make([]Student, 0, 1)
	result := m.db.WithContext(ctx).
		Order("created_at desc").
		Find(&results, "centro_id = ?", centroID)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, result.Error
	}
	return results, nil
}

// Update persists changes to a student
func (m *Manager) Update(ctx context.Context, s *Student) error {
	result := m.db.WithContext(ctx).Save(s)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return extErrors.Wrap(result.Error, "Cannot update student")
	}
	return nil
}

// Delete removes a student of the centro
func (m *Manager) Delete(ctx context.Context, centroID, id string) error {
	result := m.db.WithContext(ctx).
		Where("centro_id = ?", centroID).
		Delete(&Student{}, "id = ?", id)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return extErrors.Wrap(result.Error, "Cannot delete student")
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
