package course

import (
	"context"
	"errors"

	"github.com/google/uuid"
	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Manager handles the database operations relating to Courses
type Manager struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewManager returns a new Manager for courses
func NewManager(logger *zap.Logger, db *gorm.DB) (*Manager, error) {
	if err := db.AutoMigrate(&Course{}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot initialize course.Manager")
	}
	return &Manager{
		db:     db,
		logger: logger,
	}, nil
}

// Create persists a new course of the centro
func (m *Manager) Create(ctx context.Context, c *Course) error {
	if len(c.ID) == 0 {
		c.ID = uuid.New().String()
	}
	result := m.db.WithContext(ctx).Create(c)
	if result.Error != nil {
		m.logger.Error("Unable to create new course in database",
			zap.Error(result.Error),
		)
		return extErrors.Wrap(result.Error, "Cannot create course")
	}
	return nil
}

// GetByID will try to return the course, scoped by centro
func (m *Manager) GetByID(ctx context.Context, centroID, id string) (*Course, error) {
	var c Course

	result := m.db.WithContext(ctx).
		Where("centro_id = ?", centroID).
		First(&c, "id = ?", id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot get course by id")
	}

	return &c, nil
}

// List returns the courses of one centro, optionally only the active ones
func (m *Manager) List(ctx context.Context, centroID string, activeOnly bool) ([]Course, error) {
	baseQuery := m.db.WithContext(ctx).Order("name asc").Where("centro_id = ?", centroID)
	if activeOnly {
		baseQuery = baseQuery.Where("active = ?", true)
	}
	results := make([]Course, 0, 1)
	result := baseQuery.Find(&results)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, result.Error
	}
	return results, nil
}

// Update persists changes to a course
func (m *Manager) Update(ctx context.Context, c *Course) error {
	result := m.db.WithContext(ctx).Save(c)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return extErrors.Wrap(result.Error, "Cannot update course")
	}
	return nil
}
