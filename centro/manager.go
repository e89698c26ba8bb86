package centro

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Manager handles the database operations relating to Centros
type Manager struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewManager returns a new Manager for centros
func NewManager(logger *zap.Logger, db *gorm.DB) (*Manager, error) {
	if err := db.AutoMigrate(&Centro{}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot initialize centro.Manager")
	}
	return &Manager{
		db:     db,
		logger: logger,
	}, nil
}

// NewCentroOption contains the registration details of a new training center
type NewCentroOption struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// NewCentro will create a new centro in trial standing with a fresh trial window
func (m *Manager) NewCentro(ctx context.Context, opt NewCentroOption) (*Centro, error) {
	trialEnd := time.Now().AddDate(0, 0, TrialDays)
	newCentro := &Centro{
		ID:                 uuid.New().String(),
		Name:               opt.Name,
		Email:              opt.Email,
		Phone:              opt.Phone,
		Address:            opt.Address,
		SubscriptionStatus: StatusTrial,
		TrialEndsAt:        &trialEnd,
	}

	result := m.db.WithContext(ctx).Create(newCentro)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot create a new Centro")
	}

	return newCentro, nil
}

// GetByID will try to return the centro in the database by id
func (m *Manager) GetByID(ctx context.Context, id string) (*Centro, error) {
	var c Centro

	result := m.db.WithContext(ctx).First(&c, "id = ?", id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot get centro by id")
	}

	return &c, nil
}

// GetByEmail will try to return the centro in the database by email address
func (m *Manager) GetByEmail(ctx context.Context, email string) (*Centro, error) {
	var c Centro

	result := m.db.WithContext(ctx).First(&c, "email = ?", email)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot get centro by email")
	}

	return &c, nil
}

// List returns all centros, newest first. Operator use only.
func (m *Manager) List(ctx context.Context) ([]Centro, error) {
	results := make([]Centro, 0, 1)
	result := m.db.WithContext(ctx).Order("created_at desc").Find(&results)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, result.Error
	}
	return results, nil
}

// Update persists profile changes of a centro
func (m *Manager) Update(ctx context.Context, c *Centro) error {
	result := m.db.WithContext(ctx).Save(c)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return extErrors.Wrap(result.Error, "Cannot update centro")
	}
	return nil
}

// SetStatus mutates the billing standing of a centro (operator block/unblock,
// subscription approval flipping a centro to active)
func (m *Manager) SetStatus(ctx context.Context, id string, status Status) error {
	result := m.db.WithContext(ctx).Model(&Centro{}).Where("id = ?", id).Update("subscription_status", status)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return extErrors.Wrap(result.Error, "Cannot update centro status")
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
