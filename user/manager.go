package user

import (
	"context"
	"errors"

	"github.com/treinix/treinix/auth"

	"github.com/google/uuid"
	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNotConfirmed signals a login attempt on an account pending email confirmation
var ErrNotConfirmed = errors.New("account is not confirmed")

// ErrBadCredentials signals an unknown email or a wrong password
var ErrBadCredentials = errors.New("invalid email or password")

// Manager handles the database operations relating to Users
type Manager struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewManager returns a new Manager for users
func NewManager(logger *zap.Logger, db *gorm.DB) (*Manager, error) {
	if err := db.AutoMigrate(&User{}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot initialize user.Manager")
	}
	return &Manager{
		db:     db,
		logger: logger,
	}, nil
}

// NewUserOption contains the details of an account to be created
type NewUserOption struct {
	CentroID string
	Name     string
	Email    string
	Password string
	Role     auth.Role
}

// NewUser will create a new unconfirmed user with a hashed password
func (m *Manager) NewUser(ctx context.Context, opt NewUserOption) (*User, error) {
	hash, err := auth.HashPassword(opt.Password)
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot hash password")
	}
	newUser := &User{
		ID:           uuid.New().String(),
		CentroID:     opt.CentroID,
		Name:         opt.Name,
		Email:        opt.Email,
		PasswordHash: hash,
		Role:         opt.Role,
		Confirmed:    false,
	}
	result := m.db.WithContext(ctx).Create(newUser)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot create a new User")
	}
	return newUser, nil
}

// GetByEmail will try to return the user in the database by email address
func (m *Manager) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User

	result := m.db.WithContext(ctx).First(&u, "email = ?", email)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot get user by email")
	}

	return &u, nil
}

// GetByID will try to return the user in the database by id
func (m *Manager) GetByID(ctx context.Context, id string) (*User, error) {
	var u User

	result := m.db.WithContext(ctx).First(&u, "id = ?", id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot get user by id")
	}

	return &u, nil
}

// Authenticate checks the credentials and returns the user on success.
// An unconfirmed account is reported distinctly from bad credentials.
func (m *Manager) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := m.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil || !auth.VerifyPassword(u.PasswordHash, password) {
		return nil, ErrBadCredentials
	}
	if !u.Confirmed {
		return nil, ErrNotConfirmed
	}
	return u, nil
}

// Confirm marks the user's email address as verified
func (m *Manager) Confirm(ctx context.Context, id string) error {
	result := m.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("confirmed", true)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return extErrors.Wrap(result.Error, "Cannot confirm user")
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns all users of one centro, newest first
func (m *Manager) List(ctx context.Context, centroID string) ([]User, error) {
	results := make([]User, 0, 1)
	result := m.db.WithContext(ctx).Order("created_at desc").Find(&results, "centro_id = ?", centroID)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, result.Error
	}
	return results, nil
}

// Delete removes a staff account of the centro
func (m *Manager) Delete(ctx context.Context, centroID, id string) error {
	result := m.db.WithContext(ctx).Where("centro_id = ?", centroID).Delete(&User{}, "id = ?", id)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return extErrors.Wrap(result.Error, "Cannot delete user")
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
