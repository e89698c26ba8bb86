package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	extErrors "github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Manager handles the database operations relating to Payments and their
// Installments. Every mutation of an installment and the recompute of its
// parent's aggregate run in one serializable transaction with the payment
// row locked, so the denormalized fields cannot drift from the schedule.
type Manager struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewManager returns a new Manager for payments
func NewManager(logger *zap.Logger, db *gorm.DB) (*Manager, error) {
	if err := db.AutoMigrate(&Payment{}, &Installment{}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot initialize payment.Manager")
	}
	return &Manager{
		db:     db,
		logger: logger,
	}, nil
}

// NewPaymentOption contains the details of a new billing obligation
type NewPaymentOption struct {
	CentroID     string
	StudentID    string
	TurmaID      string
	Amount       decimal.Decimal
	Installments int
	Method       Method
	StartDate    time.Time
}

// NewPayment creates the payment and its full installment batch in one
// transaction; either everything exists afterwards or nothing does.
func (m *Manager) NewPayment(ctx context.Context, opt NewPaymentOption) (*Payment, error) {
	if len(opt.CentroID) == 0 {
		return nil, fmt.Errorf("NewPaymentOption.CentroID is required")
	}
	if len(opt.StudentID) == 0 {
		return nil, fmt.Errorf("NewPaymentOption.StudentID is required")
	}
	if opt.StartDate.IsZero() {
		opt.StartDate = time.Now()
	}

	p := &Payment{
		ID:           uuid.New().String(),
		CentroID:     opt.CentroID,
		StudentID:    opt.StudentID,
		TurmaID:      opt.TurmaID,
		Amount:       opt.Amount,
		Installments: opt.Installments,
		Status:       StatusPending,
		Method:       opt.Method,
	}

	batch, err := BuildSchedule(p.ID, opt.Amount, opt.Installments, opt.StartDate)
	if err != nil {
		return nil, err
	}
	p.Schedule = batch

	if err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(p).Error
	}); err != nil {
		m.logger.Error("Unable to create new payment in database",
			zap.Error(err),
		)
		return nil, extErrors.Wrap(err, "Cannot create payment")
	}

	return p, nil
}

// GetByID will try to return the payment with its schedule, scoped by centro
func (m *Manager) GetByID(ctx context.Context, centroID, id string) (*Payment, error) {
	var p Payment

	result := m.db.WithContext(ctx).
		Preload("Schedule", func(db *gorm.DB) *gorm.DB {
			return db.Order("number asc")
		}).
		Where("centro_id = ?", centroID).
		Where("id = ?", id).
		First(&p)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot get payment by id")
	}

	return &p, nil
}

// ListOption customizes the payment listing query
type ListOption struct {
	CentroID  string
	StudentID string
	Before    time.Time
	Limit     int
}

// List returns payments of a centro, newest first, optionally for one student
func (m *Manager) List(ctx context.Context, opt ListOption) ([]Payment, error) {
	if len(opt.CentroID) == 0 {
		return nil, fmt.Errorf("ListOption.CentroID is required")
	}
	baseQuery := m.db.WithContext(ctx).
		Order("created_at desc").
		Where("centro_id = ?", opt.CentroID)
	if len(opt.StudentID) > 0 {
		baseQuery = baseQuery.Where("student_id = ?", opt.StudentID)
	}
	if opt.Limit > 0 {
		baseQuery = baseQuery.Limit(opt.Limit)
	}
	if !opt.Before.IsZero() {
		baseQuery = baseQuery.Where("created_at < ?", opt.Before)
	}

	results := make([]Payment, 0, 1)
	result := baseQuery.Preload("Schedule", func(db *gorm.DB) *gorm.DB {
		return db.Order("number asc")
	}).Find(&results)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, result.Error
	}
	return results, nil
}

// MarkPaid settles one installment and recomputes the parent aggregate in the
// same transaction. A second MarkPaid on the same installment returns
// ErrAlreadyPaid so external financial side effects are never double counted.
func (m *Manager) MarkPaid(ctx context.Context, centroID, installmentID string) (*Payment, error) {
	return m.settle(ctx, centroID, func(tx *gorm.DB, p *Payment) (*Installment, error) {
		for k := range p.Schedule {
			if p.Schedule[k].ID == installmentID {
				return &p.Schedule[k], nil
			}
		}
		return nil, gorm.ErrRecordNotFound
	}, func(tx *gorm.DB) (string, error) {
		var inst Installment
		if err := tx.First(&inst, "id = ?", installmentID).Error; err != nil {
			return "", err
		}
		return inst.PaymentID, nil
	})
}

// SignNext settles the first unpaid installment of the payment, by number,
// and recomputes the parent aggregate. Returns ErrAllPaid when nothing
// remains unpaid.
func (m *Manager) SignNext(ctx context.Context, centroID, paymentID string) (*Payment, error) {
	return m.settle(ctx, centroID, func(tx *gorm.DB, p *Payment) (*Installment, error) {
		next := NextUnpaid(p.Schedule)
		if next == nil {
			return nil, ErrAllPaid
		}
		return next, nil
	}, func(tx *gorm.DB) (string, error) {
		return paymentID, nil
	})
}

// settle locks the payment row FOR UPDATE, picks an installment, marks it
// paid and recomputes the aggregate, all inside one serializable transaction
func (m *Manager) settle(
	ctx context.Context,
	centroID string,
	pick func(tx *gorm.DB, p *Payment) (*Installment, error),
	resolvePaymentID func(tx *gorm.DB) (string, error),
) (*Payment, error) {
	var updated Payment
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		paymentID, err := resolvePaymentID(tx)
		if err != nil {
			return err
		}

		var p Payment
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("centro_id = ?", centroID).
			First(&p, "id = ?", paymentID).Error; err != nil {
			return err
		}
		if p.Status == StatusCancelled {
			return ErrCancelled
		}
		if err := tx.Order("number asc").Find(&p.Schedule, "payment_id = ?", p.ID).Error; err != nil {
			return err
		}

		inst, err := pick(tx, &p)
		if err != nil {
			return err
		}
		if err := Settle(inst, time.Now()); err != nil {
			return err
		}
		if err := tx.Save(inst).Error; err != nil {
			return err
		}

		p.Status, p.InstallmentsPaid = DeriveStatus(p.Installments, p.Schedule)
		if err := tx.Save(&p).Error; err != nil {
			return err
		}

		updated = p
		return nil
	}, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if errors.Is(err, ErrAlreadyPaid) || errors.Is(err, ErrAllPaid) || errors.Is(err, ErrCancelled) {
		return nil, err
	}
	if err != nil {
		m.logger.Error("Unable to settle installment",
			zap.Error(err),
		)
		return nil, extErrors.Wrap(err, "Cannot settle installment")
	}
	return &updated, nil
}

// Cancel marks the payment as cancelled. Terminal, out-of-band operator
// action; the schedule is left untouched as history.
func (m *Manager) Cancel(ctx context.Context, centroID, paymentID string) (*Payment, error) {
	var p Payment
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("centro_id = ?", centroID).
			First(&p, "id = ?", paymentID).Error; err != nil {
			return err
		}
		p.Status = StatusCancelled
		return tx.Save(&p).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		m.logger.Error("Unable to cancel payment",
			zap.Error(err),
			zap.String("PaymentID", paymentID),
		)
		return nil, extErrors.Wrap(err, "Cannot cancel payment")
	}
	return &p, nil
}

// MarkOverdue flips pending installments whose due date has passed to
// overdue. Run periodically by the maintenance task; returns how many rows
// were updated.
func (m *Manager) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	result := m.db.WithContext(ctx).
		Model(&Installment{}).
		Where("status = ?", InstallmentPending).
		Where("due_date < ?", now).
		Update("status", InstallmentOverdue)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return 0, extErrors.Wrap(result.Error, "Cannot mark overdue installments")
	}
	return result.RowsAffected, nil
}
