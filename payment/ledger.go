package payment

import (
	"errors"
	"fmt"
	"time"

	"github.com/lithammer/shortuuid/v3"
	"github.com/shopspring/decimal"
)

// ErrAlreadyPaid signals a second MarkPaid on the same installment. Paying
// twice must never double-count, so the ledger rejects it outright.
var ErrAlreadyPaid = errors.New("installment is already paid")

// ErrAllPaid signals SignNext on a payment with no unpaid installments left
var ErrAllPaid = errors.New("all installments are already paid")

// ErrCancelled signals a mutation on a cancelled payment
var ErrCancelled = errors.New("payment is cancelled")

// SplitAmount divides the total into count equal shares at two decimal
// places. When the division is not exact the remainder lands on the first
// installment, so the shares always sum back to the total.
func SplitAmount(total decimal.Decimal, count int) []decimal.Decimal {
	n := decimal.NewFromInt(int64(count))
	base := total.Div(n).RoundDown(2)
	shares := make([]decimal.Decimal, count)
	for i := range shares {
		shares[i] = base
	}
	shares[0] = total.Sub(base.Mul(decimal.NewFromInt(int64(count - 1))))
	return shares
}

// BuildSchedule produces the batch of installment records for a new payment:
// sequential numbers from 1, equal shares of the total, due dates one month
// apart starting at startDate. The caller persists the batch all-or-nothing
// together with the payment itself.
func BuildSchedule(paymentID string, total decimal.Decimal, count int, startDate time.Time) ([]Installment, error) {
	if count < 1 || count > MaxInstallments {
		return nil, fmt.Errorf("installment count must be between 1 and %d, got %d", MaxInstallments, count)
	}
	if !total.IsPositive() {
		return nil, fmt.Errorf("total amount must be positive, got %s", total)
	}
	shares := SplitAmount(total, count)
	batch := make([]Installment, count)
	for i := range batch {
		batch[i] = Installment{
			ID:        shortuuid.New(),
			PaymentID: paymentID,
			Number:    i + 1,
			Amount:    shares[i],
			DueDate:   startDate.AddDate(0, i, 0),
			Status:    InstallmentPending,
			Reference: shortuuid.New(),
		}
	}
	return batch, nil
}

// Settle marks the installment as paid at the given time. A second
// settlement of the same installment is rejected, not overwritten.
func Settle(inst *Installment, now time.Time) error {
	if inst.Status == InstallmentPaid {
		return ErrAlreadyPaid
	}
	inst.Status = InstallmentPaid
	inst.PaidAt = &now
	return nil
}

// CountPaid returns how many installments of the schedule are paid
func CountPaid(schedule []Installment) int {
	paid := 0
	for _, inst := range schedule {
		if inst.Status == InstallmentPaid {
			paid++
		}
	}
	return paid
}

// DeriveStatus recomputes the parent's aggregate fields from its schedule.
// The write path calls this after every installment mutation; the aggregate
// is never trusted on its own.
func DeriveStatus(configured int, schedule []Installment) (Status, int) {
	paid := CountPaid(schedule)
	switch {
	case paid == len(schedule) && len(schedule) > 0:
		return StatusCompleted, configured
	case paid > 0:
		return StatusPartial, paid
	default:
		return StatusPending, 0
	}
}

// NextUnpaid returns the first installment not yet paid, ordered by Number,
// or nil when the schedule is settled
func NextUnpaid(schedule []Installment) *Installment {
	var next *Installment
	for k, inst := range schedule {
		if inst.Status == InstallmentPaid {
			continue
		}
		if next == nil || schedule[k].Number < next.Number {
			next = &schedule[k]
		}
	}
	return next
}
