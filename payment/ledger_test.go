package payment

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kz(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestSplitAmount(t *testing.T) {
	tests := []struct {
		name   string
		total  decimal.Decimal
		count  int
		shares []string
	}{
		{
			name:   "even split in two",
			total:  kz("20000"),
			count:  2,
			shares: []string{"10000", "10000"},
		},
		{
			name:   "single installment keeps the total",
			total:  kz("1500.50"),
			count:  1,
			shares: []string{"1500.50"},
		},
		{
			name:   "odd cent lands on the first share",
			total:  kz("100.01"),
			count:  2,
			shares: []string{"50.01", "50.00"},
		},
		{
			name:   "sub-cent remainder lands on the first share",
			total:  kz("33333.33"),
			count:  2,
			shares: []string{"16666.67", "16666.66"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares := SplitAmount(tt.total, tt.count)
			require.Len(t, shares, tt.count)

			sum := decimal.Zero
			for i, share := range shares {
				assert.True(t, share.Equal(kz(tt.shares[i])),
					"share %d = %s, want %s", i, share, tt.shares[i])
				sum = sum.Add(share)
			}
			assert.True(t, sum.Equal(tt.total), "shares sum to %s, want %s", sum, tt.total)
		})
	}
}

func TestBuildSchedule(t *testing.T) {
	start := time.Date(2021, time.June, 1, 0, 0, 0, 0, time.UTC)

	batch, err := BuildSchedule("pay1", kz("20000"), 2, start)
	require.NoError(t, err)
	require.Len(t, batch, 2)

	for i, inst := range batch {
		assert.Equal(t, "pay1", inst.PaymentID)
		assert.Equal(t, i+1, inst.Number)
		assert.Equal(t, InstallmentPending, inst.Status)
		assert.True(t, inst.Amount.Equal(kz("10000")))
		assert.True(t, inst.DueDate.Equal(start.AddDate(0, i, 0)),
			"installment %d due %s, want %s", i+1, inst.DueDate, start.AddDate(0, i, 0))
		assert.NotEmpty(t, inst.ID)
		assert.NotEmpty(t, inst.Reference)
		assert.Nil(t, inst.PaidAt)
	}

	// distinct identifiers within the batch
	assert.NotEqual(t, batch[0].ID, batch[1].ID)
}

func TestBuildScheduleRejectsBadInput(t *testing.T) {
	start := time.Date(2021, time.June, 1, 0, 0, 0, 0, time.UTC)

	_, err := BuildSchedule("pay1", kz("20000"), 0, start)
	assert.Error(t, err)

	_, err = BuildSchedule("pay1", kz("20000"), MaxInstallments+1, start)
	assert.Error(t, err)

	_, err = BuildSchedule("pay1", kz("0"), 1, start)
	assert.Error(t, err)

	_, err = BuildSchedule("pay1", kz("-50"), 1, start)
	assert.Error(t, err)
}

func TestSettle(t *testing.T) {
	now := time.Date(2021, time.June, 15, 12, 0, 0, 0, time.UTC)
	inst := Installment{
		ID:     "i1",
		Number: 1,
		Status: InstallmentPending,
	}

	require.NoError(t, Settle(&inst, now))
	assert.Equal(t, InstallmentPaid, inst.Status)
	require.NotNil(t, inst.PaidAt)
	assert.True(t, inst.PaidAt.Equal(now))

	// a second settlement is rejected and the original timestamp survives
	err := Settle(&inst, now.Add(time.Hour))
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	assert.True(t, inst.PaidAt.Equal(now))
}

func TestSettleOverdue(t *testing.T) {
	now := time.Date(2021, time.June, 15, 12, 0, 0, 0, time.UTC)
	inst := Installment{
		ID:     "i1",
		Number: 1,
		Status: InstallmentOverdue,
	}

	require.NoError(t, Settle(&inst, now))
	assert.Equal(t, InstallmentPaid, inst.Status)
}

func TestDeriveStatus(t *testing.T) {
	paid := Installment{Number: 1, Status: InstallmentPaid}
	pending := Installment{Number: 2, Status: InstallmentPending}
	overdue := Installment{Number: 2, Status: InstallmentOverdue}

	tests := []struct {
		name       string
		configured int
		schedule   []Installment
		wantStatus Status
		wantPaid   int
	}{
		{
			name:       "nothing paid",
			configured: 2,
			schedule:   []Installment{pending, pending},
			wantStatus: StatusPending,
			wantPaid:   0,
		},
		{
			name:       "one of two paid",
			configured: 2,
			schedule:   []Installment{paid, pending},
			wantStatus: StatusPartial,
			wantPaid:   1,
		},
		{
			name:       "overdue does not count as paid",
			configured: 2,
			schedule:   []Installment{paid, overdue},
			wantStatus: StatusPartial,
			wantPaid:   1,
		},
		{
			name:       "all paid reports the configured count",
			configured: 2,
			schedule:   []Installment{paid, paid},
			wantStatus: StatusCompleted,
			wantPaid:   2,
		},
		{
			name:       "empty schedule stays pending",
			configured: 2,
			schedule:   nil,
			wantStatus: StatusPending,
			wantPaid:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, count := DeriveStatus(tt.configured, tt.schedule)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantPaid, count)
		})
	}
}

func TestNextUnpaid(t *testing.T) {
	schedule := []Installment{
		{ID: "i2", Number: 2, Status: InstallmentPending},
		{ID: "i1", Number: 1, Status: InstallmentPaid},
		{ID: "i3", Number: 3, Status: InstallmentOverdue},
	}

	next := NextUnpaid(schedule)
	require.NotNil(t, next)
	assert.Equal(t, "i2", next.ID)

	schedule[0].Status = InstallmentPaid
	next = NextUnpaid(schedule)
	require.NotNil(t, next)
	assert.Equal(t, "i3", next.ID)

	schedule[2].Status = InstallmentPaid
	assert.Nil(t, NextUnpaid(schedule))
}
