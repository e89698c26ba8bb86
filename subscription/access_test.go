package subscription

import (
	"testing"
	"time"

	"github.com/treinix/treinix/centro"
)

var now = time.Date(2021, time.March, 15, 10, 30, 0, 0, time.UTC)

func daysFromNow(days int) *time.Time {
	t := now.AddDate(0, 0, days)
	return &t
}

func activeSub(centroID string, months, daysLeft int) Subscription {
	end := now.AddDate(0, 0, daysLeft)
	return Subscription{
		ID:            "sub-" + centroID,
		CentroID:      centroID,
		Months:        months,
		Status:        StatusActive,
		StartDate:     end.AddDate(0, -months, 0),
		EndDate:       end,
		PaymentStatus: PaymentApproved,
	}
}

func TestEvaluate(t *testing.T) {
	evaluator := NewEvaluator()

	tests := []struct {
		name              string
		centro            *centro.Centro
		subs              []Subscription
		wantResult        Result
		wantAccess        bool
		wantDaysRemaining int
	}{
		{
			name: "blocked wins over everything",
			centro: &centro.Centro{
				ID:                 "c1",
				SubscriptionStatus: centro.StatusBlocked,
				TrialEndsAt:        daysFromNow(10),
			},
			subs:       []Subscription{activeSub("c1", 1, 30)},
			wantResult: ResultBlocked,
			wantAccess: false,
		},
		{
			name: "unexpired trial grants access",
			centro: &centro.Centro{
				ID:                 "c2",
				SubscriptionStatus: centro.StatusTrial,
				TrialEndsAt:        daysFromNow(5),
			},
			wantResult:        ResultTrial,
			wantAccess:        true,
			wantDaysRemaining: 5,
		},
		{
			name: "expired trial denies even with live subscription",
			centro: &centro.Centro{
				ID:                 "c3",
				SubscriptionStatus: centro.StatusActive,
				TrialEndsAt:        daysFromNow(-1),
			},
			subs:       []Subscription{activeSub("c3", 1, 30)},
			wantResult: ResultExpired,
			wantAccess: false,
		},
		{
			name: "active subscription grants access",
			centro: &centro.Centro{
				ID:                 "c4",
				SubscriptionStatus: centro.StatusActive,
			},
			subs:              []Subscription{activeSub("c4", 1, 30)},
			wantResult:        ResultActive,
			wantAccess:        true,
			wantDaysRemaining: 30,
		},
		{
			name: "furthest end date wins among active subscriptions",
			centro: &centro.Centro{
				ID:                 "c5",
				SubscriptionStatus: centro.StatusActive,
			},
			subs: []Subscription{
				activeSub("c5", 1, 10),
				activeSub("c5", 3, 80),
				activeSub("c5", 1, 40),
			},
			wantResult:        ResultActive,
			wantAccess:        true,
			wantDaysRemaining: 80,
		},
		{
			name: "active status without active subscriptions denies",
			centro: &centro.Centro{
				ID:                 "c6",
				SubscriptionStatus: centro.StatusActive,
			},
			subs: []Subscription{
				{ID: "old", CentroID: "c6", Status: StatusExpired, EndDate: now.AddDate(0, 0, 30)},
			},
			wantResult: ResultExpired,
			wantAccess: false,
		},
		{
			name: "lapsed subscription denies",
			centro: &centro.Centro{
				ID:                 "c7",
				SubscriptionStatus: centro.StatusActive,
			},
			subs:       []Subscription{activeSub("c7", 1, -1)},
			wantResult: ResultExpired,
			wantAccess: false,
		},
		{
			name: "pending status denies",
			centro: &centro.Centro{
				ID:                 "c8",
				SubscriptionStatus: centro.StatusPending,
			},
			wantResult: ResultExpired,
			wantAccess: false,
		},
		{
			name:       "missing centro denies",
			centro:     nil,
			wantResult: ResultBlocked,
			wantAccess: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := evaluator.Evaluate(now, tt.centro, tt.subs)
			if v.Result != tt.wantResult {
				t.Errorf("Evaluate() result = %v, want %v", v.Result, tt.wantResult)
			}
			if v.Access != tt.wantAccess {
				t.Errorf("Evaluate() access = %v, want %v", v.Access, tt.wantAccess)
			}
			if v.DaysRemaining != tt.wantDaysRemaining {
				t.Errorf("Evaluate() daysRemaining = %v, want %v", v.DaysRemaining, tt.wantDaysRemaining)
			}
		})
	}
}

// The trial short-circuit is a known quirk: an expired trial denies access
// even when an approved subscription has days left. Disabling the flag lets
// the subscription check run.
func TestEvaluateTrialExpiryFlag(t *testing.T) {
	c := &centro.Centro{
		ID:                 "c1",
		SubscriptionStatus: centro.StatusActive,
		TrialEndsAt:        daysFromNow(-1),
	}
	subs := []Subscription{activeSub("c1", 1, 30)}

	legacy := Evaluator{TrialExpiryWins: true}.Evaluate(now, c, subs)
	if legacy.Access || legacy.Result != ResultExpired {
		t.Errorf("legacy evaluation = %+v, want Expired without access", legacy)
	}

	fixed := Evaluator{TrialExpiryWins: false}.Evaluate(now, c, subs)
	if !fixed.Access || fixed.Result != ResultActive {
		t.Errorf("flag-off evaluation = %+v, want Active with access", fixed)
	}
}

func TestDaysUntil(t *testing.T) {
	tests := []struct {
		name     string
		now      time.Time
		target   time.Time
		expected int
	}{
		{
			name:     "same day regardless of hours",
			now:      time.Date(2021, 3, 15, 1, 0, 0, 0, time.UTC),
			target:   time.Date(2021, 3, 15, 23, 59, 0, 0, time.UTC),
			expected: 0,
		},
		{
			name:     "next day just after midnight",
			now:      time.Date(2021, 3, 15, 23, 55, 0, 0, time.UTC),
			target:   time.Date(2021, 3, 16, 0, 5, 0, 0, time.UTC),
			expected: 1,
		},
		{
			name:     "past target clamps to zero",
			now:      time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC),
			target:   time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC),
			expected: 0,
		},
		{
			name:     "two weeks out",
			now:      time.Date(2021, 3, 15, 18, 0, 0, 0, time.UTC),
			target:   time.Date(2021, 3, 29, 6, 0, 0, 0, time.UTC),
			expected: 14,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := daysUntil(tt.now, tt.target); got != tt.expected {
				t.Errorf("daysUntil() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	c := &centro.Centro{
		ID:                 "c1",
		SubscriptionStatus: centro.StatusActive,
		TrialEndsAt:        daysFromNow(5),
	}
	subs := []Subscription{
		activeSub("c1", 3, 30),
		activeSub("c1", 6, 80),
		{ID: "rejected", CentroID: "c1", Months: 12, Status: StatusExpired},
	}

	s := Summarize(now, c, subs)

	if s.ActiveSubscriptions != 2 {
		t.Errorf("ActiveSubscriptions = %v, want 2", s.ActiveSubscriptions)
	}
	if s.TotalMonths != 9 {
		t.Errorf("TotalMonths = %v, want 9", s.TotalMonths)
	}
	if s.TrialDaysRemaining != 5 {
		t.Errorf("TrialDaysRemaining = %v, want 5", s.TrialDaysRemaining)
	}
	if s.SubscriptionDaysRemaining != 80 {
		t.Errorf("SubscriptionDaysRemaining = %v, want 80", s.SubscriptionDaysRemaining)
	}
	if s.CombinedDaysRemaining != 85 {
		t.Errorf("CombinedDaysRemaining = %v, want 85", s.CombinedDaysRemaining)
	}
}
