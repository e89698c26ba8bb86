package subscription

import (
	"time"

	"github.com/treinix/treinix/centro"
)

// Result classifies a centro's product access
type Result string

// Defining the possible access results
const (
	ResultBlocked Result = "Blocked"
	ResultTrial   Result = "Trial"
	ResultActive  Result = "Active"
	ResultExpired Result = "Expired"
)

// Verdict is the outcome of one access evaluation
type Verdict struct {
	Result        Result `json:"result"`
	Access        bool   `json:"access"`
	DaysRemaining int    `json:"daysRemaining"`
	Reason        string `json:"reason"`
}

// Evaluator decides whether a centro currently has product access. It is a
// pure function over the centro record and its subscription history; no
// clock-sensitive caching happens here.
type Evaluator struct {
	// TrialExpiryWins preserves the legacy gating order: a centro whose trial
	// window has lapsed is denied access even when it also holds an approved
	// active subscription. Flagged to stakeholders as a likely bug, kept as
	// the default until they decide otherwise.
	TrialExpiryWins bool
}

// NewEvaluator returns an Evaluator with the legacy trial-expiry behavior
func NewEvaluator() Evaluator {
	return Evaluator{
		TrialExpiryWins: true,
	}
}

// daysUntil zeroes out the time-of-day on both ends, then floors the
// difference to whole days, clamped to a minimum of 0
func daysUntil(now, target time.Time) int {
	nowDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	targetDate := time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, target.Location())
	days := int(targetDate.Sub(nowDate) / (24 * time.Hour))
	if days < 0 {
		return 0
	}
	return days
}

// Evaluate classifies the centro's current access. The branch order is load
// bearing: blocked is terminal, then the trial window, then active
// subscriptions, then everything else is denied.
func (e Evaluator) Evaluate(now time.Time, c *centro.Centro, subs []Subscription) Verdict {
	if c == nil {
		return Verdict{
			Result: ResultBlocked,
			Access: false,
			Reason: "Centro not found",
		}
	}

	if c.SubscriptionStatus == centro.StatusBlocked {
		return Verdict{
			Result: ResultBlocked,
			Access: false,
			Reason: "Centro is blocked by the platform operator",
		}
	}

	if c.TrialEndsAt != nil {
		days := daysUntil(now, *c.TrialEndsAt)
		if days > 0 {
			return Verdict{
				Result:        ResultTrial,
				Access:        true,
				DaysRemaining: days,
				Reason:        "Trial window is active",
			}
		}
		if e.TrialExpiryWins {
			return Verdict{
				Result: ResultExpired,
				Access: false,
				Reason: "Trial window has expired",
			}
		}
		// fall through to the subscription check
	}

	if c.SubscriptionStatus == centro.StatusActive {
		latest := latestActiveEnd(subs)
		if latest == nil {
			return Verdict{
				Result: ResultExpired,
				Access: false,
				Reason: "No active subscription found",
			}
		}
		days := daysUntil(now, *latest)
		if days > 0 {
			return Verdict{
				Result:        ResultActive,
				Access:        true,
				DaysRemaining: days,
				Reason:        "Subscription is active",
			}
		}
		return Verdict{
			Result: ResultExpired,
			Access: false,
			Reason: "Subscription has expired",
		}
	}

	return Verdict{
		Result: ResultExpired,
		Access: false,
		Reason: "Centro has an invalid subscription status",
	}
}

// latestActiveEnd returns the furthest EndDate among active subscriptions,
// or nil if there are none
func latestActiveEnd(subs []Subscription) *time.Time {
	var latest *time.Time
	for k, sub := range subs {
		if sub.Status != StatusActive {
			continue
		}
		if latest == nil || subs[k].EndDate.After(*latest) {
			latest = &subs[k].EndDate
		}
	}
	return latest
}

// Summary is the reporting aggregate shown on centro-detail screens. It is
// not an access decision: it sums purchased months across active
// subscriptions and adds remaining trial days on top of remaining
// subscription days.
type Summary struct {
	ActiveSubscriptions       int `json:"activeSubscriptions"`
	TotalMonths               int `json:"totalMonths"`
	TrialDaysRemaining        int `json:"trialDaysRemaining"`
	SubscriptionDaysRemaining int `json:"subscriptionDaysRemaining"`
	CombinedDaysRemaining     int `json:"combinedDaysRemaining"`
}

// Summarize computes the reporting aggregate for a centro
func Summarize(now time.Time, c *centro.Centro, subs []Subscription) Summary {
	var s Summary
	for _, sub := range subs {
		if sub.Status != StatusActive {
			continue
		}
		s.ActiveSubscriptions++
		s.TotalMonths += sub.Months
	}
	if latest := latestActiveEnd(subs); latest != nil {
		s.SubscriptionDaysRemaining = daysUntil(now, *latest)
	}
	if c != nil && c.TrialEndsAt != nil {
		s.TrialDaysRemaining = daysUntil(now, *c.TrialEndsAt)
	}
	s.CombinedDaysRemaining = s.TrialDaysRemaining + s.SubscriptionDaysRemaining
	return s
}
