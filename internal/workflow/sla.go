package workflow

import (
	"math"
	"time"

	"sitedesk/internal/domain"
)

const hoursPerDay = 24

// IsOverdue reports whether the RFI has missed its response due date.
// Terminal statuses are never overdue; neither are drafts or RFIs with no
// due date (the clock has not started). An answered RFI is overdue only
// when the answer itself landed after the due date.
func IsOverdue(r domain.RFI, now time.Time) bool {
	if RFITerminal(r.Status) {
		return false
	}
	if RFIStatus(r.Status) == RFIDraft || r.ResponseDueDate == nil {
		return false
	}
	if r.AnsweredAt != nil {
		return r.AnsweredAt.After(*r.ResponseDueDate)
	}
	return now.After(*r.ResponseDueDate)
}

// DaysOverdue returns the whole days the RFI is past due, zero when not
// overdue. The answered instant is the reference for answered RFIs, now
// otherwise. Partial days round down: 18 hours overdue reports 0 days.
func DaysOverdue(r domain.RFI, now time.Time) int {
	if !IsOverdue(r, now) {
		return 0
	}
	ref := now
	if r.AnsweredAt != nil {
		ref = *r.AnsweredAt
	}
	days := int(ref.Sub(*r.ResponseDueDate).Hours() / hoursPerDay)
	if days < 0 {
		return 0
	}
	return days
}

// ResponseTimeHours returns the elapsed hours between submission and
// answer, rounded to one decimal, or nil when either instant is missing.
func ResponseTimeHours(r domain.RFI) *float64 {
	if r.SubmittedAt == nil || r.AnsweredAt == nil {
		return nil
	}
	h := roundTenth(r.AnsweredAt.Sub(*r.SubmittedAt).Hours())
	return &h
}

// DaysUntilDue returns whole days from now until the due date, ceiling,
// or nil when there is no due date or the RFI is terminal. Negative
// values mean already overdue. The ceiling here is deliberate and
// asymmetric with DaysOverdue's floor; callers must not assume symmetry.
func DaysUntilDue(r domain.RFI, now time.Time) *int {
	if r.ResponseDueDate == nil || RFITerminal(r.Status) {
		return nil
	}
	days := int(math.Ceil(r.ResponseDueDate.Sub(now).Hours() / hoursPerDay))
	return &days
}

// Compliance summarizes on-time answering over a set of RFIs.
type Compliance struct {
	Total      int `json:"total"`
	Compliant  int `json:"compliant"`
	Percentage int `json:"percentage"`
}

// ComputeCompliance scores only RFIs that have both an answer and a due
// date; pending RFIs and RFIs never given a deadline stay out of the
// denominator. An answer landing exactly on the due date counts as
// compliant. The empty set yields {0, 0, 0}.
func ComputeCompliance(rfis []domain.RFI) Compliance {
	var c Compliance
	for _, r := range rfis {
		if r.AnsweredAt == nil || r.ResponseDueDate == nil {
			continue
		}
		c.Total++
		if !r.AnsweredAt.After(*r.ResponseDueDate) {
			c.Compliant++
		}
	}
	if c.Total > 0 {
		c.Percentage = int(math.Round(100 * float64(c.Compliant) / float64(c.Total)))
	}
	return c
}

// AverageResponseTimeHours returns the mean response time over RFIs with
// a measurable response time, rounded to one decimal, or nil when none
// qualify.
func AverageResponseTimeHours(rfis []domain.RFI) *float64 {
	var sum float64
	var n int
	for _, r := range rfis {
		if h := ResponseTimeHours(r); h != nil {
			sum += *h
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := roundTenth(sum / float64(n))
	return &avg
}

// roundTenth rounds half up at 0.1-hour granularity.
func roundTenth(v float64) float64 {
	return math.Floor(v*10+0.5) / 10
}
