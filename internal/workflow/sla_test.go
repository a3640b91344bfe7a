package workflow_test

import (
	"testing"
	"time"

	"sitedesk/internal/domain"
	"sitedesk/internal/workflow"
)

var now = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func tp(t time.Time) *time.Time { return &t }

func TestIsOverdueTerminalNever(t *testing.T) {
	due := now.AddDate(0, 0, -30)
	for _, status := range []string{"closed", "cancelled"} {
		r := domain.RFI{Status: status, ResponseDueDate: tp(due)}
		if workflow.IsOverdue(r, now) {
			t.Fatalf("status %s should never be overdue", status)
		}
		if d := workflow.DaysOverdue(r, now); d != 0 {
			t.Fatalf("status %s days overdue = %d, want 0", status, d)
		}
	}
}

func TestIsOverdueClockNotStarted(t *testing.T) {
	due := now.AddDate(0, 0, -5)
	if workflow.IsOverdue(domain.RFI{Status: "draft", ResponseDueDate: tp(due)}, now) {
		t.Fatal("draft should never be overdue")
	}
	if workflow.IsOverdue(domain.RFI{Status: "submitted"}, now) {
		t.Fatal("no due date should never be overdue")
	}
}

func TestIsOverduePending(t *testing.T) {
	yesterday := now.AddDate(0, 0, -1)
	r := domain.RFI{Status: "submitted", ResponseDueDate: tp(yesterday)}
	if !workflow.IsOverdue(r, now) {
		t.Fatal("pending past due should be overdue")
	}
	if d := workflow.DaysOverdue(r, now); d < 1 {
		t.Fatalf("days overdue = %d, want >= 1", d)
	}
	future := now.AddDate(0, 0, 3)
	if workflow.IsOverdue(domain.RFI{Status: "submitted", ResponseDueDate: tp(future)}, now) {
		t.Fatal("not yet due should not be overdue")
	}
}

func TestIsOverdueLateAnswer(t *testing.T) {
	due := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	answered := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	r := domain.RFI{Status: "answered", ResponseDueDate: tp(due), AnsweredAt: tp(answered)}
	if !workflow.IsOverdue(r, now) {
		t.Fatal("late answer should be overdue")
	}
	if d := workflow.DaysOverdue(r, now); d != 2 {
		t.Fatalf("days overdue = %d, want 2", d)
	}
	// answered on time stays not-overdue even after the due date passes
	onTime := domain.RFI{Status: "answered", ResponseDueDate: tp(due), AnsweredAt: tp(due.Add(-time.Hour))}
	if workflow.IsOverdue(onTime, now) {
		t.Fatal("on-time answer should not be overdue")
	}
}

func TestDaysOverdueFloorsPartialDays(t *testing.T) {
	due := now.Add(-18 * time.Hour)
	r := domain.RFI{Status: "under_review", ResponseDueDate: tp(due)}
	if !workflow.IsOverdue(r, now) {
		t.Fatal("expected overdue")
	}
	if d := workflow.DaysOverdue(r, now); d != 0 {
		t.Fatalf("18h overdue reports %d days, want 0", d)
	}
}

func TestResponseTimeHours(t *testing.T) {
	if h := workflow.ResponseTimeHours(domain.RFI{SubmittedAt: tp(now)}); h != nil {
		t.Fatal("missing answered_at should yield nil")
	}
	if h := workflow.ResponseTimeHours(domain.RFI{AnsweredAt: tp(now)}); h != nil {
		t.Fatal("missing submitted_at should yield nil")
	}
	submitted := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	answered := submitted.Add(26*time.Hour + 30*time.Minute)
	h := workflow.ResponseTimeHours(domain.RFI{SubmittedAt: tp(submitted), AnsweredAt: tp(answered)})
	if h == nil || *h != 26.5 {
		t.Fatalf("response time = %v, want 26.5", h)
	}
	// half-up at the 0.1 boundary: 2.25h -> 2.3
	answered = submitted.Add(2*time.Hour + 15*time.Minute)
	h = workflow.ResponseTimeHours(domain.RFI{SubmittedAt: tp(submitted), AnsweredAt: tp(answered)})
	if h == nil || *h != 2.3 {
		t.Fatalf("response time = %v, want 2.3", h)
	}
}

func TestDaysUntilDue(t *testing.T) {
	if d := workflow.DaysUntilDue(domain.RFI{Status: "submitted"}, now); d != nil {
		t.Fatal("no due date should yield nil")
	}
	if d := workflow.DaysUntilDue(domain.RFI{Status: "closed", ResponseDueDate: tp(now)}, now); d != nil {
		t.Fatal("terminal status should yield nil")
	}
	// ceiling: half a day out still counts as 1 day
	due := now.Add(12 * time.Hour)
	d := workflow.DaysUntilDue(domain.RFI{Status: "submitted", ResponseDueDate: tp(due)}, now)
	if d == nil || *d != 1 {
		t.Fatalf("days until due = %v, want 1", d)
	}
	// negative when overdue
	due = now.Add(-36 * time.Hour)
	d = workflow.DaysUntilDue(domain.RFI{Status: "submitted", ResponseDueDate: tp(due)}, now)
	if d == nil || *d != -1 {
		t.Fatalf("days until due = %v, want -1", d)
	}
}

func TestComplianceEmpty(t *testing.T) {
	c := workflow.ComputeCompliance(nil)
	if c.Total != 0 || c.Compliant != 0 || c.Percentage != 0 {
		t.Fatalf("empty compliance = %+v, want zeros", c)
	}
}

func TestComplianceAggregate(t *testing.T) {
	due := time.Date(2025, 6, 1, 17, 0, 0, 0, time.UTC)
	rfis := []domain.RFI{
		// answered exactly at the due instant: compliant
		{Status: "answered", ResponseDueDate: tp(due), AnsweredAt: tp(due)},
		// answered late
		{Status: "answered", ResponseDueDate: tp(due), AnsweredAt: tp(due.Add(time.Minute))},
		// unanswered: excluded from the denominator
		{Status: "submitted", ResponseDueDate: tp(due)},
		// answered but never given a deadline: excluded
		{Status: "answered", AnsweredAt: tp(due)},
	}
	c := workflow.ComputeCompliance(rfis)
	if c.Total != 2 || c.Compliant != 1 || c.Percentage != 50 {
		t.Fatalf("compliance = %+v, want {2 1 50}", c)
	}
}

func TestAverageResponseTimeHours(t *testing.T) {
	if avg := workflow.AverageResponseTimeHours(nil); avg != nil {
		t.Fatal("no qualifying RFIs should yield nil")
	}
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	rfis := []domain.RFI{
		{SubmittedAt: tp(base), AnsweredAt: tp(base.Add(2 * time.Hour))},
		{SubmittedAt: tp(base), AnsweredAt: tp(base.Add(3 * time.Hour))},
		{Status: "submitted", SubmittedAt: tp(base)},
	}
	avg := workflow.AverageResponseTimeHours(rfis)
	if avg == nil || *avg != 2.5 {
		t.Fatalf("average = %v, want 2.5", avg)
	}
}

func TestDaysOverdueNeverNegative(t *testing.T) {
	cases := []domain.RFI{
		{},
		{Status: "draft"},
		{Status: "submitted", ResponseDueDate: tp(now.AddDate(0, 0, 7))},
		{Status: "nonsense", ResponseDueDate: tp(now.AddDate(0, 0, -7))},
	}
	for i, r := range cases {
		if d := workflow.DaysOverdue(r, now); d < 0 {
			t.Fatalf("case %d: days overdue %d < 0", i, d)
		}
	}
}
