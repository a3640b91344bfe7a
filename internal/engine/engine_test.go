package engine_test

import (
	"context"
	"testing"
	"time"

	"sitedesk/internal/config"
	"sitedesk/internal/db"
	"sitedesk/internal/engine"
	"sitedesk/internal/migrate"
)

type testEnv struct {
	Engine    engine.Engine
	Ctx       context.Context
	ProjectID string
}

var testClock = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default("proj-1")
	eng := engine.New(conn, cfg)
	eng.Now = func() time.Time { return testClock }
	ctx := context.Background()
	p, err := eng.InitProject(ctx, engine.ProjectCreateOptions{
		ID:      "proj-1",
		OrgID:   "org-gc",
		OrgName: "General Contractor",
		Number:  "24-001",
		Name:    "Riverside Tower",
		ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("init project: %v", err)
	}
	return testEnv{Engine: eng, Ctx: ctx, ProjectID: p.ID}
}

func TestRFILifecycle(t *testing.T) {
	env := newTestEnv(t)
	rfi, err := env.Engine.CreateRFI(env.Ctx, engine.RFICreateOptions{
		ProjectID:     env.ProjectID,
		Subject:       "Footing depth at grid B-4",
		Question:      "Drawings show 3ft, soils report requires 4ft. Which governs?",
		Priority:      "high",
		AssignedToID:  "architect-1",
		AssignedToOrg: "org-ae",
		ActorID:       "tester",
	})
	if err != nil {
		t.Fatalf("create rfi: %v", err)
	}
	if rfi.Status != "draft" || rfi.Number != 1 {
		t.Fatalf("unexpected draft: status=%s number=%d", rfi.Status, rfi.Number)
	}
	rfi, err = env.Engine.SubmitRFI(env.Ctx, rfi.ID, "tester", nil, false)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if rfi.SubmittedAt == nil || !rfi.SubmittedAt.Equal(testClock) {
		t.Fatalf("submitted_at not stamped")
	}
	// high priority defaults to a 5 day response window
	wantDue := testClock.AddDate(0, 0, 5)
	if rfi.ResponseDueDate == nil || !rfi.ResponseDueDate.Equal(wantDue) {
		t.Fatalf("due date: got %v want %v", rfi.ResponseDueDate, wantDue)
	}
	rfi, err = env.Engine.StartRFIReview(env.Ctx, rfi.ID, "architect-1", false)
	if err != nil || rfi.Status != "under_review" {
		t.Fatalf("start review: %v", err)
	}
	rfi, err = env.Engine.AnswerRFI(env.Ctx, rfi.ID, "Soils report governs; use 4ft.", "architect-1", false)
	if err != nil || rfi.Status != "answered" {
		t.Fatalf("answer: %v", err)
	}
	if rfi.AnsweredAt == nil {
		t.Fatalf("answered_at not stamped")
	}
	rfi, err = env.Engine.CloseRFI(env.Ctx, rfi.ID, "tester", false)
	if err != nil || rfi.Status != "closed" {
		t.Fatalf("close: %v", err)
	}
	if rfi.ClosedAt == nil {
		t.Fatalf("closed_at not stamped")
	}
}

func TestRFIInvalidTransitions(t *testing.T) {
	env := newTestEnv(t)
	rfi, err := env.Engine.CreateRFI(env.Ctx, engine.RFICreateOptions{
		ProjectID: env.ProjectID, Subject: "s", Question: "q", ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	// draft cannot be answered directly
	if _, err := env.Engine.AnswerRFI(env.Ctx, rfi.ID, "nope", "tester", false); err == nil {
		t.Fatalf("expected transition error from draft")
	}
	// draft cannot be closed
	if _, err := env.Engine.CloseRFI(env.Ctx, rfi.ID, "tester", false); err == nil {
		t.Fatalf("expected transition error closing draft")
	}
	rfi, err = env.Engine.CancelRFI(env.Ctx, rfi.ID, "tester", false)
	if err != nil || rfi.Status != "cancelled" {
		t.Fatalf("cancel: %v", err)
	}
	// terminal status has no exits
	if _, err := env.Engine.SubmitRFI(env.Ctx, rfi.ID, "tester", nil, false); err == nil {
		t.Fatalf("expected no exit from cancelled")
	}
	// force overrides
	if _, err := env.Engine.SubmitRFI(env.Ctx, rfi.ID, "tester", nil, true); err != nil {
		t.Fatalf("force submit: %v", err)
	}
}

func TestRFILifecycleIsForwardOnly(t *testing.T) {
	env := newTestEnv(t)
	rfi, err := env.Engine.CreateRFI(env.Ctx, engine.RFICreateOptions{
		ProjectID: env.ProjectID, Subject: "s", Question: "q", ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.SubmitRFI(env.Ctx, rfi.ID, "tester", nil, false); err != nil {
		t.Fatal(err)
	}
	// the review step cannot be skipped
	if _, err := env.Engine.AnswerRFI(env.Ctx, rfi.ID, "early", "tester", false); err == nil {
		t.Fatalf("expected transition error answering from submitted")
	}
	if _, err := env.Engine.StartRFIReview(env.Ctx, rfi.ID, "tester", false); err != nil {
		t.Fatal(err)
	}
	rfi, err = env.Engine.AnswerRFI(env.Ctx, rfi.ID, "done", "tester", false)
	if err != nil {
		t.Fatal(err)
	}
	// an answered RFI keeps answered_at and never moves backwards; if it
	// could re-enter review it would still score compliant forever
	if _, err := env.Engine.StartRFIReview(env.Ctx, rfi.ID, "tester", false); err == nil {
		t.Fatalf("expected transition error reopening answered rfi")
	}
	got, err := env.Engine.Repo.GetRFI(env.Ctx, rfi.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != "answered" || got.AnsweredAt == nil {
		t.Fatalf("rejected reopen must not touch the rfi: status=%s", got.Status)
	}
	// cancel is still a valid exit from answered
	if _, err := env.Engine.CancelRFI(env.Ctx, rfi.ID, "tester", false); err != nil {
		t.Fatalf("cancel answered: %v", err)
	}
}

func TestRFINumbersSequencePerProject(t *testing.T) {
	env := newTestEnv(t)
	for want := 1; want <= 3; want++ {
		rfi, err := env.Engine.CreateRFI(env.Ctx, engine.RFICreateOptions{
			ProjectID: env.ProjectID, Subject: "s", Question: "q", ActorID: "tester",
		})
		if err != nil {
			t.Fatal(err)
		}
		if rfi.Number != want {
			t.Fatalf("number: got %d want %d", rfi.Number, want)
		}
	}
}

func TestSubmitRFIExplicitDueDate(t *testing.T) {
	env := newTestEnv(t)
	rfi, err := env.Engine.CreateRFI(env.Ctx, engine.RFICreateOptions{
		ProjectID: env.ProjectID, Subject: "s", Question: "q", ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	due := time.Date(2025, 6, 20, 17, 0, 0, 0, time.UTC)
	rfi, err = env.Engine.SubmitRFI(env.Ctx, rfi.ID, "tester", &due, false)
	if err != nil {
		t.Fatal(err)
	}
	if rfi.ResponseDueDate == nil || !rfi.ResponseDueDate.Equal(due) {
		t.Fatalf("explicit due date not honored: %v", rfi.ResponseDueDate)
	}
}

func TestReassignRFI(t *testing.T) {
	env := newTestEnv(t)
	rfi, err := env.Engine.CreateRFI(env.Ctx, engine.RFICreateOptions{
		ProjectID: env.ProjectID, Subject: "s", Question: "q", ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	rfi, err = env.Engine.ReassignRFI(env.Ctx, rfi.ID, "eng-2", "org-ae", "tester")
	if err != nil {
		t.Fatal(err)
	}
	if rfi.AssignedToID == nil || *rfi.AssignedToID != "eng-2" {
		t.Fatalf("assignee not updated")
	}
	rfi, err = env.Engine.ReassignRFI(env.Ctx, rfi.ID, "", "", "tester")
	if err != nil {
		t.Fatal(err)
	}
	if rfi.AssignedToID != nil || rfi.AssignedToOrg != nil {
		t.Fatalf("assignment not cleared")
	}
}

func TestChangeOrderLadder(t *testing.T) {
	env := newTestEnv(t)
	co, err := env.Engine.CreateChangeOrder(env.Ctx, engine.ChangeOrderCreateOptions{
		ProjectID:   env.ProjectID,
		Title:       "Add storefront glazing",
		AmountCents: 1250000,
		ActorID:     "tester",
	})
	if err != nil {
		t.Fatalf("create co: %v", err)
	}
	if co.Status != "contemplated" || co.Number != 1 {
		t.Fatalf("unexpected co: %+v", co)
	}
	// cannot jump straight to approved
	if _, err := env.Engine.SetChangeOrderStatus(env.Ctx, co.ID, "approved", "tester", false); err == nil {
		t.Fatalf("expected ladder violation")
	}
	for _, status := range []string{"potential", "proposed", "approved", "invoiced"} {
		co, err = env.Engine.SetChangeOrderStatus(env.Ctx, co.ID, status, "tester", false)
		if err != nil {
			t.Fatalf("to %s: %v", status, err)
		}
	}
	if co.ApprovedAt == nil {
		t.Fatalf("approved_at not stamped")
	}
}

func TestSubmittalReviewChain(t *testing.T) {
	env := newTestEnv(t)
	s, err := env.Engine.CreateSubmittal(env.Ctx, engine.SubmittalCreateOptions{
		ProjectID:   env.ProjectID,
		Title:       "Structural steel shop drawings",
		SpecSection: "05 12 00",
		ActorID:     "tester",
	})
	if err != nil {
		t.Fatalf("create submittal: %v", err)
	}
	if s.Revision != 1 {
		t.Fatalf("expected revision 1")
	}
	s, err = env.Engine.SetSubmittalStatus(env.Ctx, s.ID, "submitted", "", "tester", false)
	if err != nil {
		t.Fatal(err)
	}
	s, err = env.Engine.SetSubmittalStatus(env.Ctx, s.ID, "gc_review", "org-gc", "tester", false)
	if err != nil {
		t.Fatal(err)
	}
	if s.CurrentReviewerOrg == nil || *s.CurrentReviewerOrg != "org-gc" {
		t.Fatalf("reviewer org not recorded")
	}
	s, err = env.Engine.SetSubmittalStatus(env.Ctx, s.ID, "ae_review", "org-ae", "tester", false)
	if err != nil {
		t.Fatal(err)
	}
	s, err = env.Engine.SetSubmittalStatus(env.Ctx, s.ID, "revise_resubmit", "", "reviewer-1", false)
	if err != nil {
		t.Fatal(err)
	}
	if s.CurrentReviewerOrg != nil {
		t.Fatalf("reviewer org should clear on disposition")
	}
	next, err := env.Engine.ReviseSubmittal(env.Ctx, s.ID, "tester")
	if err != nil {
		t.Fatalf("revise: %v", err)
	}
	if next.Revision != 2 || next.Number != s.Number || next.Status != "draft" {
		t.Fatalf("unexpected revision: %+v", next)
	}
}

func TestDailyReportOnePerDate(t *testing.T) {
	env := newTestEnv(t)
	d, err := env.Engine.CreateDailyReport(env.Ctx, engine.DailyReportCreateOptions{
		ProjectID:  env.ProjectID,
		ReportDate: "2025-06-01",
		CrewCount:  14,
		ActorID:    "tester",
	})
	if err != nil {
		t.Fatalf("create report: %v", err)
	}
	if _, err := env.Engine.CreateDailyReport(env.Ctx, engine.DailyReportCreateOptions{
		ProjectID:  env.ProjectID,
		ReportDate: "2025-06-01",
		ActorID:    "tester",
	}); err == nil {
		t.Fatalf("expected duplicate date error")
	}
	d, err = env.Engine.SetDailyReportStatus(env.Ctx, d.ID, "submitted", "tester", false)
	if err != nil {
		t.Fatal(err)
	}
	d, err = env.Engine.SetDailyReportStatus(env.Ctx, d.ID, "approved", "super-1", false)
	if err != nil {
		t.Fatal(err)
	}
	if d.ApprovedBy == nil || *d.ApprovedBy != "super-1" {
		t.Fatalf("approver not recorded")
	}
}

func TestDailyReportRejectsBadDate(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.CreateDailyReport(env.Ctx, engine.DailyReportCreateOptions{
		ProjectID:  env.ProjectID,
		ReportDate: "06/01/2025",
		ActorID:    "tester",
	}); err == nil {
		t.Fatalf("expected date format error")
	}
}

func TestCostItemChangeOrderScoping(t *testing.T) {
	env := newTestEnv(t)
	co, err := env.Engine.CreateChangeOrder(env.Ctx, engine.ChangeOrderCreateOptions{
		ProjectID: env.ProjectID, Title: "co", ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	item, err := env.Engine.AddCostItem(env.Ctx, engine.CostItemCreateOptions{
		ProjectID:     env.ProjectID,
		ChangeOrderID: co.ID,
		Description:   "Steel tonnage delta",
		AmountCents:   430000,
		Category:      "material",
		ActorID:       "tester",
	})
	if err != nil {
		t.Fatalf("add cost item: %v", err)
	}
	if item.ChangeOrderID == nil || *item.ChangeOrderID != co.ID {
		t.Fatalf("change order not linked")
	}
	if _, err := env.Engine.AddCostItem(env.Ctx, engine.CostItemCreateOptions{
		ProjectID:   env.ProjectID,
		Description: "bad category",
		Category:    "misc",
		ActorID:     "tester",
	}); err == nil {
		t.Fatalf("expected category error")
	}
}

func TestProjectRFIMetrics(t *testing.T) {
	env := newTestEnv(t)
	// one answered on time, one answered late, one open and overdue
	onTime, _ := env.Engine.CreateRFI(env.Ctx, engine.RFICreateOptions{
		ProjectID: env.ProjectID, Subject: "a", Question: "q", ActorID: "tester",
	})
	late, _ := env.Engine.CreateRFI(env.Ctx, engine.RFICreateOptions{
		ProjectID: env.ProjectID, Subject: "b", Question: "q", ActorID: "tester",
	})
	open, _ := env.Engine.CreateRFI(env.Ctx, engine.RFICreateOptions{
		ProjectID: env.ProjectID, Subject: "c", Question: "q", ActorID: "tester",
	})
	due := testClock.AddDate(0, 0, 2)
	for _, id := range []string{onTime.ID, late.ID, open.ID} {
		if _, err := env.Engine.SubmitRFI(env.Ctx, id, "tester", &due, false); err != nil {
			t.Fatal(err)
		}
	}
	for _, id := range []string{onTime.ID, late.ID} {
		if _, err := env.Engine.StartRFIReview(env.Ctx, id, "tester", false); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := env.Engine.AnswerRFI(env.Ctx, onTime.ID, "yes", "tester", false); err != nil {
		t.Fatal(err)
	}
	env.Engine.Now = func() time.Time { return due.AddDate(0, 0, 3) }
	if _, err := env.Engine.AnswerRFI(env.Ctx, late.ID, "eventually", "tester", false); err != nil {
		t.Fatal(err)
	}
	now := due.AddDate(0, 0, 3)
	m, err := env.Engine.ProjectRFIMetrics(env.Ctx, env.ProjectID, now)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if m.ByStatus["answered"] != 2 || m.ByStatus["submitted"] != 1 {
		t.Fatalf("by status: %+v", m.ByStatus)
	}
	if m.OpenOverdue != 1 {
		t.Fatalf("open overdue: got %d", m.OpenOverdue)
	}
	if m.Compliance.Total != 2 || m.Compliance.Compliant != 1 || m.Compliance.Percentage != 50 {
		t.Fatalf("compliance: %+v", m.Compliance)
	}
}

func TestCourtForUser(t *testing.T) {
	env := newTestEnv(t)
	rfi, err := env.Engine.CreateRFI(env.Ctx, engine.RFICreateOptions{
		ProjectID:    env.ProjectID,
		Subject:      "s",
		Question:     "q",
		AssignedToID: "architect-1",
		ActorID:      "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.SubmitRFI(env.Ctx, rfi.ID, "tester", nil, false); err != nil {
		t.Fatal(err)
	}
	entries, err := env.Engine.CourtForUser(env.Ctx, env.ProjectID, "architect-1", testClock)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	if entries[0].Court.UserID != "architect-1" || entries[0].Court.IsBlocked {
		t.Fatalf("unexpected court: %+v", entries[0].Court)
	}
	// draft is in the creator's court
	entries, err = env.Engine.CourtForUser(env.Ctx, env.ProjectID, "tester", testClock)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("submitted rfi should not be in creator's court")
	}
}

func TestEventsRecordedOnLifecycle(t *testing.T) {
	env := newTestEnv(t)
	rfi, err := env.Engine.CreateRFI(env.Ctx, engine.RFICreateOptions{
		ProjectID: env.ProjectID, Subject: "s", Question: "q", ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.SubmitRFI(env.Ctx, rfi.ID, "tester", nil, false); err != nil {
		t.Fatal(err)
	}
	rows, err := env.Engine.DB.QueryContext(env.Ctx, `SELECT type FROM events WHERE entity_id=?`, rfi.ID)
	if err != nil {
		t.Fatalf("query events: %v", err)
	}
	defer rows.Close()
	count := 0
	for rows.Next() {
		count++
	}
	if count < 2 {
		t.Fatalf("expected create and submit events, got %d", count)
	}
}
