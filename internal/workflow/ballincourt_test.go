package workflow_test

import (
	"testing"

	"sitedesk/internal/domain"
	"sitedesk/internal/workflow"
)

func sp(s string) *string { return &s }

func TestResolveDraft(t *testing.T) {
	b := workflow.Resolve(domain.RFI{Status: "draft", CreatedBy: "u1"})
	if b.UserID != "u1" || b.OrgID != "" || b.IsBlocked {
		t.Fatalf("draft resolve = %+v", b)
	}
	if b.SuggestedAction != workflow.ActionCompleteAndSubmit {
		t.Fatalf("action = %q", b.SuggestedAction)
	}
}

func TestResolveInReview(t *testing.T) {
	for _, status := range []string{"submitted", "under_review"} {
		b := workflow.Resolve(domain.RFI{Status: status, CreatedBy: "u1", AssignedToID: sp("u2"), AssignedToOrg: sp("org-ae")})
		if b.UserID != "u2" || b.OrgID != "org-ae" || b.IsBlocked {
			t.Fatalf("%s resolve = %+v", status, b)
		}
		if b.SuggestedAction != workflow.ActionProvideResponse {
			t.Fatalf("%s action = %q", status, b.SuggestedAction)
		}
	}
}

func TestResolveUnassignedBlocked(t *testing.T) {
	b := workflow.Resolve(domain.RFI{Status: "under_review", CreatedBy: "u1"})
	if !b.IsBlocked {
		t.Fatal("unassigned in-review RFI should be blocked")
	}
	// org-only assignment is enough to unblock
	b = workflow.Resolve(domain.RFI{Status: "under_review", CreatedBy: "u1", AssignedToOrg: sp("org-ae")})
	if b.IsBlocked {
		t.Fatal("org-level assignment should unblock")
	}
	if b.OrgID != "org-ae" || b.UserID != "" {
		t.Fatalf("org-only resolve = %+v", b)
	}
}

func TestResolveAnswered(t *testing.T) {
	b := workflow.Resolve(domain.RFI{Status: "answered", CreatedBy: "u1", AssignedToID: sp("u2")})
	if b.UserID != "u1" || b.OrgID != "" || b.IsBlocked {
		t.Fatalf("answered resolve = %+v", b)
	}
	if b.SuggestedAction != workflow.ActionReviewAndClose {
		t.Fatalf("action = %q", b.SuggestedAction)
	}
}

func TestResolveTerminal(t *testing.T) {
	for _, status := range []string{"closed", "cancelled"} {
		b := workflow.Resolve(domain.RFI{Status: status, CreatedBy: "u1", AssignedToID: sp("u2")})
		if b.UserID != "" || b.OrgID != "" || b.IsBlocked {
			t.Fatalf("%s resolve = %+v", status, b)
		}
		if b.SuggestedAction != workflow.ActionNone {
			t.Fatalf("%s action = %q", status, b.SuggestedAction)
		}
	}
}

func TestResolveTotalOverStatuses(t *testing.T) {
	known := []string{"draft", "submitted", "under_review", "answered", "closed", "cancelled"}
	for _, status := range known {
		b := workflow.Resolve(domain.RFI{Status: status, CreatedBy: "u1"})
		if b.SuggestedAction == "" || b.SuggestedAction == workflow.ActionUnknown {
			t.Fatalf("status %s should resolve to a known action, got %q", status, b.SuggestedAction)
		}
	}
	for _, status := range []string{"", "pending", "DRAFT", "on_hold"} {
		b := workflow.Resolve(domain.RFI{Status: status, CreatedBy: "u1"})
		if !b.IsBlocked || b.SuggestedAction != workflow.ActionUnknown {
			t.Fatalf("status %q resolve = %+v, want blocked unknown", status, b)
		}
	}
}

func TestIsHeldBy(t *testing.T) {
	r := domain.RFI{Status: "submitted", CreatedBy: "u1", AssignedToID: sp("u2")}
	if !workflow.IsHeldBy(r, "u2") {
		t.Fatal("assignee should hold the ball")
	}
	if workflow.IsHeldBy(r, "u1") {
		t.Fatal("creator should not hold a submitted RFI")
	}
	if workflow.IsHeldBy(domain.RFI{Status: "closed"}, "") {
		t.Fatal("empty user never holds")
	}
}
