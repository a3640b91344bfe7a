package workflow_test

import (
	"testing"

	"sitedesk/internal/workflow"
)

func TestLabelKnownStatuses(t *testing.T) {
	cases := []struct {
		doc    workflow.DocumentType
		status string
		want   string
	}{
		{workflow.DocRFI, "under_review", "Under Review"},
		{workflow.DocRFI, "cancelled", "Cancelled"},
		{workflow.DocChangeOrder, "potential", "Potential CO"},
		{workflow.DocChangeOrder, "invoiced", "Invoiced"},
		{workflow.DocSubmittal, "approved_as_noted", "Approved as Noted"},
		{workflow.DocSubmittal, "revise_resubmit", "Revise & Resubmit"},
		{workflow.DocDailyReport, "archived", "Archived"},
	}
	for _, c := range cases {
		if got := workflow.Label(c.doc, c.status); got != c.want {
			t.Fatalf("Label(%s, %s) = %q, want %q", c.doc, c.status, got, c.want)
		}
	}
}

func TestLabelFallback(t *testing.T) {
	if got := workflow.Label(workflow.DocRFI, "weird"); got != workflow.UnknownLabel {
		t.Fatalf("unknown status label = %q", got)
	}
	if got := workflow.Label(workflow.DocumentType("invoice"), "draft"); got != workflow.UnknownLabel {
		t.Fatalf("unknown doc label = %q", got)
	}
	// cross-taxonomy lookups fall back too: gc_review is not an RFI status
	if got := workflow.Label(workflow.DocRFI, "gc_review"); got != workflow.UnknownLabel {
		t.Fatalf("cross-taxonomy label = %q", got)
	}
}

func TestColorTokens(t *testing.T) {
	cases := map[string]workflow.ColorToken{
		"draft":        workflow.ColorGray,
		"submitted":    workflow.ColorBlue,
		"under_review": workflow.ColorYellow,
		"answered":     workflow.ColorGreen,
		"closed":       workflow.ColorGray,
		"cancelled":    workflow.ColorRed,
		"bogus":        workflow.ColorGray,
	}
	for status, want := range cases {
		if got := workflow.Color(status); got != want {
			t.Fatalf("Color(%s) = %s, want %s", status, got, want)
		}
	}
}

func TestChangeOrderEmphasis(t *testing.T) {
	if workflow.ChangeOrderEmphasis("approved") != workflow.ColorGreen {
		t.Fatal("approved should be green")
	}
	if workflow.ChangeOrderEmphasis("rejected") != workflow.ColorRed {
		t.Fatal("rejected should be red")
	}
	if workflow.ChangeOrderEmphasis("mystery") != workflow.ColorGray {
		t.Fatal("unknown should be gray")
	}
}

func TestRFITerminal(t *testing.T) {
	for _, s := range []string{"closed", "cancelled"} {
		if !workflow.RFITerminal(s) {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []string{"draft", "submitted", "under_review", "answered", "nope"} {
		if workflow.RFITerminal(s) {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}
