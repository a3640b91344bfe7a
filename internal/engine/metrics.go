package engine

import (
	"context"
	"time"

	"sitedesk/internal/domain"
	"sitedesk/internal/repo"
	"sitedesk/internal/workflow"
)

// RFISLAMetrics summarizes SLA posture for a project's RFIs.
type RFISLAMetrics struct {
	ByStatus             map[string]int      `json:"by_status"`
	OpenOverdue          int                 `json:"open_overdue"`
	Compliance           workflow.Compliance `json:"compliance"`
	AverageResponseHours *float64            `json:"average_response_hours,omitempty"`
}

// ProjectRFIMetrics computes the SLA dashboard numbers for a project at
// a point in time.
func (e Engine) ProjectRFIMetrics(ctx context.Context, projectID string, now time.Time) (RFISLAMetrics, error) {
	if _, err := e.Repo.GetProject(ctx, projectID); err != nil {
		return RFISLAMetrics{}, err
	}
	byStatus, err := e.Repo.CountRFIsByStatus(ctx, projectID)
	if err != nil {
		return RFISLAMetrics{}, err
	}
	rfis, err := e.Repo.ListRFIs(ctx, repo.RFIFilters{ProjectID: projectID})
	if err != nil {
		return RFISLAMetrics{}, err
	}
	m := RFISLAMetrics{
		ByStatus:   byStatus,
		Compliance: workflow.ComputeCompliance(rfis),
	}
	for _, r := range rfis {
		// answered-late RFIs score against compliance, not the open count
		if r.AnsweredAt == nil && workflow.IsOverdue(r, now) {
			m.OpenOverdue++
		}
	}
	m.AverageResponseHours = workflow.AverageResponseTimeHours(rfis)
	return m, nil
}

// CourtEntry is an RFI waiting on someone, with its resolved
// ball-in-court and SLA posture.
type CourtEntry struct {
	RFI          domain.RFI           `json:"rfi"`
	Court        workflow.BallInCourt `json:"court"`
	Overdue      bool                 `json:"overdue"`
	DaysOverdue  int                  `json:"days_overdue"`
	DaysUntilDue *int                 `json:"days_until_due,omitempty"`
}

// CourtForUser returns the RFIs whose ball-in-court resolves to the
// given user, newest first.
func (e Engine) CourtForUser(ctx context.Context, projectID, userID string, now time.Time) ([]CourtEntry, error) {
	if _, err := e.Repo.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	rfis, err := e.Repo.ListRFIs(ctx, repo.RFIFilters{ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	var entries []CourtEntry
	for _, r := range rfis {
		if !workflow.IsHeldBy(r, userID) {
			continue
		}
		entries = append(entries, CourtEntry{
			RFI:          r,
			Court:        workflow.Resolve(r),
			Overdue:      workflow.IsOverdue(r, now),
			DaysOverdue:  workflow.DaysOverdue(r, now),
			DaysUntilDue: workflow.DaysUntilDue(r, now),
		})
	}
	return entries, nil
}

// CostSummary aggregates project financials.
type CostSummary struct {
	ApprovedChangeOrderCents int64 `json:"approved_change_order_cents"`
	CostItemCents            int64 `json:"cost_item_cents"`
}

// ProjectCostSummary totals approved change orders and recorded cost
// items for a project.
func (e Engine) ProjectCostSummary(ctx context.Context, projectID string) (CostSummary, error) {
	if _, err := e.Repo.GetProject(ctx, projectID); err != nil {
		return CostSummary{}, err
	}
	coTotal, err := e.Repo.ApprovedChangeOrderTotal(ctx, projectID)
	if err != nil {
		return CostSummary{}, err
	}
	ciTotal, err := e.Repo.CostItemTotal(ctx, projectID)
	if err != nil {
		return CostSummary{}, err
	}
	return CostSummary{ApprovedChangeOrderCents: coTotal, CostItemCents: ciTotal}, nil
}
