package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sitedesk/internal/domain"
	"sitedesk/internal/events"
	"sitedesk/internal/repo"
)

// DailyReportCreateOptions are parameters for creating a daily report.
type DailyReportCreateOptions struct {
	ProjectID     string
	ReportDate    string
	Weather       string
	CrewCount     int
	WorkPerformed string
	ActorID       string
}

// CreateDailyReport creates a draft report for a calendar date. At most
// one report exists per project per date.
func (e Engine) CreateDailyReport(ctx context.Context, opts DailyReportCreateOptions) (domain.DailyReport, error) {
	if opts.ProjectID == "" {
		return domain.DailyReport{}, errors.New("project is required")
	}
	if _, err := time.Parse("2006-01-02", opts.ReportDate); err != nil {
		return domain.DailyReport{}, fmt.Errorf("report date must be YYYY-MM-DD: %w", err)
	}
	if opts.CrewCount < 0 {
		return domain.DailyReport{}, errors.New("crew count cannot be negative")
	}
	if _, err := e.Repo.GetProject(ctx, opts.ProjectID); err != nil {
		return domain.DailyReport{}, err
	}
	if _, err := e.Repo.GetDailyReportByDate(ctx, opts.ProjectID, opts.ReportDate); err == nil {
		return domain.DailyReport{}, fmt.Errorf("daily report for %s already exists", opts.ReportDate)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.DailyReport{}, err
	}
	now := e.nowRFC3339()
	d := domain.DailyReport{
		ID:            uuid.New().String(),
		ProjectID:     opts.ProjectID,
		ReportDate:    opts.ReportDate,
		Weather:       opts.Weather,
		CrewCount:     opts.CrewCount,
		WorkPerformed: opts.WorkPerformed,
		Status:        "draft",
		CreatedBy:     opts.ActorID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.DailyReport{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertDailyReport(ctx, tx, d); err != nil {
		return domain.DailyReport{}, err
	}
	if err := e.Events.Append(ctx, tx, events.TypeDailyReportCreated, d.ProjectID, "daily_report", d.ID, opts.ActorID, events.EventPayload{
		"report_date": d.ReportDate,
	}); err != nil {
		return domain.DailyReport{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.DailyReport{}, err
	}
	return d, nil
}

func ensureDailyReportTransition(oldStatus, newStatus string, force bool) error {
	if force {
		return nil
	}
	switch oldStatus {
	case "draft":
		if newStatus == "submitted" {
			return nil
		}
	case "submitted":
		if newStatus == "approved" || newStatus == "draft" {
			return nil
		}
	case "approved":
		if newStatus == "archived" {
			return nil
		}
	}
	return fmt.Errorf("invalid daily report status transition %s -> %s", oldStatus, newStatus)
}

// SetDailyReportStatus advances a report, recording the approver when it
// reaches approved.
func (e Engine) SetDailyReportStatus(ctx context.Context, id, status, actorID string, force bool) (domain.DailyReport, error) {
	d, err := e.Repo.GetDailyReport(ctx, id)
	if err != nil {
		return d, err
	}
	from := d.Status
	if err := ensureDailyReportTransition(d.Status, status, force); err != nil {
		return d, err
	}
	d.Status = status
	if status == "approved" {
		d.ApprovedBy = optionalString(actorID)
	}
	d.UpdatedAt = e.nowRFC3339()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return d, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateDailyReport(ctx, tx, d); err != nil {
		return d, err
	}
	if err := e.Events.Append(ctx, tx, events.TypeDailyReportStatus, d.ProjectID, "daily_report", d.ID, actorID, events.EventPayload{
		"from_status": from,
		"to_status":   d.Status,
	}); err != nil {
		return d, err
	}
	if err := tx.Commit(); err != nil {
		return d, err
	}
	return d, nil
}
