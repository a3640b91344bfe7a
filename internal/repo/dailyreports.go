package repo

import (
	"context"
	"database/sql"
	"strings"

	"sitedesk/internal/domain"
)

const dailyReportColumns = `id,project_id,report_date,weather,crew_count,work_performed,status,created_by,approved_by,created_at,updated_at`

func (r Repo) InsertDailyReport(ctx context.Context, tx *sql.Tx, d domain.DailyReport) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO daily_reports(`+dailyReportColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		d.ID, d.ProjectID, d.ReportDate, nullable(d.Weather), d.CrewCount, nullable(d.WorkPerformed),
		d.Status, d.CreatedBy, nullableStringPtr(d.ApprovedBy), d.CreatedAt, d.UpdatedAt)
	return err
}

func (r Repo) UpdateDailyReport(ctx context.Context, tx *sql.Tx, d domain.DailyReport) error {
	res, err := tx.ExecContext(ctx, `UPDATE daily_reports SET weather=?, crew_count=?, work_performed=?, status=?, approved_by=?, updated_at=? WHERE id=?`,
		nullable(d.Weather), d.CrewCount, nullable(d.WorkPerformed), d.Status,
		nullableStringPtr(d.ApprovedBy), d.UpdatedAt, d.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanDailyReport(row rowScanner) (domain.DailyReport, error) {
	var d domain.DailyReport
	var weather, workPerformed, approvedBy sql.NullString
	err := row.Scan(&d.ID, &d.ProjectID, &d.ReportDate, &weather, &d.CrewCount, &workPerformed,
		&d.Status, &d.CreatedBy, &approvedBy, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	if err != nil {
		return d, err
	}
	if weather.Valid {
		d.Weather = weather.String
	}
	if workPerformed.Valid {
		d.WorkPerformed = workPerformed.String
	}
	d.ApprovedBy = strPtrFromNull(approvedBy)
	return d, nil
}

func (r Repo) GetDailyReport(ctx context.Context, id string) (domain.DailyReport, error) {
	return scanDailyReport(r.DB.QueryRowContext(ctx, `SELECT `+dailyReportColumns+` FROM daily_reports WHERE id=?`, id))
}

func (r Repo) GetDailyReportByDate(ctx context.Context, projectID, reportDate string) (domain.DailyReport, error) {
	return scanDailyReport(r.DB.QueryRowContext(ctx, `SELECT `+dailyReportColumns+` FROM daily_reports WHERE project_id=? AND report_date=?`, projectID, reportDate))
}

type DailyReportFilters struct {
	ProjectID  string
	Status     string
	Limit      int
	CursorDate string
	CursorID   string
}

func (r Repo) ListDailyReports(ctx context.Context, f DailyReportFilters) ([]domain.DailyReport, error) {
	var clauses []string
	var args []any
	if f.ProjectID != "" {
		clauses = append(clauses, "project_id=?")
		args = append(args, f.ProjectID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.CursorDate != "" && f.CursorID != "" {
		clauses = append(clauses, "(report_date < ? OR (report_date = ? AND id < ?))")
		args = append(args, f.CursorDate, f.CursorDate, f.CursorID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + dailyReportColumns + ` FROM daily_reports ` + where + ` ORDER BY report_date DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.DailyReport
	for rows.Next() {
		d, err := scanDailyReport(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}
