package repo

import (
	"context"
	"database/sql"
	"strings"

	"sitedesk/internal/domain"
)

const submittalColumns = `id,project_id,number,revision,title,spec_section,status,current_reviewer_org,due_date,created_by,created_at,updated_at`

func (r Repo) InsertSubmittal(ctx context.Context, tx *sql.Tx, s domain.Submittal) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO submittals(`+submittalColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.ID, s.ProjectID, s.Number, s.Revision, s.Title, nullable(s.SpecSection), s.Status,
		nullableStringPtr(s.CurrentReviewerOrg), nullableStringPtr(s.DueDate), s.CreatedBy, s.CreatedAt, s.UpdatedAt)
	return err
}

func (r Repo) UpdateSubmittal(ctx context.Context, tx *sql.Tx, s domain.Submittal) error {
	res, err := tx.ExecContext(ctx, `UPDATE submittals SET revision=?, title=?, spec_section=?, status=?, current_reviewer_org=?, due_date=?, updated_at=? WHERE id=?`,
		s.Revision, s.Title, nullable(s.SpecSection), s.Status, nullableStringPtr(s.CurrentReviewerOrg),
		nullableStringPtr(s.DueDate), s.UpdatedAt, s.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSubmittal(row rowScanner) (domain.Submittal, error) {
	var s domain.Submittal
	var specSection, reviewerOrg, dueDate sql.NullString
	err := row.Scan(&s.ID, &s.ProjectID, &s.Number, &s.Revision, &s.Title, &specSection, &s.Status,
		&reviewerOrg, &dueDate, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	if err != nil {
		return s, err
	}
	if specSection.Valid {
		s.SpecSection = specSection.String
	}
	s.CurrentReviewerOrg = strPtrFromNull(reviewerOrg)
	s.DueDate = strPtrFromNull(dueDate)
	return s, nil
}

func (r Repo) GetSubmittal(ctx context.Context, id string) (domain.Submittal, error) {
	return scanSubmittal(r.DB.QueryRowContext(ctx, `SELECT `+submittalColumns+` FROM submittals WHERE id=?`, id))
}

type SubmittalFilters struct {
	ProjectID       string
	Status          string
	SpecSection     string
	Limit           int
	CursorCreatedAt string
	CursorID        string
}

func (r Repo) ListSubmittals(ctx context.Context, f SubmittalFilters) ([]domain.Submittal, error) {
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
	if f.SpecSection != "" {
		clauses = append(clauses, "spec_section=?")
		args = append(args, f.SpecSection)
	}
	if f.CursorCreatedAt != "" && f.CursorID != "" {
		clauses = append(clauses, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, f.CursorCreatedAt, f.CursorCreatedAt, f.CursorID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + submittalColumns + ` FROM submittals ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Submittal
	for rows.Next() {
		s, err := scanSubmittal(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func (r Repo) NextSubmittalNumber(ctx context.Context, tx *sql.Tx, projectID string) (int, error) {
	row := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(number),0)+1 FROM submittals WHERE project_id=?`, projectID)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
