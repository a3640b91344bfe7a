package repo

import (
	"context"
	"database/sql"
	"strings"

	"sitedesk/internal/domain"
)

const rfiColumns = `id,project_id,number,subject,question,answer,status,priority,created_by,assigned_to_id,assigned_to_org,submitted_at,response_due_date,answered_at,closed_at,created_at,updated_at`

func (r Repo) InsertRFI(ctx context.Context, tx *sql.Tx, rfi domain.RFI) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO rfis(`+rfiColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rfi.ID, rfi.ProjectID, rfi.Number, rfi.Subject, rfi.Question, nullable(rfi.Answer),
		rfi.Status, rfi.Priority, rfi.CreatedBy, nullableStringPtr(rfi.AssignedToID), nullableStringPtr(rfi.AssignedToOrg),
		nullableInstant(rfi.SubmittedAt), nullableInstant(rfi.ResponseDueDate), nullableInstant(rfi.AnsweredAt), nullableInstant(rfi.ClosedAt),
		rfi.CreatedAt, rfi.UpdatedAt)
	return err
}

func (r Repo) UpdateRFI(ctx context.Context, tx *sql.Tx, rfi domain.RFI) error {
	res, err := tx.ExecContext(ctx, `UPDATE rfis SET subject=?, question=?, answer=?, status=?, priority=?, assigned_to_id=?, assigned_to_org=?, submitted_at=?, response_due_date=?, answered_at=?, closed_at=?, updated_at=? WHERE id=?`,
		rfi.Subject, rfi.Question, nullable(rfi.Answer), rfi.Status, rfi.Priority,
		nullableStringPtr(rfi.AssignedToID), nullableStringPtr(rfi.AssignedToOrg),
		nullableInstant(rfi.SubmittedAt), nullableInstant(rfi.ResponseDueDate), nullableInstant(rfi.AnsweredAt), nullableInstant(rfi.ClosedAt),
		rfi.UpdatedAt, rfi.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRFI(row rowScanner) (domain.RFI, error) {
	var rfi domain.RFI
	var answer, assignedID, assignedOrg sql.NullString
	var submittedAt, dueDate, answeredAt, closedAt sql.NullString
	err := row.Scan(&rfi.ID, &rfi.ProjectID, &rfi.Number, &rfi.Subject, &rfi.Question, &answer,
		&rfi.Status, &rfi.Priority, &rfi.CreatedBy, &assignedID, &assignedOrg,
		&submittedAt, &dueDate, &answeredAt, &closedAt, &rfi.CreatedAt, &rfi.UpdatedAt)
	if err == sql.ErrNoRows {
		return rfi, ErrNotFound
	}
	if err != nil {
		return rfi, err
	}
	if answer.Valid {
		rfi.Answer = answer.String
	}
	rfi.AssignedToID = strPtrFromNull(assignedID)
	rfi.AssignedToOrg = strPtrFromNull(assignedOrg)
	rfi.SubmittedAt = parseInstant(submittedAt)
	rfi.ResponseDueDate = parseInstant(dueDate)
	rfi.AnsweredAt = parseInstant(answeredAt)
	rfi.ClosedAt = parseInstant(closedAt)
	return rfi, nil
}

func (r Repo) GetRFI(ctx context.Context, id string) (domain.RFI, error) {
	return scanRFI(r.DB.QueryRowContext(ctx, `SELECT `+rfiColumns+` FROM rfis WHERE id=?`, id))
}

type RFIFilters struct {
	ProjectID       string
	Status          string
	Priority        string
	AssignedToID    string
	AssignedToOrg   string
	CreatedBy       string
	Limit           int
	CursorCreatedAt string
	CursorID        string
}

func (r Repo) ListRFIs(ctx context.Context, f RFIFilters) ([]domain.RFI, error) {
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
	if f.Priority != "" {
		clauses = append(clauses, "priority=?")
		args = append(args, f.Priority)
	}
	if f.AssignedToID != "" {
		clauses = append(clauses, "assigned_to_id=?")
		args = append(args, f.AssignedToID)
	}
	if f.AssignedToOrg != "" {
		clauses = append(clauses, "assigned_to_org=?")
		args = append(args, f.AssignedToOrg)
	}
	if f.CreatedBy != "" {
		clauses = append(clauses, "created_by=?")
		args = append(args, f.CreatedBy)
	}
	if f.CursorCreatedAt != "" && f.CursorID != "" {
		clauses = append(clauses, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, f.CursorCreatedAt, f.CursorCreatedAt, f.CursorID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + rfiColumns + ` FROM rfis ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.RFI
	for rows.Next() {
		rfi, err := scanRFI(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rfi)
	}
	return res, rows.Err()
}

// NextRFINumber allocates the next sequential RFI number for a project.
// Callers run this inside the same transaction as the insert so two
// creates cannot race to the same number.
func (r Repo) NextRFINumber(ctx context.Context, tx *sql.Tx, projectID string) (int, error) {
	row := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(number),0)+1 FROM rfis WHERE project_id=?`, projectID)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r Repo) CountRFIsByStatus(ctx context.Context, projectID string) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, count(*) FROM rfis WHERE project_id=? GROUP BY status`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		res[status] = count
	}
	return res, rows.Err()
}
