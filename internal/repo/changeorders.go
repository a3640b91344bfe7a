package repo

import (
	"context"
	"database/sql"
	"strings"

	"sitedesk/internal/domain"
)

const changeOrderColumns = `id,project_id,number,title,description,amount_cents,schedule_impact_days,status,created_by,approved_at,created_at,updated_at`

func (r Repo) InsertChangeOrder(ctx context.Context, tx *sql.Tx, co domain.ChangeOrder) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO change_orders(`+changeOrderColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		co.ID, co.ProjectID, co.Number, co.Title, nullable(co.Description), co.AmountCents, co.ScheduleImpactDays,
		co.Status, co.CreatedBy, nullableStringPtr(co.ApprovedAt), co.CreatedAt, co.UpdatedAt)
	return err
}

func (r Repo) UpdateChangeOrder(ctx context.Context, tx *sql.Tx, co domain.ChangeOrder) error {
	res, err := tx.ExecContext(ctx, `UPDATE change_orders SET title=?, description=?, amount_cents=?, schedule_impact_days=?, status=?, approved_at=?, updated_at=? WHERE id=?`,
		co.Title, nullable(co.Description), co.AmountCents, co.ScheduleImpactDays, co.Status,
		nullableStringPtr(co.ApprovedAt), co.UpdatedAt, co.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanChangeOrder(row rowScanner) (domain.ChangeOrder, error) {
	var co domain.ChangeOrder
	var description, approvedAt sql.NullString
	err := row.Scan(&co.ID, &co.ProjectID, &co.Number, &co.Title, &description, &co.AmountCents,
		&co.ScheduleImpactDays, &co.Status, &co.CreatedBy, &approvedAt, &co.CreatedAt, &co.UpdatedAt)
	if err == sql.ErrNoRows {
		return co, ErrNotFound
	}
	if err != nil {
		return co, err
	}
	if description.Valid {
		co.Description = description.String
	}
	co.ApprovedAt = strPtrFromNull(approvedAt)
	return co, nil
}

func (r Repo) GetChangeOrder(ctx context.Context, id string) (domain.ChangeOrder, error) {
	return scanChangeOrder(r.DB.QueryRowContext(ctx, `SELECT `+changeOrderColumns+` FROM change_orders WHERE id=?`, id))
}

type ChangeOrderFilters struct {
	ProjectID       string
	Status          string
	Limit           int
	CursorCreatedAt string
	CursorID        string
}

func (r Repo) ListChangeOrders(ctx context.Context, f ChangeOrderFilters) ([]domain.ChangeOrder, error) {
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
	if f.CursorCreatedAt != "" && f.CursorID != "" {
		clauses = append(clauses, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, f.CursorCreatedAt, f.CursorCreatedAt, f.CursorID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + changeOrderColumns + ` FROM change_orders ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ChangeOrder
	for rows.Next() {
		co, err := scanChangeOrder(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, co)
	}
	return res, rows.Err()
}

func (r Repo) NextChangeOrderNumber(ctx context.Context, tx *sql.Tx, projectID string) (int, error) {
	row := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(number),0)+1 FROM change_orders WHERE project_id=?`, projectID)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ApprovedChangeOrderTotal sums approved and invoiced change order
// amounts for a project, in cents.
func (r Repo) ApprovedChangeOrderTotal(ctx context.Context, projectID string) (int64, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount_cents),0) FROM change_orders WHERE project_id=? AND status IN ('approved','invoiced')`, projectID)
	var total int64
	if err := row.Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
