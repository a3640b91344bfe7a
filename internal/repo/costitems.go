package repo

import (
	"context"
	"database/sql"
	"strings"

	"sitedesk/internal/domain"
)

const costItemColumns = `id,project_id,change_order_id,description,amount_cents,category,created_by,created_at`

func (r Repo) InsertCostItem(ctx context.Context, tx *sql.Tx, c domain.CostItem) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO cost_items(`+costItemColumns+`) VALUES (?,?,?,?,?,?,?,?)`,
		c.ID, c.ProjectID, nullableStringPtr(c.ChangeOrderID), c.Description, c.AmountCents,
		c.Category, c.CreatedBy, c.CreatedAt)
	return err
}

func scanCostItem(row rowScanner) (domain.CostItem, error) {
	var c domain.CostItem
	var changeOrderID sql.NullString
	err := row.Scan(&c.ID, &c.ProjectID, &changeOrderID, &c.Description, &c.AmountCents,
		&c.Category, &c.CreatedBy, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	c.ChangeOrderID = strPtrFromNull(changeOrderID)
	return c, nil
}

func (r Repo) GetCostItem(ctx context.Context, id string) (domain.CostItem, error) {
	return scanCostItem(r.DB.QueryRowContext(ctx, `SELECT `+costItemColumns+` FROM cost_items WHERE id=?`, id))
}

type CostItemFilters struct {
	ProjectID     string
	ChangeOrderID string
	Category      string
	Limit         int
}

func (r Repo) ListCostItems(ctx context.Context, f CostItemFilters) ([]domain.CostItem, error) {
	var clauses []string
	var args []any
	if f.ProjectID != "" {
		clauses = append(clauses, "project_id=?")
		args = append(args, f.ProjectID)
	}
	if f.ChangeOrderID != "" {
		clauses = append(clauses, "change_order_id=?")
		args = append(args, f.ChangeOrderID)
	}
	if f.Category != "" {
		clauses = append(clauses, "category=?")
		args = append(args, f.Category)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + costItemColumns + ` FROM cost_items ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.CostItem
	for rows.Next() {
		c, err := scanCostItem(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// CostItemTotal sums recorded cost items for a project, optionally broken
// down by category via ListCostItems on the caller side.
func (r Repo) CostItemTotal(ctx context.Context, projectID string) (int64, error) {
	var total sql.NullInt64
	err := r.DB.QueryRowContext(ctx, `SELECT SUM(amount_cents) FROM cost_items WHERE project_id=?`, projectID).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}

func (r Repo) CostItemTotalForChangeOrder(ctx context.Context, changeOrderID string) (int64, error) {
	var total sql.NullInt64
	err := r.DB.QueryRowContext(ctx, `SELECT SUM(amount_cents) FROM cost_items WHERE change_order_id=?`, changeOrderID).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}
