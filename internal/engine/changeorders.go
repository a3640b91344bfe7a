package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sitedesk/internal/domain"
	"sitedesk/internal/events"
)

// ChangeOrderCreateOptions are parameters for creating a change order.
type ChangeOrderCreateOptions struct {
	ID                 string
	ProjectID          string
	Title              string
	Description        string
	AmountCents        int64
	ScheduleImpactDays int
	ActorID            string
}

// CreateChangeOrder creates a change order in the contemplated status
// with the next sequential number for the project.
func (e Engine) CreateChangeOrder(ctx context.Context, opts ChangeOrderCreateOptions) (domain.ChangeOrder, error) {
	if opts.ProjectID == "" {
		return domain.ChangeOrder{}, errors.New("project is required")
	}
	if opts.Title == "" {
		return domain.ChangeOrder{}, errors.New("title is required")
	}
	if _, err := e.Repo.GetProject(ctx, opts.ProjectID); err != nil {
		return domain.ChangeOrder{}, err
	}
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := e.nowRFC3339()
	co := domain.ChangeOrder{
		ID:                 id,
		ProjectID:          opts.ProjectID,
		Title:              opts.Title,
		Description:        opts.Description,
		AmountCents:        opts.AmountCents,
		ScheduleImpactDays: opts.ScheduleImpactDays,
		Status:             "contemplated",
		CreatedBy:          opts.ActorID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.ChangeOrder{}, err
	}
	defer tx.Rollback()
	co.Number, err = e.Repo.NextChangeOrderNumber(ctx, tx, opts.ProjectID)
	if err != nil {
		return domain.ChangeOrder{}, err
	}
	if err := e.Repo.InsertChangeOrder(ctx, tx, co); err != nil {
		return domain.ChangeOrder{}, err
	}
	if err := e.Events.Append(ctx, tx, events.TypeChangeOrderCreated, co.ProjectID, "change_order", co.ID, opts.ActorID, events.EventPayload{
		"number":       co.Number,
		"title":        co.Title,
		"amount_cents": co.AmountCents,
	}); err != nil {
		return domain.ChangeOrder{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.ChangeOrder{}, err
	}
	return co, nil
}

// ensureChangeOrderTransition validates the pricing/approval ladder.
// Rejected change orders may be reworked and proposed again.
func ensureChangeOrderTransition(oldStatus, newStatus string, force bool) error {
	if force {
		return nil
	}
	switch oldStatus {
	case "contemplated":
		if newStatus == "potential" || newStatus == "cancelled" {
			return nil
		}
	case "potential":
		if newStatus == "proposed" || newStatus == "cancelled" {
			return nil
		}
	case "proposed":
		if newStatus == "approved" || newStatus == "rejected" || newStatus == "cancelled" {
			return nil
		}
	case "approved":
		if newStatus == "invoiced" {
			return nil
		}
	case "rejected":
		if newStatus == "proposed" || newStatus == "cancelled" {
			return nil
		}
	}
	return fmt.Errorf("invalid change order status transition %s -> %s", oldStatus, newStatus)
}

// SetChangeOrderStatus advances a change order along its ladder,
// stamping approved_at when it reaches approved.
func (e Engine) SetChangeOrderStatus(ctx context.Context, id, status, actorID string, force bool) (domain.ChangeOrder, error) {
	co, err := e.Repo.GetChangeOrder(ctx, id)
	if err != nil {
		return co, err
	}
	from := co.Status
	if err := ensureChangeOrderTransition(co.Status, status, force); err != nil {
		return co, err
	}
	co.Status = status
	now := e.nowRFC3339()
	if status == "approved" {
		co.ApprovedAt = &now
	}
	co.UpdatedAt = now

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return co, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateChangeOrder(ctx, tx, co); err != nil {
		return co, err
	}
	if err := e.Events.Append(ctx, tx, events.TypeChangeOrderStatus, co.ProjectID, "change_order", co.ID, actorID, events.EventPayload{
		"from_status": from,
		"to_status":   co.Status,
	}); err != nil {
		return co, err
	}
	if err := tx.Commit(); err != nil {
		return co, err
	}
	return co, nil
}

// CostItemCreateOptions are parameters for recording a cost item.
type CostItemCreateOptions struct {
	ProjectID     string
	ChangeOrderID string
	Description   string
	AmountCents   int64
	Category      string
	ActorID       string
}

var validCostCategories = map[string]bool{
	"labor": true, "material": true, "equipment": true, "subcontract": true, "other": true,
}

// AddCostItem records a cost item, optionally attached to a change order
// in the same project.
func (e Engine) AddCostItem(ctx context.Context, opts CostItemCreateOptions) (domain.CostItem, error) {
	if opts.ProjectID == "" {
		return domain.CostItem{}, errors.New("project is required")
	}
	if opts.Description == "" {
		return domain.CostItem{}, errors.New("description is required")
	}
	if opts.Category == "" {
		opts.Category = "other"
	}
	if !validCostCategories[opts.Category] {
		return domain.CostItem{}, fmt.Errorf("invalid cost category %s", opts.Category)
	}
	if _, err := e.Repo.GetProject(ctx, opts.ProjectID); err != nil {
		return domain.CostItem{}, err
	}
	if opts.ChangeOrderID != "" {
		co, err := e.Repo.GetChangeOrder(ctx, opts.ChangeOrderID)
		if err != nil {
			return domain.CostItem{}, err
		}
		if co.ProjectID != opts.ProjectID {
			return domain.CostItem{}, errors.New("change order in different project")
		}
	}
	item := domain.CostItem{
		ID:            uuid.New().String(),
		ProjectID:     opts.ProjectID,
		ChangeOrderID: optionalString(opts.ChangeOrderID),
		Description:   opts.Description,
		AmountCents:   opts.AmountCents,
		Category:      opts.Category,
		CreatedBy:     opts.ActorID,
		CreatedAt:     e.now().UTC().Format(time.RFC3339),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.CostItem{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertCostItem(ctx, tx, item); err != nil {
		return domain.CostItem{}, err
	}
	if err := e.Events.Append(ctx, tx, events.TypeCostItemAdded, item.ProjectID, "cost_item", item.ID, opts.ActorID, events.EventPayload{
		"category":     item.Category,
		"amount_cents": item.AmountCents,
	}); err != nil {
		return domain.CostItem{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.CostItem{}, err
	}
	return item, nil
}
