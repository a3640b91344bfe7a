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

// RFICreateOptions are parameters for creating an RFI.
type RFICreateOptions struct {
	ID            string
	ProjectID     string
	Subject       string
	Question      string
	Priority      string
	AssignedToID  string
	AssignedToOrg string
	ActorID       string
}

// CreateRFI creates a draft RFI with the next sequential number for the
// project. The SLA clock does not start until the RFI is submitted.
func (e Engine) CreateRFI(ctx context.Context, opts RFICreateOptions) (domain.RFI, error) {
	if opts.ProjectID == "" {
		return domain.RFI{}, errors.New("project is required")
	}
	if opts.Subject == "" {
		return domain.RFI{}, errors.New("subject is required")
	}
	if opts.Question == "" {
		return domain.RFI{}, errors.New("question is required")
	}
	if opts.Priority == "" {
		opts.Priority = "normal"
	}
	if !validPriorities[opts.Priority] {
		return domain.RFI{}, fmt.Errorf("invalid priority %s", opts.Priority)
	}
	if _, err := e.Repo.GetProject(ctx, opts.ProjectID); err != nil {
		return domain.RFI{}, err
	}
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := e.nowRFC3339()
	rfi := domain.RFI{
		ID:            id,
		ProjectID:     opts.ProjectID,
		Subject:       opts.Subject,
		Question:      opts.Question,
		Status:        "draft",
		Priority:      opts.Priority,
		CreatedBy:     opts.ActorID,
		AssignedToID:  optionalString(opts.AssignedToID),
		AssignedToOrg: optionalString(opts.AssignedToOrg),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.RFI{}, err
	}
	defer tx.Rollback()

	rfi.Number, err = e.Repo.NextRFINumber(ctx, tx, opts.ProjectID)
	if err != nil {
		return domain.RFI{}, err
	}
	if err := e.Repo.InsertRFI(ctx, tx, rfi); err != nil {
		return domain.RFI{}, err
	}
	if err := e.Events.Append(ctx, tx, events.TypeRFICreated, rfi.ProjectID, "rfi", rfi.ID, opts.ActorID, events.EventPayload{
		"number":   rfi.Number,
		"subject":  rfi.Subject,
		"priority": rfi.Priority,
	}); err != nil {
		return domain.RFI{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.RFI{}, err
	}
	return rfi, nil
}

// ensureRFITransition validates a status change. The lifecycle is
// forward-only (draft -> submitted -> under_review -> answered ->
// closed) with cancel as the exit from any non-terminal status; an
// answered RFI keeps its answered_at, so it never moves backwards short
// of force. Terminal statuses have no exits short of force.
func ensureRFITransition(oldStatus, newStatus string, force bool) error {
	if force {
		return nil
	}
	switch oldStatus {
	case "draft":
		if newStatus == "submitted" || newStatus == "cancelled" {
			return nil
		}
	case "submitted":
		if newStatus == "under_review" || newStatus == "cancelled" {
			return nil
		}
	case "under_review":
		if newStatus == "answered" || newStatus == "cancelled" {
			return nil
		}
	case "answered":
		if newStatus == "closed" || newStatus == "cancelled" {
			return nil
		}
	}
	return fmt.Errorf("invalid rfi status transition %s -> %s", oldStatus, newStatus)
}

// SubmitRFI moves a draft to submitted, stamping submitted_at and, when
// no explicit due date was set, computing one from the project's SLA
// window for the RFI's priority.
func (e Engine) SubmitRFI(ctx context.Context, id, actorID string, dueDate *time.Time, force bool) (domain.RFI, error) {
	rfi, err := e.Repo.GetRFI(ctx, id)
	if err != nil {
		return rfi, err
	}
	if err := ensureRFITransition(rfi.Status, "submitted", force); err != nil {
		return rfi, err
	}
	cfg, err := e.projectConfig(ctx, rfi.ProjectID)
	if err != nil {
		return rfi, err
	}
	now := e.now().UTC()
	rfi.Status = "submitted"
	rfi.SubmittedAt = &now
	if dueDate != nil {
		d := dueDate.UTC()
		rfi.ResponseDueDate = &d
	} else if rfi.ResponseDueDate == nil {
		due := now.AddDate(0, 0, cfg.ResponseDaysFor(rfi.Priority))
		rfi.ResponseDueDate = &due
	}
	rfi.UpdatedAt = now.Format(time.RFC3339)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return rfi, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateRFI(ctx, tx, rfi); err != nil {
		return rfi, err
	}
	if err := e.Events.Append(ctx, tx, events.TypeRFISubmitted, rfi.ProjectID, "rfi", rfi.ID, actorID, events.EventPayload{
		"response_due_date": rfi.ResponseDueDate.Format(time.RFC3339),
	}); err != nil {
		return rfi, err
	}
	if err := tx.Commit(); err != nil {
		return rfi, err
	}
	return rfi, nil
}

// StartRFIReview moves a submitted RFI to under_review.
func (e Engine) StartRFIReview(ctx context.Context, id, actorID string, force bool) (domain.RFI, error) {
	return e.setRFIStatus(ctx, id, "under_review", actorID, events.TypeRFIReviewStarted, nil, force)
}

// AnswerRFI records the answer and stamps answered_at, which stops the
// SLA clock.
func (e Engine) AnswerRFI(ctx context.Context, id, answer, actorID string, force bool) (domain.RFI, error) {
	if answer == "" {
		return domain.RFI{}, errors.New("answer is required")
	}
	now := e.now().UTC()
	mutate := func(rfi *domain.RFI) {
		rfi.Answer = answer
		rfi.AnsweredAt = &now
	}
	return e.setRFIStatus(ctx, id, "answered", actorID, events.TypeRFIAnswered, mutate, force)
}

// CloseRFI closes an answered RFI.
func (e Engine) CloseRFI(ctx context.Context, id, actorID string, force bool) (domain.RFI, error) {
	now := e.now().UTC()
	mutate := func(rfi *domain.RFI) {
		rfi.ClosedAt = &now
	}
	return e.setRFIStatus(ctx, id, "closed", actorID, events.TypeRFIClosed, mutate, force)
}

// CancelRFI cancels an RFI from any non-terminal status.
func (e Engine) CancelRFI(ctx context.Context, id, actorID string, force bool) (domain.RFI, error) {
	return e.setRFIStatus(ctx, id, "cancelled", actorID, events.TypeRFICancelled, nil, force)
}

func (e Engine) setRFIStatus(ctx context.Context, id, status, actorID, eventType string, mutate func(*domain.RFI), force bool) (domain.RFI, error) {
	rfi, err := e.Repo.GetRFI(ctx, id)
	if err != nil {
		return rfi, err
	}
	from := rfi.Status
	if err := ensureRFITransition(rfi.Status, status, force); err != nil {
		return rfi, err
	}
	rfi.Status = status
	if mutate != nil {
		mutate(&rfi)
	}
	rfi.UpdatedAt = e.nowRFC3339()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return rfi, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateRFI(ctx, tx, rfi); err != nil {
		return rfi, err
	}
	if err := e.Events.Append(ctx, tx, eventType, rfi.ProjectID, "rfi", rfi.ID, actorID, events.EventPayload{
		"from_status": from,
		"to_status":   rfi.Status,
	}); err != nil {
		return rfi, err
	}
	if err := tx.Commit(); err != nil {
		return rfi, err
	}
	return rfi, nil
}

// ReassignRFI changes the assignee. Either a user, an org, or both can
// be set; passing empty strings for both clears the assignment.
func (e Engine) ReassignRFI(ctx context.Context, id string, assignedToID, assignedToOrg, actorID string) (domain.RFI, error) {
	rfi, err := e.Repo.GetRFI(ctx, id)
	if err != nil {
		return rfi, err
	}
	oldID, oldOrg := rfi.AssignedToID, rfi.AssignedToOrg
	rfi.AssignedToID = optionalString(assignedToID)
	rfi.AssignedToOrg = optionalString(assignedToOrg)
	rfi.UpdatedAt = e.nowRFC3339()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return rfi, err
	}
	defer tx.Rollback()
	if assignedToID != "" {
		if err := e.Repo.EnsureActor(ctx, tx, assignedToID, rfi.UpdatedAt); err != nil {
			return rfi, err
		}
	}
	if err := e.Repo.UpdateRFI(ctx, tx, rfi); err != nil {
		return rfi, err
	}
	if err := e.Events.Append(ctx, tx, events.TypeRFIReassigned, rfi.ProjectID, "rfi", rfi.ID, actorID, events.EventPayload{
		"old_assigned_to_id":  deref(oldID),
		"old_assigned_to_org": deref(oldOrg),
		"new_assigned_to_id":  assignedToID,
		"new_assigned_to_org": assignedToOrg,
	}); err != nil {
		return rfi, err
	}
	if err := tx.Commit(); err != nil {
		return rfi, err
	}
	return rfi, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
