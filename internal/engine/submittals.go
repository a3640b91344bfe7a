package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"sitedesk/internal/domain"
	"sitedesk/internal/events"
)

// SubmittalCreateOptions are parameters for creating a submittal.
type SubmittalCreateOptions struct {
	ID          string
	ProjectID   string
	Title       string
	SpecSection string
	DueDate     *string
	ActorID     string
}

// CreateSubmittal creates revision 1 of a submittal in draft.
func (e Engine) CreateSubmittal(ctx context.Context, opts SubmittalCreateOptions) (domain.Submittal, error) {
	if opts.ProjectID == "" {
		return domain.Submittal{}, errors.New("project is required")
	}
	if opts.Title == "" {
		return domain.Submittal{}, errors.New("title is required")
	}
	if _, err := e.Repo.GetProject(ctx, opts.ProjectID); err != nil {
		return domain.Submittal{}, err
	}
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := e.nowRFC3339()
	s := domain.Submittal{
		ID:          id,
		ProjectID:   opts.ProjectID,
		Revision:    1,
		Title:       opts.Title,
		SpecSection: opts.SpecSection,
		Status:      "draft",
		DueDate:     opts.DueDate,
		CreatedBy:   opts.ActorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Submittal{}, err
	}
	defer tx.Rollback()
	s.Number, err = e.Repo.NextSubmittalNumber(ctx, tx, opts.ProjectID)
	if err != nil {
		return domain.Submittal{}, err
	}
	if err := e.Repo.InsertSubmittal(ctx, tx, s); err != nil {
		return domain.Submittal{}, err
	}
	if err := e.Events.Append(ctx, tx, events.TypeSubmittalCreated, s.ProjectID, "submittal", s.ID, opts.ActorID, events.EventPayload{
		"number":   s.Number,
		"revision": s.Revision,
		"title":    s.Title,
	}); err != nil {
		return domain.Submittal{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Submittal{}, err
	}
	return s, nil
}

// ensureSubmittalTransition validates the review chain. A reviewer at
// any hop can render a final disposition or pass the package along.
func ensureSubmittalTransition(oldStatus, newStatus string, force bool) error {
	if force {
		return nil
	}
	final := func(s string) bool {
		return s == "approved" || s == "approved_as_noted" || s == "revise_resubmit" || s == "rejected"
	}
	switch oldStatus {
	case "draft":
		if newStatus == "submitted" || newStatus == "cancelled" {
			return nil
		}
	case "submitted":
		if newStatus == "gc_review" || newStatus == "cancelled" {
			return nil
		}
	case "gc_review":
		if newStatus == "ae_review" || final(newStatus) {
			return nil
		}
	case "ae_review":
		if newStatus == "owner_review" || final(newStatus) {
			return nil
		}
	case "owner_review":
		if final(newStatus) {
			return nil
		}
	}
	return fmt.Errorf("invalid submittal status transition %s -> %s", oldStatus, newStatus)
}

func submittalReviewStatus(status string) bool {
	return status == "gc_review" || status == "ae_review" || status == "owner_review"
}

// SetSubmittalStatus moves a submittal along its review chain. The
// reviewer org is recorded while a review hop holds the package and
// cleared once a disposition is rendered.
func (e Engine) SetSubmittalStatus(ctx context.Context, id, status, reviewerOrg, actorID string, force bool) (domain.Submittal, error) {
	s, err := e.Repo.GetSubmittal(ctx, id)
	if err != nil {
		return s, err
	}
	from := s.Status
	if err := ensureSubmittalTransition(s.Status, status, force); err != nil {
		return s, err
	}
	s.Status = status
	if submittalReviewStatus(status) {
		if reviewerOrg != "" {
			s.CurrentReviewerOrg = &reviewerOrg
		}
	} else {
		s.CurrentReviewerOrg = nil
	}
	s.UpdatedAt = e.nowRFC3339()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return s, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateSubmittal(ctx, tx, s); err != nil {
		return s, err
	}
	if err := e.Events.Append(ctx, tx, events.TypeSubmittalStatus, s.ProjectID, "submittal", s.ID, actorID, events.EventPayload{
		"from_status": from,
		"to_status":   s.Status,
	}); err != nil {
		return s, err
	}
	if err := tx.Commit(); err != nil {
		return s, err
	}
	return s, nil
}

// ReviseSubmittal opens the next revision of a submittal that came back
// revise_resubmit. The new revision keeps the number and starts in
// draft.
func (e Engine) ReviseSubmittal(ctx context.Context, id, actorID string) (domain.Submittal, error) {
	prev, err := e.Repo.GetSubmittal(ctx, id)
	if err != nil {
		return prev, err
	}
	if prev.Status != "revise_resubmit" {
		return prev, fmt.Errorf("submittal %s is %s, not revise_resubmit", id, prev.Status)
	}
	now := e.nowRFC3339()
	next := domain.Submittal{
		ID:          uuid.New().String(),
		ProjectID:   prev.ProjectID,
		Number:      prev.Number,
		Revision:    prev.Revision + 1,
		Title:       prev.Title,
		SpecSection: prev.SpecSection,
		Status:      "draft",
		DueDate:     prev.DueDate,
		CreatedBy:   actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return next, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertSubmittal(ctx, tx, next); err != nil {
		return next, err
	}
	if err := e.Events.Append(ctx, tx, events.TypeSubmittalCreated, next.ProjectID, "submittal", next.ID, actorID, events.EventPayload{
		"number":            next.Number,
		"revision":          next.Revision,
		"supersedes":        prev.ID,
		"previous_revision": prev.Revision,
	}); err != nil {
		return next, err
	}
	if err := tx.Commit(); err != nil {
		return next, err
	}
	return next, nil
}
