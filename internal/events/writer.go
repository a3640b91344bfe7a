package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Event types emitted by the engine. The audit log is append-only; new
// types may be added but existing strings are part of the wire contract
// consumed by webhooks.
const (
	TypeProjectCreated     = "project.created"
	TypeProjectUpdated     = "project.updated"
	TypeRFICreated         = "rfi.created"
	TypeRFISubmitted       = "rfi.submitted"
	TypeRFIReviewStarted   = "rfi.review_started"
	TypeRFIAnswered        = "rfi.answered"
	TypeRFIClosed          = "rfi.closed"
	TypeRFICancelled       = "rfi.cancelled"
	TypeRFIReassigned      = "rfi.reassigned"
	TypeChangeOrderCreated = "change_order.created"
	TypeChangeOrderStatus  = "change_order.status_changed"
	TypeSubmittalCreated   = "submittal.created"
	TypeSubmittalStatus    = "submittal.status_changed"
	TypeDailyReportCreated = "daily_report.created"
	TypeDailyReportStatus  = "daily_report.status_changed"
	TypeCostItemAdded      = "cost_item.added"
	TypeRoleGranted        = "rbac.role_granted"
	TypeRoleRevoked        = "rbac.role_revoked"
	TypeAPIKeyCreated      = "api_key.created"
	TypeAPIKeyDeleted      = "api_key.deleted"
)

type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type EventPayload map[string]any

// Append records an event inside the caller's transaction so the audit
// entry commits or rolls back with the change it describes.
func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType, projectID, entityKind, entityID, actorID string, payload EventPayload) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO events(ts,type,project_id,entity_kind,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?,?,?)`,
		ts, evtType, nullable(projectID), entityKind, nullable(entityID), actorID, string(data))
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
