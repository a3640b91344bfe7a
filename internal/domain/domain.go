package domain

import "time"

type Org struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Project struct {
	ID        string `json:"id"`
	OrgID     string `json:"org_id"`
	Number    string `json:"number"`
	Name      string `json:"name"`
	Status    string `json:"status" enum:"active,archived"`
	Address   string `json:"address,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// RFI is a request for information. The workflow timestamps are parsed
// into instants at the repo boundary; a stored value that fails to parse
// comes back nil, same as absent.
type RFI struct {
	ID              string     `json:"id"`
	ProjectID       string     `json:"project_id"`
	Number          int        `json:"number"`
	Subject         string     `json:"subject"`
	Question        string     `json:"question"`
	Answer          string     `json:"answer,omitempty"`
	Status          string     `json:"status" enum:"draft,submitted,under_review,answered,closed,cancelled"`
	Priority        string     `json:"priority" enum:"low,normal,high,critical"`
	CreatedBy       string     `json:"created_by"`
	AssignedToID    *string    `json:"assigned_to_id,omitempty"`
	AssignedToOrg   *string    `json:"assigned_to_org,omitempty"`
	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`
	ResponseDueDate *time.Time `json:"response_due_date,omitempty"`
	AnsweredAt      *time.Time `json:"answered_at,omitempty"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
	CreatedAt       string     `json:"created_at" format:"date-time"`
	UpdatedAt       string     `json:"updated_at" format:"date-time"`
}

type ChangeOrder struct {
	ID                 string  `json:"id"`
	ProjectID          string  `json:"project_id"`
	Number             int     `json:"number"`
	Title              string  `json:"title"`
	Description        string  `json:"description,omitempty"`
	AmountCents        int64   `json:"amount_cents"`
	ScheduleImpactDays int     `json:"schedule_impact_days"`
	Status             string  `json:"status" enum:"contemplated,potential,proposed,approved,rejected,cancelled,invoiced"`
	CreatedBy          string  `json:"created_by"`
	ApprovedAt         *string `json:"approved_at,omitempty" format:"date-time"`
	CreatedAt          string  `json:"created_at" format:"date-time"`
	UpdatedAt          string  `json:"updated_at" format:"date-time"`
}

type Submittal struct {
	ID                 string  `json:"id"`
	ProjectID          string  `json:"project_id"`
	Number             int     `json:"number"`
	Revision           int     `json:"revision"`
	Title              string  `json:"title"`
	SpecSection        string  `json:"spec_section,omitempty"`
	Status             string  `json:"status" enum:"draft,submitted,gc_review,ae_review,owner_review,approved,approved_as_noted,revise_resubmit,rejected,cancelled"`
	CurrentReviewerOrg *string `json:"current_reviewer_org,omitempty"`
	DueDate            *string `json:"due_date,omitempty" format:"date-time"`
	CreatedBy          string  `json:"created_by"`
	CreatedAt          string  `json:"created_at" format:"date-time"`
	UpdatedAt          string  `json:"updated_at" format:"date-time"`
}

type DailyReport struct {
	ID            string  `json:"id"`
	ProjectID     string  `json:"project_id"`
	ReportDate    string  `json:"report_date" format:"date"`
	Weather       string  `json:"weather,omitempty"`
	CrewCount     int     `json:"crew_count"`
	WorkPerformed string  `json:"work_performed,omitempty"`
	Status        string  `json:"status" enum:"draft,submitted,approved,archived"`
	CreatedBy     string  `json:"created_by"`
	ApprovedBy    *string `json:"approved_by,omitempty"`
	CreatedAt     string  `json:"created_at" format:"date-time"`
	UpdatedAt     string  `json:"updated_at" format:"date-time"`
}

type CostItem struct {
	ID            string  `json:"id"`
	ProjectID     string  `json:"project_id"`
	ChangeOrderID *string `json:"change_order_id,omitempty"`
	Description   string  `json:"description"`
	AmountCents   int64   `json:"amount_cents"`
	Category      string  `json:"category" enum:"labor,material,equipment,subcontract,other"`
	CreatedBy     string  `json:"created_by"`
	CreatedAt     string  `json:"created_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	ProjectID  string `json:"project_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
