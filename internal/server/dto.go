package server

import (
	"encoding/json"
	"time"

	"sitedesk/internal/config"
	"sitedesk/internal/domain"
	"sitedesk/internal/engine"
	"sitedesk/internal/workflow"
)

// Request payloads

type CreateProjectRequest struct {
	ID      string  `json:"id,omitempty"`
	OrgID   string  `json:"org_id"`
	OrgName *string `json:"org_name,omitempty"`
	Number  *string `json:"number,omitempty"`
	Name    string  `json:"name"`
	Address *string `json:"address,omitempty"`
}

type CreateRFIRequest struct {
	ID            *string `json:"id,omitempty"`
	Subject       string  `json:"subject"`
	Question      string  `json:"question"`
	Priority      *string `json:"priority,omitempty" enum:"low,normal,high,critical"`
	AssignedToID  *string `json:"assigned_to_id,omitempty"`
	AssignedToOrg *string `json:"assigned_to_org,omitempty"`
}

type SubmitRFIRequest struct {
	ResponseDueDate *time.Time `json:"response_due_date,omitempty" format:"date-time"`
}

type AnswerRFIRequest struct {
	Answer string `json:"answer"`
}

type ReassignRFIRequest struct {
	AssignedToID  *string `json:"assigned_to_id,omitempty"`
	AssignedToOrg *string `json:"assigned_to_org,omitempty"`
}

type CreateChangeOrderRequest struct {
	ID                 *string `json:"id,omitempty"`
	Title              string  `json:"title"`
	Description        *string `json:"description,omitempty"`
	AmountCents        int64   `json:"amount_cents"`
	ScheduleImpactDays int     `json:"schedule_impact_days,omitempty"`
}

type SetChangeOrderStatusRequest struct {
	Status string `json:"status" enum:"contemplated,potential,proposed,approved,rejected,cancelled,invoiced"`
}

type CreateSubmittalRequest struct {
	ID          *string `json:"id,omitempty"`
	Title       string  `json:"title"`
	SpecSection *string `json:"spec_section,omitempty"`
	DueDate     *string `json:"due_date,omitempty" format:"date-time"`
}

type SetSubmittalStatusRequest struct {
	Status      string  `json:"status" enum:"submitted,gc_review,ae_review,owner_review,approved,approved_as_noted,revise_resubmit,rejected,cancelled"`
	ReviewerOrg *string `json:"reviewer_org,omitempty"`
}

type CreateDailyReportRequest struct {
	ReportDate    string  `json:"report_date" format:"date"`
	Weather       *string `json:"weather,omitempty"`
	CrewCount     int     `json:"crew_count,omitempty"`
	WorkPerformed *string `json:"work_performed,omitempty"`
}

type SetDailyReportStatusRequest struct {
	Status string `json:"status" enum:"draft,submitted,approved,archived"`
}

type CreateCostItemRequest struct {
	ChangeOrderID *string `json:"change_order_id,omitempty"`
	Description   string  `json:"description"`
	AmountCents   int64   `json:"amount_cents"`
	Category      string  `json:"category" enum:"labor,material,equipment,subcontract,other"`
}

type RoleChangeRequest struct {
	ActorID string `json:"actor_id"`
	RoleID  string `json:"role_id"`
}

type DevLoginRequest struct {
	ActorID string   `json:"actor_id"`
	OrgID   string   `json:"org_id"`
	Roles   []string `json:"roles,omitempty"`
	Scopes  []string `json:"scopes,omitempty"`
}

type DevLoginResponse struct {
	Token string `json:"token"`
}

// Response payloads

type OrgResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type ProjectResponse struct {
	ID        string `json:"id"`
	OrgID     string `json:"org_id"`
	Number    string `json:"number,omitempty"`
	Name      string `json:"name"`
	Status    string `json:"status" enum:"active,archived"`
	Address   string `json:"address,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type BallInCourtResponse struct {
	UserID          string `json:"user_id,omitempty"`
	OrgID           string `json:"org_id,omitempty"`
	SuggestedAction string `json:"suggested_action"`
	IsBlocked       bool   `json:"is_blocked"`
}

type RFIResponse struct {
	ID              string              `json:"id"`
	ProjectID       string              `json:"project_id"`
	Number          int                 `json:"number"`
	Subject         string              `json:"subject"`
	Question        string              `json:"question"`
	Answer          string              `json:"answer,omitempty"`
	Status          string              `json:"status" enum:"draft,submitted,under_review,answered,closed,cancelled"`
	StatusLabel     string              `json:"status_label"`
	Priority        string              `json:"priority" enum:"low,normal,high,critical"`
	CreatedBy       string              `json:"created_by"`
	AssignedToID    *string             `json:"assigned_to_id,omitempty"`
	AssignedToOrg   *string             `json:"assigned_to_org,omitempty"`
	SubmittedAt     *time.Time          `json:"submitted_at,omitempty"`
	ResponseDueDate *time.Time          `json:"response_due_date,omitempty"`
	AnsweredAt      *time.Time          `json:"answered_at,omitempty"`
	ClosedAt        *time.Time          `json:"closed_at,omitempty"`
	BallInCourt     BallInCourtResponse `json:"ball_in_court"`
	CreatedAt       string              `json:"created_at" format:"date-time"`
	UpdatedAt       string              `json:"updated_at" format:"date-time"`
}

type ChangeOrderResponse struct {
	ID                 string  `json:"id"`
	ProjectID          string  `json:"project_id"`
	Number             int     `json:"number"`
	Title              string  `json:"title"`
	Description        string  `json:"description,omitempty"`
	AmountCents        int64   `json:"amount_cents"`
	ScheduleImpactDays int     `json:"schedule_impact_days"`
	Status             string  `json:"status" enum:"contemplated,potential,proposed,approved,rejected,cancelled,invoiced"`
	StatusLabel        string  `json:"status_label"`
	CreatedBy          string  `json:"created_by"`
	ApprovedAt         *string `json:"approved_at,omitempty" format:"date-time"`
	CreatedAt          string  `json:"created_at" format:"date-time"`
	UpdatedAt          string  `json:"updated_at" format:"date-time"`
}

type SubmittalResponse struct {
	ID                 string  `json:"id"`
	ProjectID          string  `json:"project_id"`
	Number             int     `json:"number"`
	Revision           int     `json:"revision"`
	Title              string  `json:"title"`
	SpecSection        string  `json:"spec_section,omitempty"`
	Status             string  `json:"status" enum:"draft,submitted,gc_review,ae_review,owner_review,approved,approved_as_noted,revise_resubmit,rejected,cancelled"`
	StatusLabel        string  `json:"status_label"`
	CurrentReviewerOrg *string `json:"current_reviewer_org,omitempty"`
	DueDate            *string `json:"due_date,omitempty" format:"date-time"`
	CreatedBy          string  `json:"created_by"`
	CreatedAt          string  `json:"created_at" format:"date-time"`
	UpdatedAt          string  `json:"updated_at" format:"date-time"`
}

type DailyReportResponse struct {
	ID            string  `json:"id"`
	ProjectID     string  `json:"project_id"`
	ReportDate    string  `json:"report_date" format:"date"`
	Weather       string  `json:"weather,omitempty"`
	CrewCount     int     `json:"crew_count"`
	WorkPerformed string  `json:"work_performed,omitempty"`
	Status        string  `json:"status" enum:"draft,submitted,approved,archived"`
	StatusLabel   string  `json:"status_label"`
	CreatedBy     string  `json:"created_by"`
	ApprovedBy    *string `json:"approved_by,omitempty"`
	CreatedAt     string  `json:"created_at" format:"date-time"`
	UpdatedAt     string  `json:"updated_at" format:"date-time"`
}

type CostItemResponse struct {
	ID            string  `json:"id"`
	ProjectID     string  `json:"project_id"`
	ChangeOrderID *string `json:"change_order_id,omitempty"`
	Description   string  `json:"description"`
	AmountCents   int64   `json:"amount_cents"`
	Category      string  `json:"category" enum:"labor,material,equipment,subcontract,other"`
	CreatedBy     string  `json:"created_by"`
	CreatedAt     string  `json:"created_at" format:"date-time"`
}

type CourtEntryResponse struct {
	RFI          RFIResponse `json:"rfi"`
	Overdue      bool        `json:"overdue"`
	DaysOverdue  int         `json:"days_overdue"`
	DaysUntilDue *int        `json:"days_until_due,omitempty"`
}

type RFISLAMetricsResponse struct {
	ByStatus             map[string]int `json:"by_status"`
	OpenOverdue          int            `json:"open_overdue"`
	ComplianceTotal      int            `json:"compliance_total"`
	ComplianceCompliant  int            `json:"compliance_compliant"`
	CompliancePercentage int            `json:"compliance_percentage"`
	AverageResponseHours *float64       `json:"average_response_hours,omitempty"`
}

type CostSummaryResponse struct {
	ApprovedChangeOrderCents int64 `json:"approved_change_order_cents"`
	CostItemCents            int64 `json:"cost_item_cents"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	ProjectID  string         `json:"project_id,omitempty"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

type WhoAmIResponse struct {
	ActorID     string   `json:"actor_id"`
	OrgID       string   `json:"org_id,omitempty"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

type ProjectConfigResponse struct {
	Project struct {
		ID   string `json:"id"`
		Kind string `json:"kind"`
	} `json:"project"`
	SLA struct {
		ResponseDays map[string]int `json:"response_days"`
	} `json:"sla"`
	Numbering struct {
		RFIPrefix         string `json:"rfi_prefix"`
		ChangeOrderPrefix string `json:"change_order_prefix"`
		SubmittalPrefix   string `json:"submittal_prefix"`
	} `json:"numbering"`
}

type paginatedRFIs struct {
	Items      []RFIResponse `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

type paginatedChangeOrders struct {
	Items      []ChangeOrderResponse `json:"items"`
	NextCursor string                `json:"next_cursor,omitempty"`
}

type paginatedSubmittals struct {
	Items      []SubmittalResponse `json:"items"`
	NextCursor string              `json:"next_cursor,omitempty"`
}

type paginatedDailyReports struct {
	Items      []DailyReportResponse `json:"items"`
	NextCursor string                `json:"next_cursor,omitempty"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// Conversion helpers

func projectResponse(p domain.Project) ProjectResponse {
	return ProjectResponse(p)
}

func rfiResponse(r domain.RFI) RFIResponse {
	court := workflow.Resolve(r)
	return RFIResponse{
		ID:              r.ID,
		ProjectID:       r.ProjectID,
		Number:          r.Number,
		Subject:         r.Subject,
		Question:        r.Question,
		Answer:          r.Answer,
		Status:          r.Status,
		StatusLabel:     workflow.Label(workflow.DocRFI, r.Status),
		Priority:        r.Priority,
		CreatedBy:       r.CreatedBy,
		AssignedToID:    r.AssignedToID,
		AssignedToOrg:   r.AssignedToOrg,
		SubmittedAt:     r.SubmittedAt,
		ResponseDueDate: r.ResponseDueDate,
		AnsweredAt:      r.AnsweredAt,
		ClosedAt:        r.ClosedAt,
		BallInCourt: BallInCourtResponse{
			UserID:          court.UserID,
			OrgID:           court.OrgID,
			SuggestedAction: court.SuggestedAction,
			IsBlocked:       court.IsBlocked,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func changeOrderResponse(co domain.ChangeOrder) ChangeOrderResponse {
	return ChangeOrderResponse{
		ID:                 co.ID,
		ProjectID:          co.ProjectID,
		Number:             co.Number,
		Title:              co.Title,
		Description:        co.Description,
		AmountCents:        co.AmountCents,
		ScheduleImpactDays: co.ScheduleImpactDays,
		Status:             co.Status,
		StatusLabel:        workflow.Label(workflow.DocChangeOrder, co.Status),
		CreatedBy:          co.CreatedBy,
		ApprovedAt:         co.ApprovedAt,
		CreatedAt:          co.CreatedAt,
		UpdatedAt:          co.UpdatedAt,
	}
}

func submittalResponse(s domain.Submittal) SubmittalResponse {
	return SubmittalResponse{
		ID:                 s.ID,
		ProjectID:          s.ProjectID,
		Number:             s.Number,
		Revision:           s.Revision,
		Title:              s.Title,
		SpecSection:        s.SpecSection,
		Status:             s.Status,
		StatusLabel:        workflow.Label(workflow.DocSubmittal, s.Status),
		CurrentReviewerOrg: s.CurrentReviewerOrg,
		DueDate:            s.DueDate,
		CreatedBy:          s.CreatedBy,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

func dailyReportResponse(d domain.DailyReport) DailyReportResponse {
	return DailyReportResponse{
		ID:            d.ID,
		ProjectID:     d.ProjectID,
		ReportDate:    d.ReportDate,
		Weather:       d.Weather,
		CrewCount:     d.CrewCount,
		WorkPerformed: d.WorkPerformed,
		Status:        d.Status,
		StatusLabel:   workflow.Label(workflow.DocDailyReport, d.Status),
		CreatedBy:     d.CreatedBy,
		ApprovedBy:    d.ApprovedBy,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

func costItemResponse(c domain.CostItem) CostItemResponse {
	return CostItemResponse(c)
}

func courtEntryResponse(entry engine.CourtEntry) CourtEntryResponse {
	return CourtEntryResponse{
		RFI:          rfiResponse(entry.RFI),
		Overdue:      entry.Overdue,
		DaysOverdue:  entry.DaysOverdue,
		DaysUntilDue: entry.DaysUntilDue,
	}
}

func metricsResponse(m engine.RFISLAMetrics) RFISLAMetricsResponse {
	return RFISLAMetricsResponse{
		ByStatus:             m.ByStatus,
		OpenOverdue:          m.OpenOverdue,
		ComplianceTotal:      m.Compliance.Total,
		ComplianceCompliant:  m.Compliance.Compliant,
		CompliancePercentage: m.Compliance.Percentage,
		AverageResponseHours: m.AverageResponseHours,
	}
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		ProjectID:  e.ProjectID,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		ActorID:    e.ActorID,
		Payload:    decodeJSONMap(strPtr(e.Payload)),
	}
}

func configResponse(cfg *config.Config) ProjectConfigResponse {
	var res ProjectConfigResponse
	res.Project.ID = cfg.Project.ID
	res.Project.Kind = cfg.Project.Kind
	res.SLA.ResponseDays = cfg.SLA.ResponseDays
	res.Numbering.RFIPrefix = cfg.Numbering.RFIPrefix
	res.Numbering.ChangeOrderPrefix = cfg.Numbering.ChangeOrderPrefix
	res.Numbering.SubmittalPrefix = cfg.Numbering.SubmittalPrefix
	return res
}

// JSON helpers

func decodeJSONMap(raw *string) map[string]any {
	if raw == nil || *raw == "" {
		return nil
	}
	var tmp any
	if err := json.Unmarshal([]byte(*raw), &tmp); err != nil {
		return nil
	}
	if obj, ok := tmp.(map[string]any); ok {
		return obj
	}
	return nil
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

func strPtr(in string) *string {
	return &in
}
