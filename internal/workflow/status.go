// Package workflow holds the pure status logic shared by the engine, the
// API layer and the CLI: status taxonomies, ball-in-court resolution and
// SLA arithmetic. Nothing here touches the database or the wall clock;
// callers pass time in explicitly.
package workflow

// DocumentType identifies which status taxonomy applies.
type DocumentType string

const (
	DocRFI         DocumentType = "rfi"
	DocChangeOrder DocumentType = "change_order"
	DocSubmittal   DocumentType = "submittal"
	DocDailyReport DocumentType = "daily_report"
)

type RFIStatus string

const (
	RFIDraft       RFIStatus = "draft"
	RFISubmitted   RFIStatus = "submitted"
	RFIUnderReview RFIStatus = "under_review"
	RFIAnswered    RFIStatus = "answered"
	RFIClosed      RFIStatus = "closed"
	RFICancelled   RFIStatus = "cancelled"
)

type ChangeOrderStatus string

const (
	COContemplated ChangeOrderStatus = "contemplated"
	COPotential    ChangeOrderStatus = "potential"
	COProposed     ChangeOrderStatus = "proposed"
	COApproved     ChangeOrderStatus = "approved"
	CORejected     ChangeOrderStatus = "rejected"
	COCancelled    ChangeOrderStatus = "cancelled"
	COInvoiced     ChangeOrderStatus = "invoiced"
)

type SubmittalStatus string

const (
	SubDraft           SubmittalStatus = "draft"
	SubSubmitted       SubmittalStatus = "submitted"
	SubGCReview        SubmittalStatus = "gc_review"
	SubAEReview        SubmittalStatus = "ae_review"
	SubOwnerReview     SubmittalStatus = "owner_review"
	SubApproved        SubmittalStatus = "approved"
	SubApprovedAsNoted SubmittalStatus = "approved_as_noted"
	SubReviseResubmit  SubmittalStatus = "revise_resubmit"
	SubRejected        SubmittalStatus = "rejected"
	SubCancelled       SubmittalStatus = "cancelled"
)

type DailyReportStatus string

const (
	DailyDraft     DailyReportStatus = "draft"
	DailySubmitted DailyReportStatus = "submitted"
	DailyApproved  DailyReportStatus = "approved"
	DailyArchived  DailyReportStatus = "archived"
)

// UnknownLabel is returned for any status value outside the taxonomy.
// Unrecognized statuses show up from mid-migration rows or manual edits
// and must render, not crash.
const UnknownLabel = "Unknown"

var rfiLabels = map[RFIStatus]string{
	RFIDraft:       "Draft",
	RFISubmitted:   "Submitted",
	RFIUnderReview: "Under Review",
	RFIAnswered:    "Answered",
	RFIClosed:      "Closed",
	RFICancelled:   "Cancelled",
}

var changeOrderLabels = map[ChangeOrderStatus]string{
	COContemplated: "Contemplated",
	COPotential:    "Potential CO",
	COProposed:     "Proposed",
	COApproved:     "Approved",
	CORejected:     "Rejected",
	COCancelled:    "Cancelled",
	COInvoiced:     "Invoiced",
}

var submittalLabels = map[SubmittalStatus]string{
	SubDraft:           "Draft",
	SubSubmitted:       "Submitted",
	SubGCReview:        "GC Review",
	SubAEReview:        "A/E Review",
	SubOwnerReview:     "Owner Review",
	SubApproved:        "Approved",
	SubApprovedAsNoted: "Approved as Noted",
	SubReviseResubmit:  "Revise & Resubmit",
	SubRejected:        "Rejected",
	SubCancelled:       "Cancelled",
}

var dailyReportLabels = map[DailyReportStatus]string{
	DailyDraft:     "Draft",
	DailySubmitted: "Submitted",
	DailyApproved:  "Approved",
	DailyArchived:  "Archived",
}

// Label returns the display label for a raw status value of the given
// document type. It never fails: unknown document types and unknown
// statuses both fall back to UnknownLabel.
func Label(doc DocumentType, status string) string {
	var label string
	var ok bool
	switch doc {
	case DocRFI:
		label, ok = rfiLabels[RFIStatus(status)]
	case DocChangeOrder:
		label, ok = changeOrderLabels[ChangeOrderStatus(status)]
	case DocSubmittal:
		label, ok = submittalLabels[SubmittalStatus(status)]
	case DocDailyReport:
		label, ok = dailyReportLabels[DailyReportStatus(status)]
	}
	if !ok {
		return UnknownLabel
	}
	return label
}

// ColorToken is a semantic display hint, not a rendering instruction.
// The CLI maps tokens to terminal colors; API clients get the raw token.
type ColorToken string

const (
	ColorGray   ColorToken = "gray"
	ColorBlue   ColorToken = "blue"
	ColorYellow ColorToken = "yellow"
	ColorGreen  ColorToken = "green"
	ColorRed    ColorToken = "red"
)

// Color maps an RFI status to its color token. Unknown statuses are gray.
func Color(status string) ColorToken {
	switch RFIStatus(status) {
	case RFIDraft:
		return ColorGray
	case RFISubmitted:
		return ColorBlue
	case RFIUnderReview:
		return ColorYellow
	case RFIAnswered:
		return ColorGreen
	case RFIClosed:
		return ColorGray
	case RFICancelled:
		return ColorRed
	default:
		return ColorGray
	}
}

// ChangeOrderEmphasis maps a change order status to its visual emphasis
// token, using the same token vocabulary as Color.
func ChangeOrderEmphasis(status string) ColorToken {
	switch ChangeOrderStatus(status) {
	case COContemplated:
		return ColorGray
	case COPotential:
		return ColorYellow
	case COProposed:
		return ColorBlue
	case COApproved, COInvoiced:
		return ColorGreen
	case CORejected:
		return ColorRed
	case COCancelled:
		return ColorGray
	default:
		return ColorGray
	}
}

// RFITerminal reports whether a status exits the workflow. Terminal
// statuses are absorbing: no transition leaves them and the SLA clock
// stops ticking.
func RFITerminal(status string) bool {
	s := RFIStatus(status)
	return s == RFIClosed || s == RFICancelled
}
