package workflow

import "sitedesk/internal/domain"

// Suggested next actions per RFI status.
const (
	ActionCompleteAndSubmit = "Complete and submit RFI"
	ActionProvideResponse   = "Review and provide response"
	ActionReviewAndClose    = "Review answer and close RFI"
	ActionNone              = "No action required"
	ActionUnknown           = "Unknown status"
)

// BallInCourt names the party that owns the next action on an RFI.
// It is derived on every call and never persisted.
type BallInCourt struct {
	UserID          string `json:"user_id,omitempty"`
	OrgID           string `json:"org_id,omitempty"`
	SuggestedAction string `json:"suggested_action"`
	IsBlocked       bool   `json:"is_blocked"`
}

// Resolve determines who must act next on the RFI. It is total: every
// status value, including garbage, maps to a result. An in-review RFI
// with neither a user nor an org assigned is a legitimate business state,
// surfaced as IsBlocked rather than an error. Assignment to an org alone
// is enough to unblock; any member of that org can act.
func Resolve(r domain.RFI) BallInCourt {
	switch RFIStatus(r.Status) {
	case RFIDraft:
		return BallInCourt{UserID: r.CreatedBy, SuggestedAction: ActionCompleteAndSubmit}
	case RFISubmitted, RFIUnderReview:
		b := BallInCourt{SuggestedAction: ActionProvideResponse}
		if r.AssignedToID != nil {
			b.UserID = *r.AssignedToID
		}
		if r.AssignedToOrg != nil {
			b.OrgID = *r.AssignedToOrg
		}
		b.IsBlocked = b.UserID == "" && b.OrgID == ""
		return b
	case RFIAnswered:
		return BallInCourt{UserID: r.CreatedBy, SuggestedAction: ActionReviewAndClose}
	case RFIClosed, RFICancelled:
		return BallInCourt{SuggestedAction: ActionNone}
	default:
		return BallInCourt{SuggestedAction: ActionUnknown, IsBlocked: true}
	}
}

// IsHeldBy reports whether the ball is in the given user's court.
func IsHeldBy(r domain.RFI, userID string) bool {
	if userID == "" {
		return false
	}
	return Resolve(r).UserID == userID
}
