// Package intent turns free-form chat text into structured platform
// commands. Classification is an explicit ordered rule table: each rule is a
// predicate plus extractor, and the first match wins. Matching is heuristic
// phrase containment, not a grammar; ambiguous input resolves to the first
// anchor-proximate match and is best-effort by design.
package intent

// Kind discriminates classified intents.
type Kind string

const (
	KindSwitchRole        Kind = "switch_role"
	KindPublishProfile    Kind = "publish_profile"
	KindUnpublishProfile  Kind = "unpublish_profile"
	KindUpdateFields      Kind = "update_fields"
	KindListOrders        Kind = "list_orders"
	KindOrderStatus       Kind = "order_status"
	KindReleaseEscrow     Kind = "release_escrow"
	KindRateOrder         Kind = "rate_order"
	KindListNotifications Kind = "list_notifications"
	KindMuteNotifications Kind = "mute_notifications"
	KindReportUser        Kind = "report_user"
	KindSupportTicket     Kind = "support_ticket"
	KindRequestDocuments  Kind = "request_documents"
	KindSearchGigs        Kind = "search_gigs"
	KindSearchJobs        Kind = "search_jobs"
	KindListGroups        Kind = "list_groups"
	KindJoinGroup         Kind = "join_group"
	KindCreateGroup       Kind = "create_group"
	KindFindUsers         Kind = "find_users"
	KindDirectMessage     Kind = "direct_message"

	// KindClarify is returned when a rule matches the intent shape but a
	// required parameter is missing. Form names the suggested follow-up.
	KindClarify Kind = "clarify"

	// KindUnhandled falls through to the generic conversational path.
	KindUnhandled Kind = "unhandled"
)

// Follow-up form identifiers attached to clarify results.
const (
	FormRolePicker    = "role-picker"
	FormProfileFields = "profile-fields"
	FormOrderPicker   = "order-picker"
	FormReviewForm    = "review-form"
	FormGigSearch     = "gig-search"
	FormJobSearch     = "job-search"
	FormGroupName     = "group-name"
	FormUserSearch    = "user-search"
	FormReportForm    = "report-form"
)

// Intent is the classified result of one input line. Constructed
// transiently; never persisted.
type Intent struct {
	Kind Kind

	// OrderID is set for order-scoped intents (status, escrow, rating,
	// document requests).
	OrderID int

	// Status is the requested order status.
	Status string

	// Rating is the submitted star rating (1..5).
	Rating int

	// Role is the requested marketplace role.
	Role string

	// Query is the free-text search query (gigs, jobs, users).
	Query string

	// Target names a group or user referenced by the command.
	Target string

	// Updates carries the field updates extracted by the FieldMapper.
	Updates []FieldUpdate

	// Form is the suggested follow-up form for clarify results.
	Form string
}
