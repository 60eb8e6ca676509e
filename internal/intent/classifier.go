package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// rule is one entry in the ordered classification table. Priority is the
// declaration order in newRules: the first predicate that matches wins.
type rule struct {
	name    string
	match   func(line string) bool
	extract func(line string) Intent
}

// Classifier walks the rule table over normalized input lines.
type Classifier struct {
	rules []rule
}

// NewClassifier builds a classifier with the default rule table.
func NewClassifier() *Classifier {
	return &Classifier{rules: newRules()}
}

// Classify attempts each rule in priority order and returns the first
// match. Unmatched input yields KindUnhandled, which the caller routes to
// the generic conversational fallback.
func (c *Classifier) Classify(input string) Intent {
	line := strings.ToLower(strings.TrimSpace(input))
	if line == "" {
		return Intent{Kind: KindUnhandled}
	}
	for _, r := range c.rules {
		if r.match(line) {
			return r.extract(line)
		}
	}
	return Intent{Kind: KindUnhandled}
}

// Rules exposes the rule names in priority order, for auditing coverage.
func (c *Classifier) Rules() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.name
	}
	return names
}

// Order statuses the backend accepts.
var orderStatuses = []string{
	"delivered", "completed", "in progress", "accepted",
	"cancelled", "canceled", "disputed", "started",
}

var (
	anchoredNumber = regexp.MustCompile(`(?:order|#)\s*#?\s*(\d+)`)
	looseNumber    = regexp.MustCompile(`\b(\d{2,})\b`)
	anyNumber      = regexp.MustCompile(`\b(\d+)\b`)
	starRating     = regexp.MustCompile(`(\d)\s*(?:star|stars|\*)`)
)

// extractOrderID pulls an order id out of a line: first an integer
// immediately following an "order"/"#" anchor, else the first token with
// two or more digits. Lossy on input containing unrelated numbers; this is
// documented best-effort behavior.
func extractOrderID(line string) (int, bool) {
	if m := anchoredNumber.FindStringSubmatch(line); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n, true
		}
	}
	if m := looseNumber.FindStringSubmatch(line); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n, true
		}
	}
	return 0, false
}

func extractRating(line string) (int, bool) {
	if m := starRating.FindStringSubmatch(line); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= 5 {
			return n, true
		}
	}
	return 0, false
}

func containsAny(line string, phrases ...string) bool {
	for _, p := range phrases {
		if strings.Contains(line, p) {
			return true
		}
	}
	return false
}

// trailing returns the text after the first occurrence of any marker.
func trailing(line string, markers ...string) string {
	for _, marker := range markers {
		if idx := strings.Index(line, marker); idx >= 0 {
			return strings.TrimSpace(line[idx+len(marker):])
		}
	}
	return ""
}

func newRules() []rule {
	return []rule{
		{
			name: "switch_role",
			match: func(line string) bool {
				return containsAny(line, "switch to", "switch role", "become a", "act as")
			},
			extract: func(line string) Intent {
				switch {
				case containsAny(line, "freelancer", "seller"):
					return Intent{Kind: KindSwitchRole, Role: "freelancer"}
				case containsAny(line, "client", "buyer"):
					return Intent{Kind: KindSwitchRole, Role: "client"}
				}
				return Intent{Kind: KindClarify, Form: FormRolePicker}
			},
		},
		{
			name: "unpublish_profile",
			match: func(line string) bool {
				return containsAny(line, "unpublish", "hide my profile", "take my profile down")
			},
			extract: func(line string) Intent {
				return Intent{Kind: KindUnpublishProfile}
			},
		},
		{
			name: "publish_profile",
			match: func(line string) bool {
				return containsAny(line, "publish my profile", "publish profile", "make my profile public", "make my profile visible")
			},
			extract: func(line string) Intent {
				return Intent{Kind: KindPublishProfile}
			},
		},
		{
			// Field updates come before anything order- or rating-shaped:
			// "set hourly rate to 50" must not be read as a rating.
			name: "update_fields",
			match: func(line string) bool {
				if strings.Contains(line, "order") {
					return false
				}
				return len(MapFields(line)) > 0
			},
			extract: func(line string) Intent {
				return Intent{Kind: KindUpdateFields, Updates: MapFields(line)}
			},
		},
		{
			name: "update_fields_clarify",
			match: func(line string) bool {
				if strings.Contains(line, "order") {
					return false
				}
				if containsAny(line, "update my profile", "edit my profile", "change my profile") {
					return true
				}
				return LooksLikeFieldUpdate(line) && containsAny(line, "profile", "my ")
			},
			extract: func(line string) Intent {
				return Intent{Kind: KindClarify, Form: FormProfileFields}
			},
		},
		{
			// Ratings precede status changes: "rate freelancer for order 12,
			// 5 stars" mentions an order but is a review.
			name: "rate_order",
			match: func(line string) bool {
				return containsAny(line, "rate ", "rating", "review") || starRating.MatchString(line)
			},
			extract: func(line string) Intent {
				orderID, haveOrder := extractOrderID(line)
				rating, haveRating := extractRating(line)
				if !haveOrder || !haveRating {
					return Intent{Kind: KindClarify, Form: FormReviewForm}
				}
				return Intent{Kind: KindRateOrder, OrderID: orderID, Rating: rating}
			},
		},
		{
			name: "release_escrow",
			match: func(line string) bool {
				return containsAny(line, "escrow", "release payment", "release the payment")
			},
			extract: func(line string) Intent {
				orderID, ok := extractOrderID(line)
				if !ok {
					return Intent{Kind: KindClarify, Form: FormOrderPicker}
				}
				return Intent{Kind: KindReleaseEscrow, OrderID: orderID}
			},
		},
		{
			name: "request_documents",
			match: func(line string) bool {
				return containsAny(line, "upload document", "upload the document", "request document", "send the document", "request files")
			},
			extract: func(line string) Intent {
				orderID, ok := extractOrderID(line)
				if !ok {
					return Intent{Kind: KindClarify, Form: FormOrderPicker}
				}
				return Intent{Kind: KindRequestDocuments, OrderID: orderID}
			},
		},
		{
			name: "order_status",
			match: func(line string) bool {
				if !strings.Contains(line, "order") {
					return false
				}
				return containsAny(line, orderStatuses...)
			},
			extract: func(line string) Intent {
				orderID, ok := extractOrderID(line)
				if !ok {
					return Intent{Kind: KindClarify, Form: FormOrderPicker}
				}
				status := ""
				for _, s := range orderStatuses {
					if strings.Contains(line, s) {
						status = s
						break
					}
				}
				if status == "canceled" {
					status = "cancelled"
				}
				return Intent{Kind: KindOrderStatus, OrderID: orderID, Status: status}
			},
		},
		{
			name: "list_orders",
			match: func(line string) bool {
				return containsAny(line, "my orders", "list orders", "show orders", "show my orders", "orders")
			},
			extract: func(line string) Intent {
				return Intent{Kind: KindListOrders}
			},
		},
		{
			name: "mute_notifications",
			match: func(line string) bool {
				return strings.Contains(line, "notification") &&
					containsAny(line, "mute", "turn off", "silence", "stop")
			},
			extract: func(line string) Intent {
				return Intent{Kind: KindMuteNotifications}
			},
		},
		{
			name: "list_notifications",
			match: func(line string) bool {
				return containsAny(line, "notification", "my alerts")
			},
			extract: func(line string) Intent {
				return Intent{Kind: KindListNotifications}
			},
		},
		{
			name: "report_user",
			match: func(line string) bool {
				return containsAny(line, "report user", "report this user", "file a report", "report @")
			},
			extract: func(line string) Intent {
				target := trailing(line, "report user ", "report @")
				if target == "" {
					return Intent{Kind: KindClarify, Form: FormReportForm}
				}
				return Intent{Kind: KindReportUser, Target: target}
			},
		},
		{
			name: "support_ticket",
			match: func(line string) bool {
				return containsAny(line, "support ticket", "open a ticket", "contact support", "talk to support")
			},
			extract: func(line string) Intent {
				return Intent{Kind: KindSupportTicket, Query: strings.TrimSpace(line)}
			},
		},
		{
			name: "search_gigs",
			match: func(line string) bool {
				return containsAny(line, "find gigs", "search gigs", "gigs for", "find a gig", "search for gigs")
			},
			extract: func(line string) Intent {
				query := trailing(line, "gigs for ", "gigs about ", "gig for ")
				if query == "" {
					query = trailing(line, "find gigs ", "search gigs ")
				}
				if query == "" {
					return Intent{Kind: KindClarify, Form: FormGigSearch}
				}
				return Intent{Kind: KindSearchGigs, Query: query}
			},
		},
		{
			name: "search_jobs",
			match: func(line string) bool {
				return containsAny(line, "find jobs", "search jobs", "jobs for", "find a job", "search for jobs")
			},
			extract: func(line string) Intent {
				query := trailing(line, "jobs for ", "jobs about ", "job for ")
				if query == "" {
					query = trailing(line, "find jobs ", "search jobs ")
				}
				if query == "" {
					return Intent{Kind: KindClarify, Form: FormJobSearch}
				}
				return Intent{Kind: KindSearchJobs, Query: query}
			},
		},
		{
			name: "join_group",
			match: func(line string) bool {
				return strings.Contains(line, "join") && strings.Contains(line, "group")
			},
			extract: func(line string) Intent {
				target := trailing(line, "join group ", "join the group ", "join ")
				target = strings.TrimPrefix(target, "group ")
				if target == "" {
					return Intent{Kind: KindClarify, Form: FormGroupName}
				}
				return Intent{Kind: KindJoinGroup, Target: target}
			},
		},
		{
			name: "create_group",
			match: func(line string) bool {
				return containsAny(line, "create group", "create a group", "new group", "make a group")
			},
			extract: func(line string) Intent {
				target := trailing(line, "group called ", "group named ", "create group ", "new group ")
				if target == "" {
					return Intent{Kind: KindClarify, Form: FormGroupName}
				}
				return Intent{Kind: KindCreateGroup, Target: strings.Trim(target, `"'`)}
			},
		},
		{
			name: "list_groups",
			match: func(line string) bool {
				return strings.Contains(line, "group") &&
					containsAny(line, "list", "show", "find", "discover", "what groups")
			},
			extract: func(line string) Intent {
				return Intent{Kind: KindListGroups}
			},
		},
		{
			name: "find_users",
			match: func(line string) bool {
				return containsAny(line, "find user", "search user", "find users", "search users", "who is ")
			},
			extract: func(line string) Intent {
				query := trailing(line, "users ", "user ", "who is ")
				if query == "" {
					return Intent{Kind: KindClarify, Form: FormUserSearch}
				}
				return Intent{Kind: KindFindUsers, Query: query}
			},
		},
		{
			name: "direct_message",
			match: func(line string) bool {
				return containsAny(line, "message @", "dm ", "chat with ", "talk to ", "start a chat")
			},
			extract: func(line string) Intent {
				target := trailing(line, "message @", "dm @", "dm ", "chat with ", "talk to ")
				if target == "" {
					return Intent{Kind: KindClarify, Form: FormUserSearch}
				}
				return Intent{Kind: KindDirectMessage, Target: target}
			},
		},
	}
}
