// Package dispatch executes classified intents against the marketplace
// backend and converts outcomes into user-facing responses. Dispatch never
// propagates an error past its own boundary: every backend failure becomes
// a failure message, echoing the backend-provided reason when available.
package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gigtalk/gigtalk/internal/api"
	"github.com/gigtalk/gigtalk/internal/config"
	"github.com/gigtalk/gigtalk/internal/intent"
	"github.com/gigtalk/gigtalk/internal/logging"
	"github.com/gigtalk/gigtalk/internal/timeline"
)

// Backend is the set of collaborator operations the dispatcher invokes.
// *api.Client implements it.
type Backend interface {
	SwitchRole(ctx context.Context, role string) error
	SetProfilePublished(ctx context.Context, published bool) error
	UpdateAccount(ctx context.Context, fields map[string]interface{}) error
	UpsertFreelancerProfile(ctx context.Context, fields map[string]interface{}) error
	CreateFreelancerProfile(ctx context.Context) error
	UpsertClientProfile(ctx context.Context, fields map[string]interface{}) error
	CreateClientProfile(ctx context.Context) error
	ListOrders(ctx context.Context) ([]api.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int, status string) (api.Order, error)
	ReleaseEscrow(ctx context.Context, orderID int) error
	CreateReview(ctx context.Context, review api.Review) error
	ListNotifications(ctx context.Context) ([]api.Notification, error)
	UpdateNotificationPrefs(ctx context.Context, prefs api.NotificationPrefs) error
	CreateReport(ctx context.Context, report api.Report) error
	CreateTicket(ctx context.Context, ticket api.Ticket) (api.Ticket, error)
	RequestDocuments(ctx context.Context, orderID int) error
	SearchGigs(ctx context.Context, query string) ([]api.Gig, error)
	SearchJobs(ctx context.Context, query string) ([]api.Job, error)
	ListGroups(ctx context.Context) ([]api.Group, error)
	JoinGroup(ctx context.Context, groupID string) (timeline.Conversation, error)
	CreateGroup(ctx context.Context, req api.CreateGroupRequest) (timeline.Conversation, error)
	SearchUsers(ctx context.Context, query string) ([]api.UserSummary, error)
	StartDirectConversation(ctx context.Context, userID string) (timeline.Conversation, error)
}

// Dispatcher executes intents against the backend.
type Dispatcher struct {
	backend Backend
	logger  zerolog.Logger
}

// New creates a Dispatcher.
func New(backend Backend) *Dispatcher {
	return &Dispatcher{
		backend: backend,
		logger:  logging.Component("dispatcher"),
	}
}

// Dispatch executes one classified intent. The session is mutated only for
// role switches.
func (d *Dispatcher) Dispatch(ctx context.Context, in intent.Intent, sess *config.Session) Response {
	d.logger.Debug().Str("kind", string(in.Kind)).Msg("dispatching intent")

	switch in.Kind {
	case intent.KindSwitchRole:
		return d.switchRole(ctx, in, sess)
	case intent.KindPublishProfile:
		return d.setPublished(ctx, true)
	case intent.KindUnpublishProfile:
		return d.setPublished(ctx, false)
	case intent.KindUpdateFields:
		return d.updateFields(ctx, in)
	case intent.KindListOrders:
		return d.listOrders(ctx)
	case intent.KindOrderStatus:
		return d.orderStatus(ctx, in)
	case intent.KindReleaseEscrow:
		return d.releaseEscrow(ctx, in)
	case intent.KindRateOrder:
		return d.rateOrder(ctx, in)
	case intent.KindListNotifications:
		return d.listNotifications(ctx)
	case intent.KindMuteNotifications:
		return d.muteNotifications(ctx)
	case intent.KindReportUser:
		return d.reportUser(ctx, in)
	case intent.KindSupportTicket:
		return d.supportTicket(ctx, in)
	case intent.KindRequestDocuments:
		return d.requestDocuments(ctx, in)
	case intent.KindSearchGigs:
		return d.searchGigs(ctx, in)
	case intent.KindSearchJobs:
		return d.searchJobs(ctx, in)
	case intent.KindListGroups:
		return d.listGroups(ctx)
	case intent.KindJoinGroup:
		return d.joinGroup(ctx, in)
	case intent.KindCreateGroup:
		return d.createGroup(ctx, in)
	case intent.KindFindUsers:
		return d.findUsers(ctx, in)
	case intent.KindDirectMessage:
		return d.directMessage(ctx, in)
	case intent.KindClarify:
		return clarifyResponse(in.Form)
	default:
		return Response{Handled: false}
	}
}

// fail converts a backend error into a user-facing failure message.
func (d *Dispatcher) fail(action string, err error) Response {
	d.logger.Warn().Err(err).Str("action", action).Msg("backend call failed")
	if reason := api.ReasonOf(err); reason != "" {
		return Response{Text: fmt.Sprintf("Couldn't %s: %s", action, reason), Handled: true}
	}
	return Response{Text: fmt.Sprintf("Couldn't %s right now. Please try again.", action), Handled: true}
}

func clarifyResponse(form string) Response {
	texts := map[string]string{
		intent.FormRolePicker:    "Which role do you want to switch to?",
		intent.FormProfileFields: "Which field should I update, and to what value?",
		intent.FormOrderPicker:   "Which order do you mean? Give me the order number.",
		intent.FormReviewForm:    "Which order are you rating, and how many stars (1-5)?",
		intent.FormGigSearch:     "What kind of gigs should I search for?",
		intent.FormJobSearch:     "What kind of jobs should I search for?",
		intent.FormGroupName:     "Which group? Give me its name.",
		intent.FormUserSearch:    "Who are you looking for?",
		intent.FormReportForm:    "Who do you want to report, and why?",
	}
	text, ok := texts[form]
	if !ok {
		text = "Can you give me a bit more detail?"
	}
	return Response{
		Text:    text,
		Cards:   []ActionCard{{Label: "Open form", Target: form}},
		Handled: true,
	}
}

func (d *Dispatcher) switchRole(ctx context.Context, in intent.Intent, sess *config.Session) Response {
	if err := d.backend.SwitchRole(ctx, in.Role); err != nil {
		return d.fail("switch role", err)
	}
	if sess != nil {
		_ = sess.SetRole(in.Role)
	}
	resp := Response{Text: fmt.Sprintf("You're now acting as a %s.", in.Role), Handled: true}
	if in.Role == config.RoleFreelancer {
		return resp.withCards(
			ActionCard{Label: "Publish profile", Description: "Make your profile visible to clients", Target: "profile-publish"},
			ActionCard{Label: "Browse jobs", Target: "jobs"},
		)
	}
	return resp.withCards(
		ActionCard{Label: "Browse gigs", Target: "gigs"},
		ActionCard{Label: "Post a job", Target: "job-new"},
	)
}

func (d *Dispatcher) setPublished(ctx context.Context, published bool) Response {
	err := d.backend.SetProfilePublished(ctx, published)
	if api.IsNotFound(err) {
		// No profile yet: create-then-set fallback.
		if err = d.backend.CreateFreelancerProfile(ctx); err == nil {
			err = d.backend.SetProfilePublished(ctx, published)
		}
	}
	if err != nil {
		if published {
			return d.fail("publish your profile", err)
		}
		return d.fail("unpublish your profile", err)
	}
	if published {
		return Response{Text: "Your freelancer profile is now published.", Handled: true}
	}
	return Response{Text: "Your freelancer profile is now hidden.", Handled: true}
}

// entityUpdater pairs an upsert call with its create-then-set fallback.
type entityUpdater struct {
	label  string
	upsert func(context.Context, map[string]interface{}) error
	create func(context.Context) error
}

func (d *Dispatcher) updateFields(ctx context.Context, in intent.Intent) Response {
	updaters := map[intent.TargetEntity]entityUpdater{
		intent.EntityAccount: {
			label:  "account",
			upsert: d.backend.UpdateAccount,
		},
		intent.EntityFreelancerProfile: {
			label:  "freelancer profile",
			upsert: d.backend.UpsertFreelancerProfile,
			create: d.backend.CreateFreelancerProfile,
		},
		intent.EntityClientProfile: {
			label:  "client profile",
			upsert: d.backend.UpsertClientProfile,
			create: d.backend.CreateClientProfile,
		},
	}

	// Group updates per entity; each entity's outcome is reported
	// independently with no implicit rollback.
	grouped := make(map[intent.TargetEntity]map[string]interface{})
	for _, u := range in.Updates {
		if grouped[u.Entity] == nil {
			grouped[u.Entity] = make(map[string]interface{})
		}
		grouped[u.Entity][u.Field] = u.Value
	}

	var lines []string
	for _, entity := range []intent.TargetEntity{intent.EntityAccount, intent.EntityFreelancerProfile, intent.EntityClientProfile} {
		fields, ok := grouped[entity]
		if !ok {
			continue
		}
		updater := updaters[entity]
		err := updater.upsert(ctx, fields)
		if api.IsNotFound(err) && updater.create != nil {
			if err = updater.create(ctx); err == nil {
				err = updater.upsert(ctx, fields)
			}
		}
		if err != nil {
			if reason := api.ReasonOf(err); reason != "" {
				lines = append(lines, fmt.Sprintf("%s: update failed (%s)", updater.label, reason))
			} else {
				lines = append(lines, fmt.Sprintf("%s: update failed", updater.label))
			}
			d.logger.Warn().Err(err).Str("entity", string(entity)).Msg("field update failed")
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: updated %s", updater.label, fieldNames(fields)))
	}

	if len(lines) == 0 {
		return clarifyResponse(intent.FormProfileFields)
	}
	return Response{Text: strings.Join(lines, "\n"), Handled: true}
}

func fieldNames(fields map[string]interface{}) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

func (d *Dispatcher) listOrders(ctx context.Context) Response {
	orders, err := d.backend.ListOrders(ctx)
	if err != nil {
		return d.fail("fetch your orders", err)
	}
	if len(orders) == 0 {
		return Response{Text: "You have no orders yet.", Handled: true}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You have %d order(s):\n", len(orders))
	for _, o := range orders {
		fmt.Fprintf(&b, "  #%d %s — %s\n", o.ID, o.Title, o.Status)
	}
	return Response{Text: strings.TrimRight(b.String(), "\n"), Navigate: "orders", Handled: true}
}

func (d *Dispatcher) orderStatus(ctx context.Context, in intent.Intent) Response {
	order, err := d.backend.UpdateOrderStatus(ctx, in.OrderID, in.Status)
	if err != nil {
		return d.fail(fmt.Sprintf("update order #%d", in.OrderID), err)
	}
	resp := Response{Text: fmt.Sprintf("Order #%d is now %s.", order.ID, order.Status), Handled: true}
	if order.Status == "delivered" || order.Status == "completed" {
		return resp.withCards(
			ActionCard{Label: "Release payment", Description: "Release the escrow for this order", Target: fmt.Sprintf("escrow-%d", order.ID)},
			ActionCard{Label: "Leave a rating", Target: fmt.Sprintf("review-%d", order.ID)},
		)
	}
	return resp
}

func (d *Dispatcher) releaseEscrow(ctx context.Context, in intent.Intent) Response {
	if err := d.backend.ReleaseEscrow(ctx, in.OrderID); err != nil {
		return d.fail(fmt.Sprintf("release the escrow for order #%d", in.OrderID), err)
	}
	resp := Response{Text: fmt.Sprintf("Escrow released for order #%d.", in.OrderID), Handled: true}
	return resp.withCards(ActionCard{Label: "Leave a rating", Target: fmt.Sprintf("review-%d", in.OrderID)})
}

func (d *Dispatcher) rateOrder(ctx context.Context, in intent.Intent) Response {
	review := api.Review{OrderID: in.OrderID, Rating: in.Rating}
	if err := d.backend.CreateReview(ctx, review); err != nil {
		return d.fail(fmt.Sprintf("submit your rating for order #%d", in.OrderID), err)
	}
	return Response{Text: fmt.Sprintf("Thanks! Rated order #%d with %d star(s).", in.OrderID, in.Rating), Handled: true}
}

func (d *Dispatcher) listNotifications(ctx context.Context) Response {
	notifications, err := d.backend.ListNotifications(ctx)
	if err != nil {
		return d.fail("fetch your notifications", err)
	}
	unread := 0
	for _, n := range notifications {
		if !n.Read {
			unread++
		}
	}
	if len(notifications) == 0 {
		return Response{Text: "No notifications.", Handled: true}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d notification(s), %d unread:\n", len(notifications), unread)
	for _, n := range notifications {
		marker := " "
		if !n.Read {
			marker = "*"
		}
		fmt.Fprintf(&b, " %s %s\n", marker, n.Text)
	}
	resp := Response{Text: strings.TrimRight(b.String(), "\n"), Handled: true}
	return resp.withCards(ActionCard{Label: "Mute notifications", Target: "notifications-mute"})
}

func (d *Dispatcher) muteNotifications(ctx context.Context) Response {
	if err := d.backend.UpdateNotificationPrefs(ctx, api.NotificationPrefs{Muted: true}); err != nil {
		return d.fail("mute notifications", err)
	}
	return Response{Text: "Notifications muted.", Handled: true}
}

func (d *Dispatcher) reportUser(ctx context.Context, in intent.Intent) Response {
	report := api.Report{SubjectUserID: in.Target, Reason: "reported via chat"}
	if err := d.backend.CreateReport(ctx, report); err != nil {
		return d.fail("file the report", err)
	}
	return Response{Text: fmt.Sprintf("Report filed against %s. Our team will review it.", in.Target), Handled: true}
}

func (d *Dispatcher) supportTicket(ctx context.Context, in intent.Intent) Response {
	ticket, err := d.backend.CreateTicket(ctx, api.Ticket{Subject: in.Query})
	if err != nil {
		return d.fail("open a support ticket", err)
	}
	text := "Support ticket opened."
	if ticket.ID != "" {
		text = fmt.Sprintf("Support ticket %s opened. We'll get back to you.", ticket.ID)
	}
	return Response{Text: text, Handled: true}
}

func (d *Dispatcher) requestDocuments(ctx context.Context, in intent.Intent) Response {
	if err := d.backend.RequestDocuments(ctx, in.OrderID); err != nil {
		return d.fail(fmt.Sprintf("request documents for order #%d", in.OrderID), err)
	}
	return Response{Text: fmt.Sprintf("Document upload requested for order #%d.", in.OrderID), Handled: true}
}

func (d *Dispatcher) searchGigs(ctx context.Context, in intent.Intent) Response {
	gigs, err := d.backend.SearchGigs(ctx, in.Query)
	if err != nil {
		return d.fail("search gigs", err)
	}
	if len(gigs) == 0 {
		return Response{Text: fmt.Sprintf("No gigs found for %q.", in.Query), Handled: true}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d gig(s) for %q:\n", len(gigs), in.Query)
	cards := make([]ActionCard, 0, MaxCards)
	for i, g := range gigs {
		fmt.Fprintf(&b, "  %s — %.0f\n", g.Title, g.Price)
		if i < MaxCards {
			cards = append(cards, ActionCard{Label: g.Title, Description: fmt.Sprintf("by %s", g.Seller), Target: "gig-" + g.ID})
		}
	}
	return Response{Text: strings.TrimRight(b.String(), "\n"), Handled: true}.withCards(cards...)
}

func (d *Dispatcher) searchJobs(ctx context.Context, in intent.Intent) Response {
	jobs, err := d.backend.SearchJobs(ctx, in.Query)
	if err != nil {
		return d.fail("search jobs", err)
	}
	if len(jobs) == 0 {
		return Response{Text: fmt.Sprintf("No jobs found for %q.", in.Query), Handled: true}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d job(s) for %q:\n", len(jobs), in.Query)
	cards := make([]ActionCard, 0, MaxCards)
	for i, j := range jobs {
		fmt.Fprintf(&b, "  %s — budget %.0f\n", j.Title, j.Budget)
		if i < MaxCards {
			cards = append(cards, ActionCard{Label: j.Title, Description: j.Client, Target: "job-" + j.ID})
		}
	}
	return Response{Text: strings.TrimRight(b.String(), "\n"), Handled: true}.withCards(cards...)
}

func (d *Dispatcher) listGroups(ctx context.Context) Response {
	groups, err := d.backend.ListGroups(ctx)
	if err != nil {
		return d.fail("fetch groups", err)
	}
	if len(groups) == 0 {
		return Response{Text: "No groups to discover right now.", Handled: true}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d group(s):\n", len(groups))
	cards := make([]ActionCard, 0, MaxCards)
	for i, g := range groups {
		fmt.Fprintf(&b, "  %s (%d members)\n", g.Name, g.MemberCount)
		if i < MaxCards {
			cards = append(cards, ActionCard{Label: "Join " + g.Name, Target: "group-" + g.ID})
		}
	}
	return Response{Text: strings.TrimRight(b.String(), "\n"), Handled: true}.withCards(cards...)
}

func (d *Dispatcher) joinGroup(ctx context.Context, in intent.Intent) Response {
	conv, err := d.backend.JoinGroup(ctx, in.Target)
	if err != nil {
		return d.fail(fmt.Sprintf("join group %q", in.Target), err)
	}
	return Response{
		Text:     fmt.Sprintf("You joined %s.", conv.Name),
		Navigate: conv.ID,
		Handled:  true,
	}
}

func (d *Dispatcher) createGroup(ctx context.Context, in intent.Intent) Response {
	conv, err := d.backend.CreateGroup(ctx, api.CreateGroupRequest{Name: in.Target})
	if err != nil {
		return d.fail(fmt.Sprintf("create group %q", in.Target), err)
	}
	return Response{
		Text:     fmt.Sprintf("Group %s created.", conv.Name),
		Navigate: conv.ID,
		Handled:  true,
	}
}

func (d *Dispatcher) findUsers(ctx context.Context, in intent.Intent) Response {
	users, err := d.backend.SearchUsers(ctx, in.Query)
	if err != nil {
		return d.fail("search users", err)
	}
	if len(users) == 0 {
		return Response{Text: fmt.Sprintf("No users found for %q.", in.Query), Handled: true}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d user(s):\n", len(users))
	cards := make([]ActionCard, 0, MaxCards)
	for i, u := range users {
		fmt.Fprintf(&b, "  %s (%s)\n", u.Name, u.Role)
		if i < MaxCards {
			cards = append(cards, ActionCard{Label: "Message " + u.Name, Target: "user-" + u.ID})
		}
	}
	return Response{Text: strings.TrimRight(b.String(), "\n"), Handled: true}.withCards(cards...)
}

func (d *Dispatcher) directMessage(ctx context.Context, in intent.Intent) Response {
	users, err := d.backend.SearchUsers(ctx, in.Target)
	if err != nil {
		return d.fail("look up that user", err)
	}
	if len(users) == 0 {
		return Response{Text: fmt.Sprintf("I couldn't find anyone called %q.", in.Target), Handled: true}
	}
	conv, err := d.backend.StartDirectConversation(ctx, users[0].ID)
	if err != nil {
		return d.fail(fmt.Sprintf("start a chat with %s", users[0].Name), err)
	}
	return Response{
		Text:     fmt.Sprintf("Opened a conversation with %s.", users[0].Name),
		Navigate: conv.ID,
		Handled:  true,
	}
}
