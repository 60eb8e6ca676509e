package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gigtalk/gigtalk/internal/api"
	"github.com/gigtalk/gigtalk/internal/config"
	"github.com/gigtalk/gigtalk/internal/intent"
	"github.com/gigtalk/gigtalk/internal/timeline"
)

// fakeBackend records calls and returns scripted results.
type fakeBackend struct {
	calls []string

	switchRoleErr   error
	setPublishedErr []error
	createProfErr   error
	upsertErrs      map[intent.TargetEntity][]error
	upserted        map[intent.TargetEntity][]map[string]interface{}

	orders    []api.Order
	ordersErr error

	updatedOrder    api.Order
	updateStatusErr error

	escrowErr error
	reviewErr error
	review    api.Review

	notifications []api.Notification
	prefs         api.NotificationPrefs

	report api.Report
	ticket api.Ticket

	gigs   []api.Gig
	jobs   []api.Job
	groups []api.Group
	users  []api.UserSummary

	conversation timeline.Conversation
	convErr      error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		upsertErrs: make(map[intent.TargetEntity][]error),
		upserted:   make(map[intent.TargetEntity][]map[string]interface{}),
	}
}

func (f *fakeBackend) record(name string) { f.calls = append(f.calls, name) }

func (f *fakeBackend) popUpsertErr(entity intent.TargetEntity) error {
	errs := f.upsertErrs[entity]
	if len(errs) == 0 {
		return nil
	}
	err := errs[0]
	f.upsertErrs[entity] = errs[1:]
	return err
}

func (f *fakeBackend) SwitchRole(_ context.Context, role string) error {
	f.record("SwitchRole:" + role)
	return f.switchRoleErr
}

func (f *fakeBackend) SetProfilePublished(_ context.Context, published bool) error {
	f.record("SetProfilePublished")
	if len(f.setPublishedErr) == 0 {
		return nil
	}
	err := f.setPublishedErr[0]
	f.setPublishedErr = f.setPublishedErr[1:]
	return err
}

func (f *fakeBackend) UpdateAccount(_ context.Context, fields map[string]interface{}) error {
	f.record("UpdateAccount")
	f.upserted[intent.EntityAccount] = append(f.upserted[intent.EntityAccount], fields)
	return f.popUpsertErr(intent.EntityAccount)
}

func (f *fakeBackend) UpsertFreelancerProfile(_ context.Context, fields map[string]interface{}) error {
	f.record("UpsertFreelancerProfile")
	f.upserted[intent.EntityFreelancerProfile] = append(f.upserted[intent.EntityFreelancerProfile], fields)
	return f.popUpsertErr(intent.EntityFreelancerProfile)
}

func (f *fakeBackend) CreateFreelancerProfile(_ context.Context) error {
	f.record("CreateFreelancerProfile")
	return f.createProfErr
}

func (f *fakeBackend) UpsertClientProfile(_ context.Context, fields map[string]interface{}) error {
	f.record("UpsertClientProfile")
	f.upserted[intent.EntityClientProfile] = append(f.upserted[intent.EntityClientProfile], fields)
	return f.popUpsertErr(intent.EntityClientProfile)
}

func (f *fakeBackend) CreateClientProfile(_ context.Context) error {
	f.record("CreateClientProfile")
	return nil
}

func (f *fakeBackend) ListOrders(_ context.Context) ([]api.Order, error) {
	f.record("ListOrders")
	return f.orders, f.ordersErr
}

func (f *fakeBackend) UpdateOrderStatus(_ context.Context, orderID int, status string) (api.Order, error) {
	f.record("UpdateOrderStatus")
	if f.updateStatusErr != nil {
		return api.Order{}, f.updateStatusErr
	}
	if f.updatedOrder.ID == 0 {
		return api.Order{ID: orderID, Status: status}, nil
	}
	return f.updatedOrder, nil
}

func (f *fakeBackend) ReleaseEscrow(_ context.Context, orderID int) error {
	f.record("ReleaseEscrow")
	return f.escrowErr
}

func (f *fakeBackend) CreateReview(_ context.Context, review api.Review) error {
	f.record("CreateReview")
	f.review = review
	return f.reviewErr
}

func (f *fakeBackend) ListNotifications(_ context.Context) ([]api.Notification, error) {
	f.record("ListNotifications")
	return f.notifications, nil
}

func (f *fakeBackend) UpdateNotificationPrefs(_ context.Context, prefs api.NotificationPrefs) error {
	f.record("UpdateNotificationPrefs")
	f.prefs = prefs
	return nil
}

func (f *fakeBackend) CreateReport(_ context.Context, report api.Report) error {
	f.record("CreateReport")
	f.report = report
	return nil
}

func (f *fakeBackend) CreateTicket(_ context.Context, ticket api.Ticket) (api.Ticket, error) {
	f.record("CreateTicket")
	ticket.ID = "T-77"
	f.ticket = ticket
	return ticket, nil
}

func (f *fakeBackend) RequestDocuments(_ context.Context, orderID int) error {
	f.record("RequestDocuments")
	return nil
}

func (f *fakeBackend) SearchGigs(_ context.Context, query string) ([]api.Gig, error) {
	f.record("SearchGigs:" + query)
	return f.gigs, nil
}

func (f *fakeBackend) SearchJobs(_ context.Context, query string) ([]api.Job, error) {
	f.record("SearchJobs:" + query)
	return f.jobs, nil
}

func (f *fakeBackend) ListGroups(_ context.Context) ([]api.Group, error) {
	f.record("ListGroups")
	return f.groups, nil
}

func (f *fakeBackend) JoinGroup(_ context.Context, groupID string) (timeline.Conversation, error) {
	f.record("JoinGroup:" + groupID)
	return f.conversation, f.convErr
}

func (f *fakeBackend) CreateGroup(_ context.Context, req api.CreateGroupRequest) (timeline.Conversation, error) {
	f.record("CreateGroup:" + req.Name)
	return timeline.Conversation{ID: "grp-1", Name: req.Name}, nil
}

func (f *fakeBackend) SearchUsers(_ context.Context, query string) ([]api.UserSummary, error) {
	f.record("SearchUsers:" + query)
	return f.users, nil
}

func (f *fakeBackend) StartDirectConversation(_ context.Context, userID string) (timeline.Conversation, error) {
	f.record("StartDirectConversation:" + userID)
	return f.conversation, f.convErr
}

func notFound() error {
	return &api.APIError{StatusCode: 404, Reason: "profile not found"}
}

func TestDispatchSwitchRoleUpdatesSession(t *testing.T) {
	backend := newFakeBackend()
	d := New(backend)
	sess := &config.Session{Role: config.RoleClient}

	resp := d.Dispatch(context.Background(), intent.Intent{Kind: intent.KindSwitchRole, Role: config.RoleFreelancer}, sess)

	require.True(t, resp.Handled)
	require.Contains(t, resp.Text, "freelancer")
	require.Equal(t, config.RoleFreelancer, sess.Role)
	require.NotEmpty(t, resp.Cards)
}

func TestDispatchSwitchRoleFailureLeavesSession(t *testing.T) {
	backend := newFakeBackend()
	backend.switchRoleErr = &api.APIError{StatusCode: 409, Reason: "role change pending approval"}
	d := New(backend)
	sess := &config.Session{Role: config.RoleClient}

	resp := d.Dispatch(context.Background(), intent.Intent{Kind: intent.KindSwitchRole, Role: config.RoleFreelancer}, sess)

	require.True(t, resp.Handled)
	require.Contains(t, resp.Text, "role change pending approval")
	require.Equal(t, config.RoleClient, sess.Role)
}

func TestDispatchPublishCreatesProfileOnNotFound(t *testing.T) {
	backend := newFakeBackend()
	backend.setPublishedErr = []error{notFound(), nil}
	d := New(backend)

	resp := d.Dispatch(context.Background(), intent.Intent{Kind: intent.KindPublishProfile}, nil)

	require.True(t, resp.Handled)
	require.Contains(t, resp.Text, "published")
	require.Equal(t, []string{"SetProfilePublished", "CreateFreelancerProfile", "SetProfilePublished"}, backend.calls)
}

func TestDispatchUpdateFieldsCreateThenSetFallback(t *testing.T) {
	backend := newFakeBackend()
	backend.upsertErrs[intent.EntityFreelancerProfile] = []error{notFound()}
	d := New(backend)

	in := intent.Intent{
		Kind: intent.KindUpdateFields,
		Updates: []intent.FieldUpdate{
			{Entity: intent.EntityFreelancerProfile, Field: "hourly_rate", Value: 50},
		},
	}
	resp := d.Dispatch(context.Background(), in, nil)

	require.True(t, resp.Handled)
	require.Contains(t, resp.Text, "hourly_rate")
	require.Equal(t, []string{"UpsertFreelancerProfile", "CreateFreelancerProfile", "UpsertFreelancerProfile"}, backend.calls)
	require.Len(t, backend.upserted[intent.EntityFreelancerProfile], 2)
}

func TestDispatchUpdateFieldsReportsEntitiesIndependently(t *testing.T) {
	backend := newFakeBackend()
	backend.upsertErrs[intent.EntityClientProfile] = []error{
		&api.APIError{StatusCode: 422, Reason: "budget must be positive"},
	}
	d := New(backend)

	in := intent.Intent{
		Kind: intent.KindUpdateFields,
		Updates: []intent.FieldUpdate{
			{Entity: intent.EntityAccount, Field: "first_name", Value: "Sam"},
			{Entity: intent.EntityClientProfile, Field: "default_budget", Value: -1},
		},
	}
	resp := d.Dispatch(context.Background(), in, nil)

	require.True(t, resp.Handled)
	require.Contains(t, resp.Text, "account: updated first_name")
	require.Contains(t, resp.Text, "budget must be positive")
}

func TestDispatchOrderStatusEchoesBackendReason(t *testing.T) {
	backend := newFakeBackend()
	backend.updateStatusErr = &api.APIError{StatusCode: 409, Reason: "order already delivered"}
	d := New(backend)

	resp := d.Dispatch(context.Background(), intent.Intent{Kind: intent.KindOrderStatus, OrderID: 482, Status: "delivered"}, nil)

	require.True(t, resp.Handled)
	require.Contains(t, resp.Text, "order already delivered")
}

func TestDispatchOrderStatusDeliveredSuggestsFollowups(t *testing.T) {
	backend := newFakeBackend()
	d := New(backend)

	resp := d.Dispatch(context.Background(), intent.Intent{Kind: intent.KindOrderStatus, OrderID: 12, Status: "delivered"}, nil)

	require.Contains(t, resp.Text, "Order #12 is now delivered")
	require.Len(t, resp.Cards, 2)
	require.Equal(t, "escrow-12", resp.Cards[0].Target)
}

func TestDispatchRateOrder(t *testing.T) {
	backend := newFakeBackend()
	d := New(backend)

	resp := d.Dispatch(context.Background(), intent.Intent{Kind: intent.KindRateOrder, OrderID: 12, Rating: 5}, nil)

	require.True(t, resp.Handled)
	require.Equal(t, api.Review{OrderID: 12, Rating: 5}, backend.review)
	require.Contains(t, resp.Text, "5 star")
}

func TestDispatchListOrders(t *testing.T) {
	backend := newFakeBackend()
	backend.orders = []api.Order{
		{ID: 1, Title: "Logo design", Status: "active"},
		{ID: 2, Title: "Site copy", Status: "delivered"},
	}
	d := New(backend)

	resp := d.Dispatch(context.Background(), intent.Intent{Kind: intent.KindListOrders}, nil)

	require.Contains(t, resp.Text, "Logo design")
	require.Equal(t, "orders", resp.Navigate)
}

func TestDispatchMuteNotifications(t *testing.T) {
	backend := newFakeBackend()
	d := New(backend)

	resp := d.Dispatch(context.Background(), intent.Intent{Kind: intent.KindMuteNotifications}, nil)

	require.True(t, resp.Handled)
	require.True(t, backend.prefs.Muted)
}

func TestDispatchSearchGigsCapsCards(t *testing.T) {
	backend := newFakeBackend()
	backend.gigs = []api.Gig{
		{ID: "g1", Title: "Logo pack", Price: 90},
		{ID: "g2", Title: "Brand kit", Price: 250},
		{ID: "g3", Title: "Icon set", Price: 40},
		{ID: "g4", Title: "Pitch deck", Price: 120},
		{ID: "g5", Title: "Style guide", Price: 300},
	}
	d := New(backend)

	resp := d.Dispatch(context.Background(), intent.Intent{Kind: intent.KindSearchGigs, Query: "design"}, nil)

	require.Len(t, resp.Cards, MaxCards)
	require.Contains(t, resp.Text, "Pitch deck")
}

func TestDispatchJoinGroupNavigates(t *testing.T) {
	backend := newFakeBackend()
	backend.conversation = timeline.Conversation{ID: "conv-9", Name: "Go Freelancers"}
	d := New(backend)

	resp := d.Dispatch(context.Background(), intent.Intent{Kind: intent.KindJoinGroup, Target: "go freelancers"}, nil)

	require.Equal(t, "conv-9", resp.Navigate)
	require.Contains(t, resp.Text, "Go Freelancers")
}

func TestDispatchDirectMessageResolvesUser(t *testing.T) {
	backend := newFakeBackend()
	backend.users = []api.UserSummary{{ID: "u-3", Name: "Priya"}}
	backend.conversation = timeline.Conversation{ID: "conv-dm", Name: "Priya"}
	d := New(backend)

	resp := d.Dispatch(context.Background(), intent.Intent{Kind: intent.KindDirectMessage, Target: "priya"}, nil)

	require.Equal(t, "conv-dm", resp.Navigate)
	require.Contains(t, resp.Text, "Priya")
	require.Contains(t, backend.calls, "SearchUsers:priya")
	require.Contains(t, backend.calls, "StartDirectConversation:u-3")
}

func TestDispatchDirectMessageNoMatch(t *testing.T) {
	backend := newFakeBackend()
	d := New(backend)

	resp := d.Dispatch(context.Background(), intent.Intent{Kind: intent.KindDirectMessage, Target: "nobody"}, nil)

	require.True(t, resp.Handled)
	require.Contains(t, resp.Text, "couldn't find")
	require.NotContains(t, backend.calls, "StartDirectConversation:")
}

func TestDispatchClarifyReturnsFormCard(t *testing.T) {
	d := New(newFakeBackend())

	resp := d.Dispatch(context.Background(), intent.Intent{Kind: intent.KindClarify, Form: intent.FormOrderPicker}, nil)

	require.True(t, resp.Handled)
	require.Len(t, resp.Cards, 1)
	require.Equal(t, intent.FormOrderPicker, resp.Cards[0].Target)
}

func TestDispatchUnhandledFallsThrough(t *testing.T) {
	d := New(newFakeBackend())

	resp := d.Dispatch(context.Background(), intent.Intent{Kind: intent.KindUnhandled}, nil)

	require.False(t, resp.Handled)
	require.Empty(t, resp.Text)
}

func TestDispatchGenericFailureWithoutReason(t *testing.T) {
	backend := newFakeBackend()
	backend.ordersErr = context.DeadlineExceeded
	d := New(backend)

	resp := d.Dispatch(context.Background(), intent.Intent{Kind: intent.KindListOrders}, nil)

	require.True(t, resp.Handled)
	require.Contains(t, resp.Text, "try again")
}
