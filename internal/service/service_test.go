package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/gearshare/internal/apitest"
	"github.com/iliyamo/gearshare/internal/model"
	"github.com/iliyamo/gearshare/internal/queue"
	"github.com/iliyamo/gearshare/internal/repository"
	"github.com/iliyamo/gearshare/internal/session"
)

type recorder struct {
	mu     sync.Mutex
	events []queue.BookingEvent
	err    error
}

func (r *recorder) PublishBooking(_ context.Context, ev queue.BookingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recorder) types() []queue.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]queue.EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

type env struct {
	srv      *apitest.Server
	sessions *session.Manager
	auth     *AuthService
	items    *ItemService
	reviews  *ReviewService
	bookings *BookingService
	events   *recorder
}

func newEnv(t *testing.T) *env {
	t.Helper()
	srv := apitest.New()
	t.Cleanup(srv.Close)

	sessions := session.NewManager(session.NewMemoryStore(), time.Hour, nil)
	client, err := repository.NewClient(repository.ClientConfig{BaseURL: srv.BaseURL()}, sessions)
	require.NoError(t, err)
	events := &recorder{}
	return &env{
		srv:      srv,
		sessions: sessions,
		auth:     NewAuthService(repository.NewUserRepo(client), sessions),
		items:    NewItemService(repository.NewItemRepo(client)),
		reviews:  NewReviewService(repository.NewReviewRepo(client)),
		bookings: NewBookingService(repository.NewBookingRepo(client), repository.NewPaymentRepo(client), events, nil),
		events:   events,
	}
}

// as returns a context whose session is signed in as userID.
func (e *env) as(t *testing.T, userID int64) context.Context {
	t.Helper()
	sid := fmt.Sprintf("sid-%d", userID)
	id := userID
	_, err := e.sessions.Login(context.Background(), sid, model.AuthPayload{UserID: &id, Name: "Test", Token: e.srv.Token(userID)})
	require.NoError(t, err)
	return session.WithID(context.Background(), sid)
}

func (e *env) calls(method, path string) int {
	n := 0
	for _, r := range e.srv.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func TestLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	u, err := e.auth.Login(ctx, "sid", LoginInput{Email: " USER@test.com ", Password: apitest.Password})
	require.NoError(t, err)
	require.Equal(t, apitest.RenterID, u.ID)
	require.Equal(t, model.RoleUser, u.Role)

	cur, err := e.sessions.CurrentUser(ctx, "sid")
	require.NoError(t, err)
	require.Equal(t, &u, cur)
	tok, err := e.sessions.Token(session.WithID(ctx, "sid"))
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	_, err = e.auth.Login(ctx, "other", LoginInput{Email: apitest.RenterEmail, Password: "wrong"})
	require.ErrorIs(t, err, ErrBadCredentials)
}

func TestLoginValidatesBeforeCalling(t *testing.T) {
	e := newEnv(t)
	_, err := e.auth.Login(context.Background(), "sid", LoginInput{Email: "", Password: "x"})
	require.ErrorIs(t, err, repository.ErrValidation)
	require.Contains(t, Message(err), "email is required")
	require.Empty(t, e.srv.Requests())
}

func TestRegister(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.auth.Register(ctx, "sid", RegisterInput{Name: "Ana", Email: "ana@test.com", Password: "secret1", ConfirmPassword: "secret2"})
	require.ErrorIs(t, err, repository.ErrValidation)
	require.Equal(t, "passwords do not match", Message(err))
	require.Empty(t, e.srv.Requests())

	_, err = e.auth.Register(ctx, "sid", RegisterInput{Name: "Ana", Email: "ana@test.com", Password: "secret1", ConfirmPassword: "secret1", Role: "RENTER"})
	require.ErrorIs(t, err, repository.ErrValidation)

	u, err := e.auth.Register(ctx, "sid", RegisterInput{Name: "Ana Lima", Email: "Ana@Test.com", Password: "secret1", ConfirmPassword: "secret1", Role: "admin"})
	require.NoError(t, err)
	require.NotZero(t, u.ID)
	require.Equal(t, model.RoleAdmin, u.Role)
	require.Equal(t, "ana@test.com", u.Email)

	_, err = e.auth.Register(ctx, "sid2", RegisterInput{Name: "Dup", Email: "ana@test.com", Password: "secret1", ConfirmPassword: "secret1"})
	require.ErrorIs(t, err, repository.ErrConflict)
	require.Equal(t, "email already registered", Message(err))
}

func TestSearchValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.items.Search(ctx, model.SearchFilters{MinPrice: 50, MaxPrice: 10})
	require.ErrorIs(t, err, repository.ErrValidation)
	_, err = e.items.Search(ctx, model.SearchFilters{MinPrice: -1})
	require.ErrorIs(t, err, repository.ErrValidation)
	_, err = e.items.Search(ctx, model.SearchFilters{StartDate: "2025-02-10", EndDate: "2025-02-01"})
	require.ErrorIs(t, err, repository.ErrValidation)
	require.Empty(t, e.srv.Requests())

	all, err := e.items.Search(ctx, model.SearchFilters{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	bikes, err := e.items.Search(ctx, model.SearchFilters{Category: "bike", MaxPrice: 50})
	require.NoError(t, err)
	require.Len(t, bikes, 1)
	require.Equal(t, apitest.BikeID, bikes[0].ID)
}

func TestSearchPropagatesServerErrors(t *testing.T) {
	e := newEnv(t)
	e.srv.FailNext(http.MethodGet, "/api/items", http.StatusInternalServerError)
	_, err := e.items.Search(context.Background(), model.SearchFilters{Keyword: "surf"})
	require.ErrorIs(t, err, repository.ErrUnavailable)
}

func TestListingLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := e.as(t, apitest.OwnerID)

	_, err := e.items.Create(ctx, ListingInput{Name: "Kayak", Category: "Water Sports", Location: "Faro", Condition: "Good"}, apitest.OwnerID)
	require.ErrorIs(t, err, repository.ErrValidation)
	require.Contains(t, Message(err), "price per day must be greater than 0")

	it, err := e.items.Create(ctx, ListingInput{Name: " Kayak ", Category: "Water Sports", PricePerDay: 30, Location: "Faro", Condition: "Good"}, apitest.OwnerID)
	require.NoError(t, err)
	require.Equal(t, "Kayak", it.Name)
	require.Equal(t, apitest.OwnerID, it.OwnerUserID())

	mine, err := e.items.ListByOwner(ctx, apitest.OwnerID)
	require.NoError(t, err)
	require.Len(t, mine, 3)

	for _, bad := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		_, err = e.items.UpdatePrice(ctx, it.ID, bad, apitest.OwnerID)
		require.ErrorIs(t, err, repository.ErrValidation, bad)
	}
	_, err = e.items.Create(ctx, ListingInput{Name: "Kayak", Category: "Water Sports", PricePerDay: math.Inf(1), Location: "Faro", Condition: "Good"}, apitest.OwnerID)
	require.ErrorIs(t, err, repository.ErrValidation)
	it, err = e.items.UpdatePrice(ctx, it.ID, 35, apitest.OwnerID)
	require.NoError(t, err)
	require.Equal(t, 35.0, it.PricePerDay)

	require.NoError(t, e.items.Remove(ctx, it.ID))
	_, err = e.items.Get(ctx, it.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRemoveSomeoneElsesListingIsForbidden(t *testing.T) {
	e := newEnv(t)
	ctx := e.as(t, apitest.RenterID)
	err := e.items.Remove(ctx, apitest.SurfboardID)
	require.ErrorIs(t, err, repository.ErrForbidden)
	_, ok := e.srv.Item(apitest.SurfboardID)
	require.True(t, ok)
}

func TestParseRating(t *testing.T) {
	for in, want := range map[string]int{"4": 4, " 5 ": 5, "3.0": 3, "0": 0} {
		got, err := ParseRating(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "four", "4.5"} {
		_, err := ParseRating(in)
		require.ErrorIs(t, err, repository.ErrValidation, in)
	}
}

func TestAddReview(t *testing.T) {
	e := newEnv(t)
	ctx := e.as(t, apitest.RenterID)
	surf, err := e.items.Get(ctx, apitest.SurfboardID)
	require.NoError(t, err)

	_, err = e.reviews.AddReview(ctx, surf, ReviewInput{ReviewerID: apitest.RenterID, Rating: 6})
	require.ErrorIs(t, err, repository.ErrValidation)
	require.Zero(t, e.calls(http.MethodPost, "/api/items/1/reviews"))

	rv, err := e.reviews.AddReview(ctx, surf, ReviewInput{ReviewerID: apitest.RenterID, Rating: 5, Comment: " great "})
	require.NoError(t, err)
	require.Equal(t, "great", rv.Comment)

	// a second review by the same user is kept as well
	_, err = e.reviews.AddReview(ctx, surf, ReviewInput{ReviewerID: apitest.RenterID, Rating: 4})
	require.NoError(t, err)

	surf, err = e.items.Get(ctx, apitest.SurfboardID)
	require.NoError(t, err)
	require.Len(t, surf.Reviews, 2)
	require.Equal(t, "Regular User", surf.Reviews[0].ReviewerName)
	require.InDelta(t, 4.5, surf.AverageRating(), 0.001)
}

func TestOwnerCannotReviewOwnItem(t *testing.T) {
	e := newEnv(t)
	ctx := e.as(t, apitest.OwnerID)
	surf, err := e.items.Get(ctx, apitest.SurfboardID)
	require.NoError(t, err)
	_, err = e.reviews.AddReview(ctx, surf, ReviewInput{ReviewerID: apitest.OwnerID, Rating: 5})
	require.ErrorIs(t, err, repository.ErrForbidden)
}

func TestCreateBookingValidation(t *testing.T) {
	e := newEnv(t)
	ctx := e.as(t, apitest.RenterID)
	cases := []BookingInput{
		{RenterID: apitest.RenterID, ItemIDs: []int64{1}, StartDate: "", EndDate: "2025-01-05"},
		{RenterID: apitest.RenterID, ItemIDs: nil, StartDate: "2025-01-01", EndDate: "2025-01-05"},
		{RenterID: apitest.RenterID, ItemIDs: []int64{1}, StartDate: "2025-01-05", EndDate: "2025-01-01"},
		{RenterID: apitest.RenterID, ItemIDs: []int64{1}, StartDate: "01/05/2025", EndDate: "2025-01-06"},
		{RenterID: 0, ItemIDs: []int64{1}, StartDate: "2025-01-01", EndDate: "2025-01-05"},
	}
	for i, in := range cases {
		_, err := e.bookings.Create(ctx, in)
		require.ErrorIs(t, err, repository.ErrValidation, "case %d", i)
	}
	require.Zero(t, e.calls(http.MethodPost, "/api/bookings"))
	require.Empty(t, e.events.types())
}

func TestBookingHappyPath(t *testing.T) {
	e := newEnv(t)
	renter := e.as(t, apitest.RenterID)
	owner := e.as(t, apitest.OwnerID)

	b, err := e.bookings.Create(renter, BookingInput{RenterID: apitest.RenterID, ItemIDs: []int64{apitest.SurfboardID, apitest.BikeID}, StartDate: "2025-01-01", EndDate: "2025-01-05"})
	require.NoError(t, err)
	require.Equal(t, model.StatusPending, b.Status)
	require.Equal(t, 325.0, b.TotalPrice)

	incoming, err := e.bookings.ListForOwner(owner, apitest.OwnerID)
	require.NoError(t, err)
	require.Len(t, incoming, 2)

	b, err = e.bookings.Accept(owner, b.ID, apitest.OwnerID)
	require.NoError(t, err)
	require.Equal(t, model.StatusApproved, b.Status)

	rc, err := e.bookings.Pay(renter, apitest.RenterID, b.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusPaid, rc.Status)
	require.Equal(t, 325.0, rc.Amount)

	stored, _ := e.srv.Booking(b.ID)
	require.Equal(t, model.StatusPaid, stored.Status)
	require.Equal(t, []queue.EventType{queue.BookingRequested, queue.BookingApproved, queue.BookingPaid}, e.events.types())
}

func TestLocalGuardSkipsImpossibleTransitions(t *testing.T) {
	e := newEnv(t)
	renter := e.as(t, apitest.RenterID)
	owner := e.as(t, apitest.OwnerID)

	_, err := e.bookings.Pay(renter, apitest.RenterID, apitest.PendingID)
	require.ErrorIs(t, err, repository.ErrInvalidState)
	require.Zero(t, e.calls(http.MethodPost, "/api/payments/pay"))

	_, err = e.bookings.Decline(owner, apitest.PendingID, apitest.OwnerID)
	require.NoError(t, err)

	_, err = e.bookings.Accept(owner, apitest.PendingID, apitest.OwnerID)
	require.ErrorIs(t, err, repository.ErrInvalidState)
	require.Equal(t, 1, e.calls(http.MethodPatch, "/api/bookings/101/status"))

	_, err = e.bookings.Pay(renter, apitest.RenterID, apitest.PendingID)
	require.ErrorIs(t, err, repository.ErrInvalidState)
}

func TestPayChargesBookingTotal(t *testing.T) {
	e := newEnv(t)
	renter := e.as(t, apitest.RenterID)
	e.srv.SetBookingStatus(apitest.PendingID, model.StatusApproved)

	e.srv.SetBookingTotal(apitest.PendingID, 0)
	_, err := e.bookings.Pay(renter, apitest.RenterID, apitest.PendingID)
	require.ErrorIs(t, err, repository.ErrInvalidState)
	require.Zero(t, e.calls(http.MethodPost, "/api/payments/pay"))

	e.srv.SetBookingTotal(apitest.PendingID, 75)
	rc, err := e.bookings.Pay(renter, apitest.RenterID, apitest.PendingID)
	require.NoError(t, err)
	require.Equal(t, 75.0, rc.Amount)
	require.Equal(t, 2, e.calls(http.MethodGet, fmt.Sprintf("/api/bookings/renter/%d", apitest.RenterID)))
}

func TestServerConflictMapsToInvalidState(t *testing.T) {
	e := newEnv(t)
	renter := e.as(t, apitest.RenterID)
	owner := e.as(t, apitest.OwnerID)

	e.srv.FailNext(http.MethodPatch, "/api/bookings/101/status", http.StatusConflict)
	_, err := e.bookings.Accept(owner, apitest.PendingID, apitest.OwnerID)
	require.ErrorIs(t, err, repository.ErrInvalidState)

	e.srv.SetBookingStatus(apitest.PendingID, model.StatusApproved)
	e.srv.FailNext(http.MethodPost, "/api/payments/pay", http.StatusBadRequest)
	_, err = e.bookings.Pay(renter, apitest.RenterID, apitest.PendingID)
	require.ErrorIs(t, err, repository.ErrInvalidState)
	require.Empty(t, e.events.types())
}

func TestDecisionOnUnknownBooking(t *testing.T) {
	e := newEnv(t)
	renter := e.as(t, apitest.RenterID)
	_, err := e.bookings.Accept(renter, apitest.PendingID, apitest.RenterID)
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = e.bookings.Pay(renter, apitest.RenterID, 999)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUnauthorizedEndsSession(t *testing.T) {
	e := newEnv(t)
	renter := e.as(t, apitest.RenterID)
	e.srv.RevokeTokens()

	_, err := e.bookings.ListForRenter(renter, apitest.RenterID)
	require.ErrorIs(t, err, repository.ErrUnauthorized)

	u, err := e.sessions.CurrentUser(context.Background(), session.IDFromContext(renter))
	require.NoError(t, err)
	require.Nil(t, u)
}

func TestPublishFailureDoesNotFailBooking(t *testing.T) {
	e := newEnv(t)
	e.events.err = errors.New("broker down")
	renter := e.as(t, apitest.RenterID)

	b, err := e.bookings.Create(renter, BookingInput{RenterID: apitest.RenterID, ItemIDs: []int64{apitest.BikeID}, StartDate: "2025-03-01", EndDate: "2025-03-01"})
	require.NoError(t, err)
	require.Equal(t, 40.0, b.TotalPrice)
	require.Len(t, e.events.types(), 1)
}
