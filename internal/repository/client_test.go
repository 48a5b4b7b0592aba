package repository

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/gearshare/internal/apitest"
	"github.com/iliyamo/gearshare/internal/model"
)

type fakeCreds struct {
	mu      sync.Mutex
	token   string
	expired int
}

func (f *fakeCreds) Token(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token, nil
}

func (f *fakeCreds) Expire(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = ""
	f.expired++
	return nil
}

func newClient(t *testing.T, baseURL string, creds Credentials) *Client {
	t.Helper()
	c, err := NewClient(ClientConfig{BaseURL: baseURL, Timeout: 5 * time.Second}, creds)
	require.NoError(t, err)
	return c
}

func TestNewClientRejectsBadBaseURL(t *testing.T) {
	_, err := NewClient(ClientConfig{BaseURL: "not a url"}, nil)
	require.Error(t, err)
}

func TestBearerHeaderOnlyWhenTokenStored(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	creds := &fakeCreds{}
	items := NewItemRepo(newClient(t, srv.BaseURL(), creds))
	ctx := context.Background()

	_, err := items.List(ctx)
	require.NoError(t, err)
	req, ok := srv.LastRequest(http.MethodGet, "/api/items")
	require.True(t, ok)
	require.Empty(t, req.Auth)

	creds.token = "abc"
	_, err = items.List(ctx)
	require.NoError(t, err)
	req, _ = srv.LastRequest(http.MethodGet, "/api/items")
	require.Equal(t, "Bearer abc", req.Auth)
}

func TestUnauthorizedExpiresCredentials(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	creds := &fakeCreds{token: "revoked"}
	bookings := NewBookingRepo(newClient(t, srv.BaseURL(), creds))

	_, err := bookings.ListByRenter(context.Background(), apitest.RenterID)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Equal(t, http.StatusUnauthorized, StatusOf(err))
	require.Equal(t, 1, creds.expired)
	require.Empty(t, creds.token)
}

func TestServerErrorPassesThrough(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	creds := &fakeCreds{}
	items := NewItemRepo(newClient(t, srv.BaseURL(), creds))

	srv.FailNext(http.MethodGet, "/api/items/1", http.StatusInternalServerError)
	_, err := items.GetByID(context.Background(), 1)
	require.ErrorIs(t, err, ErrUnavailable)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	require.Equal(t, "Internal Server Error", apiErr.Message)
	require.Zero(t, creds.expired)
}

func TestStatusMapping(t *testing.T) {
	cases := map[int]error{
		http.StatusBadRequest:          ErrValidation,
		http.StatusUnprocessableEntity: ErrValidation,
		http.StatusUnauthorized:        ErrUnauthorized,
		http.StatusForbidden:           ErrForbidden,
		http.StatusNotFound:            ErrNotFound,
		http.StatusConflict:            ErrConflict,
		http.StatusBadGateway:          ErrUnavailable,
	}
	for status, want := range cases {
		err := error(&APIError{Method: "GET", Path: "/x", StatusCode: status})
		require.ErrorIs(t, err, want, "status %d", status)
	}
}

func TestTransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	_, err := NewItemRepo(newClient(t, base, nil)).List(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestCancelledContextDropsResponse(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	_, err := NewItemRepo(newClient(t, srv.URL, nil)).List(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRequestIDForwarded(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Request-ID")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	ctx := WithRequestID(context.Background(), "req-42")
	_, err := NewItemRepo(newClient(t, srv.URL, nil)).List(ctx)
	require.NoError(t, err)
	require.Equal(t, "req-42", got)
}

func TestSearchQueryEncoding(t *testing.T) {
	cases := []struct {
		name string
		in   model.SearchFilters
		want string
	}{
		{"empty", model.SearchFilters{}, ""},
		{"keyword and location", model.SearchFilters{Keyword: "surf", Location: "San Francisco, CA"}, "keyword=surf&location=San+Francisco%2C+CA"},
		{"prices", model.SearchFilters{Category: "Bike", MinPrice: 10, MaxPrice: 42.5}, "category=Bike&minPrice=10&maxPrice=42.5"},
		{"blank strings dropped", model.SearchFilters{Keyword: "  ", EndDate: "2025-01-05"}, "endDate=2025-01-05"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, searchQuery(tc.in))
		})
	}
}

func TestSearchAgainstBackend(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	items := NewItemRepo(newClient(t, srv.BaseURL(), nil))

	out, err := items.Search(context.Background(), model.SearchFilters{Keyword: "surf", Location: "San Francisco, CA"})
	require.NoError(t, err)
	require.Empty(t, out)
	req, ok := srv.LastRequest(http.MethodGet, "/api/items")
	require.True(t, ok)
	require.Equal(t, "keyword=surf&location=San+Francisco%2C+CA", req.Query)

	out, err = items.Search(context.Background(), model.SearchFilters{Location: "san francisco"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "Camping Tent", out[0].Name)
}

func TestBookingWorkflowWire(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	ctx := context.Background()
	renter := &fakeCreds{token: srv.Token(apitest.RenterID)}
	owner := &fakeCreds{token: srv.Token(apitest.OwnerID)}
	renterBookings := NewBookingRepo(newClient(t, srv.BaseURL(), renter))
	ownerBookings := NewBookingRepo(newClient(t, srv.BaseURL(), owner))
	payments := NewPaymentRepo(newClient(t, srv.BaseURL(), renter))

	b, err := renterBookings.Create(ctx, NewBooking{RenterID: apitest.RenterID, ItemIDs: []int64{apitest.SurfboardID}, StartDate: "2025-01-01", EndDate: "2025-01-05"})
	require.NoError(t, err)
	require.Equal(t, model.StatusPending, b.Status)
	require.Equal(t, 125.0, b.TotalPrice)

	_, err = payments.Pay(ctx, b.ID, b.TotalPrice, "")
	require.ErrorIs(t, err, ErrConflict)

	b, err = ownerBookings.UpdateStatus(ctx, b.ID, apitest.OwnerID, true)
	require.NoError(t, err)
	require.Equal(t, model.StatusApproved, b.Status)
	req, _ := srv.LastRequest(http.MethodPatch, "/api/bookings/"+itoa(b.ID)+"/status")
	require.Equal(t, "ownerId=5&approved=true", req.Query)

	rc, err := payments.Pay(ctx, b.ID, b.TotalPrice, "")
	require.NoError(t, err)
	require.Equal(t, model.StatusPaid, rc.Status)
	require.Equal(t, PaymentMethodCard, rc.PaymentMethod)
	req, _ = srv.LastRequest(http.MethodPost, "/api/payments/pay")
	require.JSONEq(t, `{"bookingId":`+itoa(b.ID)+`,"amount":125,"paymentMethod":"CREDIT_CARD"}`, req.Body)

	// the renter is not the owner of the surfboard
	_, err = renterBookings.UpdateStatus(ctx, apitest.PendingID, apitest.RenterID, false)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestUpdatePriceWireShape(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	creds := &fakeCreds{token: srv.Token(apitest.OwnerID)}
	items := NewItemRepo(newClient(t, srv.BaseURL(), creds))

	it, err := items.UpdatePrice(context.Background(), apitest.BikeID, 35, apitest.OwnerID)
	require.NoError(t, err)
	require.Equal(t, 35.0, it.PricePerDay)

	req, _ := srv.LastRequest(http.MethodPatch, "/api/items/2/price")
	require.Equal(t, "ownerId=5", req.Query)
	require.JSONEq(t, `{"newPrice":35}`, req.Body)
}

func TestRegisterReturnsIdentifier(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	users := NewUserRepo(newClient(t, srv.BaseURL(), nil))

	p, err := users.Register(context.Background(), RegisterRequest{Name: "New Person", Email: " New@Test.com ", Password: "secret1", Role: "USER"})
	require.NoError(t, err)
	id, ok := p.Identifier()
	require.True(t, ok)
	require.NotZero(t, id)
	require.Equal(t, "new@test.com", p.Email)

	_, err = users.Register(context.Background(), RegisterRequest{Name: "Again", Email: "new@test.com", Password: "secret1"})
	require.ErrorIs(t, err, ErrConflict)
}

func TestReviewFallbackOnEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	rv, err := NewReviewRepo(newClient(t, srv.URL, nil)).Add(context.Background(), 9, NewReview{ReviewerID: 1, Rating: 4, Comment: "ok"})
	require.NoError(t, err)
	require.Equal(t, model.Review{ItemID: 9, ReviewerID: 1, Rating: 4, Comment: "ok"}, rv)
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
