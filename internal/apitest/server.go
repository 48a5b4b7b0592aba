// Package apitest runs an in-memory stand-in for the marketplace REST
// backend. It implements the canonical /api contract (auth, items, reviews,
// bookings, payments) with the booking state machine and bearer-token
// checks, and records every request so tests can assert on the wire format.
package apitest

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gearshare/internal/model"
)

// Seeded fixtures.
const (
	RenterID      int64 = 1
	OwnerID       int64 = 5
	AdminID       int64 = 99
	SurfboardID   int64 = 1
	BikeID        int64 = 2
	TentID        int64 = 3
	PendingID     int64 = 101
	Password            = "password"
	RenterEmail         = "user@test.com"
	OwnerEmail          = "owner@test.com"
	AdminEmail          = "admin@test.com"
	PaymentMethod       = "CREDIT_CARD"
)

// Request is one recorded call.
type Request struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   string
}

type user struct {
	model.User
	password string
}

// Server is the fake backend. Its URL + "/api" is the base URL clients use.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	users    map[int64]*user
	tokens   map[string]int64
	items    map[int64]*model.Item
	bookings map[int64]*model.Booking
	nextID   int64
	requests []Request
	failures map[string]int
}

// New starts a seeded fake backend. Call Close when done.
func New() *Server {
	s := &Server{
		users:    map[int64]*user{},
		tokens:   map[string]int64{},
		items:    map[int64]*model.Item{},
		bookings: map[int64]*model.Booking{},
		nextID:   1000,
		failures: map[string]int{},
	}
	s.seed()

	e := echo.New()
	e.HideBanner = true
	e.Use(s.record)
	g := e.Group("/api")
	g.POST("/auth/login", s.login)
	g.POST("/auth/register", s.register)
	g.GET("/items", s.listItems)
	g.GET("/items/:id", s.getItem)
	g.POST("/items", s.createItem, s.auth)
	g.GET("/items/owner/:ownerId", s.itemsByOwner, s.auth)
	g.DELETE("/items/:id", s.deleteItem, s.auth)
	g.PATCH("/items/:id/price", s.updatePrice, s.auth)
	g.POST("/items/:id/reviews", s.addReview, s.auth)
	g.POST("/bookings", s.createBooking, s.auth)
	g.GET("/bookings/renter/:renterId", s.bookingsByRenter, s.auth)
	g.GET("/bookings/owner/:ownerId", s.bookingsByOwner, s.auth)
	g.PATCH("/bookings/:id/status", s.updateStatus, s.auth)
	g.POST("/payments/pay", s.pay, s.auth)

	s.Server = httptest.NewServer(e)
	return s
}

// BaseURL is the value to configure clients with.
func (s *Server) BaseURL() string { return s.URL + "/api" }

func (s *Server) seed() {
	s.users[RenterID] = &user{User: model.User{ID: RenterID, Name: "Regular User", Email: RenterEmail, Role: model.RoleUser}, password: Password}
	s.users[OwnerID] = &user{User: model.User{ID: OwnerID, Name: "Olivia Owner", Email: OwnerEmail, Role: model.RoleUser}, password: Password}
	s.users[AdminID] = &user{User: model.User{ID: AdminID, Name: "Admin User", Email: AdminEmail, Role: model.RoleAdmin}, password: Password}

	s.items[SurfboardID] = &model.Item{ID: SurfboardID, Name: "Surfboard 7ft", Category: "Surf", Description: "Soft-top board, great for beginners", PricePerDay: 25, Location: "Lisbon", Condition: "Good", OwnerID: OwnerID}
	s.items[BikeID] = &model.Item{ID: BikeID, Name: "Mountain Bike", Category: "Bike", Description: "Full suspension trail bike", PricePerDay: 40, Location: "Porto", Condition: "Like New", OwnerID: OwnerID}
	s.items[TentID] = &model.Item{ID: TentID, Name: "Camping Tent", Category: "Camping", Description: "Two person tent", PricePerDay: 15, Location: "San Francisco, CA", Condition: "Fair", OwnerID: RenterID}

	start, _ := model.ParseDate("2025-02-01")
	end, _ := model.ParseDate("2025-02-03")
	s.bookings[PendingID] = &model.Booking{ID: PendingID, RenterID: RenterID, ItemIDs: []int64{SurfboardID}, StartDate: start, EndDate: end, TotalPrice: 75, Status: model.StatusPending}
}

// Token returns a valid bearer token for a seeded or registered user.
func (s *Server) Token(userID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok := fmt.Sprintf("token-%d", userID)
	s.tokens[tok] = userID
	return tok
}

// RevokeTokens invalidates every issued token so the next call gets 401.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = map[string]int64{}
}

// FailNext makes the next call to "METHOD /path" answer with status.
func (s *Server) FailNext(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = status
}

// Requests returns a copy of the recorded calls.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// LastRequest returns the most recent call to the given method and path.
func (s *Server) LastRequest(method, path string) (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.requests) - 1; i >= 0; i-- {
		if r := s.requests[i]; r.Method == method && r.Path == path {
			return r, true
		}
	}
	return Request{}, false
}

// Booking returns a copy of a stored booking.
func (s *Server) Booking(id int64) (model.Booking, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return model.Booking{}, false
	}
	return *b, true
}

// SetBookingStatus forces a booking into a status.
func (s *Server) SetBookingStatus(id int64, st model.BookingStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.bookings[id]; ok {
		b.Status = st
	}
}

// SetBookingTotal overwrites a booking's total price.
func (s *Server) SetBookingTotal(id int64, total float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.bookings[id]; ok {
		b.TotalPrice = total
	}
}

// BookingCount returns the number of stored bookings.
func (s *Server) BookingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookings)
}

// Item returns a copy of a stored item.
func (s *Server) Item(id int64) (model.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return model.Item{}, false
	}
	return *it, true
}

func (s *Server) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		r := c.Request()
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(strings.NewReader(string(body)))
		}
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Auth:   r.Header.Get("Authorization"),
			Body:   string(body),
		})
		key := r.Method + " " + r.URL.Path
		status, fail := s.failures[key]
		delete(s.failures, key)
		s.mu.Unlock()
		if fail {
			return c.JSON(status, echo.Map{"message": http.StatusText(status)})
		}
		return next(c)
	}
}

func (s *Server) auth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := strings.TrimPrefix(c.Request().Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		uid, ok := s.tokens[raw]
		s.mu.Unlock()
		if raw == "" || !ok {
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
		}
		c.Set("user_id", uid)
		return next(c)
	}
}

func caller(c echo.Context) int64 {
	id, _ := c.Get("user_id").(int64)
	return id
}

func idParam(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func (s *Server) login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}
	s.mu.Lock()
	var found *user
	for _, u := range s.users {
		if strings.EqualFold(u.Email, req.Email) && u.password == req.Password {
			found = u
			break
		}
	}
	s.mu.Unlock()
	if found == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "bad credentials"})
	}
	id := found.ID
	return c.JSON(http.StatusOK, model.AuthPayload{
		UserID: &id, Name: found.Name, Email: found.Email, Role: string(found.Role), Token: s.Token(id),
	})
}

func (s *Server) register(c echo.Context) error {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := c.Bind(&req); err != nil || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}
	s.mu.Lock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, req.Email) {
			s.mu.Unlock()
			return c.JSON(http.StatusConflict, echo.Map{"message": "email already exists"})
		}
	}
	s.nextID++
	id := s.nextID
	s.users[id] = &user{User: model.User{ID: id, Name: req.Name, Email: req.Email, Role: model.Role(req.Role)}, password: req.Password}
	s.mu.Unlock()
	// the register endpoint answers with "id" rather than "userId"
	return c.JSON(http.StatusCreated, model.AuthPayload{
		ID: &id, Name: req.Name, Email: req.Email, Role: req.Role, Token: s.Token(id),
	})
}

func (s *Server) listItems(c echo.Context) error {
	q := c.QueryParams()
	keyword := q.Get("keyword")
	category := q.Get("category")
	location := strings.ToLower(q.Get("location"))
	minPrice, _ := strconv.ParseFloat(q.Get("minPrice"), 64)
	maxPrice, _ := strconv.ParseFloat(q.Get("maxPrice"), 64)

	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Item{}
	for _, it := range s.sortedItems() {
		if !it.Matches(keyword) {
			continue
		}
		if category != "" && !strings.EqualFold(it.Category, category) {
			continue
		}
		if location != "" && !strings.Contains(strings.ToLower(it.Location), location) {
			continue
		}
		if minPrice > 0 && it.PricePerDay < minPrice {
			continue
		}
		if maxPrice > 0 && it.PricePerDay > maxPrice {
			continue
		}
		out = append(out, s.withReviewers(*it))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) sortedItems() []*model.Item {
	out := make([]*model.Item, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) withReviewers(it model.Item) model.Item {
	it.Reviews = append([]model.Review(nil), it.Reviews...)
	for i := range it.Reviews {
		if u, ok := s.users[it.Reviews[i].ReviewerID]; ok {
			it.Reviews[i].ReviewerName = u.Name
		}
	}
	return it
}

func (s *Server) getItem(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	it, found := s.items[id]
	if !found {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "item not found"})
	}
	return c.JSON(http.StatusOK, s.withReviewers(*it))
}

func (s *Server) createItem(c echo.Context) error {
	var it model.Item
	if err := c.Bind(&it); err != nil || it.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid item"})
	}
	if it.OwnerID != caller(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "owner mismatch"})
	}
	s.mu.Lock()
	s.nextID++
	it.ID = s.nextID
	it.Reviews = nil
	s.items[it.ID] = &it
	s.mu.Unlock()
	return c.JSON(http.StatusCreated, it)
}

func (s *Server) itemsByOwner(c echo.Context) error {
	ownerID, ok := idParam(c, "ownerId")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid owner id"})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Item{}
	for _, it := range s.sortedItems() {
		if it.OwnerID == ownerID {
			out = append(out, *it)
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) deleteItem(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	it, found := s.items[id]
	if !found {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "item not found"})
	}
	if it.OwnerID != caller(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "not the owner"})
	}
	delete(s.items, id)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) updatePrice(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	ownerID, _ := strconv.ParseInt(c.QueryParam("ownerId"), 10, 64)
	var body struct {
		NewPrice float64 `json:"newPrice"`
	}
	if err := c.Bind(&body); err != nil || body.NewPrice <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid price"})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	it, found := s.items[id]
	if !found {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "item not found"})
	}
	if it.OwnerID != ownerID || ownerID != caller(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "not the owner"})
	}
	it.PricePerDay = body.NewPrice
	return c.JSON(http.StatusOK, *it)
}

func (s *Server) addReview(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var rv model.Review
	if err := c.Bind(&rv); err != nil || rv.Rating < 1 || rv.Rating > 5 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid review"})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	it, found := s.items[id]
	if !found {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "item not found"})
	}
	s.nextID++
	rv.ID = s.nextID
	rv.ItemID = id
	if u, ok := s.users[rv.ReviewerID]; ok {
		rv.ReviewerName = u.Name
	}
	it.Reviews = append(it.Reviews, rv)
	return c.JSON(http.StatusCreated, rv)
}

func (s *Server) createBooking(c echo.Context) error {
	var req struct {
		RenterID  int64      `json:"renterId"`
		ItemIDs   []int64    `json:"itemIds"`
		StartDate model.Date `json:"startDate"`
		EndDate   model.Date `json:"endDate"`
	}
	if err := c.Bind(&req); err != nil || len(req.ItemIDs) == 0 || req.StartDate.IsZero() || req.EndDate.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid booking"})
	}
	if req.RenterID != caller(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "renter mismatch"})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b := &model.Booking{RenterID: req.RenterID, ItemIDs: req.ItemIDs, StartDate: req.StartDate, EndDate: req.EndDate, Status: model.StatusPending}
	days := float64(b.Days())
	for _, id := range req.ItemIDs {
		it, ok := s.items[id]
		if !ok {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "item not found"})
		}
		b.TotalPrice += it.PricePerDay * days
	}
	s.nextID++
	b.ID = s.nextID
	s.bookings[b.ID] = b
	return c.JSON(http.StatusCreated, *b)
}

func (s *Server) bookingsWhere(keep func(*model.Booking) bool) []model.Booking {
	out := []model.Booking{}
	for _, b := range s.bookings {
		if keep(b) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) ownsAny(ownerID int64, itemIDs []int64) bool {
	for _, id := range itemIDs {
		if it, ok := s.items[id]; ok && it.OwnerID == ownerID {
			return true
		}
	}
	return false
}

func (s *Server) bookingsByRenter(c echo.Context) error {
	renterID, ok := idParam(c, "renterId")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid renter id"})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(http.StatusOK, s.bookingsWhere(func(b *model.Booking) bool { return b.RenterID == renterID }))
}

func (s *Server) bookingsByOwner(c echo.Context) error {
	ownerID, ok := idParam(c, "ownerId")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid owner id"})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(http.StatusOK, s.bookingsWhere(func(b *model.Booking) bool { return s.ownsAny(ownerID, b.ItemIDs) }))
}

func (s *Server) updateStatus(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	ownerID, _ := strconv.ParseInt(c.QueryParam("ownerId"), 10, 64)
	approved, err := strconv.ParseBool(c.QueryParam("approved"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "approved must be a boolean"})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, found := s.bookings[id]
	if !found {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "booking not found"})
	}
	if ownerID != caller(c) || !s.ownsAny(ownerID, b.ItemIDs) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "not the owner"})
	}
	to := model.StatusDeclined
	if approved {
		to = model.StatusApproved
	}
	if !model.CanTransition(b.Status, to) {
		return c.JSON(http.StatusConflict, echo.Map{"message": "booking is " + string(b.Status)})
	}
	b.Status = to
	return c.JSON(http.StatusOK, *b)
}

func (s *Server) pay(c echo.Context) error {
	var req struct {
		BookingID     int64   `json:"bookingId"`
		Amount        float64 `json:"amount"`
		PaymentMethod string  `json:"paymentMethod"`
	}
	if err := c.Bind(&req); err != nil || req.BookingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid payment"})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, found := s.bookings[req.BookingID]
	if !found {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "booking not found"})
	}
	if b.RenterID != caller(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "not the renter"})
	}
	if !model.CanTransition(b.Status, model.StatusPaid) {
		return c.JSON(http.StatusConflict, echo.Map{"message": "booking is " + string(b.Status)})
	}
	b.Status = model.StatusPaid
	s.nextID++
	return c.JSON(http.StatusOK, model.Receipt{
		ID: s.nextID, BookingID: b.ID, Amount: req.Amount, PaymentMethod: req.PaymentMethod,
		Status: model.StatusPaid, PaidAt: "2025-01-06T10:00:00Z",
	})
}
