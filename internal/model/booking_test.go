package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to BookingStatus
		want     bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusDeclined, true},
		{StatusApproved, StatusPaid, true},
		{StatusPending, StatusPaid, false},
		{StatusApproved, StatusDeclined, false},
		{StatusDeclined, StatusApproved, false},
		{StatusDeclined, StatusPaid, false},
		{StatusPaid, StatusApproved, false},
		{StatusPaid, StatusPending, false},
		{"CONFIRMED", StatusPaid, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	require.True(t, StatusPaid.Terminal())
	require.True(t, StatusDeclined.Terminal())
	require.False(t, StatusPending.Terminal())
	require.False(t, StatusApproved.Terminal())
}

func TestBookingAffordances(t *testing.T) {
	b := Booking{Status: StatusPending}
	require.True(t, b.CanDecide())
	require.False(t, b.CanPay())

	b.Status = StatusApproved
	require.False(t, b.CanDecide())
	require.True(t, b.CanPay())

	b.Status = StatusDeclined
	require.False(t, b.CanDecide())
	require.False(t, b.CanPay())
}

func TestBookingJSONDates(t *testing.T) {
	var b Booking
	err := json.Unmarshal([]byte(`{"id":7,"renterId":1,"itemIds":[1,2],"startDate":"2025-01-01","endDate":"2025-01-05T00:00:00Z","status":"PENDING"}`), &b)
	require.NoError(t, err)
	require.Equal(t, "2025-01-01", b.StartDate.String())
	require.Equal(t, "2025-01-05", b.EndDate.String())
	require.Equal(t, 5, b.Days())

	out, err := json.Marshal(b)
	require.NoError(t, err)
	require.Contains(t, string(out), `"startDate":"2025-01-01"`)
	require.Contains(t, string(out), `"endDate":"2025-01-05"`)
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole("")
	require.True(t, ok)
	require.Equal(t, RoleUser, r)

	r, ok = ParseRole(" admin ")
	require.True(t, ok)
	require.Equal(t, RoleAdmin, r)

	_, ok = ParseRole("RENTER")
	require.False(t, ok)
}

func TestItemOwnershipAndSearchMatch(t *testing.T) {
	it := Item{Name: "Surfboard 7ft", Description: "Great for beginners", Owner: &OwnerRef{ID: 5}}
	require.Equal(t, int64(5), it.OwnerUserID())
	require.True(t, it.OwnedBy(&User{ID: 5}))
	require.False(t, it.OwnedBy(&User{ID: 1}))
	require.False(t, it.OwnedBy(nil))

	require.True(t, it.Matches("surf"))
	require.True(t, it.Matches("BEGINNERS"))
	require.False(t, it.Matches("kayak"))
	require.True(t, it.Matches(""))
}

func TestReviewStars(t *testing.T) {
	require.Equal(t, "★★★★★", Review{Rating: 5}.Stars())
	require.Equal(t, "★★☆☆☆", Review{Rating: 2}.Stars())
}
