package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/gearshare/internal/model"
	"github.com/iliyamo/gearshare/internal/repository"
	"github.com/iliyamo/gearshare/internal/service"
)

func TestAfterLogin(t *testing.T) {
	user := model.User{ID: 1, Role: model.RoleUser}
	admin := model.User{ID: 2, Role: model.RoleAdmin}

	require.Equal(t, "/owner-dashboard", afterLogin(admin, "/my-bookings"))
	require.Equal(t, "/my-bookings", afterLogin(user, "/my-bookings"))
	require.Equal(t, "/", afterLogin(user, ""))
	require.Equal(t, "/", afterLogin(user, "//evil.example/x"))
	require.Equal(t, "/", afterLogin(user, `/\evil.example`))
	require.Equal(t, "/", afterLogin(user, "https://evil.example"))
}

func TestRedirectAddsNotice(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/x", nil), rec)

	require.NoError(t, redirect(c, "/login?next=%2Fmy-bookings", "session_expired"))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/login?next=%2Fmy-bookings&notice=session_expired", rec.Header().Get("Location"))
}

func TestFormMessageAndStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{service.ErrBadCredentials, http.StatusUnauthorized, "Invalid email or password."},
		{fmt.Errorf("%w: price must be greater than 0", repository.ErrValidation), http.StatusUnprocessableEntity, "Price must be greater than 0."},
		{fmt.Errorf("%w: email already registered", repository.ErrConflict), http.StatusConflict, "Email already registered."},
		{fmt.Errorf("%w: dial tcp", repository.ErrUnavailable), http.StatusBadGateway, "The marketplace is unavailable right now. Please try again shortly."},
		{errors.New("boom"), http.StatusInternalServerError, "Something went wrong. Please try again."},
	}
	for _, tc := range cases {
		require.Equal(t, tc.status, formStatus(tc.err), tc.err.Error())
		require.Equal(t, tc.msg, formMessage(tc.err), tc.err.Error())
	}
}

func TestPathID(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")

	c.SetParamValues("42")
	id, ok := pathID(c, "id")
	require.True(t, ok)
	require.Equal(t, int64(42), id)

	for _, v := range []string{"0", "-3", "abc", ""} {
		c.SetParamValues(v)
		_, ok := pathID(c, "id")
		require.False(t, ok, v)
	}
}
