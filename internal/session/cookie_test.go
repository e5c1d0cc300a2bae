package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// carryCookies copies the Set-Cookie headers of rr onto a fresh request.
func carryCookies(rr *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rr.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestUserRoundTrip(t *testing.T) {
	m := NewManager(testSecret, false)

	user, err := m.GetUser(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Nil(t, user)

	rr := httptest.NewRecorder()
	require.NoError(t, m.SetUser(rr, httptest.NewRequest(http.MethodGet, "/", nil), &User{Email: "orpheus@hackclub.com", HD: "hackclub.com"}))

	user, err = m.GetUser(carryCookies(rr))
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "orpheus@hackclub.com", user.Email)
}

func TestStateCheck(t *testing.T) {
	m := NewManager(testSecret, false)

	rr := httptest.NewRecorder()
	require.NoError(t, m.SetState(rr, httptest.NewRequest(http.MethodGet, "/", nil), "abc"))

	req := carryCookies(rr)
	assert.NoError(t, m.CheckState(req, "abc"))
	assert.ErrorIs(t, m.CheckState(req, "other"), ErrStateMismatch)
	assert.ErrorIs(t, m.CheckState(httptest.NewRequest(http.MethodGet, "/", nil), "abc"), ErrStateMismatch)
}
