package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"

	"github.com/zoe-motors/storefront-api/databases/mocks"
	"github.com/zoe-motors/storefront-api/i18n"
	"github.com/zoe-motors/storefront-api/models"
	"github.com/zoe-motors/storefront-api/session"
)

func newTestAuth(t *testing.T, role string) (*Auth, *session.Manager) {
	t.Helper()
	return newTestAuthTTL(t, role, time.Hour)
}

func newTestAuthTTL(t *testing.T, role string, ttl time.Duration) (*Auth, *session.Manager) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	db := &mocks.UserDatabase{}
	db.On("Find", mock.Anything, bson.M{"user.email": "abebe@zoe.et"}).Return([]models.User{{
		ID: "u1",
		Details: models.UserDetails{
			FirstName: "Abebe", LastName: "Kebede", Email: "abebe@zoe.et", Role: role, Password: string(hash),
		},
	}}, nil)
	db.On("Find", mock.Anything, mock.Anything).Return([]models.User{}, nil)

	links := &mocks.SavedLinkDatabase{}
	links.On("Find", mock.Anything, mock.Anything, mock.Anything).Return([]models.SavedLink{}, nil)
	sessions := session.NewManager(session.Deps{Links: links, Catalog: i18n.MustLoad()})
	return NewAuth(db, sessions, ttl), sessions
}

func issueToken(t *testing.T, a *Auth, password string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/auth/token", nil)
	req.SetBasicAuth("abebe@zoe.et", password)
	rr := httptest.NewRecorder()
	a.Middleware(http.HandlerFunc(a.CreateToken)).ServeHTTP(rr, req)

	var body map[string]string
	_ = json.Unmarshal(rr.Body.Bytes(), &body)
	return rr, body["token"]
}

func TestAuth_CreateTokenOpensSession(t *testing.T) {
	a, sessions := newTestAuth(t, models.RoleUser)
	rr, token := issueToken(t, a, "s3cret")

	require.Equal(t, http.StatusOK, rr.Code)
	require.NotEmpty(t, token)
	s, ok := sessions.Get(token)
	require.True(t, ok)
	assert.Equal(t, "u1", s.Identity.UserID)
	assert.Equal(t, "Abebe Kebede", s.Identity.DisplayName)
}

func TestAuth_WrongPasswordIsRejected(t *testing.T) {
	a, sessions := newTestAuth(t, models.RoleUser)
	rr, _ := issueToken(t, a, "wrong")

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, 0, sessions.Len())
}

func TestAuth_BearerCarriesIdentityAndRole(t *testing.T) {
	a, _ := newTestAuth(t, models.RoleAdmin)
	_, token := issueToken(t, a, "s3cret")

	var got session.Identity
	h := a.Middleware(AdminOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = IdentityFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	req := httptest.NewRequest("GET", "/api/v1/admin/overview", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "u1", got.UserID)
	assert.True(t, got.IsAdmin())
}

func TestAdminOnly_RejectsCustomers(t *testing.T) {
	a, _ := newTestAuth(t, models.RoleUser)
	_, token := issueToken(t, a, "s3cret")

	h := a.Middleware(AdminOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("admin handler reached")
	})))
	req := httptest.NewRequest("GET", "/api/v1/admin/overview", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestAuth_RevokeTokenClosesSession(t *testing.T) {
	a, sessions := newTestAuth(t, models.RoleUser)
	_, token := issueToken(t, a, "s3cret")

	req := httptest.NewRequest("DELETE", "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	a.Middleware(http.HandlerFunc(a.RevokeToken)).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	_, ok := sessions.Get(token)
	assert.False(t, ok)

	rr = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	a.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	_, ok := BearerToken(req)
	assert.False(t, ok)

	req.Header.Set("Authorization", "Bearer abc")
	tok, ok := BearerToken(req)
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)
}

func TestTimeoutMiddleware(t *testing.T) {
	slow := TimeoutMiddleware(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		_, _ = w.Write([]byte("late"))
	}))
	rr := httptest.NewRecorder()
	slow.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusRequestTimeout, rr.Code)
	assert.NotContains(t, rr.Body.String(), "late")

	fast := TimeoutMiddleware(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", "1")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	}))
	rr = httptest.NewRecorder()
	fast.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
	assert.Equal(t, "1", rr.Header().Get("X-Test"))
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestHealthCheckHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	HealthCheckHandler(pinger{}).ServeHTTP(rr, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"alive": true}`, rr.Body.String())

	rr = httptest.NewRecorder()
	HealthCheckHandler(pinger{err: context.DeadlineExceeded}).ServeHTTP(rr, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestMetricsMiddleware(t *testing.T) {
	m := NewMetrics(10)
	defer m.Stop()

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/ok", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/missing", nil))

	assert.Eventually(t, func() bool { return m.Summary(5).TotalRequests == 2 }, time.Second, 5*time.Millisecond)
	s := m.Summary(5)
	assert.Equal(t, int64(1), s.TotalErrors)
	assert.Len(t, s.Slowest, 2)
}

func TestAuth_OptionalPassesSignedOutCallers(t *testing.T) {
	a, _ := newTestAuth(t, models.RoleUser)
	var seen, hasIdentity bool
	h := a.Optional(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = true
		_, hasIdentity = IdentityFrom(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("POST", "/api/v1/submissions/trade-in", nil))
	assert.True(t, seen)
	assert.False(t, hasIdentity)

	seen = false
	req := httptest.NewRequest("POST", "/api/v1/submissions/trade-in", nil)
	req.Header.Set("Authorization", "Bearer unknown")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.False(t, seen)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuth_ExpiredTokenClosesSession(t *testing.T) {
	a, sessions := newTestAuthTTL(t, models.RoleUser, 50*time.Millisecond)

	_, token := issueToken(t, a, "s3cret")
	require.NotEmpty(t, token)
	require.Equal(t, 1, sessions.Len())
	time.Sleep(100 * time.Millisecond)

	req := httptest.NewRequest("GET", "/api/v1/saved", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("expired token reached the handler")
	})).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, 0, sessions.Len())
}
