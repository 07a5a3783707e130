package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/basic"
	"github.com/shaj13/go-guardian/auth/strategies/bearer"
	"github.com/shaj13/go-guardian/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/zoe-motors/storefront-api/config"
	"github.com/zoe-motors/storefront-api/databases"
	"github.com/zoe-motors/storefront-api/models"
	"github.com/zoe-motors/storefront-api/session"
)

// DefaultTokenTTL is how long a bearer token stays valid
const DefaultTokenTTL = 30 * 24 * time.Hour

// Auth authenticates requests with go-guardian. Basic credentials are checked
// against the users collection; bearer tokens are issued by CreateToken and
// each one owns a session.
type Auth struct {
	DB       databases.UserDatabase
	Sessions *session.Manager

	authenticator auth.Authenticator
	cache         store.Cache
}

// NewAuth sets up the basic and cached bearer strategies
func NewAuth(db databases.UserDatabase, sessions *session.Manager, ttl time.Duration) *Auth {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	a := &Auth{DB: db, Sessions: sessions}
	a.authenticator = auth.New()
	a.cache = store.NewFIFO(context.Background(), ttl)
	basicStrategy := basic.New(a.ValidateUser, a.cache)
	tokenStrategy := bearer.New(bearer.NoOpAuthenticate, a.cache)

	a.authenticator.EnableStrategy(basic.StrategyKey, basicStrategy)
	a.authenticator.EnableStrategy(bearer.CachedStrategyKey, tokenStrategy)
	return a
}

// Middleware rejects unauthenticated requests and stores the caller's
// identity in the request context
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		user, err := a.authenticator.Authenticate(r)
		if err != nil {
			zap.S().Errorw("unauthorized",
				"url", r.URL)
			if token, ok := BearerToken(r); ok {
				// the token expired or was never issued here
				a.Sessions.Close(token)
			}
			config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, err)
			return
		}
		zap.S().Debugf("User %s Authenticated\n", user.UserName())

		id := identityOf(user)
		if token, ok := BearerToken(r); ok {
			if s, found := a.Sessions.Get(token); found {
				id = s.Identity
			}
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// Optional is Middleware for routes that answer signed-out callers
// themselves: a request without credentials reaches next with no identity.
func (a *Auth) Optional(next http.Handler) http.Handler {
	strict := a.Middleware(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			next.ServeHTTP(w, r)
			return
		}
		strict.ServeHTTP(w, r)
	})
}

// AdminOnly lets through callers whose profile carries the admin role
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok || !id.IsAdmin() {
			config.ErrorStatus("admin access required", http.StatusForbidden, w, errors.New("forbidden"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func identityOf(info auth.Info) session.Identity {
	id := session.Identity{UserID: info.ID(), Email: info.UserName()}
	for _, g := range info.Groups() {
		if g == models.RoleAdmin {
			id.Role = models.RoleAdmin
		}
	}
	if id.Role == "" {
		id.Role = models.RoleUser
	}
	return id
}

// CreateToken issues a bearer token for basic-authenticated callers and opens
// their session
func (a *Auth) CreateToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	email, _, ok := r.BasicAuth()
	if !ok {
		config.ErrorStatus("basic auth failed", http.StatusUnauthorized, w, errors.New("missing basic auth"))
		return
	}

	ctx, cancel := WithQueryTimeout(r.Context())
	defer cancel()

	dbEmailResp, err := a.DB.Find(ctx, bson.M{"user.email": email})
	if err != nil || len(dbEmailResp) == 0 {
		config.ErrorStatus("failed to get user by email", http.StatusUnauthorized, w, err)
		return
	}

	user := dbEmailResp[0]
	token := uuid.New().String()
	authUser := auth.NewDefaultUser(email, user.ID, []string{user.Details.Role}, nil)
	tokenStrategy := a.authenticator.Strategy(bearer.CachedStrategyKey)
	if err := auth.Append(tokenStrategy, token, authUser, r); err != nil {
		config.ErrorStatus("failed to issue token", http.StatusInternalServerError, w, err)
		return
	}
	s := a.Sessions.Open(ctx, token, session.IdentityOf(user))

	responseBody, err := json.Marshal(map[string]string{
		"token":    token,
		"_id":      user.ID,
		"role":     s.Identity.Role,
		"language": string(s.Translator.Language()),
	})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	_, _ = w.Write(responseBody)
}

// ValidateUser checks an email and password pair against the stored bcrypt hash
func (a *Auth) ValidateUser(ctx context.Context, r *http.Request, email, password string) (auth.Info, error) {
	dbEmailResp, err := a.DB.Find(ctx, bson.M{"user.email": email})
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	if len(dbEmailResp) == 0 {
		return nil, fmt.Errorf("no matching email found")
	}

	u := dbEmailResp[0]
	if err := bcrypt.CompareHashAndPassword([]byte(u.Details.Password), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}
	return auth.NewDefaultUser(email, u.ID, []string{u.Details.Role}, nil), nil
}

// RevokeToken revokes the caller's bearer token and closes its session
func (a *Auth) RevokeToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	token, ok := BearerToken(r)
	if !ok {
		config.ErrorStatus("missing bearer token", http.StatusBadRequest, w, errors.New("no bearer token"))
		return
	}

	tokenStrategy := a.authenticator.Strategy(bearer.CachedStrategyKey)
	if err := auth.Revoke(tokenStrategy, token, r); err != nil {
		zap.S().Warnw("failed to revoke token", "error", err)
	}
	a.Sessions.Close(token)
	b, _ := json.Marshal(map[string]string{"revoked token": token})
	_, _ = w.Write(b)
}

// BearerToken extracts the token of an "Authorization: Bearer" header
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}
	t := strings.TrimSpace(h[len(prefix):])
	return t, t != ""
}
