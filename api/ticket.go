package api

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/zoe-motors/storefront-api/session"
)

// DefaultTicketTTL is how long a live ticket can be used to open a socket
const DefaultTicketTTL = time.Minute

// ErrInvalidTicket is returned for a ticket that fails verification
var ErrInvalidTicket = errors.New("invalid live ticket")

// TicketClaims identifies the user a websocket is opened for
type TicketClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Tickets issues the short lived tokens browsers pass on websocket URLs,
// where no Authorization header can be set
type Tickets struct {
	secret []byte
	ttl    time.Duration
}

// NewTickets signs with secret. A zero ttl means DefaultTicketTTL.
func NewTickets(secret string, ttl time.Duration) *Tickets {
	if ttl <= 0 {
		ttl = DefaultTicketTTL
	}
	return &Tickets{secret: []byte(secret), ttl: ttl}
}

// Sign issues a ticket for id
func (t *Tickets) Sign(id session.Identity, now time.Time) (string, error) {
	claims := TicketClaims{
		UserID: id.UserID,
		Email:  id.Email,
		Name:   id.DisplayName,
		Role:   id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse verifies a ticket and returns the identity it was issued for
func (t *Tickets) Parse(token string) (session.Identity, error) {
	parsed, err := jwt.ParseWithClaims(token, &TicketClaims{}, func(tok *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return session.Identity{}, err
	}
	c, ok := parsed.Claims.(*TicketClaims)
	if !ok || !parsed.Valid || c.UserID == "" {
		return session.Identity{}, ErrInvalidTicket
	}
	return session.Identity{UserID: c.UserID, Email: c.Email, DisplayName: c.Name, Role: c.Role}, nil
}
