// Package session holds the per-user state of signed-in clients. Each bearer
// token gets its own Session; nothing is shared between sessions.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zoe-motors/storefront-api/catalog"
	"github.com/zoe-motors/storefront-api/databases"
	"github.com/zoe-motors/storefront-api/i18n"
	"github.com/zoe-motors/storefront-api/listing"
	"github.com/zoe-motors/storefront-api/live"
	"github.com/zoe-motors/storefront-api/models"
	"github.com/zoe-motors/storefront-api/saved"
)

// Identity is who a session belongs to
type Identity struct {
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
	Language    string `json:"language,omitempty"`
}

// IsAdmin reports whether the identity may use the back office
func (i Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

// IdentityOf builds the identity stored for a user profile
func IdentityOf(u models.User) Identity {
	return Identity{
		UserID:      u.ID,
		Email:       u.Details.Email,
		DisplayName: u.Details.FullName(),
		Role:        u.Details.Role,
		Language:    u.Details.Language,
	}
}

// Session is the state of one signed-in client
type Session struct {
	Token    string
	Identity Identity

	Translator    *i18n.Translator
	SavedVehicles *saved.Reconciler
	SavedParts    *saved.Reconciler

	Vehicles    *catalog.Feed[catalog.VehicleFilters, models.Vehicle]
	Parts       *catalog.Feed[catalog.PartFilters, models.SparePart]
	VehicleList *listing.Controller[catalog.VehicleFilters]
	PartList    *listing.Controller[catalog.PartFilters]

	Opened  time.Time
	Expires time.Time // zero means the session never expires
	subs    []func()
}

// Expired reports whether the session outlived its token at now
func (s *Session) Expired(now time.Time) bool {
	return !s.Expires.IsZero() && !now.Before(s.Expires)
}

// Saved returns the reconciler for kind
func (s *Session) Saved(kind models.EntityKind) *saved.Reconciler {
	if kind == models.KindPart {
		return s.SavedParts
	}
	return s.SavedVehicles
}

func (s *Session) close() {
	for _, c := range s.subs {
		c()
	}
	s.subs = nil
}

// Deps are the collaborators every session is built from
type Deps struct {
	Vehicles databases.VehicleDatabase
	Parts    databases.SparePartDatabase
	Links    databases.SavedLinkDatabase
	Catalog  *i18n.Catalog
	Prefs    i18n.PreferenceStore
	Hub      *live.Hub
	// TTL should match the bearer token lifetime; zero keeps sessions until closed
	TTL time.Duration
}

// Manager owns the sessions of one process
type Manager struct {
	deps Deps

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates an empty manager
func NewManager(d Deps) *Manager {
	return &Manager{deps: d, sessions: map[string]*Session{}}
}

// Open creates the session for token, replacing any previous one. Saved
// links that fail to load are logged and start out empty.
func (m *Manager) Open(ctx context.Context, token string, id Identity) *Session {
	lang := i18n.Resolve(ctx, m.deps.Prefs, id.UserID)
	if lang == i18n.Default {
		if l, ok := i18n.ParseLanguage(id.Language); ok {
			lang = l
		}
	}
	tr := m.deps.Catalog.Translator(lang)

	s := &Session{
		Token:         token,
		Identity:      id,
		Translator:    tr,
		SavedVehicles: saved.NewReconciler(m.deps.Links, models.KindVehicle),
		SavedParts:    saved.NewReconciler(m.deps.Links, models.KindPart),
		Vehicles:      catalog.NewVehicleFeed(catalog.Vehicles{DB: m.deps.Vehicles}, tr),
		Parts:         catalog.NewPartFeed(catalog.Parts{DB: m.deps.Parts}, tr),
		VehicleList:   listing.NewController[catalog.VehicleFilters](),
		PartList:      listing.NewController[catalog.PartFilters](),
		Opened:        time.Now(),
	}
	if m.deps.TTL > 0 {
		s.Expires = s.Opened.Add(m.deps.TTL)
	}
	for _, r := range []*saved.Reconciler{s.SavedVehicles, s.SavedParts} {
		if err := r.Load(ctx, id.UserID); err != nil {
			zap.S().Warnw("session opened without saved links", "userID", id.UserID, "kind", r.Kind(), "error", err)
		}
	}
	if m.deps.Hub != nil {
		s.subs = append(s.subs,
			m.invalidateOn(live.TopicVehicles, s.Vehicles.Invalidate),
			m.invalidateOn(live.TopicSpareParts, s.Parts.Invalidate),
		)
	}

	m.mu.Lock()
	prev := m.sessions[token]
	m.sessions[token] = s
	m.mu.Unlock()
	if prev != nil {
		prev.close()
	}
	return s
}

// invalidateOn calls invalidate after every change on topic
func (m *Manager) invalidateOn(topic live.Topic, invalidate func()) func() {
	sub := live.Watch(context.Background(), m.deps.Hub, topic, func(context.Context) (struct{}, error) {
		return struct{}{}, nil
	})
	go func() {
		first := true
		for range sub.Updates() {
			if first {
				first = false
				continue
			}
			invalidate()
		}
	}()
	return sub.Close
}

// Get returns the live session of token. An expired session is closed.
func (m *Manager) Get(token string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[token]
	m.mu.RUnlock()
	if ok && s.Expired(time.Now()) {
		m.Close(token)
		return nil, false
	}
	return s, ok
}

// Sweep closes every session expired at now and returns how many it closed
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	var closing []*Session
	for token, s := range m.sessions {
		if s.Expired(now) {
			closing = append(closing, s)
			delete(m.sessions, token)
		}
	}
	m.mu.Unlock()
	for _, s := range closing {
		s.close()
	}
	if len(closing) > 0 {
		zap.S().Debugw("expired sessions closed", "count", len(closing))
	}
	return len(closing)
}

// Close drops the session of token and disposes its subscriptions
func (m *Manager) Close(token string) {
	m.mu.Lock()
	s := m.sessions[token]
	delete(m.sessions, token)
	m.mu.Unlock()
	if s != nil {
		s.close()
	}
}

// CloseUser drops every session of one user
func (m *Manager) CloseUser(userID string) {
	m.mu.Lock()
	var closing []*Session
	for token, s := range m.sessions {
		if s.Identity.UserID == userID {
			closing = append(closing, s)
			delete(m.sessions, token)
		}
	}
	m.mu.Unlock()
	for _, s := range closing {
		s.close()
	}
}

// CloseAll drops every session
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = map[string]*Session{}
	m.mu.Unlock()
	for _, s := range all {
		s.close()
	}
}

// Len is the number of open sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// SetLanguage switches every session of userID and persists the choice
func (m *Manager) SetLanguage(ctx context.Context, userID string, lang i18n.Language) error {
	m.mu.RLock()
	for _, s := range m.sessions {
		if s.Identity.UserID == userID {
			s.Translator.SetLanguage(lang)
		}
	}
	m.mu.RUnlock()
	if m.deps.Prefs == nil {
		return nil
	}
	return m.deps.Prefs.Set(ctx, userID, lang)
}
