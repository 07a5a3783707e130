// Package saved keeps one user's set of bookmarked vehicles or spare parts.
package saved

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zoe-motors/storefront-api/databases"
	"github.com/zoe-motors/storefront-api/models"
)

// ErrNoUser is returned by Toggle before any user has been loaded
var ErrNoUser = errors.New("no signed-in user")

// Reconciler mirrors the saved links of one (user, kind) pair in memory.
//
// Toggle writes to the store first and only touches the in-memory set once the
// write has resolved. A failed write is logged and leaves the set alone.
// Concurrent toggles on the same entity are not serialized; the last write to
// land wins and the set may disagree with the store until the next Load.
type Reconciler struct {
	db   databases.SavedLinkDatabase
	kind models.EntityKind
	now  func() time.Time

	mu     sync.RWMutex
	userID string
	ids    []string
	index  map[string]struct{}
}

// NewReconciler creates an empty reconciler for one entity kind
func NewReconciler(db databases.SavedLinkDatabase, kind models.EntityKind) *Reconciler {
	return &Reconciler{db: db, kind: kind, now: time.Now, index: map[string]struct{}{}}
}

// Kind is the entity kind this reconciler tracks
func (r *Reconciler) Kind() models.EntityKind {
	return r.kind
}

// Load replaces the set with the user's stored links. An empty userID clears it.
func (r *Reconciler) Load(ctx context.Context, userID string) error {
	if userID == "" {
		r.replace("", nil)
		return nil
	}
	links, err := r.db.Find(ctx, userID, r.kind)
	if err != nil {
		zap.S().Errorw("failed to load saved links", "userID", userID, "kind", r.kind, "error", err)
		return fmt.Errorf("loading saved %ss: %w", r.kind, err)
	}
	ids := make([]string, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.Details.EntityID)
	}
	r.replace(userID, ids)
	return nil
}

func (r *Reconciler) replace(userID string, ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userID = userID
	r.ids = r.ids[:0]
	r.index = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := r.index[id]; dup {
			continue
		}
		r.index[id] = struct{}{}
		r.ids = append(r.ids, id)
	}
}

// UserID is the user the set was last loaded for
func (r *Reconciler) UserID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.userID
}

// IDs returns a copy of the saved entity ids
func (r *Reconciler) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// IsSaved reports whether entityID is in the set
func (r *Reconciler) IsSaved(entityID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.index[entityID]
	return ok
}

// Toggle saves entityID when currentlySaved is false and removes it otherwise.
// It returns the saved state the entity ends up in.
func (r *Reconciler) Toggle(ctx context.Context, entityID string, currentlySaved bool) (bool, error) {
	userID := r.UserID()
	if userID == "" {
		return currentlySaved, ErrNoUser
	}
	id := models.SavedLinkID(userID, r.kind, entityID)

	if currentlySaved {
		if err := r.db.Remove(ctx, id); err != nil {
			zap.S().Errorw("failed to remove saved link", "id", id, "error", err)
			return true, err
		}
		r.remove(entityID)
		return false, nil
	}

	link := models.SavedLink{
		ID: id,
		Details: models.SavedLinkDetails{
			UserID:   userID,
			Kind:     r.kind,
			EntityID: entityID,
			SavedAt:  r.now(),
		},
	}
	if err := r.db.Save(ctx, link); err != nil {
		zap.S().Errorw("failed to save link", "id", id, "error", err)
		return false, err
	}
	r.add(entityID)
	return true, nil
}

func (r *Reconciler) add(entityID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.index[entityID]; ok {
		return
	}
	r.index[entityID] = struct{}{}
	r.ids = append(r.ids, entityID)
}

func (r *Reconciler) remove(entityID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.index[entityID]; !ok {
		return
	}
	delete(r.index, entityID)
	for i, id := range r.ids {
		if id == entityID {
			r.ids = append(r.ids[:i], r.ids[i+1:]...)
			break
		}
	}
}
