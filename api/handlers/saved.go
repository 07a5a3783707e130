package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/zoe-motors/storefront-api/api"
	"github.com/zoe-motors/storefront-api/config"
	"github.com/zoe-motors/storefront-api/databases"
	"github.com/zoe-motors/storefront-api/models"
	"github.com/zoe-motors/storefront-api/saved"
	"github.com/zoe-motors/storefront-api/session"
)

// Saved exported for testing purposes
type Saved struct {
	Sessions *session.Manager
	Vehicles databases.VehicleDatabase
	Parts    databases.SparePartDatabase
}

type savedResponse struct {
	Kind  models.EntityKind `json:"kind"`
	IDs   []string          `json:"ids"`
	Items interface{}       `json:"items"`
}

func (s Saved) reconciler(w http.ResponseWriter, r *http.Request) (*saved.Reconciler, bool) {
	kind := models.EntityKind(mux.Vars(r)["kind"])
	if !kind.Valid() {
		config.ErrorStatus("unknown saved kind", http.StatusBadRequest, w, fmt.Errorf("kind %q", kind))
		return nil, false
	}
	sess, ok := sessionOf(s.Sessions, r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.RedirectResponse{
			Message:  saved.ErrNoUser.Error(),
			Redirect: "/login",
		})
		return nil, false
	}
	return sess.Saved(kind), true
}

// SavedHandler returns the caller's saved ids and the entities they point at
func (s Saved) SavedHandler(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.reconciler(w, r)
	if !ok {
		return
	}
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := rec.Load(ctx, rec.UserID()); err != nil {
		config.ErrorStatus("failed to load saved items", http.StatusInternalServerError, w, err)
		return
	}
	ids := rec.IDs()
	resp := savedResponse{Kind: rec.Kind(), IDs: ids}
	filter := bson.M{"_id": bson.M{"$in": ids}}

	var err error
	if rec.Kind() == models.KindPart {
		var parts []models.SparePart
		if len(ids) > 0 {
			parts, err = s.Parts.Find(ctx, filter)
		}
		if parts == nil {
			parts = []models.SparePart{}
		}
		resp.Items = parts
	} else {
		var vehicles []models.Vehicle
		if len(ids) > 0 {
			vehicles, err = s.Vehicles.Find(ctx, filter)
		}
		if vehicles == nil {
			vehicles = []models.Vehicle{}
		}
		resp.Items = vehicles
	}
	if err != nil {
		config.ErrorStatus("failed to load saved items", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ToggleSavedHandler flips one saved flag. The body carries the state the
// client currently shows, so the store write matches what the user saw.
func (s Saved) ToggleSavedHandler(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.reconciler(w, r)
	if !ok {
		return
	}
	entityID := mux.Vars(r)["entity_id"]
	var body struct {
		Saved *bool `json:"saved"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	current := rec.IsSaved(entityID)
	if body.Saved != nil {
		current = *body.Saved
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	now, err := rec.Toggle(ctx, entityID, current)
	if err != nil {
		config.ErrorStatus("failed to update saved item", http.StatusBadGateway, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"kind": rec.Kind(), "id": entityID, "saved": now})
}
