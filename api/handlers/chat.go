package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/zoe-motors/storefront-api/api"
	"github.com/zoe-motors/storefront-api/config"
	"github.com/zoe-motors/storefront-api/databases"
	"github.com/zoe-motors/storefront-api/live"
	"github.com/zoe-motors/storefront-api/models"
)

var errPartUnavailable = errors.New("this part is out of stock")

// Chat exported for testing purposes
type Chat struct {
	DB       databases.ChatDatabase
	Users    databases.UserDatabase
	Vehicles databases.VehicleDatabase
	Parts    databases.SparePartDatabase
	Hub      *live.Hub
	Now      func() time.Time
}

type chatRequest struct {
	Text     string            `json:"text"`
	ItemKind models.EntityKind `json:"itemKind"`
	ItemID   string            `json:"itemId"`
}

func (c Chat) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Thread returns a user's messages oldest first
func (c Chat) Thread(ctx context.Context, ownerID string) ([]models.ChatMessage, error) {
	msgs, err := c.DB.Find(ctx, databases.ThreadFilter(ownerID))
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}
	return msgs, nil
}

// ThreadHandler returns the caller's own chat thread
func (c Chat) ThreadHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	msgs, err := c.Thread(ctx, id.UserID)
	if err != nil {
		config.ErrorStatus("failed to get chat messages", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// itemContext resolves the catalog entity a message is about. Parts without
// stock cannot be inquired about.
func (c Chat) itemContext(ctx context.Context, kind models.EntityKind, id string) (*models.ItemContext, error) {
	switch kind {
	case "":
		return nil, nil
	case models.KindVehicle:
		v, err := c.Vehicles.FindOne(ctx, bson.M{"_id": id})
		if err != nil {
			return nil, err
		}
		item := &models.ItemContext{Kind: kind, ID: v.ID, Title: v.Details.Name, Price: v.Details.Price}
		if len(v.Details.Images) > 0 {
			item.Image = v.Details.Images[0]
		}
		return item, nil
	case models.KindPart:
		p, err := c.Parts.FindOne(ctx, bson.M{"_id": id})
		if err != nil {
			return nil, err
		}
		if !p.Details.Available() {
			return nil, errPartUnavailable
		}
		item := &models.ItemContext{Kind: kind, ID: p.ID, Title: p.Details.Name, Price: p.Details.Price}
		if len(p.Details.Images) > 0 {
			item.Image = p.Details.Images[0]
		}
		return item, nil
	}
	return nil, fmt.Errorf("unknown item kind %q", kind)
}

// SendHandler appends a message from the caller to their own thread
func (c Chat) SendHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		config.ErrorStatus("message text is required", http.StatusBadRequest, w, errors.New("empty text"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	item, err := c.itemContext(ctx, req.ItemKind, req.ItemID)
	if err != nil {
		status := http.StatusBadRequest
		if databases.IsNotFound(err) {
			status = http.StatusNotFound
		}
		config.ErrorStatus("failed to attach item", status, w, err)
		return
	}

	msg := models.ChatMessage{
		ID: primitive.NewObjectID().Hex(),
		Details: models.ChatMessageDetails{
			OwnerID:    id.UserID,
			SenderID:   id.UserID,
			SenderName: id.DisplayName,
			Text:       strings.TrimSpace(req.Text),
			Item:       item,
			CreatedAt:  c.now(),
		},
	}
	if err := c.DB.InsertOne(ctx, msg); err != nil {
		config.ErrorStatus("failed to send message", http.StatusInternalServerError, w, err)
		return
	}
	c.publish(ctx, id.UserID)
	writeJSON(w, http.StatusCreated, msg)
}

// ReplyHandler appends a back office reply to a user's thread
func (c Chat) ReplyHandler(w http.ResponseWriter, r *http.Request) {
	ownerID := mux.Vars(r)["user_id"]
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		config.ErrorStatus("message text is required", http.StatusBadRequest, w, errors.New("empty text"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	if _, err := c.Users.FindOne(ctx, bson.M{"_id": ownerID}); err != nil {
		config.ErrorStatus("failed to get user", dbErrorStatus(err), w, err)
		return
	}
	msg := models.ChatMessage{
		ID: primitive.NewObjectID().Hex(),
		Details: models.ChatMessageDetails{
			OwnerID:    ownerID,
			SenderID:   models.AdminSenderID,
			SenderName: "Zoe Motors",
			Text:       strings.TrimSpace(req.Text),
			CreatedAt:  c.now(),
		},
	}
	if err := c.DB.InsertOne(ctx, msg); err != nil {
		config.ErrorStatus("failed to send reply", http.StatusInternalServerError, w, err)
		return
	}
	c.publish(ctx, ownerID)
	writeJSON(w, http.StatusCreated, msg)
}

func (c Chat) publish(ctx context.Context, ownerID string) {
	if c.Hub == nil {
		return
	}
	c.Hub.Publish(ctx, live.ChatTopic(ownerID))
	c.Hub.Publish(ctx, live.TopicInbox)
	zap.S().Debugw("chat thread changed", "owner", ownerID)
}
