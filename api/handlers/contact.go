package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/zoe-motors/storefront-api/api"
	"github.com/zoe-motors/storefront-api/config"
	"github.com/zoe-motors/storefront-api/databases"
	"github.com/zoe-motors/storefront-api/live"
	"github.com/zoe-motors/storefront-api/models"
)

// Contact exported for testing purposes
type Contact struct {
	DB    databases.ContactDatabase
	Chats databases.ChatDatabase
	Hub   *live.Hub
	Now   func() time.Time
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func (req contactRequest) problems() []string {
	var p []string
	if strings.TrimSpace(req.Name) == "" {
		p = append(p, "name is required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		p = append(p, "a valid email is required")
	}
	if strings.TrimSpace(req.Message) == "" {
		p = append(p, "message is required")
	}
	return p
}

// contactMirrorText is the line written into the sender's chat thread
func contactMirrorText(subject, message string) string {
	if subject == "" {
		return fmt.Sprintf("Contact form message: %s", message)
	}
	return fmt.Sprintf("Contact form message (%s): %s", subject, message)
}

// ContactHandler stores a contact form message and mirrors it into the
// sender's chat thread. The mirror is best effort.
func (c Contact) ContactHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if req.Email == "" {
		req.Email = id.Email
	}
	if req.Name == "" {
		req.Name = id.DisplayName
	}
	if p := req.problems(); len(p) > 0 {
		config.ErrorStatus("invalid contact message", http.StatusBadRequest, w, errors.New(strings.Join(p, "; ")))
		return
	}

	now := time.Now()
	if c.Now != nil {
		now = c.Now()
	}
	contact := models.ContactMessage{
		ID: primitive.NewObjectID().Hex(),
		Details: models.ContactDetails{
			UserID:    id.UserID,
			Name:      strings.TrimSpace(req.Name),
			Email:     strings.ToLower(strings.TrimSpace(req.Email)),
			Phone:     req.Phone,
			Subject:   req.Subject,
			Message:   strings.TrimSpace(req.Message),
			CreatedAt: now,
		},
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	if err := c.DB.InsertOne(ctx, contact); err != nil {
		config.ErrorStatus("failed to send contact message", http.StatusInternalServerError, w, err)
		return
	}

	mirror := models.ChatMessage{
		ID: primitive.NewObjectID().Hex(),
		Details: models.ChatMessageDetails{
			OwnerID:    id.UserID,
			SenderID:   id.UserID,
			SenderName: contact.Details.Name,
			Text:       contactMirrorText(req.Subject, contact.Details.Message),
			CreatedAt:  now,
		},
	}
	if err := c.Chats.InsertOne(ctx, mirror); err != nil {
		zap.S().Errorw("failed to mirror contact message", "contact", contact.ID, "error", err)
	} else if c.Hub != nil {
		c.Hub.Publish(ctx, live.ChatTopic(id.UserID))
	}
	if c.Hub != nil {
		c.Hub.Publish(ctx, live.TopicInbox)
	}
	writeJSON(w, http.StatusCreated, models.RedirectResponse{Message: "message sent", Redirect: "/chat"})
}
