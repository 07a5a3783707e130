// Package inbox merges chat, contact and car submission messages into the
// admin message center.
package inbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/zoe-motors/storefront-api/models"
)

// Kind is the discriminator exposed to clients as "type"
type Kind string

// Kind values
const (
	KindChat    Kind = "chat"
	KindContact Kind = "contact"
	KindCar     Kind = "car"
)

// Source tells where a message is stored. The set of sources is closed:
// consumers handle every kind through SourceVisitor.
type Source interface {
	Kind() Kind
	Accept(v SourceVisitor) error
}

// SourceVisitor has one method per message kind
type SourceVisitor interface {
	VisitChat(s ChatSource) error
	VisitContact(s ContactSource) error
	VisitSubmission(s SubmissionSource) error
}

// ChatSource is a message in one user's private thread
type ChatSource struct {
	OwnerID string
}

// Kind implements Source
func (ChatSource) Kind() Kind { return KindChat }

// Accept implements Source
func (s ChatSource) Accept(v SourceVisitor) error { return v.VisitChat(s) }

// ContactSource is a contact form message
type ContactSource struct{}

// Kind implements Source
func (ContactSource) Kind() Kind { return KindContact }

// Accept implements Source
func (s ContactSource) Accept(v SourceVisitor) error { return v.VisitContact(s) }

// SubmissionSource is a car submission; it carries the full record
type SubmissionSource struct {
	Submission models.SubmissionDetails
}

// Kind implements Source
func (SubmissionSource) Kind() Kind { return KindCar }

// Accept implements Source
func (s SubmissionSource) Accept(v SourceVisitor) error { return v.VisitSubmission(s) }

// Message is the normalized shape shown in the inbox
type Message struct {
	ID     string
	Name   string
	Email  string
	Text   string
	Date   time.Time
	Read   bool
	UserID string
	Source Source
}

// Type is the kind of the message source
func (m Message) Type() Kind {
	return m.Source.Kind()
}

type messageJSON struct {
	ID         string                    `json:"id"`
	Type       Kind                      `json:"type"`
	Name       string                    `json:"name"`
	Email      string                    `json:"email"`
	Message    string                    `json:"message"`
	Date       time.Time                 `json:"date"`
	Read       bool                      `json:"read"`
	UserID     string                    `json:"userId,omitempty"`
	Submission *models.SubmissionDetails `json:"submission,omitempty"`
}

// MarshalJSON flattens the source into the "type" discriminator
func (m Message) MarshalJSON() ([]byte, error) {
	out := messageJSON{
		ID:      m.ID,
		Type:    m.Type(),
		Name:    m.Name,
		Email:   m.Email,
		Message: m.Text,
		Date:    m.Date,
		Read:    m.Read,
		UserID:  m.UserID,
	}
	if s, ok := m.Source.(SubmissionSource); ok {
		sub := s.Submission
		out.Submission = &sub
	}
	return json.Marshal(out)
}

// Ref addresses one stored message
type Ref struct {
	ID     string
	Source Source
}

// ParseRef builds a reference from the kind and id found in a request path
func ParseRef(kind, id, ownerID string) (Ref, error) {
	if id == "" {
		return Ref{}, fmt.Errorf("missing message id")
	}
	switch Kind(kind) {
	case KindChat:
		return Ref{ID: id, Source: ChatSource{OwnerID: ownerID}}, nil
	case KindContact:
		return Ref{ID: id, Source: ContactSource{}}, nil
	case KindCar:
		return Ref{ID: id, Source: SubmissionSource{}}, nil
	}
	return Ref{}, fmt.Errorf("unknown message type %q", kind)
}

func fromChat(m models.ChatMessage, owner models.User) Message {
	return Message{
		ID:     m.ID,
		Name:   m.Details.SenderName,
		Email:  owner.Details.Email,
		Text:   m.Details.Text,
		Date:   m.Details.CreatedAt,
		Read:   m.Details.Read,
		UserID: m.Details.OwnerID,
		Source: ChatSource{OwnerID: m.Details.OwnerID},
	}
}

func fromContact(c models.ContactMessage) Message {
	return Message{
		ID:     c.ID,
		Name:   c.Details.Name,
		Email:  c.Details.Email,
		Text:   c.Details.Message,
		Date:   c.Details.CreatedAt,
		Read:   c.Details.Read,
		UserID: c.Details.UserID,
		Source: ContactSource{},
	}
}

func fromSubmission(s models.CarSubmission) Message {
	d := s.Details
	return Message{
		ID:     s.ID,
		Name:   d.Name,
		Email:  d.Email,
		Text:   d.Description,
		Date:   d.CreatedAt,
		Read:   d.Read,
		UserID: d.UserID,
		Source: SubmissionSource{Submission: d},
	}
}
