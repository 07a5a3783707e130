package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/zoe-motors/storefront-api/api"
	"github.com/zoe-motors/storefront-api/config"
	"github.com/zoe-motors/storefront-api/inbox"
	"github.com/zoe-motors/storefront-api/listing"
	"github.com/zoe-motors/storefront-api/models"
)

// Inbox exported for testing purposes
type Inbox struct {
	Aggregator *inbox.Aggregator
}

type inboxResponse struct {
	Messages []inbox.Message `json:"messages"`
	Unread   int             `json:"unread"`
}

func (i Inbox) fetch(w http.ResponseWriter, r *http.Request) ([]inbox.Message, bool) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	msgs, err := i.Aggregator.Fetch(ctx)
	if err != nil {
		config.ErrorStatus("failed to load inbox", http.StatusInternalServerError, w, err)
		return nil, false
	}
	if msgs == nil {
		msgs = []inbox.Message{}
	}
	return msgs, true
}

// InboxHandler returns the merged message feed, newest first
func (i Inbox) InboxHandler(w http.ResponseWriter, r *http.Request) {
	msgs, ok := i.fetch(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, inboxResponse{Messages: msgs, Unread: inbox.Unread(msgs)})
}

func refFrom(r *http.Request) (inbox.Ref, error) {
	vars := mux.Vars(r)
	return inbox.ParseRef(vars["kind"], vars["id"], r.URL.Query().Get("owner"))
}

// MarkReadHandler marks one message as read in whichever collection holds it
func (i Inbox) MarkReadHandler(w http.ResponseWriter, r *http.Request) {
	ref, err := refFrom(r)
	if err != nil {
		config.ErrorStatus("invalid message reference", http.StatusBadRequest, w, err)
		return
	}
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	if err := i.Aggregator.MarkAsRead(ctx, ref); err != nil {
		config.ErrorStatus("failed to mark message as read", dbErrorStatus(err), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"_id": ref.ID, "type": ref.Source.Kind(), "read": true})
}

// DeleteHandler removes one message from whichever collection holds it
func (i Inbox) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	ref, err := refFrom(r)
	if err != nil {
		config.ErrorStatus("invalid message reference", http.StatusBadRequest, w, err)
		return
	}
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	if err := i.Aggregator.Delete(ctx, ref); err != nil {
		config.ErrorStatus("failed to delete message", dbErrorStatus(err), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"_id": ref.ID, "type": ref.Source.Kind(), "deleted": true})
}

// ExportHandler downloads the inbox as an Excel workbook
func (i Inbox) ExportHandler(w http.ResponseWriter, r *http.Request) {
	msgs, ok := i.fetch(w, r)
	if !ok {
		return
	}
	writeWorkbook(w, "messages", func(out io.Writer) error {
		return inbox.ExportXLSX(out, msgs)
	})
}

// SubmissionsHandler is the message center: car submissions filtered by
// ?type and ?q, one admin page at a time
func (i Inbox) SubmissionsHandler(w http.ResponseWriter, r *http.Request) {
	msgs, ok := i.fetch(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	t := models.SubmissionType(q.Get("type"))
	if t != "" && t != models.SubmissionRegular && t != models.SubmissionTradeIn {
		config.ErrorStatus("unknown submission type", http.StatusBadRequest, w, fmt.Errorf("type %q", t))
		return
	}
	page := listing.Paginate(inbox.Submissions(msgs, t, q.Get("q")), getPage(r), listing.AdminPageSize)
	if page.Items == nil {
		page.Items = []inbox.Message{}
	}
	writeJSON(w, http.StatusOK, page)
}
