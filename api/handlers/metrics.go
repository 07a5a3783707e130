package handlers

import (
	"context"
	"net/http"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/errgroup"

	"github.com/zoe-motors/storefront-api/api"
	"github.com/zoe-motors/storefront-api/config"
	"github.com/zoe-motors/storefront-api/databases"
	"github.com/zoe-motors/storefront-api/models"
)

// formatRouteMetrics converts duration fields to milliseconds for JSON serialization
func formatRouteMetrics(routes []api.RouteMetrics) []map[string]interface{} {
	result := make([]map[string]interface{}, len(routes))
	for i, route := range routes {
		result[i] = map[string]interface{}{
			"method":      route.Method,
			"route":       route.Route,
			"count":       route.Count,
			"errorCount":  route.ErrorCount,
			"avgTime":     route.AvgTime.Milliseconds(),
			"minTime":     route.MinTime.Milliseconds(),
			"maxTime":     route.MaxTime.Milliseconds(),
			"lastRequest": route.LastRequest,
		}
	}
	return result
}

// Dashboard serves the back office overview and request metrics
type Dashboard struct {
	Metrics     *api.Metrics
	Vehicles    databases.VehicleDatabase
	Users       databases.UserDatabase
	Chats       databases.ChatDatabase
	Contacts    databases.ContactDatabase
	Submissions databases.SubmissionDatabase
}

// Overview holds the headline numbers of the back office
type Overview struct {
	Vehicles           int64 `json:"vehicles"`
	SoldVehicles       int64 `json:"soldVehicles"`
	Customers          int64 `json:"customers"`
	UnreadMessages     int64 `json:"unreadMessages"`
	PendingSubmissions int64 `json:"pendingSubmissions"`
}

// Collect runs every count concurrently
func (d Dashboard) Collect(ctx context.Context) (Overview, error) {
	var o Overview
	var unreadChats, unreadContacts, unreadSubmissions int64
	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int64, fn func(context.Context, interface{}) (int64, error), filter bson.M) {
		g.Go(func() error {
			n, err := fn(gctx, filter)
			*dst = n
			return err
		})
	}
	count(&o.Vehicles, d.Vehicles.CountDocuments, bson.M{})
	count(&o.SoldVehicles, d.Vehicles.CountDocuments, bson.M{"vehicle.sold": true})
	count(&o.Customers, d.Users.CountDocuments, bson.M{"user.role": bson.M{"$ne": models.RoleAdmin}})
	count(&unreadChats, d.Chats.CountDocuments, bson.M{
		"message.read":     false,
		"message.senderId": bson.M{"$ne": models.AdminSenderID},
	})
	count(&unreadContacts, d.Contacts.CountDocuments, bson.M{"contact.read": false})
	count(&unreadSubmissions, d.Submissions.CountDocuments, bson.M{"submission.read": false})
	count(&o.PendingSubmissions, d.Submissions.CountDocuments, bson.M{"submission.status": models.SubmissionPending})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	o.UnreadMessages = unreadChats + unreadContacts + unreadSubmissions
	return o, nil
}

// OverviewHandler returns the back office headline numbers
func (d Dashboard) OverviewHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	o, err := d.Collect(ctx)
	if err != nil {
		config.ErrorStatus("failed to load overview", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// MetricsHandler returns request totals and the slowest routes. ?limit
// bounds the route list (default 20).
func (d Dashboard) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}
	s := d.Metrics.Summary(limit)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"since":         s.Since,
		"totalRequests": s.TotalRequests,
		"totalErrors":   s.TotalErrors,
		"slowest":       formatRouteMetrics(s.Slowest),
	})
}
