package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/zoe-motors/storefront-api/api"
	"github.com/zoe-motors/storefront-api/catalog"
	"github.com/zoe-motors/storefront-api/config"
	"github.com/zoe-motors/storefront-api/databases"
	"github.com/zoe-motors/storefront-api/i18n"
	"github.com/zoe-motors/storefront-api/listing"
	"github.com/zoe-motors/storefront-api/live"
	"github.com/zoe-motors/storefront-api/models"
	"github.com/zoe-motors/storefront-api/session"
	"github.com/zoe-motors/storefront-api/storage"
)

// Vehicle exported for testing purposes
type Vehicle struct {
	DB       databases.VehicleDatabase
	Sessions *session.Manager
	Catalog  *i18n.Catalog
	Images   storage.ImageStore
	Hub      *live.Hub
}

type vehicleListResponse struct {
	listing.Page[models.Vehicle]
	Options catalog.VehicleOptions `json:"options"`
	Loading bool                   `json:"loading"`
	Error   string                 `json:"error,omitempty"`
	Saved   []string               `json:"saved,omitempty"`
}

func vehicleFiltersFrom(r *http.Request) catalog.VehicleFilters {
	q := r.URL.Query()
	return catalog.VehicleFilters{
		Model:     q.Get("model"),
		Year:      q.Get("year"),
		MinPrice:  q.Get("minPrice"),
		MaxPrice:  q.Get("maxPrice"),
		Condition: q.Get("condition"),
		IsTradeIn: q.Get("tradeIn") == "true",
	}
}

// translatorFor picks the session language, then ?lang, then the default
func translatorFor(c *i18n.Catalog, s *session.Session, r *http.Request) *i18n.Translator {
	if s != nil {
		return s.Translator
	}
	lang, _ := i18n.ParseLanguage(r.URL.Query().Get("lang"))
	return c.Translator(lang)
}

// VehiclesHandler returns one page of the filtered inventory. Signed-in
// callers keep their filter and page between requests; a filter change always
// sends them back to page 1.
func (v Vehicle) VehiclesHandler(w http.ResponseWriter, r *http.Request) {
	f := vehicleFiltersFrom(r)
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	var resp vehicleListResponse
	var state catalog.State[models.Vehicle]
	if s, ok := sessionOf(v.Sessions, r); ok {
		state = s.Vehicles.Update(ctx, f)
		changed := s.VehicleList.SetFilters(f)
		if !changed && r.URL.Query().Has("page") {
			s.VehicleList.Goto(getPage(r), listing.TotalPages(len(state.Items), listing.DefaultPageSize))
		}
		resp.Page = listing.Window(s.VehicleList, state.Items, listing.DefaultPageSize)
		resp.Saved = s.SavedVehicles.IDs()
	} else {
		feed := catalog.NewVehicleFeed(catalog.Vehicles{DB: v.DB}, translatorFor(v.Catalog, nil, r))
		state = feed.Update(ctx, f)
		resp.Page = listing.Paginate(state.Items, getPage(r), listing.DefaultPageSize)
	}
	if resp.Items == nil {
		resp.Items = []models.Vehicle{}
	}
	resp.Options = catalog.VehicleOptionsOf(state.Items)
	resp.Loading = state.Loading
	resp.Error = state.Error
	writeJSON(w, http.StatusOK, resp)
}

// VehicleByIDHandler returns a vehicle by ID
func (v Vehicle) VehicleByIDHandler(w http.ResponseWriter, r *http.Request) {
	vehicleID := mux.Vars(r)["vehicle_id"]
	zap.S().Debugf("vehicle_id: %v", vehicleID)

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := v.DB.FindOne(ctx, bson.M{"_id": vehicleID})
	if err != nil {
		if databases.IsNotFound(err) {
			notFound(w, "vehicle not found", "/inventory", err)
			return
		}
		config.ErrorStatus("failed to get vehicle by ID", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, dbResp)
}

// AdminVehiclesHandler returns the back office vehicle table
func (v Vehicle) AdminVehiclesHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	items, err := v.DB.Find(ctx, bson.M{})
	if err != nil {
		config.ErrorStatus("failed to get vehicles", http.StatusInternalServerError, w, err)
		return
	}
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, catalog.AdminVehicles(items, q.Get("status"), q.Get("q"), getPage(r)))
}

// VehicleReportHandler summarizes the filtered back office vehicle table.
// ?format=xlsx downloads the table itself.
func (v Vehicle) VehicleReportHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	items, err := v.DB.Find(ctx, bson.M{})
	if err != nil {
		config.ErrorStatus("failed to get vehicles", http.StatusInternalServerError, w, err)
		return
	}
	q := r.URL.Query()
	items = listing.Filter(items, catalog.InventoryFilter(q.Get("status"), q.Get("q")))
	if q.Get("format") == "xlsx" {
		writeWorkbook(w, "vehicles", func(out io.Writer) error {
			return catalog.VehicleWorkbook(out, items)
		})
		return
	}
	writeJSON(w, http.StatusOK, catalog.VehicleReportOf(items))
}

// validateVehicle lists every problem with a vehicle record
func validateVehicle(d models.VehicleDetails) []string {
	var problems []string
	if strings.TrimSpace(d.Name) == "" {
		problems = append(problems, "name is required")
	}
	if strings.TrimSpace(d.Make) == "" {
		problems = append(problems, "make is required")
	}
	if strings.TrimSpace(d.Model) == "" {
		problems = append(problems, "model is required")
	}
	if d.Year < 1900 || d.Year > time.Now().Year()+1 {
		problems = append(problems, "a valid year is required")
	}
	if d.Price < 0 {
		problems = append(problems, "price cannot be negative")
	}
	if d.Mileage < 0 {
		problems = append(problems, "mileage cannot be negative")
	}
	return problems
}

// uploadImages stores every file of the "images" form field in folder
func uploadImages(ctx context.Context, store storage.ImageStore, form *multipart.Form, folder string) ([]string, error) {
	if form == nil || len(form.File["images"]) == 0 {
		return nil, nil
	}
	if store == nil {
		return nil, errors.New("image uploads are not configured")
	}
	var urls []string
	for _, fh := range form.File["images"] {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		url, err := store.Upload(ctx, f, fh.Filename, folder)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("uploading %s: %w", fh.Filename, err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// CreateVehicleHandler adds a vehicle from a multipart form: the "vehicle"
// field holds the JSON record and "images" the photos
func (v Vehicle) CreateVehicleHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		config.ErrorStatus("failed to parse form", http.StatusBadRequest, w, err)
		return
	}
	var details models.VehicleDetails
	if err := json.Unmarshal([]byte(r.FormValue("vehicle")), &details); err != nil {
		config.ErrorStatus("failed to decode vehicle", http.StatusBadRequest, w, err)
		return
	}
	if problems := validateVehicle(details); len(problems) > 0 {
		config.ErrorStatus("invalid vehicle", http.StatusBadRequest, w, errors.New(strings.Join(problems, "; ")))
		return
	}

	urls, err := uploadImages(r.Context(), v.Images, r.MultipartForm, storage.FolderVehicles)
	if err != nil {
		config.ErrorStatus("failed to upload images", http.StatusBadGateway, w, err)
		return
	}
	details.Images = append(details.Images, urls...)
	now := time.Now()
	details.CreatedAt = now
	details.UpdatedAt = now

	vehicle := models.Vehicle{ID: primitive.NewObjectID().Hex(), Details: details}
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	if err := v.DB.InsertOne(ctx, vehicle); err != nil {
		config.ErrorStatus("failed to create vehicle", http.StatusInternalServerError, w, err)
		return
	}
	v.publish(ctx)
	writeJSON(w, http.StatusCreated, vehicle)
}

// UpdateVehicleHandler replaces a vehicle's details
func (v Vehicle) UpdateVehicleHandler(w http.ResponseWriter, r *http.Request) {
	vehicleID := mux.Vars(r)["vehicle_id"]
	var details models.VehicleDetails
	if err := json.NewDecoder(r.Body).Decode(&details); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if problems := validateVehicle(details); len(problems) > 0 {
		config.ErrorStatus("invalid vehicle", http.StatusBadRequest, w, errors.New(strings.Join(problems, "; ")))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	existing, err := v.DB.FindOne(ctx, bson.M{"_id": vehicleID})
	if err != nil {
		config.ErrorStatus("failed to get vehicle by ID", dbErrorStatus(err), w, err)
		return
	}
	details.CreatedAt = existing.Details.CreatedAt
	details.UpdatedAt = time.Now()
	if len(details.Images) == 0 {
		details.Images = existing.Details.Images
	}
	if err := v.DB.UpdateOne(ctx, bson.M{"_id": vehicleID}, bson.M{"$set": bson.M{"vehicle": details}}); err != nil {
		config.ErrorStatus("failed to update vehicle", dbErrorStatus(err), w, err)
		return
	}
	v.publish(ctx)
	writeJSON(w, http.StatusOK, models.Vehicle{ID: vehicleID, Details: details, Version: existing.Version})
}

// MarkSoldHandler sets or clears the sold flag
func (v Vehicle) MarkSoldHandler(w http.ResponseWriter, r *http.Request) {
	vehicleID := mux.Vars(r)["vehicle_id"]
	var body struct {
		Sold bool `json:"sold"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	update := bson.M{"$set": bson.M{"vehicle.sold": body.Sold, "vehicle.updatedAt": time.Now()}}
	if err := v.DB.UpdateOne(ctx, bson.M{"_id": vehicleID}, update); err != nil {
		config.ErrorStatus("failed to update vehicle status", dbErrorStatus(err), w, err)
		return
	}
	v.publish(ctx)
	writeJSON(w, http.StatusOK, map[string]interface{}{"_id": vehicleID, "sold": body.Sold})
}

// DeleteVehicleHandler removes a vehicle
func (v Vehicle) DeleteVehicleHandler(w http.ResponseWriter, r *http.Request) {
	vehicleID := mux.Vars(r)["vehicle_id"]
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := v.DB.DeleteOne(ctx, bson.M{"_id": vehicleID}); err != nil {
		config.ErrorStatus("failed to delete vehicle", dbErrorStatus(err), w, err)
		return
	}
	v.publish(ctx)
	writeJSON(w, http.StatusOK, map[string]string{"message": "vehicle deleted", "_id": vehicleID})
}

func (v Vehicle) publish(ctx context.Context) {
	if v.Hub != nil {
		v.Hub.Publish(ctx, live.TopicVehicles)
	}
}
