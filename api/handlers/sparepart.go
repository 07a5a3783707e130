package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

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

// SparePart exported for testing purposes
type SparePart struct {
	DB       databases.SparePartDatabase
	Sessions *session.Manager
	Catalog  *i18n.Catalog
	Images   storage.ImageStore
	Hub      *live.Hub
}

type partListResponse struct {
	listing.Page[models.SparePart]
	Options catalog.PartOptions `json:"options"`
	Loading bool                `json:"loading"`
	Error   string              `json:"error,omitempty"`
	Saved   []string            `json:"saved,omitempty"`
}

func partFiltersFrom(r *http.Request) catalog.PartFilters {
	q := r.URL.Query()
	return catalog.PartFilters{
		Category:  q.Get("category"),
		Brand:     q.Get("brand"),
		MinPrice:  q.Get("minPrice"),
		MaxPrice:  q.Get("maxPrice"),
		Condition: q.Get("condition"),
	}
}

// SparePartsHandler returns one page of the filtered spare parts catalog
func (p SparePart) SparePartsHandler(w http.ResponseWriter, r *http.Request) {
	f := partFiltersFrom(r)
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	var resp partListResponse
	var state catalog.State[models.SparePart]
	if s, ok := sessionOf(p.Sessions, r); ok {
		state = s.Parts.Update(ctx, f)
		if !s.PartList.SetFilters(f) && r.URL.Query().Has("page") {
			s.PartList.Goto(getPage(r), listing.TotalPages(len(state.Items), listing.DefaultPageSize))
		}
		resp.Page = listing.Window(s.PartList, state.Items, listing.DefaultPageSize)
		resp.Saved = s.SavedParts.IDs()
	} else {
		state = catalog.NewPartFeed(catalog.Parts{DB: p.DB}, translatorFor(p.Catalog, nil, r)).Update(ctx, f)
		resp.Page = listing.Paginate(state.Items, getPage(r), listing.DefaultPageSize)
	}
	if resp.Items == nil {
		resp.Items = []models.SparePart{}
	}
	resp.Options = catalog.PartOptionsOf(state.Items)
	resp.Loading = state.Loading
	resp.Error = state.Error
	writeJSON(w, http.StatusOK, resp)
}

// SparePartByIDHandler returns a spare part by ID
func (p SparePart) SparePartByIDHandler(w http.ResponseWriter, r *http.Request) {
	partID := mux.Vars(r)["part_id"]
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := p.DB.FindOne(ctx, bson.M{"_id": partID})
	if err != nil {
		if databases.IsNotFound(err) {
			notFound(w, "spare part not found", "/spare-parts", err)
			return
		}
		config.ErrorStatus("failed to get spare part by ID", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, dbResp)
}

// AdminSparePartsHandler returns the back office spare part table
func (p SparePart) AdminSparePartsHandler(w http.ResponseWriter, r *http.Request) {
	items, ok := p.filtered(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, listing.Paginate(items, getPage(r), listing.AdminPageSize))
}

// SparePartReportHandler summarizes the filtered back office spare part
// table, or downloads it with ?format=xlsx
func (p SparePart) SparePartReportHandler(w http.ResponseWriter, r *http.Request) {
	items, ok := p.filtered(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("format") == "xlsx" {
		writeWorkbook(w, "spare-parts", func(out io.Writer) error {
			return catalog.PartWorkbook(out, items)
		})
		return
	}
	writeJSON(w, http.StatusOK, catalog.PartReportOf(items))
}

func (p SparePart) filtered(w http.ResponseWriter, r *http.Request) ([]models.SparePart, bool) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	items, err := p.DB.Find(ctx, bson.M{})
	if err != nil {
		config.ErrorStatus("failed to get spare parts", http.StatusInternalServerError, w, err)
		return nil, false
	}
	q := r.URL.Query()
	return listing.Filter(items, catalog.PartStockFilter(q.Get("status"), q.Get("q"))), true
}

func validatePart(d models.SparePartDetails) []string {
	var problems []string
	if strings.TrimSpace(d.Name) == "" {
		problems = append(problems, "name is required")
	}
	if strings.TrimSpace(d.Category) == "" {
		problems = append(problems, "category is required")
	}
	if d.Price < 0 {
		problems = append(problems, "price cannot be negative")
	}
	if d.Stock < 0 {
		problems = append(problems, "stock cannot be negative")
	}
	return problems
}

// CreateSparePartHandler adds a spare part from a multipart form: the
// "sparePart" field holds the JSON record and "images" the photos
func (p SparePart) CreateSparePartHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		config.ErrorStatus("failed to parse form", http.StatusBadRequest, w, err)
		return
	}
	var details models.SparePartDetails
	if err := json.Unmarshal([]byte(r.FormValue("sparePart")), &details); err != nil {
		config.ErrorStatus("failed to decode spare part", http.StatusBadRequest, w, err)
		return
	}
	if problems := validatePart(details); len(problems) > 0 {
		config.ErrorStatus("invalid spare part", http.StatusBadRequest, w, errors.New(strings.Join(problems, "; ")))
		return
	}

	urls, err := uploadImages(r.Context(), p.Images, r.MultipartForm, storage.FolderSpareParts)
	if err != nil {
		config.ErrorStatus("failed to upload images", http.StatusBadGateway, w, err)
		return
	}
	details.Images = append(details.Images, urls...)
	details.CreatedAt = time.Now()

	part := models.SparePart{ID: primitive.NewObjectID().Hex(), Details: details}
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	if err := p.DB.InsertOne(ctx, part); err != nil {
		config.ErrorStatus("failed to create spare part", http.StatusInternalServerError, w, err)
		return
	}
	p.publish(ctx)
	writeJSON(w, http.StatusCreated, part)
}

// DeleteSparePartHandler removes a spare part
func (p SparePart) DeleteSparePartHandler(w http.ResponseWriter, r *http.Request) {
	partID := mux.Vars(r)["part_id"]
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := p.DB.DeleteOne(ctx, bson.M{"_id": partID}); err != nil {
		config.ErrorStatus("failed to delete spare part", dbErrorStatus(err), w, err)
		return
	}
	p.publish(ctx)
	writeJSON(w, http.StatusOK, map[string]string{"message": "spare part deleted", "_id": partID})
}

func (p SparePart) publish(ctx context.Context) {
	if p.Hub != nil {
		p.Hub.Publish(ctx, live.TopicSpareParts)
	}
}
