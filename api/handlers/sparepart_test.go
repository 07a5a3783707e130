package handlers_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/zoe-motors/storefront-api/api/handlers"
	"github.com/zoe-motors/storefront-api/catalog"
	"github.com/zoe-motors/storefront-api/databases/mocks"
	"github.com/zoe-motors/storefront-api/i18n"
	"github.com/zoe-motors/storefront-api/models"
)

func spareParts() []models.SparePart {
	return []models.SparePart{
		{ID: "p1", Details: models.SparePartDetails{Name: "Brake pad", Brand: "Bosch", Category: "Brakes", PartNumber: "BP-100", Price: 1500, Stock: 4}},
		{ID: "p2", Details: models.SparePartDetails{Name: "Oil filter", Brand: "Mann", Category: "Engine", PartNumber: "OF-22", Price: 600, Stock: 0}},
		{ID: "p3", Details: models.SparePartDetails{Name: "Brake disc", Brand: "Bosch", Category: "Brakes", PartNumber: "BD-7", Price: 4000, Stock: 1}},
	}
}

func TestSparePart_SparePartsHandler(t *testing.T) {
	req, _ := http.NewRequest("GET", "/api/v1/spare-parts", nil)

	db := &mocks.SparePartDatabase{}
	db.On("Find", mock.Anything, mock.Anything).Return(spareParts(), nil)

	p := handlers.SparePart{DB: db, Catalog: i18n.MustLoad()}
	rr := httptest.NewRecorder()
	http.HandlerFunc(p.SparePartsHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var got struct {
		Items      []models.SparePart  `json:"items"`
		TotalItems int                 `json:"totalItems"`
		Options    catalog.PartOptions `json:"options"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, 3, got.TotalItems)
	assert.Equal(t, []string{"Bosch", "Mann"}, got.Options.Brands)
	assert.Equal(t, []string{"Brakes", "Engine"}, got.Options.Categories)
}

func TestSparePart_SparePartByIDHandlerNotFound(t *testing.T) {
	req, _ := http.NewRequest("GET", "/api/v1/spare-parts/missing", nil)
	req = mux.SetURLVars(req, map[string]string{"part_id": "missing"})

	db := &mocks.SparePartDatabase{}
	db.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

	p := handlers.SparePart{DB: db}
	rr := httptest.NewRecorder()
	http.HandlerFunc(p.SparePartByIDHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	var got models.RedirectResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "/spare-parts", got.Redirect)
}

func TestSparePart_AdminSparePartsHandlerStatusFilter(t *testing.T) {
	req, _ := http.NewRequest("GET", "/api/v1/admin/spare-parts?status=in_stock&q=brake", nil)

	db := &mocks.SparePartDatabase{}
	db.On("Find", mock.Anything, mock.Anything).Return(spareParts(), nil)

	p := handlers.SparePart{DB: db}
	rr := httptest.NewRecorder()
	http.HandlerFunc(p.AdminSparePartsHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var got struct {
		Items []models.SparePart `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got.Items, 2)
	assert.Equal(t, "p1", got.Items[0].ID)
	assert.Equal(t, "p3", got.Items[1].ID)
}

func TestSparePart_SparePartReportHandler(t *testing.T) {
	req, _ := http.NewRequest("GET", "/api/v1/admin/spare-parts/report", nil)

	db := &mocks.SparePartDatabase{}
	db.On("Find", mock.Anything, mock.Anything).Return(spareParts(), nil)

	p := handlers.SparePart{DB: db}
	rr := httptest.NewRecorder()
	http.HandlerFunc(p.SparePartReportHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var got catalog.PartReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, 3, got.TotalParts)
	assert.Equal(t, 2, got.InStock)
	assert.Equal(t, 1, got.OutOfStock)
	assert.Equal(t, float64(10000), got.TotalValue)
}

func TestSparePart_CreateSparePartHandlerInvalid(t *testing.T) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	require.NoError(t, mw.WriteField("sparePart", `{"name":"","price":-1}`))
	require.NoError(t, mw.Close())
	req, _ := http.NewRequest("POST", "/api/v1/admin/spare-parts", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	db := &mocks.SparePartDatabase{}
	p := handlers.SparePart{DB: db}
	rr := httptest.NewRecorder()
	http.HandlerFunc(p.CreateSparePartHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	db.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestSparePart_DeleteSparePartHandler(t *testing.T) {
	req, _ := http.NewRequest("DELETE", "/api/v1/admin/spare-parts/p1", nil)
	req = mux.SetURLVars(req, map[string]string{"part_id": "p1"})

	db := &mocks.SparePartDatabase{}
	db.On("DeleteOne", mock.Anything, mock.Anything).Return(nil)

	p := handlers.SparePart{DB: db}
	rr := httptest.NewRecorder()
	http.HandlerFunc(p.DeleteSparePartHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	db.AssertExpectations(t)
}
