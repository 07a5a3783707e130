package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/zoe-motors/storefront-api/api"
	"github.com/zoe-motors/storefront-api/api/handlers"
	"github.com/zoe-motors/storefront-api/databases/mocks"
	"github.com/zoe-motors/storefront-api/i18n"
	"github.com/zoe-motors/storefront-api/models"
	"github.com/zoe-motors/storefront-api/session"
)

func withIdentity(req *http.Request, id session.Identity) *http.Request {
	return req.WithContext(api.WithIdentity(req.Context(), id))
}

func customerIdentity() session.Identity {
	return session.Identity{UserID: "u1", Email: "abebe@example.com", DisplayName: "Abebe Kebede", Role: models.RoleUser}
}

func adminIdentity() session.Identity {
	return session.Identity{UserID: "admin-1", Email: "staff@zoemotors.et", DisplayName: "Staff", Role: models.RoleAdmin}
}

func TestUser_UserCreateHandler(t *testing.T) {
	body := `{"firstName":"Abebe","lastName":"Kebede","email":" Abebe@Example.com ","phone":"0911","password":"secret1"}`
	req, _ := http.NewRequest("POST", "/api/v1/users", bytes.NewBufferString(body))

	db := &mocks.UserDatabase{}
	db.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)
	var inserted models.User
	db.On("InsertOne", mock.Anything, mock.AnythingOfType("models.User")).Run(func(args mock.Arguments) {
		inserted = args.Get(1).(models.User)
	}).Return(nil)

	u := handlers.User{DB: db}
	rr := httptest.NewRecorder()
	http.HandlerFunc(u.UserCreateHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "abebe@example.com", inserted.Details.Email)
	assert.Equal(t, models.RoleUser, inserted.Details.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(inserted.Details.Password), []byte("secret1")))
	assert.NotContains(t, rr.Body.String(), inserted.Details.Password)
}

func TestUser_UserCreateHandlerShortPassword(t *testing.T) {
	req, _ := http.NewRequest("POST", "/api/v1/users", bytes.NewBufferString(`{"email":"a@b.c","password":"123"}`))

	db := &mocks.UserDatabase{}
	u := handlers.User{DB: db}
	rr := httptest.NewRecorder()
	http.HandlerFunc(u.UserCreateHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	db.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestUser_UserCreateHandlerDuplicate(t *testing.T) {
	req, _ := http.NewRequest("POST", "/api/v1/users", bytes.NewBufferString(`{"email":"a@b.c","password":"123456"}`))

	db := &mocks.UserDatabase{}
	db.On("FindOne", mock.Anything, mock.Anything).Return(&models.User{ID: "u1"}, nil)
	u := handlers.User{DB: db}
	rr := httptest.NewRecorder()
	http.HandlerFunc(u.UserCreateHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestUser_MeHandlerUnauthorized(t *testing.T) {
	req, _ := http.NewRequest("GET", "/api/v1/users/me", nil)
	u := handlers.User{DB: &mocks.UserDatabase{}}
	rr := httptest.NewRecorder()
	http.HandlerFunc(u.MeHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestUser_LanguageHandler(t *testing.T) {
	links := &mocks.SavedLinkDatabase{}
	links.On("Find", mock.Anything, mock.Anything, mock.Anything).Return([]models.SavedLink{}, nil)
	prefs := i18n.NewMemoryPreferenceStore()
	m := session.NewManager(session.Deps{
		Vehicles: &mocks.VehicleDatabase{},
		Parts:    &mocks.SparePartDatabase{},
		Links:    links,
		Catalog:  i18n.MustLoad(),
		Prefs:    prefs,
	})
	s := m.Open(context.Background(), "tok", customerIdentity())
	defer m.CloseAll()

	db := &mocks.UserDatabase{}
	db.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	req, _ := http.NewRequest("PUT", "/api/v1/users/me/language", bytes.NewBufferString(`{"language":"am"}`))
	req = withIdentity(req, customerIdentity())
	u := handlers.User{DB: db, Sessions: m}
	rr := httptest.NewRecorder()
	http.HandlerFunc(u.LanguageHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, i18n.Amharic, s.Translator.Language())
	lang, err := prefs.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, i18n.Amharic, lang)
}

func TestUser_LanguageHandlerUnsupported(t *testing.T) {
	req, _ := http.NewRequest("PUT", "/api/v1/users/me/language", bytes.NewBufferString(`{"language":"fr"}`))
	req = withIdentity(req, customerIdentity())
	u := handlers.User{DB: &mocks.UserDatabase{}}
	rr := httptest.NewRecorder()
	http.HandlerFunc(u.LanguageHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUser_CustomersHandler(t *testing.T) {
	db := &mocks.UserDatabase{}
	db.On("Find", mock.Anything, mock.Anything).Return([]models.User{
		{ID: "u1", Details: models.UserDetails{FirstName: "Abebe", LastName: "Kebede", Email: "abebe@example.com"}},
	}, nil)

	req, _ := http.NewRequest("GET", "/api/v1/admin/customers", nil)
	u := handlers.User{DB: db}
	rr := httptest.NewRecorder()
	http.HandlerFunc(u.CustomersHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var got []map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Abebe Kebede", got[0]["name"])
}
