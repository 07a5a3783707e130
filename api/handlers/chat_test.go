package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/zoe-motors/storefront-api/api/handlers"
	"github.com/zoe-motors/storefront-api/databases/mocks"
	"github.com/zoe-motors/storefront-api/models"
)

var fixedNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func TestChat_SendHandlerWithVehicle(t *testing.T) {
	chats := &mocks.ChatDatabase{}
	vehicles := &mocks.VehicleDatabase{}
	vehicles.On("FindOne", mock.Anything, mock.Anything).Return(&models.Vehicle{
		ID:      "v1",
		Details: models.VehicleDetails{Name: "2018 Toyota Corolla", Price: 1500000, Images: []string{"https://img/1.jpg"}},
	}, nil)
	var sent models.ChatMessage
	chats.On("InsertOne", mock.Anything, mock.AnythingOfType("models.ChatMessage")).Run(func(args mock.Arguments) {
		sent = args.Get(1).(models.ChatMessage)
	}).Return(nil)

	req, _ := http.NewRequest("POST", "/api/v1/users/me/chat", bytes.NewBufferString(`{"text":" Is it available? ","itemKind":"vehicle","itemId":"v1"}`))
	req = withIdentity(req, customerIdentity())
	c := handlers.Chat{DB: chats, Vehicles: vehicles, Now: func() time.Time { return fixedNow }}
	rr := httptest.NewRecorder()
	http.HandlerFunc(c.SendHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "u1", sent.Details.OwnerID)
	assert.Equal(t, "u1", sent.Details.SenderID)
	assert.Equal(t, "Is it available?", sent.Details.Text)
	require.NotNil(t, sent.Details.Item)
	assert.Equal(t, "2018 Toyota Corolla", sent.Details.Item.Title)
	assert.Equal(t, "https://img/1.jpg", sent.Details.Item.Image)
	assert.Equal(t, fixedNow, sent.Details.CreatedAt)
}

func TestChat_SendHandlerRejectsPartOutOfStock(t *testing.T) {
	chats := &mocks.ChatDatabase{}
	parts := &mocks.SparePartDatabase{}
	parts.On("FindOne", mock.Anything, mock.Anything).Return(&models.SparePart{
		ID:      "p1",
		Details: models.SparePartDetails{Name: "Brake pads", Stock: 0},
	}, nil)

	req, _ := http.NewRequest("POST", "/api/v1/users/me/chat", bytes.NewBufferString(`{"text":"price?","itemKind":"part","itemId":"p1"}`))
	req = withIdentity(req, customerIdentity())
	c := handlers.Chat{DB: chats, Parts: parts}
	rr := httptest.NewRecorder()
	http.HandlerFunc(c.SendHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "out of stock")
	chats.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestChat_SendHandlerUnknownItem(t *testing.T) {
	vehicles := &mocks.VehicleDatabase{}
	vehicles.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

	req, _ := http.NewRequest("POST", "/api/v1/users/me/chat", bytes.NewBufferString(`{"text":"hi","itemKind":"vehicle","itemId":"nope"}`))
	req = withIdentity(req, customerIdentity())
	c := handlers.Chat{DB: &mocks.ChatDatabase{}, Vehicles: vehicles}
	rr := httptest.NewRecorder()
	http.HandlerFunc(c.SendHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestChat_SendHandlerEmptyText(t *testing.T) {
	req, _ := http.NewRequest("POST", "/api/v1/users/me/chat", bytes.NewBufferString(`{"text":"   "}`))
	req = withIdentity(req, customerIdentity())
	c := handlers.Chat{DB: &mocks.ChatDatabase{}}
	rr := httptest.NewRecorder()
	http.HandlerFunc(c.SendHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestChat_ThreadHandlerOldestFirst(t *testing.T) {
	chats := &mocks.ChatDatabase{}
	chats.On("Find", mock.Anything, mock.Anything).Return([]models.ChatMessage{
		{ID: "m2", Details: models.ChatMessageDetails{Text: "second", CreatedAt: fixedNow.Add(time.Minute)}},
		{ID: "m1", Details: models.ChatMessageDetails{Text: "first", CreatedAt: fixedNow}},
	}, nil)

	req, _ := http.NewRequest("GET", "/api/v1/users/me/chat", nil)
	req = withIdentity(req, customerIdentity())
	c := handlers.Chat{DB: chats}
	rr := httptest.NewRecorder()
	http.HandlerFunc(c.ThreadHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var got []models.ChatMessage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "m1", got[0].ID)
	assert.Equal(t, "m2", got[1].ID)
}

func TestChat_ReplyHandler(t *testing.T) {
	chats := &mocks.ChatDatabase{}
	users := &mocks.UserDatabase{}
	users.On("FindOne", mock.Anything, mock.Anything).Return(&models.User{ID: "u1"}, nil)
	var sent models.ChatMessage
	chats.On("InsertOne", mock.Anything, mock.AnythingOfType("models.ChatMessage")).Run(func(args mock.Arguments) {
		sent = args.Get(1).(models.ChatMessage)
	}).Return(nil)

	req, _ := http.NewRequest("POST", "/api/v1/admin/chat/u1", bytes.NewBufferString(`{"text":"Yes, come by tomorrow"}`))
	req = mux.SetURLVars(req, map[string]string{"user_id": "u1"})
	req = withIdentity(req, adminIdentity())
	c := handlers.Chat{DB: chats, Users: users}
	rr := httptest.NewRecorder()
	http.HandlerFunc(c.ReplyHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "u1", sent.Details.OwnerID)
	assert.Equal(t, models.AdminSenderID, sent.Details.SenderID)
}

func TestChat_ReplyHandlerUnknownUser(t *testing.T) {
	users := &mocks.UserDatabase{}
	users.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

	req, _ := http.NewRequest("POST", "/api/v1/admin/chat/ghost", bytes.NewBufferString(`{"text":"hello"}`))
	req = mux.SetURLVars(req, map[string]string{"user_id": "ghost"})
	c := handlers.Chat{DB: &mocks.ChatDatabase{}, Users: users}
	rr := httptest.NewRecorder()
	http.HandlerFunc(c.ReplyHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
