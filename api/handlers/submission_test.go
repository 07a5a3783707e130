package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/zoe-motors/storefront-api/api/handlers"
	"github.com/zoe-motors/storefront-api/databases"
	"github.com/zoe-motors/storefront-api/databases/mocks"
	"github.com/zoe-motors/storefront-api/models"
	"github.com/zoe-motors/storefront-api/submission"
)

type memoryImages struct {
	mu      sync.Mutex
	folders []string
}

func (m *memoryImages) Upload(_ context.Context, r io.Reader, filename, folder string) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.folders = append(m.folders, folder)
	return fmt.Sprintf("https://cdn.example/%s/%s", folder, filename), nil
}

func submissionForm(t *testing.T, fields map[string]string, images int) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for i := 0; i < images; i++ {
		fw, err := mw.CreateFormFile("images", fmt.Sprintf("car-%d.jpg", i))
		require.NoError(t, err)
		_, _ = fw.Write([]byte("jpeg bytes"))
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func validFields() map[string]string {
	return map[string]string{
		"make":      "Toyota",
		"model":     "Vitz",
		"year":      "2012",
		"mileage":   "85000",
		"condition": "used",
		"price":     "900000",
	}
}

func TestSubmission_SubmitHandlerTradeIn(t *testing.T) {
	body, ct := submissionForm(t, validFields(), 2)
	req, _ := http.NewRequest("POST", "/api/v1/submissions/trade-in", body)
	req.Header.Set("Content-Type", ct)
	req = mux.SetURLVars(req, map[string]string{"source": "trade-in"})
	req = withIdentity(req, customerIdentity())

	subs := &mocks.SubmissionDatabase{}
	chats := &mocks.ChatDatabase{}
	users := &mocks.UserDatabase{}
	users.On("FindOne", mock.Anything, mock.Anything).Return(&models.User{
		ID:      "u1",
		Details: models.UserDetails{FirstName: "Abebe", LastName: "Kebede", Email: "abebe@example.com"},
	}, nil)
	var record models.CarSubmission
	subs.On("InsertOne", mock.Anything, mock.AnythingOfType("models.CarSubmission")).Run(func(args mock.Arguments) {
		record = args.Get(1).(models.CarSubmission)
	}).Return(nil)
	chats.On("InsertOne", mock.Anything, mock.AnythingOfType("models.ChatMessage")).Return(nil)
	images := &memoryImages{}

	s := handlers.Submission{DB: subs, Chats: chats, Users: users, Images: images}
	rr := httptest.NewRecorder()
	http.HandlerFunc(s.SubmitHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var res submission.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, "/chat", res.Redirect)
	assert.Equal(t, record.ID, res.SubmissionID)
	assert.Equal(t, models.SubmissionTradeIn, record.Details.SubmissionType)
	assert.Len(t, record.Details.Images, 2)
	assert.Equal(t, "Abebe Kebede", record.Details.Name)
}

func TestSubmission_SubmitHandlerSignedOut(t *testing.T) {
	body, ct := submissionForm(t, validFields(), 1)
	req, _ := http.NewRequest("POST", "/api/v1/submissions/send-us-your-car", body)
	req.Header.Set("Content-Type", ct)
	req = mux.SetURLVars(req, map[string]string{"source": "send-us-your-car"})

	subs := &mocks.SubmissionDatabase{}
	s := handlers.Submission{DB: subs, Images: &memoryImages{}}
	rr := httptest.NewRecorder()
	http.HandlerFunc(s.SubmitHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	var got models.RedirectResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "/login", got.Redirect)
	assert.Equal(t, "/send-us-your-car", got.State["from"])
	assert.Equal(t, "submit-car", got.State["action"])
	subs.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestSubmission_SubmitHandlerValidation(t *testing.T) {
	fields := validFields()
	delete(fields, "make")
	fields["mileage"] = "-5"
	body, ct := submissionForm(t, fields, 1)
	req, _ := http.NewRequest("POST", "/api/v1/submissions/send-us-your-car", body)
	req.Header.Set("Content-Type", ct)
	req = mux.SetURLVars(req, map[string]string{"source": "send-us-your-car"})
	req = withIdentity(req, customerIdentity())

	users := &mocks.UserDatabase{}
	users.On("FindOne", mock.Anything, mock.Anything).Return(nil, errors.New("mocked-error"))
	subs := &mocks.SubmissionDatabase{}
	s := handlers.Submission{DB: subs, Chats: &mocks.ChatDatabase{}, Users: users, Images: &memoryImages{}}
	rr := httptest.NewRecorder()
	http.HandlerFunc(s.SubmitHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Car make is required")
	assert.Contains(t, rr.Body.String(), "Valid mileage is required")
	subs.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestSubmission_SubmitHandlerMirrorFailureKeepsSubmission(t *testing.T) {
	body, ct := submissionForm(t, validFields(), 1)
	req, _ := http.NewRequest("POST", "/api/v1/submissions/send-us-your-car", body)
	req.Header.Set("Content-Type", ct)
	req = mux.SetURLVars(req, map[string]string{"source": "send-us-your-car"})
	req = withIdentity(req, customerIdentity())

	subs := &mocks.SubmissionDatabase{}
	chats := &mocks.ChatDatabase{}
	subs.On("InsertOne", mock.Anything, mock.Anything).Return(nil)
	chats.On("InsertOne", mock.Anything, mock.Anything).Return(errors.New("mocked-error"))
	s := handlers.Submission{DB: subs, Chats: chats, Images: &memoryImages{}}
	rr := httptest.NewRecorder()
	http.HandlerFunc(s.SubmitHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	var res submission.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.NotEmpty(t, res.SubmissionID)
	assert.Empty(t, res.MessageID)
}

func TestSubmission_SubmitHandlerUnknownSource(t *testing.T) {
	req, _ := http.NewRequest("POST", "/api/v1/submissions/lease", nil)
	req = mux.SetURLVars(req, map[string]string{"source": "lease"})
	s := handlers.Submission{}
	rr := httptest.NewRecorder()
	http.HandlerFunc(s.SubmitHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func pendingSubmission() models.CarSubmission {
	return models.CarSubmission{
		ID: "s1",
		Details: models.SubmissionDetails{
			CarMake:   "Toyota",
			CarModel:  "Vitz",
			CarYear:   2012,
			Mileage:   85000,
			Condition: "used",
			Price:     900000,
			Images:    []string{"https://cdn.example/a.jpg"},
			Status:    models.SubmissionPending,
		},
	}
}

func TestSubmission_PromotedVehicle(t *testing.T) {
	sub := pendingSubmission()
	sub.Details.SubmissionType = models.SubmissionTradeIn
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	v := handlers.PromotedVehicle(sub, now)

	assert.Equal(t, "2012 Toyota Vitz", v.Details.Name)
	assert.Equal(t, float64(0), v.Details.Price)
	assert.Equal(t, "used", v.Details.Condition)
	assert.False(t, v.Details.Sold)
	assert.False(t, v.Details.IsTradeIn)
	assert.Equal(t, sub.Details.Images, v.Details.Images)
	assert.Equal(t, now, v.Details.CreatedAt)

	// the vehicle owns its own copy of the image list
	v.Details.Images[0] = "changed"
	assert.Equal(t, "https://cdn.example/a.jpg", sub.Details.Images[0])
}

func TestSubmission_PromoteHandler(t *testing.T) {
	sub := pendingSubmission()
	subs := &mocks.SubmissionDatabase{}
	vehicles := &mocks.VehicleDatabase{}
	subs.On("FindOne", mock.Anything, mock.Anything).Return(&sub, nil)
	subs.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	vehicles.On("InsertOne", mock.Anything, mock.AnythingOfType("models.Vehicle")).Return(nil)

	req, _ := http.NewRequest("POST", "/api/v1/admin/submissions/s1/promote", nil)
	req = mux.SetURLVars(req, map[string]string{"submission_id": "s1"})
	s := handlers.Submission{DB: subs, Vehicles: vehicles}
	rr := httptest.NewRecorder()
	http.HandlerFunc(s.PromoteHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	subs.AssertCalled(t, "UpdateOne", mock.Anything, promoteClaim, mock.Anything)
	subs.AssertNotCalled(t, "DeleteOne", mock.Anything, mock.Anything)
}

func TestSubmission_PromoteHandlerAlreadyPromoted(t *testing.T) {
	sub := pendingSubmission()
	sub.Details.Status = models.SubmissionPromoted
	subs := &mocks.SubmissionDatabase{}
	vehicles := &mocks.VehicleDatabase{}
	subs.On("FindOne", mock.Anything, mock.Anything).Return(&sub, nil)

	req, _ := http.NewRequest("POST", "/api/v1/admin/submissions/s1/promote", nil)
	req = mux.SetURLVars(req, map[string]string{"submission_id": "s1"})
	s := handlers.Submission{DB: subs, Vehicles: vehicles}
	rr := httptest.NewRecorder()
	http.HandlerFunc(s.PromoteHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
	vehicles.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

var promoteClaim = bson.M{"_id": "s1", "submission.status": bson.M{"$ne": models.SubmissionPromoted}}

func TestSubmission_PromoteHandlerConcurrent(t *testing.T) {
	sub := pendingSubmission()
	subs := &mocks.SubmissionDatabase{}
	vehicles := &mocks.VehicleDatabase{}
	// both requests read the pending submission; only one claim can match
	subs.On("FindOne", mock.Anything, mock.Anything).Return(&sub, nil)
	subs.On("UpdateOne", mock.Anything, promoteClaim, mock.Anything).Return(nil).Once()
	subs.On("UpdateOne", mock.Anything, promoteClaim, mock.Anything).Return(databases.ErrNotFound)
	vehicles.On("InsertOne", mock.Anything, mock.AnythingOfType("models.Vehicle")).Return(nil)
	s := handlers.Submission{DB: subs, Vehicles: vehicles}

	codes := make([]int, 2)
	var wg sync.WaitGroup
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req, _ := http.NewRequest("POST", "/api/v1/admin/submissions/s1/promote", nil)
			req = mux.SetURLVars(req, map[string]string{"submission_id": "s1"})
			rr := httptest.NewRecorder()
			http.HandlerFunc(s.PromoteHandler).ServeHTTP(rr, req)
			codes[i] = rr.Code
		}(i)
	}
	wg.Wait()

	assert.ElementsMatch(t, []int{http.StatusCreated, http.StatusConflict}, codes)
	vehicles.AssertNumberOfCalls(t, "InsertOne", 1)
}

func TestSubmission_PromoteHandlerReleasesClaimOnInsertFailure(t *testing.T) {
	sub := pendingSubmission()
	subs := &mocks.SubmissionDatabase{}
	vehicles := &mocks.VehicleDatabase{}
	release := bson.M{"$set": bson.M{"submission.status": models.SubmissionPending}}
	subs.On("FindOne", mock.Anything, mock.Anything).Return(&sub, nil)
	subs.On("UpdateOne", mock.Anything, promoteClaim, mock.Anything).Return(nil)
	subs.On("UpdateOne", mock.Anything, bson.M{"_id": "s1"}, release).Return(nil)
	vehicles.On("InsertOne", mock.Anything, mock.Anything).Return(errors.New("write failed"))

	req, _ := http.NewRequest("POST", "/api/v1/admin/submissions/s1/promote", nil)
	req = mux.SetURLVars(req, map[string]string{"submission_id": "s1"})
	s := handlers.Submission{DB: subs, Vehicles: vehicles}
	rr := httptest.NewRecorder()
	http.HandlerFunc(s.PromoteHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	subs.AssertCalled(t, "UpdateOne", mock.Anything, bson.M{"_id": "s1"}, release)
}
