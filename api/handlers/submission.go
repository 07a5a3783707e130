package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/zoe-motors/storefront-api/api"
	"github.com/zoe-motors/storefront-api/config"
	"github.com/zoe-motors/storefront-api/databases"
	"github.com/zoe-motors/storefront-api/live"
	"github.com/zoe-motors/storefront-api/models"
	"github.com/zoe-motors/storefront-api/storage"
	"github.com/zoe-motors/storefront-api/submission"
)

// Submission exported for testing purposes
type Submission struct {
	DB       databases.SubmissionDatabase
	Vehicles databases.VehicleDatabase
	Chats    databases.ChatDatabase
	Users    databases.UserDatabase
	Images   storage.ImageStore
	Hub      *live.Hub
	Notifier submission.Notifier
}

func formOf(r *http.Request) submission.Form {
	return submission.Form{
		Make:          r.FormValue("make"),
		Model:         r.FormValue("model"),
		Year:          r.FormValue("year"),
		Mileage:       r.FormValue("mileage"),
		Condition:     r.FormValue("condition"),
		VIN:           r.FormValue("vin"),
		Price:         r.FormValue("price"),
		Description:   r.FormValue("description"),
		Body:          r.FormValue("body"),
		Transmission:  r.FormValue("transmission"),
		Engine:        r.FormValue("engine"),
		Exterior:      r.FormValue("exterior"),
		Interior:      r.FormValue("interior"),
		SelectedCarID: r.FormValue("selectedCarId"),
	}
}

// openImages opens every uploaded file; the caller closes them
func openImages(form *multipart.Form) ([]submission.Image, []multipart.File, error) {
	if form == nil {
		return nil, nil, nil
	}
	var images []submission.Image
	var files []multipart.File
	for _, fh := range form.File["images"] {
		f, err := fh.Open()
		if err != nil {
			return nil, files, err
		}
		files = append(files, f)
		images = append(images, submission.Image{Filename: fh.Filename, Body: f})
	}
	return images, files, nil
}

// SubmitHandler runs the car submission flow for the source named in the path
func (s Submission) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	source, ok := submission.ParseSource(mux.Vars(r)["source"])
	if !ok {
		config.ErrorStatus("unknown submission source", http.StatusNotFound, w, fmt.Errorf("source %q", mux.Vars(r)["source"]))
		return
	}
	id, ok := api.IdentityFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, source.LoginRedirect())
		return
	}
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		config.ErrorStatus("failed to parse form", http.StatusBadRequest, w, err)
		return
	}
	images, files, err := openImages(r.MultipartForm)
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()
	if err != nil {
		config.ErrorStatus("failed to read images", http.StatusBadRequest, w, err)
		return
	}

	if len(images) > 0 && s.Images == nil {
		config.ErrorStatus("image uploads are not configured", http.StatusServiceUnavailable, w, errors.New("no image store"))
		return
	}

	p := &submission.Pipeline{
		Images:      s.Images,
		Submissions: s.DB,
		Chats:       s.Chats,
		Users:       s.Users,
		Hub:         s.Hub,
		Notifier:    s.Notifier,
		OnTransition: func(st submission.State) {
			zap.S().Debugw("submission state", "user", id.UserID, "state", st.String())
		},
	}
	res, err := p.Submit(r.Context(), submission.Request{
		Source: source,
		Form:   formOf(r),
		Images: images,
		Submitter: submission.Submitter{
			UserID:      id.UserID,
			Email:       id.Email,
			DisplayName: id.DisplayName,
		},
	})

	var verr *submission.ValidationError
	var serr *submission.StepError
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, res)
	case errors.Is(err, submission.ErrNotSignedIn):
		writeJSON(w, http.StatusUnauthorized, source.LoginRedirect())
	case errors.As(err, &verr):
		config.ErrorStatus(verr.Error(), http.StatusBadRequest, w, err)
	case errors.As(err, &serr) && serr.SubmissionID != "":
		// the record exists, only the chat line is missing
		writeJSON(w, http.StatusCreated, submission.Result{SubmissionID: serr.SubmissionID, Redirect: "/chat"})
	case errors.As(err, &serr) && serr.Step == submission.Uploading:
		config.ErrorStatus("failed to upload images", http.StatusBadGateway, w, err)
	default:
		config.ErrorStatus("failed to submit car", http.StatusInternalServerError, w, err)
	}
}

// PromoteHandler turns a submission into an unsold used vehicle listed at
// price 0. The submission itself is kept and marked promoted.
func (s Submission) PromoteHandler(w http.ResponseWriter, r *http.Request) {
	submissionID := mux.Vars(r)["submission_id"]
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	sub, err := s.DB.FindOne(ctx, bson.M{"_id": submissionID})
	if err != nil {
		config.ErrorStatus("failed to get submission", dbErrorStatus(err), w, err)
		return
	}
	if sub.Details.Status == models.SubmissionPromoted {
		config.ErrorStatus("submission already promoted", http.StatusConflict, w, fmt.Errorf("submission %s", submissionID))
		return
	}

	// claim the submission first so concurrent promotes create one vehicle
	claim := bson.M{"_id": submissionID, "submission.status": bson.M{"$ne": models.SubmissionPromoted}}
	update := bson.M{"$set": bson.M{"submission.status": models.SubmissionPromoted}}
	if err := s.DB.UpdateOne(ctx, claim, update); err != nil {
		if databases.IsNotFound(err) {
			config.ErrorStatus("submission already promoted", http.StatusConflict, w, fmt.Errorf("submission %s", submissionID))
			return
		}
		config.ErrorStatus("failed to promote submission", http.StatusInternalServerError, w, err)
		return
	}

	vehicle := PromotedVehicle(*sub, time.Now())
	if err := s.Vehicles.InsertOne(ctx, vehicle); err != nil {
		release := bson.M{"$set": bson.M{"submission.status": sub.Details.Status}}
		if rerr := s.DB.UpdateOne(ctx, bson.M{"_id": submissionID}, release); rerr != nil {
			zap.S().Errorw("submission left promoted without a vehicle", "submission", submissionID, "error", rerr)
		}
		config.ErrorStatus("failed to create vehicle", http.StatusInternalServerError, w, err)
		return
	}
	if s.Hub != nil {
		s.Hub.Publish(ctx, live.TopicVehicles)
		s.Hub.Publish(ctx, live.TopicInbox)
	}
	writeJSON(w, http.StatusCreated, vehicle)
}

// PromotedVehicle builds the inventory record for a promoted submission
func PromotedVehicle(sub models.CarSubmission, now time.Time) models.Vehicle {
	d := sub.Details
	images := make([]string, len(d.Images))
	copy(images, d.Images)
	return models.Vehicle{
		ID: primitive.NewObjectID().Hex(),
		Details: models.VehicleDetails{
			Name:          fmt.Sprintf("%d %s %s", d.CarYear, d.CarMake, d.CarModel),
			Make:          d.CarMake,
			Model:         d.CarModel,
			Year:          d.CarYear,
			BodyStyle:     d.Body,
			Mileage:       d.Mileage,
			Engine:        d.Engine,
			Transmission:  d.Transmission,
			FuelEconomy:   models.FuelEconomy{Highway: d.HwyMpg, City: d.CityMpg},
			ExteriorColor: d.Exterior,
			InteriorColor: d.Interior,
			VIN:           d.VIN,
			Price:         0,
			Condition:     "used",
			Sold:          false,
			IsTradeIn:     false,
			Images:        images,
			Description:   d.Description,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
	}
}
