package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/zoe-motors/storefront-api/api"
	"github.com/zoe-motors/storefront-api/config"
	"github.com/zoe-motors/storefront-api/databases"
	"github.com/zoe-motors/storefront-api/i18n"
	"github.com/zoe-motors/storefront-api/models"
	"github.com/zoe-motors/storefront-api/session"
)

// User exported for testing purposes
type User struct {
	DB       databases.UserDatabase
	Sessions *session.Manager
}

type registerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
}

// UserCreateHandler registers a customer account
func (u User) UserCreateHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || len(req.Password) < 6 {
		config.ErrorStatus("email and a password of at least 6 characters are required", http.StatusBadRequest, w, fmt.Errorf("invalid registration"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	// check if the user already exists
	existingUser, _ := u.DB.FindOne(ctx, bson.M{"user.email": req.Email})
	if existingUser != nil {
		config.ErrorStatus("email already exists", http.StatusConflict, w, fmt.Errorf("duplicate email"))
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}

	now := time.Now()
	user := models.User{
		ID: primitive.NewObjectID().Hex(),
		Details: models.UserDetails{
			FirstName: strings.TrimSpace(req.FirstName),
			LastName:  strings.TrimSpace(req.LastName),
			Email:     req.Email,
			Phone:     strings.TrimSpace(req.Phone),
			Role:      models.RoleUser,
			Password:  string(hashedPassword),
			Language:  string(i18n.Default),
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	if err := u.DB.InsertOne(ctx, user); err != nil {
		config.ErrorStatus("failed to insert user", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// MeHandler returns the caller's profile
func (u User) MeHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := u.DB.FindOne(ctx, bson.M{"_id": id.UserID})
	if err != nil {
		config.ErrorStatus("failed to get user by ID", dbErrorStatus(err), w, err)
		return
	}
	writeJSON(w, http.StatusOK, dbResp)
}

// UpdateMeHandler changes the caller's name and phone
func (u User) UpdateMeHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	var req struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Phone     string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	update := bson.M{"$set": bson.M{
		"user.firstName": strings.TrimSpace(req.FirstName),
		"user.lastName":  strings.TrimSpace(req.LastName),
		"user.phone":     strings.TrimSpace(req.Phone),
		"user.updatedAt": time.Now(),
	}}
	if err := u.DB.UpdateOne(ctx, bson.M{"_id": id.UserID}, update); err != nil {
		config.ErrorStatus("failed to update user", dbErrorStatus(err), w, err)
		return
	}
	u.MeHandler(w, r)
}

// LanguageHandler switches the caller's language and remembers it
func (u User) LanguageHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	var req struct {
		Language string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	lang, valid := i18n.ParseLanguage(req.Language)
	if !valid {
		config.ErrorStatus("unsupported language", http.StatusBadRequest, w, fmt.Errorf("unsupported language %q", req.Language))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	if err := u.Sessions.SetLanguage(ctx, id.UserID, lang); err != nil {
		config.ErrorStatus("failed to save language", http.StatusInternalServerError, w, err)
		return
	}
	if err := u.DB.UpdateOne(ctx, bson.M{"_id": id.UserID}, bson.M{"$set": bson.M{"user.language": string(lang)}}); err != nil {
		config.ErrorStatus("failed to update user", dbErrorStatus(err), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"language": string(lang)})
}

type customer struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
}

// CustomersHandler lists the customer accounts
func (u User) CustomersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	users, err := u.DB.Find(ctx, bson.M{"user.role": bson.M{"$ne": models.RoleAdmin}})
	if err != nil {
		config.ErrorStatus("failed to get customers", http.StatusInternalServerError, w, err)
		return
	}
	out := make([]customer, 0, len(users))
	for _, usr := range users {
		out = append(out, customer{
			ID:        usr.ID,
			Name:      usr.Details.FullName(),
			Email:     usr.Details.Email,
			Phone:     usr.Details.Phone,
			CreatedAt: usr.Details.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
