// Package submission runs the sell-your-car and trade-in submission flow.
package submission

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/zoe-motors/storefront-api/databases"
	"github.com/zoe-motors/storefront-api/format"
	"github.com/zoe-motors/storefront-api/live"
	"github.com/zoe-motors/storefront-api/models"
	"github.com/zoe-motors/storefront-api/storage"
	templates "github.com/zoe-motors/storefront-api/templates/html"
)

// ErrNotSignedIn is returned when a submission is attempted without a user
var ErrNotSignedIn = errors.New("sign in to submit a car")

// Source is the entry point the form was opened from
type Source string

// Source values
const (
	SourceTradeIn        Source = "trade-in"
	SourceSendUsYourCar  Source = "send-us-your-car"
	afterSubmitRedirect         = "/chat"
	loginRedirect               = "/login"
	loginContinuedAction        = "submit-car"
)

// ParseSource validates a source name
func ParseSource(s string) (Source, bool) {
	switch Source(s) {
	case SourceTradeIn, SourceSendUsYourCar:
		return Source(s), true
	}
	return "", false
}

// SubmissionType is decided by the entry point alone
func (s Source) SubmissionType() models.SubmissionType {
	if s == SourceTradeIn {
		return models.SubmissionTradeIn
	}
	return models.SubmissionRegular
}

// Path is the page the user came from
func (s Source) Path() string {
	return "/" + string(s)
}

// LoginRedirect tells a signed-out user where to go and how to come back
func (s Source) LoginRedirect() models.RedirectResponse {
	return models.RedirectResponse{
		Message:  ErrNotSignedIn.Error(),
		Redirect: loginRedirect,
		State:    map[string]string{"from": s.Path(), "action": loginContinuedAction},
	}
}

// State is a step of one submission attempt
type State int

// States in the order a successful attempt visits them
const (
	Idle State = iota
	Uploading
	Validating
	WritingSubmission
	WritingMirror
	Success
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Uploading:
		return "uploading"
	case Validating:
		return "validating"
	case WritingSubmission:
		return "writing-submission"
	case WritingMirror:
		return "writing-mirror"
	case Success:
		return "success"
	case Failed:
		return "error"
	}
	return "unknown"
}

// Image is one file picked in the form
type Image struct {
	Filename string
	Body     io.Reader
}

// Form holds the raw form values
type Form struct {
	Make          string
	Model         string
	Year          string
	Mileage       string
	Condition     string
	VIN           string
	Price         string
	Description   string
	Body          string
	Transmission  string
	Engine        string
	Exterior      string
	Interior      string
	SelectedCarID string
}

// Submitter is the signed-in identity making the submission
type Submitter struct {
	UserID      string
	Email       string
	DisplayName string
}

// Request is one submission attempt
type Request struct {
	Source    Source
	Form      Form
	Images    []Image
	Submitter Submitter
}

// Result describes a completed submission
type Result struct {
	SubmissionID string `json:"submissionId"`
	MessageID    string `json:"messageId"`
	Redirect     string `json:"redirect"`
}

// ValidationError lists every problem found in the form
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "Please fix the following issues:\n• " + strings.Join(e.Problems, "\n• ")
}

// StepError wraps the failure of one step. SubmissionID is set when the
// submission record was already written.
type StepError struct {
	Step         State
	SubmissionID string
	Err          error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Notifier is told about every new submission
type Notifier interface {
	Notify(ctx context.Context, n templates.Notice) error
}

// Pipeline uploads the images, validates the form, writes the submission and
// then mirrors a line into the user's chat thread. The two writes are not
// atomic: if the mirror write fails the submission stays recorded.
type Pipeline struct {
	Images      storage.ImageStore
	Submissions databases.SubmissionDatabase
	Chats       databases.ChatDatabase
	Users       databases.UserDatabase
	Hub         *live.Hub
	Notifier    Notifier

	// OnTransition observes every state change of an attempt
	OnTransition func(State)
	Now          func() time.Time
}

func (p *Pipeline) transition(s State) {
	if p.OnTransition != nil {
		p.OnTransition(s)
	}
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Pipeline) fail(step State, submissionID string, err error) error {
	p.transition(Failed)
	zap.S().Errorw("car submission failed", "step", step.String(), "submissionID", submissionID, "error", err)
	var verr *ValidationError
	if errors.As(err, &verr) {
		return err
	}
	return &StepError{Step: step, SubmissionID: submissionID, Err: err}
}

// Submit runs one attempt
func (p *Pipeline) Submit(ctx context.Context, req Request) (Result, error) {
	if req.Submitter.UserID == "" {
		return Result{}, ErrNotSignedIn
	}

	p.transition(Uploading)
	urls := make([]string, 0, len(req.Images))
	for _, img := range req.Images {
		url, err := p.Images.Upload(ctx, img.Body, img.Filename, storage.FolderSubmissions)
		if err != nil {
			return Result{}, p.fail(Uploading, "", err)
		}
		urls = append(urls, url)
	}

	p.transition(Validating)
	profile := p.profile(ctx, req.Submitter)
	userName, problems := Validate(req.Form, profile, len(urls))
	if len(problems) > 0 {
		return Result{}, p.fail(Validating, "", &ValidationError{Problems: problems})
	}

	record := p.record(req, profile, userName, urls)

	p.transition(WritingSubmission)
	if err := p.Submissions.InsertOne(ctx, record); err != nil {
		return Result{}, p.fail(WritingSubmission, "", err)
	}

	p.transition(WritingMirror)
	mirror := models.ChatMessage{
		ID: primitive.NewObjectID().Hex(),
		Details: models.ChatMessageDetails{
			OwnerID:    req.Submitter.UserID,
			SenderID:   req.Submitter.UserID,
			SenderName: userName,
			Text:       MirrorText(req.Source, req.Form),
			CreatedAt:  p.now(),
		},
	}
	if err := p.Chats.InsertOne(ctx, mirror); err != nil {
		p.announce(ctx, record, false)
		return Result{}, p.fail(WritingMirror, record.ID, err)
	}

	p.transition(Success)
	p.announce(ctx, record, true)
	return Result{SubmissionID: record.ID, MessageID: mirror.ID, Redirect: afterSubmitRedirect}, nil
}

func (p *Pipeline) profile(ctx context.Context, s Submitter) models.UserDetails {
	fallback := models.UserDetails{Email: s.Email, DisplayName: s.DisplayName}
	if p.Users == nil {
		return fallback
	}
	u, err := p.Users.FindOne(ctx, bson.M{"_id": s.UserID})
	if err != nil {
		zap.S().Warnw("no profile for submitter", "userID", s.UserID, "error", err)
		return fallback
	}
	details := u.Details
	if details.DisplayName == "" {
		details.DisplayName = s.DisplayName
	}
	if s.Email != "" {
		details.Email = s.Email
	}
	return details
}

func (p *Pipeline) record(req Request, profile models.UserDetails, userName string, urls []string) models.CarSubmission {
	f := req.Form
	year, _ := strconv.Atoi(strings.TrimSpace(f.Year))
	mileage, _ := strconv.Atoi(strings.TrimSpace(f.Mileage))
	price, _ := strconv.ParseFloat(strings.TrimSpace(f.Price), 64)

	return models.CarSubmission{
		ID: primitive.NewObjectID().Hex(),
		Details: models.SubmissionDetails{
			UserID:         req.Submitter.UserID,
			Name:           userName,
			Email:          strings.TrimSpace(profile.Email),
			Phone:          profile.Phone,
			CarMake:        strings.TrimSpace(f.Make),
			CarModel:       strings.TrimSpace(f.Model),
			CarYear:        year,
			Mileage:        mileage,
			Condition:      strings.TrimSpace(f.Condition),
			VIN:            strings.TrimSpace(f.VIN),
			Price:          price,
			Body:           orDefault(f.Body, strings.TrimSpace(f.Condition)),
			Transmission:   orDefault(f.Transmission, "Manual"),
			Engine:         orDefault(f.Engine, "Unknown"),
			Exterior:       orDefault(f.Exterior, "Unknown"),
			Interior:       orDefault(f.Interior, "Unknown"),
			Description:    strings.TrimSpace(f.Description),
			Images:         urls,
			SourcePage:     string(req.Source),
			SelectedCarID:  f.SelectedCarID,
			SubmissionType: req.Source.SubmissionType(),
			Status:         models.SubmissionPending,
			Read:           false,
			CreatedAt:      p.now(),
		},
	}
}

// announce pushes live updates and emails the admins. Both are best effort.
func (p *Pipeline) announce(ctx context.Context, s models.CarSubmission, mirrored bool) {
	if p.Hub != nil {
		p.Hub.Publish(ctx, live.TopicInbox)
		if mirrored {
			p.Hub.Publish(ctx, live.ChatTopic(s.Details.UserID))
		}
	}
	if p.Notifier == nil {
		return
	}
	if err := p.Notifier.Notify(ctx, SubmissionNotice(s)); err != nil {
		zap.S().Warnw("failed to notify admins of submission", "submissionID", s.ID, "error", err)
	}
}

// SubmissionNotice is the admin email announcing s
func SubmissionNotice(s models.CarSubmission) templates.Notice {
	d := s.Details
	car := fmt.Sprintf("%d %s %s", d.CarYear, d.CarMake, d.CarModel)
	items := []templates.Item{
		{Label: "Customer", Value: fmt.Sprintf("%s <%s>", d.Name, d.Email)},
		{Label: "Car", Value: car},
		{Label: "Mileage", Value: format.Mileage(d.Mileage)},
		{Label: "Condition", Value: d.Condition},
		{Label: "Asking price", Value: format.Currency(d.Price)},
		{Label: "Photos", Value: strconv.Itoa(len(d.Images))},
		{Label: "Submitted", Value: format.Day(d.CreatedAt)},
	}
	if d.VIN != "" {
		items = append(items, templates.Item{Label: "VIN", Value: d.VIN})
	}
	return templates.Notice{
		Subject:  fmt.Sprintf("New %s submission: %s", d.SubmissionType, car),
		Headline: fmt.Sprintf("New %s submission", d.SubmissionType),
		Intro:    fmt.Sprintf("%s sent a %s for review from the %s page.", d.Name, car, d.SourcePage),
		Items:    items,
		Note:     d.Description,
		Action:   &templates.Action{Label: "Review submission", URL: "/admin/submissions/" + s.ID},
	}
}

// Validate collects every problem with the form instead of stopping at the
// first one. It also resolves the submitter's display name.
func Validate(f Form, profile models.UserDetails, imageCount int) (string, []string) {
	var problems []string
	if strings.TrimSpace(f.Make) == "" {
		problems = append(problems, "Car make is required")
	}
	if strings.TrimSpace(f.Model) == "" {
		problems = append(problems, "Car model is required")
	}
	if y, err := strconv.Atoi(strings.TrimSpace(f.Year)); err != nil || y <= 0 {
		problems = append(problems, "Valid car year is required")
	}
	if m, err := strconv.Atoi(strings.TrimSpace(f.Mileage)); err != nil || m < 0 {
		problems = append(problems, "Valid mileage is required")
	}
	if strings.TrimSpace(f.Condition) == "" {
		problems = append(problems, "Car condition is required")
	}

	userName := profile.FullName()
	if userName == "" {
		problems = append(problems, "User name is required")
	}
	if strings.TrimSpace(profile.Email) == "" {
		problems = append(problems, "User email is required")
	}
	if imageCount == 0 {
		problems = append(problems, "At least one car image is required")
	}
	return userName, problems
}

// MirrorText is the line appended to the user's chat thread
func MirrorText(src Source, f Form) string {
	car := fmt.Sprintf("%s %s %s", strings.TrimSpace(f.Year), strings.TrimSpace(f.Make), strings.TrimSpace(f.Model))
	if src.SubmissionType() == models.SubmissionTradeIn {
		return "I've submitted my " + car + " for trade-in consideration."
	}
	return "I've submitted my " + car + " for your review."
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
