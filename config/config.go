package config

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zoe-motors/storefront-api/logging"
	"github.com/zoe-motors/storefront-api/models"
)

// Config holds the project config values
type Config struct {
	URL            string
	DatabaseName   string
	BaseURL        string
	Port           string
	Env            string
	RequestTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CloudinaryURL       string
	CloudinaryAPISecret string
	CloudinaryPreset    string

	SendgridAPIKey string
	MailFrom       string

	JWTSecret      string
	DigestSchedule string
}

// New sets up all config related services
func New() *Config {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	env := os.Getenv("ENV")
	logger, err := setLogger(env)
	if err != nil {
		logger = zap.NewExample()
	}
	_ = zap.ReplaceGlobals(logger)

	return &Config{
		URL:            getEnv("DB_URI", "mongodb://127.0.0.1:27017"),
		DatabaseName:   getEnv("DB_NAME", "dealership"),
		BaseURL:        os.Getenv("BASE_URL"),
		Port:           getEnv("PORT", "8080"),
		Env:            env,
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 30*time.Second),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),

		CloudinaryURL:       os.Getenv("CLOUDINARY_URL"),
		CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),
		CloudinaryPreset:    os.Getenv("CLOUDINARY_UPLOAD_PRESET"),

		SendgridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		MailFrom:       getEnv("MAIL_FROM", "no-reply@zoemotors.et"),

		JWTSecret:      os.Getenv("JWT_SECRET"),
		DigestSchedule: getEnv("ADMIN_DIGEST_SCHEDULE", "0 7 * * *"),
	}
}

func setLogger(env string) (*zap.Logger, error) {
	return logging.New(env)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	errText := ""
	if err != nil {
		errText = err.Error()
	}
	zap.S().Errorw(message, "status", httpStatusCode, "error", errText)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	b, _ := json.Marshal(models.ErrorMessageResponse{Response: models.MessageError{Message: message, Error: errText}})
	w.Write(b)
}
