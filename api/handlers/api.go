package handlers

import (
	"context"
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/zoe-motors/storefront-api/api"
	"github.com/zoe-motors/storefront-api/api/scheduler"
	"github.com/zoe-motors/storefront-api/config"
	"github.com/zoe-motors/storefront-api/databases"
	"github.com/zoe-motors/storefront-api/i18n"
	"github.com/zoe-motors/storefront-api/inbox"
	"github.com/zoe-motors/storefront-api/live"
	"github.com/zoe-motors/storefront-api/notify"
	"github.com/zoe-motors/storefront-api/session"
	"github.com/zoe-motors/storefront-api/storage"
)

const liveChannel = "storefront:live"

// App stores the router and db connection, so it can be reused
type App struct {
	Router    *mux.Router
	Config    config.Config
	Hub       *live.Hub
	Sessions  *session.Manager
	Auth      *api.Auth
	Metrics   *api.Metrics
	Scheduler *scheduler.Scheduler

	client   databases.ClientHelper
	dbHelper databases.DatabaseHelper
	redis    *redis.Client
	catalog  *i18n.Catalog
	prefs    i18n.PreferenceStore
	lock     scheduler.Locker
	images   storage.ImageStore
	signer   UploadSigner
	mailer   notify.Mailer
	tickets  *api.Tickets
}

type stores struct {
	users       databases.UserDatabase
	vehicles    databases.VehicleDatabase
	parts       databases.SparePartDatabase
	links       databases.SavedLinkDatabase
	chats       databases.ChatDatabase
	contacts    databases.ContactDatabase
	submissions databases.SubmissionDatabase
}

func (a *App) stores() stores {
	return stores{
		users:       databases.NewUserDatabase(a.dbHelper),
		vehicles:    databases.NewVehicleDatabase(a.dbHelper),
		parts:       databases.NewSparePartDatabase(a.dbHelper),
		links:       databases.NewSavedLinkDatabase(a.dbHelper),
		chats:       databases.NewChatDatabase(a.dbHelper),
		contacts:    databases.NewContactDatabase(a.dbHelper),
		submissions: databases.NewSubmissionDatabase(a.dbHelper),
	}
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	db := a.stores()
	authn := a.Auth
	signedIn := func(h http.HandlerFunc) http.Handler { return authn.Middleware(h) }
	admin := func(h http.HandlerFunc) http.Handler { return authn.Middleware(api.AdminOnly(h)) }
	notifier := notify.AdminNotifier{Users: db.users, Mailer: a.mailer, BaseURL: a.Config.BaseURL}

	u := User{DB: db.users, Sessions: a.Sessions}
	v := Vehicle{DB: db.vehicles, Sessions: a.Sessions, Catalog: a.catalog, Images: a.images, Hub: a.Hub}
	p := SparePart{DB: db.parts, Sessions: a.Sessions, Catalog: a.catalog, Images: a.images, Hub: a.Hub}
	sv := Saved{Sessions: a.Sessions, Vehicles: db.vehicles, Parts: db.parts}
	ch := Chat{DB: db.chats, Users: db.users, Vehicles: db.vehicles, Parts: db.parts, Hub: a.Hub}
	ct := Contact{DB: db.contacts, Chats: db.chats, Hub: a.Hub}
	sub := Submission{
		DB:       db.submissions,
		Vehicles: db.vehicles,
		Chats:    db.chats,
		Users:    db.users,
		Images:   a.images,
		Hub:      a.Hub,
		Notifier: notifier,
	}
	in := Inbox{Aggregator: &inbox.Aggregator{
		Users:       db.users,
		Chats:       db.chats,
		Contacts:    db.contacts,
		Submissions: db.submissions,
		Hub:         a.Hub,
	}}
	up := Upload{Signer: a.signer}
	loc := Locale{Catalog: a.catalog}
	dash := Dashboard{
		Metrics:     a.Metrics,
		Vehicles:    db.vehicles,
		Users:       db.users,
		Chats:       db.chats,
		Contacts:    db.contacts,
		Submissions: db.submissions,
	}
	lv := Live{Hub: a.Hub, Tickets: a.tickets, Chats: db.chats, Parts: db.parts}

	r := mux.NewRouter()

	// healthchex
	r.Handle("/health", api.HealthCheckHandler(a.client)).Methods("GET")

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.Use(a.Metrics.Middleware)

	// websockets are long lived and skip the request timeout
	ws := apiV1.PathPrefix("/ws").Subrouter()
	ws.HandleFunc("/spare-parts", lv.SparePartsSocket).Methods("GET")
	ws.HandleFunc("/unread", lv.UnreadSocket).Methods("GET")
	ws.HandleFunc("/chat", lv.ChatSocket).Methods("GET")

	rest := apiV1.NewRoute().Subrouter()
	rest.Use(api.TimeoutMiddleware(a.Config.RequestTimeout))

	rest.Handle("/auth/token", authn.Middleware(http.HandlerFunc(authn.CreateToken))).Methods("POST")
	rest.Handle("/auth/logout", authn.Middleware(http.HandlerFunc(authn.RevokeToken))).Methods("DELETE")

	rest.HandleFunc("/users", u.UserCreateHandler).Methods("POST")
	rest.Handle("/users/me", signedIn(u.MeHandler)).Methods("GET")
	rest.Handle("/users/me", signedIn(u.UpdateMeHandler)).Methods("PUT")
	rest.Handle("/users/me/language", signedIn(u.LanguageHandler)).Methods("PUT")
	rest.Handle("/users/me/saved/{kind}", signedIn(sv.SavedHandler)).Methods("GET")
	rest.Handle("/users/me/saved/{kind}/{entity_id}", signedIn(sv.ToggleSavedHandler)).Methods("POST")
	rest.Handle("/users/me/chat", signedIn(ch.ThreadHandler)).Methods("GET")
	rest.Handle("/users/me/chat", signedIn(ch.SendHandler)).Methods("POST")

	rest.HandleFunc("/vehicles", v.VehiclesHandler).Methods("GET")
	rest.HandleFunc("/vehicles/{vehicle_id}", v.VehicleByIDHandler).Methods("GET")
	rest.HandleFunc("/spare-parts", p.SparePartsHandler).Methods("GET")
	rest.HandleFunc("/spare-parts/{part_id}", p.SparePartByIDHandler).Methods("GET")

	rest.HandleFunc("/i18n/{lang}", loc.TableHandler).Methods("GET")
	rest.HandleFunc("/i18n/{lang}/{key}", loc.LookupHandler).Methods("GET")

	rest.Handle("/contact", signedIn(ct.ContactHandler)).Methods("POST")
	rest.Handle("/submissions/{source}", authn.Optional(http.HandlerFunc(sub.SubmitHandler))).Methods("POST")
	rest.Handle("/uploads/signature", signedIn(up.SignatureHandler)).Methods("POST")
	rest.Handle("/live/ticket", signedIn(lv.TicketHandler)).Methods("GET")

	rest.Handle("/admin/inbox", admin(in.InboxHandler)).Methods("GET")
	rest.Handle("/admin/inbox/export", admin(in.ExportHandler)).Methods("GET")
	rest.Handle("/admin/inbox/{kind}/{id}/read", admin(in.MarkReadHandler)).Methods("PUT")
	rest.Handle("/admin/inbox/{kind}/{id}", admin(in.DeleteHandler)).Methods("DELETE")
	rest.Handle("/admin/submissions", admin(in.SubmissionsHandler)).Methods("GET")
	rest.Handle("/admin/submissions/{submission_id}/promote", admin(sub.PromoteHandler)).Methods("POST")
	rest.Handle("/admin/chat/{user_id}", admin(ch.ReplyHandler)).Methods("POST")

	rest.Handle("/admin/vehicles", admin(v.AdminVehiclesHandler)).Methods("GET")
	rest.Handle("/admin/vehicles", admin(v.CreateVehicleHandler)).Methods("POST")
	rest.Handle("/admin/vehicles/report", admin(v.VehicleReportHandler)).Methods("GET")
	rest.Handle("/admin/vehicles/{vehicle_id}", admin(v.UpdateVehicleHandler)).Methods("PUT")
	rest.Handle("/admin/vehicles/{vehicle_id}", admin(v.DeleteVehicleHandler)).Methods("DELETE")
	rest.Handle("/admin/vehicles/{vehicle_id}/sold", admin(v.MarkSoldHandler)).Methods("PATCH")

	rest.Handle("/admin/spare-parts", admin(p.AdminSparePartsHandler)).Methods("GET")
	rest.Handle("/admin/spare-parts", admin(p.CreateSparePartHandler)).Methods("POST")
	rest.Handle("/admin/spare-parts/report", admin(p.SparePartReportHandler)).Methods("GET")
	rest.Handle("/admin/spare-parts/{part_id}", admin(p.DeleteSparePartHandler)).Methods("DELETE")

	rest.Handle("/admin/customers", admin(u.CustomersHandler)).Methods("GET")
	rest.Handle("/admin/overview", admin(dash.OverviewHandler)).Methods("GET")
	rest.Handle("/admin/metrics", admin(dash.MetricsHandler)).Methods("GET")

	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize(ctx context.Context) error {
	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}
	a.client = client
	a.dbHelper = databases.NewDatabase(&a.Config, client)
	if err := client.Connect(ctx); err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("storefront-api has connected to the database")

	if a.catalog, err = i18n.Load(); err != nil {
		return err
	}

	var backplane live.Backplane
	a.prefs = i18n.NewMemoryPreferenceStore()
	a.lock = scheduler.LocalLock{}
	if a.Config.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     a.Config.RedisAddr,
			Password: a.Config.RedisPassword,
			DB:       a.Config.RedisDB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			zap.S().Warnw("redis unavailable, running single instance", "addr", a.Config.RedisAddr, "error", err)
			_ = a.redis.Close()
			a.redis = nil
		} else {
			backplane = live.NewRedisBackplane(a.redis, liveChannel)
			a.prefs = i18n.NewRedisPreferenceStore(a.redis)
			a.lock = scheduler.NewRedisLock(a.redis)
			zap.S().Infow("connected to redis", "addr", a.Config.RedisAddr)
		}
	}

	if a.Config.CloudinaryURL != "" {
		store, err := storage.NewCloudinaryStore(a.Config.CloudinaryURL, a.Config.CloudinaryPreset)
		if err != nil {
			zap.S().Errorw("image uploads disabled", "error", err)
		} else {
			a.images = store
			a.signer = store
		}
	}

	if a.Config.SendgridAPIKey != "" {
		a.mailer = notify.NewSendgridMailer(a.Config.SendgridAPIKey, a.Config.MailFrom)
	} else {
		a.mailer = notify.NopMailer{}
	}

	secret := a.Config.JWTSecret
	if secret == "" {
		// tickets then only survive as long as this process
		secret = uuid.NewString()
		zap.S().Warn("JWT_SECRET is not set, using a per-process secret")
	}
	a.tickets = api.NewTickets(secret, 0)

	db := a.stores()
	a.Hub = live.NewHub(backplane)
	a.Sessions = session.NewManager(session.Deps{
		Vehicles: db.vehicles,
		Parts:    db.parts,
		Links:    db.links,
		Catalog:  a.catalog,
		Prefs:    a.prefs,
		Hub:      a.Hub,
		TTL:      api.DefaultTokenTTL,
	})
	a.Auth = api.NewAuth(db.users, a.Sessions, 0)
	a.Metrics = api.NewMetrics(0)
	a.Scheduler = scheduler.NewScheduler(
		db.chats,
		db.contacts,
		db.submissions,
		notify.AdminNotifier{Users: db.users, Mailer: a.mailer, BaseURL: a.Config.BaseURL},
		a.lock,
		a.Config.DigestSchedule,
	)
	a.Scheduler.Sessions = a.Sessions

	// initialize api router
	a.initializeRoutes()
	return nil
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

// Close releases everything Initialize opened
func (a *App) Close(ctx context.Context) {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.Metrics != nil {
		a.Metrics.Stop()
	}
	if a.Sessions != nil {
		a.Sessions.CloseAll()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.client != nil {
		if err := a.client.Disconnect(ctx); err != nil {
			zap.S().Warnw("failed to disconnect from database", "error", err)
		}
	}
}
