package http

import (
	"net/http"

	"projsync/internal/admin"
	"projsync/internal/auth"
	"projsync/internal/config"
	"projsync/internal/http/handler"
	mw "projsync/internal/http/middleware"
	"projsync/internal/report"
	"projsync/internal/store"
	syncpkg "projsync/internal/sync"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config      config.Config
	DB          *gorm.DB
	JWT         *auth.JWT
	Store       *store.Store
	Reconciler  *syncpkg.Reconciler
	Generator   *report.Generator
	Maintenance *admin.Service
	Log         *logrus.Logger
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(d.Config.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(d.Config.CORSAllowedOrigins, d.Config.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ah := &handler.AuthHandler{DB: d.DB, JWT: d.JWT}
	r.Post("/auth/register", ah.Register)
	r.Post("/auth/login", ah.Login)

	me := &handler.MeHandler{DB: d.DB}
	r.With(auth.RequireAuth(d.JWT)).Get("/me", me.Me)

	// The webhook authenticates with its own HMAC signature, not a JWT.
	wh := &handler.WebhookHandler{
		Secret:     d.Config.NotionWebhookSecret,
		Reconciler: d.Reconciler,
		Log:        d.Log,
	}
	r.Post("/webhooks/notion", wh.Notion)

	syncH := &handler.SyncHandler{Reconciler: d.Reconciler}
	projH := &handler.ProjectHandler{Store: d.Store}
	repH := &handler.ReportHandler{Generator: d.Generator, Store: d.Store}
	setH := &handler.SettingsHandler{Store: d.Store}
	admH := &handler.AdminHandler{Maintenance: d.Maintenance}

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(d.JWT))

		r.Post("/sync", syncH.Trigger)

		r.Get("/projects", projH.List)
		r.Get("/projects/changes", projH.Changes)

		r.Route("/reports", func(r chi.Router) {
			r.Post("/generate", repH.Generate)
			r.Post("/recompute", repH.Recompute)
			r.Get("/", repH.List)
			r.Get("/latest", repH.Latest)
			r.Get("/{date}", repH.ByDate)
		})

		r.Get("/settings/report", setH.Get)
		r.Put("/settings/report", setH.Put)

		r.Post("/admin/cleanup", admH.Cleanup)
		r.Post("/admin/clear-history", admH.ClearHistory)
	})

	return r
}
