package main

import (
	"html/template"
	"net/http"
	"os"
	"time"

	"github.com/Masterminds/sprig"
	"github.com/adminguard/adminguard/internal/session"
	"github.com/adminguard/adminguard/internal/session/redis"
	"github.com/adminguard/adminguard/pkg/models"
	"github.com/adminguard/adminguard/pkg/otp"
	"github.com/go-chi/chi/v5"
	"github.com/knadh/koanf/v2"
	"github.com/knadh/stuffbin"
	"github.com/zerodha/logf"
)

type providerTpl struct {
	subject *template.Template
	body    *template.Template
}

// adminUser is a primary-auth user declared in the config.
type adminUser struct {
	Login        string `json:"login"`
	PasswordHash string `json:"password_hash"`
	Email        string `json:"email"`
}

// App is the global app context that groups the necessary
// controls (store, provider, config etc.) to be injected into the
// HTTP handlers.
type App struct {
	store       session.Store
	provider    models.Provider
	providerTpl *providerTpl
	gen         otp.Generator
	users       map[string]adminUser
	lo          logf.Logger
	tpl         *template.Template
	fs          stuffbin.FileSystem
	constants   constants
}

var (
	ko = koanf.New(".")

	// Version of the build injected at build time.
	buildString = "unknown"
)

func main() {
	initConfig()
	lo := initLogger(ko.Bool("app.verbose"))

	app := &App{
		lo:        lo,
		fs:        initFS(os.Args[0]),
		constants: initConstants(),
	}

	// The OTP generator.
	gen, err := otp.New(ko.String("otp.generator"), otp.RandomOpt{
		Length:      ko.Int("otp.length"),
		DigitsOnly:  ko.Bool("otp.digits_only"),
		LettersOnly: ko.Bool("otp.letters_only"),
	})
	if err != nil {
		lo.Fatal("error initializing otp generator", "error", err)
	}
	app.gen = gen

	// The delivery provider and its e-mail templates.
	prov, err := initProvider(ko.String("app.provider"))
	if err != nil {
		lo.Fatal("error initializing provider", "error", err)
	}
	app.provider = prov

	pTpl, err := initProviderTemplate(prov.ID())
	if err != nil {
		lo.Fatal("error loading provider templates", "error", err)
	}
	app.providerTpl = pTpl

	// The session store.
	var rc redis.Conf
	ko.UnmarshalWithConf("session.redis", &rc, koanf.UnmarshalConf{Tag: "json"})
	rc.TTL = app.constants.SessionTTL
	app.store = redis.New(rc)

	// Primary-auth users.
	app.users = initUsers()
	if len(app.users) == 0 {
		lo.Fatal("no auth.users entries found in config")
	}

	// Compile web view templates.
	tpl, err := stuffbin.ParseTemplatesGlob(sprig.HtmlFuncMap(), app.fs, "/static/*.html")
	if err != nil {
		lo.Fatal("error compiling templates", "error", err)
	}
	app.tpl = tpl

	// Register handles.
	var (
		c = app.constants
		r = chi.NewRouter()
	)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, c.AdminPrefix, http.StatusFound)
	})
	r.Get("/api/health", wrap(app, handleHealthCheck))

	// Primary auth and the OTP verification views stay outside the
	// gate to avoid redirect loops.
	r.Get(c.LoginURL, wrap(app, handleLoginView))
	r.Post(c.LoginURL, wrap(app, handleLoginView))
	r.Get(c.LogoutURL, wrap(app, handleLogout))
	r.Get(c.VerifyURL, wrap(app, handleVerifyView))
	r.Post(c.VerifyURL, wrap(app, handleVerifySubmit))

	r.Get("/static/*", func(w http.ResponseWriter, r *http.Request) {
		app.fs.FileServer().ServeHTTP(w, r)
	})

	// Everything under the admin prefix requires a verified session.
	r.Group(func(r chi.Router) {
		r.Use(gate(app))
		r.Get(c.AdminPrefix, wrap(app, handleAdminIndex))
		r.Get(c.AdminPrefix+"/*", wrap(app, handleAdminIndex))
	})

	// HTTP Server.
	timeout := ko.Duration("app.server_timeout")
	if timeout.Seconds() < 1 {
		timeout = time.Second * 5
	}

	srv := &http.Server{
		Addr:         ko.String("app.address"),
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		Handler:      r,
	}

	lo.Info("starting server", "address", srv.Addr, "version", buildString)
	if err := srv.ListenAndServe(); err != nil {
		lo.Fatal("couldn't start server", "error", err)
	}
}
