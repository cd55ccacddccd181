package main

import (
	"fmt"
	"html/template"
	"log"
	"os"
	"strings"
	"time"

	"github.com/adminguard/adminguard/internal/providers/pinpoint"
	"github.com/adminguard/adminguard/internal/providers/smtp"
	"github.com/adminguard/adminguard/internal/providers/webhook"
	"github.com/adminguard/adminguard/pkg/models"
	"github.com/adminguard/adminguard/pkg/token"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/knadh/stuffbin"
	flag "github.com/spf13/pflag"
	"github.com/zerodha/logf"
)

type constants struct {
	Address    string
	SessionTTL time.Duration

	// OTP policy knobs handed to the token manager.
	OtpPolicy token.Config

	// Exported to templates.
	RootURL     string
	AdminPrefix string
	LoginURL    string
	LogoutURL   string
	VerifyURL   string
	LogoURL     string
}

func initConfig() {
	// Register --help handler.
	f := flag.NewFlagSet("config", flag.ContinueOnError)
	f.Usage = func() {
		fmt.Println(f.FlagUsages())
		os.Exit(0)
	}
	f.StringSlice("config", []string{"config.toml"},
		"Path to one or more TOML config files to load in order")
	f.Bool("version", false, "Show build version")
	f.Parse(os.Args[1:])

	// Display version.
	if ok, _ := f.GetBool("version"); ok {
		fmt.Println(buildString)
		os.Exit(0)
	}

	// Read the config files.
	cFiles, _ := f.GetStringSlice("config")
	for _, f := range cFiles {
		log.Printf("reading config: %s", f)
		if err := ko.Load(file.Provider(f), toml.Parser()); err != nil {
			log.Printf("error reading config: %v", err)
		}
	}
	// Load environment variables and merge into the loaded config.
	if err := ko.Load(env.Provider("ADMINGUARD_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "ADMINGUARD_")), "__", ".", -1)
	}), nil); err != nil {
		log.Printf("error loading env config: %v", err)
	}

	ko.Load(posflag.Provider(f, ".", ko), nil)
}

func initLogger(verbose bool) logf.Logger {
	opts := logf.Opts{EnableCaller: true}
	if verbose {
		opts.Level = logf.DebugLevel
		opts.EnableColor = true
	}
	return logf.New(opts)
}

func initConstants() constants {
	prefix := strings.TrimRight(ko.String("app.admin_prefix"), "/")
	if prefix == "" {
		prefix = "/admin"
	}

	sessTTL := ko.Duration("app.session_ttl") * time.Second
	if sessTTL.Seconds() < 1 {
		sessTTL = time.Hour
	}

	return constants{
		Address:     ko.String("app.address"),
		SessionTTL:  sessTTL,
		RootURL:     strings.TrimRight(ko.String("app.root_url"), "/"),
		AdminPrefix: prefix,
		LoginURL:    prefix + "/login",
		LogoutURL:   prefix + "/logout",
		VerifyURL:   prefix + "/verify",
		LogoURL:     ko.String("app.logo_url"),

		OtpPolicy: token.Config{
			Throttle:   ko.Duration("otp.throttle") * time.Second,
			Expiration: ko.Duration("otp.expiration") * time.Second,
			MaxRetries: ko.Int("otp.max_retries"),
		},
	}
}

// initProvider initialises the configured delivery provider from its
// config block.
func initProvider(name string) (models.Provider, error) {
	switch name {
	case "", "smtp":
		var cfg smtp.Config
		ko.UnmarshalWithConf("provider.smtp", &cfg, koanf.UnmarshalConf{Tag: "json"})
		return smtp.New(cfg)
	case "pinpoint":
		var cfg pinpoint.Config
		ko.UnmarshalWithConf("provider.pinpoint", &cfg, koanf.UnmarshalConf{Tag: "json"})
		return pinpoint.NewEmail(cfg)
	case "webhook":
		var cfg webhook.Config
		ko.UnmarshalWithConf("provider.webhook", &cfg, koanf.UnmarshalConf{Tag: "json"})
		return webhook.New(cfg)
	}
	return nil, fmt.Errorf("unknown provider '%s'", name)
}

// initProviderTemplate loads the provider's e-mail subject and body
// templates from the config.
func initProviderTemplate(p string) (*providerTpl, error) {
	var (
		tplFile      = ko.String(fmt.Sprintf("provider.%s.template", p))
		subj         = ko.String(fmt.Sprintf("provider.%s.subject", p))
		tpl, subjTpl *template.Template
		err          error
	)
	if subj == "" {
		subj = "Your admin verification code"
	}

	// Optional body template file.
	if tplFile != "" {
		tpl, err = template.ParseFiles(tplFile)
		if err != nil {
			return nil, fmt.Errorf("error parsing template %s for %s: %v", tplFile, p, err)
		}
	}
	subjTpl, err = template.New("subject").Parse(subj)
	if err != nil {
		return nil, fmt.Errorf("error parsing subject template for %s: %v", p, err)
	}

	return &providerTpl{
		subject: subjTpl,
		body:    tpl,
	}, nil
}

// initUsers loads the primary-auth user entries.
func initUsers() map[string]adminUser {
	var users []adminUser
	if err := ko.UnmarshalWithConf("auth.users", &users, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		log.Printf("error reading auth.users: %v", err)
	}

	out := make(map[string]adminUser)
	for _, u := range users {
		if u.Login == "" || u.PasswordHash == "" || u.Email == "" {
			log.Fatalf("login, password_hash and email are required on every auth.users entry")
		}
		out[u.Login] = u
	}

	return out
}

func initFS(exe string) stuffbin.FileSystem {
	// Read stuffed data from self.
	fs, err := stuffbin.UnStuff(exe)
	if err != nil {
		// Binary is unstuffed or is running in dev mode.
		// Can halt here or fall back to the local filesystem.
		if err == stuffbin.ErrNoID {
			// First argument is to the root to mount the files in the FileSystem
			// and the rest of the arguments are paths to embed.
			fs, err = stuffbin.NewLocalFS("/", "static/")
			if err != nil {
				log.Fatalf("error falling back to local filesystem: %v", err)
			}
		} else {
			log.Fatalf("error reading stuffed binary: %v", err)
		}
	}

	return fs
}
