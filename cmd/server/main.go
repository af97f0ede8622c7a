package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	billingmodule "github.com/notenibblers/notenibblers/modules/billing"
	focusmodule "github.com/notenibblers/notenibblers/modules/focus"
	notesmodule "github.com/notenibblers/notenibblers/modules/notes"
	profilemodule "github.com/notenibblers/notenibblers/modules/profile"
	quizmodule "github.com/notenibblers/notenibblers/modules/quiz"
	"github.com/notenibblers/notenibblers/pkg/billing"
	"github.com/notenibblers/notenibblers/pkg/config"
	"github.com/notenibblers/notenibblers/pkg/email"
	"github.com/notenibblers/notenibblers/pkg/focus"
	"github.com/notenibblers/notenibblers/pkg/httpserver"
	"github.com/notenibblers/notenibblers/pkg/jwt"
	"github.com/notenibblers/notenibblers/pkg/logger"
	"github.com/notenibblers/notenibblers/pkg/notes"
	"github.com/notenibblers/notenibblers/pkg/opensearch"
	"github.com/notenibblers/notenibblers/pkg/pg"
	"github.com/notenibblers/notenibblers/pkg/profile"
	"github.com/notenibblers/notenibblers/pkg/quiz"
	"github.com/notenibblers/notenibblers/pkg/redis"
	"github.com/notenibblers/notenibblers/pkg/storage"
)

type appConfig struct {
	JWTSigningKey string `env:"JWT_SIGNING_KEY,required"`

	BillingProvider    string `env:"BILLING_PROVIDER" envDefault:"stripe"` // stripe or paddle
	ProPlanPriceID     string `env:"PRO_PLAN_PRICE_ID"`
	PlansPath          string `env:"PLANS_PATH"` // optional YAML catalog, overrides the built-in plans
	CheckoutSuccessURL string `env:"CHECKOUT_SUCCESS_URL" envDefault:"http://localhost:3000/dashboard?checkout=success"`
	CheckoutCancelURL  string `env:"CHECKOUT_CANCEL_URL" envDefault:"http://localhost:3000/pricing"`
	DemoteOnCancel     bool   `env:"BILLING_DEMOTE_ON_CANCEL" envDefault:"false"`

	SearchEnabled  bool `env:"SEARCH_ENABLED" envDefault:"false"`
	StorageEnabled bool `env:"STORAGE_ENABLED" envDefault:"false"`
}

func main() {
	var logCfg logger.Config
	config.MustLoad(&logCfg)
	log := logger.NewFromConfig(logCfg)
	logger.SetAsDefault(log)

	if err := run(context.Background(), log); err != nil {
		log.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger) error {
	var appCfg appConfig
	config.MustLoad(&appCfg)

	var pgCfg pg.Config
	config.MustLoad(&pgCfg)
	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return err
	}

	var redisCfg redis.Config
	config.MustLoad(&redisCfg)
	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	// Profiles and billing.
	profiles := profile.NewPGStore(pool)
	records := billing.NewPGStore(pool)

	catalog, err := loadCatalog(appCfg)
	if err != nil {
		return err
	}

	provider, err := newBillingProvider(appCfg)
	if err != nil {
		return err
	}

	mailer := newMailer(log)

	billingSvc := billing.NewService(catalog, provider, records, profiles,
		billing.WithLogger(log),
		billing.WithMailer(mailer),
		billing.WithDemoteOnCancel(appCfg.DemoteOnCancel),
		billing.WithCheckoutURLs(appCfg.CheckoutSuccessURL, appCfg.CheckoutCancelURL),
	)

	// Quiz generation.
	var genCfg quiz.GeneratorConfig
	config.MustLoad(&genCfg)
	generator, err := quiz.NewOpenAIGenerator(genCfg)
	if err != nil {
		return err
	}

	quizOpts := []quiz.ServiceOption{
		quiz.WithLogger(log),
		quiz.WithCache(quiz.NewRedisCache(redisClient, quiz.DefaultQuizTTL)),
	}
	if appCfg.StorageEnabled {
		var s3Cfg storage.S3Config
		config.MustLoad(&s3Cfg)
		archive, err := storage.NewS3Storage(ctx, s3Cfg)
		if err != nil {
			return err
		}
		quizOpts = append(quizOpts, quiz.WithArchive(archive))
	}
	quizSvc := quiz.NewService(generator, billingSvc, quizOpts...)

	// Notes with optional full-text search.
	notesOpts := []notes.ServiceOption{notes.WithLogger(log)}
	var searchHealthcheck func(context.Context) error
	if appCfg.SearchEnabled {
		var osCfg opensearch.Config
		config.MustLoad(&osCfg)
		osClient, err := opensearch.New(ctx, osCfg)
		if err != nil {
			return err
		}
		searchHealthcheck = opensearch.Healthcheck(osClient)
		notesOpts = append(notesOpts, notes.WithSearcher(notes.NewSearchIndex(osClient, notes.DefaultSearchIndex)))
	}
	notesSvc := notes.NewService(notes.NewPGStore(pool), notesOpts...)

	focusSvc := focus.NewService(redisClient)

	jwtSvc, err := jwt.NewFromString(appCfg.JWTSigningKey)
	if err != nil {
		return err
	}
	// Verified token first, then the first-auth profile upsert: handlers
	// behind auth can rely on the profile row existing.
	verify := jwt.Middleware(jwtSvc)
	ensure := profile.EnsureMiddleware(profiles, log)
	auth := func(next http.Handler) http.Handler {
		return verify(ensure(next))
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", healthHandler(
		pg.Healthcheck(pool),
		redis.Healthcheck(redisClient),
		searchHealthcheck,
	))

	r.Route("/api", func(r chi.Router) {
		r.Mount("/billing", billingmodule.Router(billingmodule.RouterOptions{
			Service: billingSvc,
			Auth:    auth,
			Logger:  log,
		}))
		r.Mount("/quiz", quizmodule.Router(quizmodule.RouterOptions{
			Service: quizSvc,
			Auth:    auth,
			Logger:  log,
		}))
		r.Mount("/notes", notesmodule.Router(notesmodule.RouterOptions{
			Service: notesSvc,
			Auth:    auth,
		}))
		r.Mount("/focus", focusmodule.Router(focusmodule.RouterOptions{
			Service: focusSvc,
			Auth:    auth,
		}))
		r.Mount("/profile", profilemodule.Router(profilemodule.RouterOptions{
			Store: profiles,
			Auth:  auth,
		}))
	})

	var srvCfg httpserver.Config
	config.MustLoad(&srvCfg)
	return httpserver.New(srvCfg, log).Run(ctx, r)
}

func loadCatalog(cfg appConfig) (*billing.Catalog, error) {
	if cfg.PlansPath != "" {
		return billing.LoadCatalogFile(cfg.PlansPath)
	}
	return billing.NewCatalog(billing.DefaultPlans(cfg.ProPlanPriceID)...)
}

func newBillingProvider(cfg appConfig) (billing.Provider, error) {
	switch cfg.BillingProvider {
	case "paddle":
		var paddleCfg billing.PaddleConfig
		config.MustLoad(&paddleCfg)
		return billing.NewPaddleProvider(paddleCfg)
	default:
		var stripeCfg billing.StripeConfig
		config.MustLoad(&stripeCfg)
		return billing.NewStripeProvider(stripeCfg)
	}
}

// newMailer uses Postmark when a server token is configured and falls back
// to logging outgoing mail otherwise, so local development needs no account.
func newMailer(log *slog.Logger) email.EmailSender {
	var emailCfg email.Config
	config.MustLoad(&emailCfg)
	if emailCfg.PostmarkServerToken == "" {
		return email.NewLogSender(log)
	}
	sender, err := email.NewPostmarkClient(emailCfg)
	if err != nil {
		log.Warn("postmark client unavailable, logging outgoing mail", slog.Any("error", err))
		return email.NewLogSender(log)
	}
	return sender
}

func healthHandler(checks ...func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, check := range checks {
			if check == nil {
				continue
			}
			if err := check(r.Context()); err != nil {
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
