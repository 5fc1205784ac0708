package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-storefront/internal/access"
	"github.com/ariefcatur/go-storefront/internal/b2b"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/httpx"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/locale"
	"github.com/ariefcatur/go-storefront/internal/logx"
	"github.com/ariefcatur/go-storefront/internal/newsletter"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/payments"
	"github.com/ariefcatur/go-storefront/internal/payments/flow"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logx.New(cfg.ServiceName, cfg.LogLevel, cfg.LogPretty)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.AccessEnabled && (cfg.AccessCode == "" || cfg.AccessSecret == "") {
		log.Fatal().Msg("ACCESS_CODE and ACCESS_SECRET are required when ACCESS_ENABLED=true")
	}

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, satu per topic
	producers := map[string]*kafkax.Producer{
		orders.EventOrderCreated:      kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024, log),
		orders.EventPaymentAuthorized: kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicPaymentAuthorized, 1024, log),
		orders.EventPaymentFailed:     kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicPaymentFailed, 1024, log),
	}
	events := &kafkax.Router{Routes: map[string]kafkax.Publisher{}, Log: log}
	for t, p := range producers {
		p.Start(ctx)
		events.Routes[t] = p
	}

	provider := flow.New(cfg.FlowBaseURL, cfg.FlowAPIKey, cfg.FlowSecretKey)
	orderRepo := &orders.Repo{DB: db}
	paymentRepo := &payments.Repo{DB: db}

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpx.NewServer(httpx.Deps{
			Log:     log,
			Catalog: &catalog.Repo{DB: db},
			Orders:  orderRepo,
			Checkout: &payments.Checkout{
				Orders:     orderRepo,
				Provider:   provider,
				Payments:   paymentRepo,
				Events:     events,
				Service:    cfg.ServiceName,
				ReturnURL:  cfg.PublicBaseURL + "/api/payments/flow/result",
				ConfirmURL: cfg.PublicBaseURL + "/api/payments/flow/confirm",
				Log:        log,
			},
			Reconciler: &payments.Reconciler{
				Provider: provider,
				Store:    paymentRepo,
				Cache:    rdb,
				Events:   events,
				Service:  cfg.ServiceName,
				Log:      log,
			},
			Newsletter: &newsletter.Service{Store: &newsletter.Repo{DB: db}, Log: log},
			B2BAuth:    &b2b.Service{Store: &b2b.Repo{DB: db}, Log: log},
			Gate: &access.Gate{
				Enabled: cfg.AccessEnabled,
				Code:    cfg.AccessCode,
				Secret:  []byte(cfg.AccessSecret),
				Secure:  cfg.CookieSecure(),
			},
			Sessions: &access.Sessions{RDB: rdb, TTL: cfg.SessionTTL, Secure: cfg.CookieSecure(), Log: log},
			Locales:  locale.New(cfg.Locales, cfg.DefaultLocale),
			Redis:    rdb,
			Limiter:  httpx.NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// graceful shutdown
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	for _, p := range producers {
		p.Close() // tutup inbox -> flush & close writer
	}
	cancel()
	for _, p := range producers {
		p.WaitClosed()
	}
}
