package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"eventara.org/internal/account"
	"eventara.org/internal/httpapi"
	"eventara.org/internal/mailer"
	"eventara.org/internal/oauth"
	"eventara.org/internal/obs"
	"eventara.org/internal/otp"
	"eventara.org/internal/recovery"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	secret := os.Getenv("EVENTARA_AUTH_SECRET")
	if secret == "" {
		log.Fatal("EVENTARA_AUTH_SECRET is required")
	}

	// Postgres; without a DSN the service runs on the in-memory store, which
	// is only useful for local poking.
	var (
		db    *sql.DB
		store account.Store
	)
	if dsn := os.Getenv("EVENTARA_PG_DSN"); dsn != "" {
		var err error
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
		store = account.NewPGStore(db)
	} else {
		log.Print("EVENTARA_PG_DSN not set, using in-memory store")
		store = account.NewInMemory()
	}

	redisAddr := os.Getenv("EVENTARA_REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})

	accounts, err := account.NewService(store,
		account.WithTokenSecret(secret),
		account.WithLogger(obs.Logger()),
	)
	if err != nil {
		log.Fatalf("account service: %v", err)
	}

	smtpPort, _ := strconv.Atoi(os.Getenv("EVENTARA_SMTP_PORT"))
	mail, err := mailer.NewSMTP(mailer.SMTPConfig{
		Host: os.Getenv("EVENTARA_SMTP_HOST"),
		Port: smtpPort,
		User: os.Getenv("EVENTARA_SMTP_USER"),
		Pass: os.Getenv("EVENTARA_SMTP_PASS"),
		From: os.Getenv("EVENTARA_SMTP_FROM"),
	}, obs.Logger())
	if err != nil {
		log.Fatalf("mailer: %v", err)
	}

	cache := otp.NewCache(rdb, "otp")
	limiter := otp.NewLimiter(cache, otp.MaxSendsPerDay)

	var provider oauth.Provider
	if clientID := os.Getenv("EVENTARA_GOOGLE_CLIENT_ID"); clientID != "" {
		provider, err = oauth.NewGoogle(oauth.GoogleConfig{
			ClientID:     clientID,
			ClientSecret: os.Getenv("EVENTARA_GOOGLE_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("EVENTARA_GOOGLE_REDIRECT_URL"),
		})
		if err != nil {
			log.Fatalf("google oauth: %v", err)
		}
	} else {
		log.Print("EVENTARA_GOOGLE_CLIENT_ID not set, oauth login disabled")
	}

	api := httpapi.New(httpapi.Config{
		Accounts:      accounts,
		Reset:         recovery.NewPasswordResetService(accounts, cache, limiter, mail),
		Reactivation:  recovery.NewReactivationService(accounts, cache, limiter, mail),
		Provider:      provider,
		ReadyProbe:    httpapi.ReadyProbe{DB: db, Redis: rdb},
		Version:       version,
		BaseURL:       os.Getenv("EVENTARA_BASE_URL"),
		SecureCookies: os.Getenv("EVENTARA_INSECURE_COOKIES") != "1",
	})

	handler := httpapi.Logging(api.Handler())
	handler = httpapi.SecurityHeaders(handler)
	handler = httpapi.CORS(handler, corsOrigins())
	handler = httpapi.RateLimit(handler, 50, 25)

	addr := os.Getenv("EVENTARA_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting eventara-auth %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	_ = rdb.Close()
	log.Println("Stopped")
}

func corsOrigins() []string {
	if base := os.Getenv("EVENTARA_BASE_URL"); base != "" {
		return []string{base}
	}
	return nil
}
