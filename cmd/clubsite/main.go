package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/google/uuid"

	"github.com/example/student-affairs/internal/application"
	"github.com/example/student-affairs/internal/config"
	"github.com/example/student-affairs/internal/docstore"
	"github.com/example/student-affairs/internal/docstore/mongostore"
	"github.com/example/student-affairs/internal/docstore/sqlite"
	httptransport "github.com/example/student-affairs/internal/http"
	"github.com/example/student-affairs/internal/persistence"
	"github.com/example/student-affairs/internal/persistence/documents"
)

const bootstrapStaffRole = "admin"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("club site stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	store, health, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	site := newSite(store, cfg, logger)
	if cfg.Bootstrap.Enabled() {
		if err := bootstrapStaff(ctx, site.identities, site.staff, cfg.Bootstrap); err != nil {
			return fmt.Errorf("bootstrap staff: %w", err)
		}
		logger.Info("bootstrap staff ready", "email", cfg.Bootstrap.Email)
	}

	metrics := httptransport.NewMetrics()
	unsubscribe := site.auth.Subscribe(metrics.ObserveStaffEvent)
	defer unsubscribe()

	handler, err := httptransport.NewRouter(httptransport.RouterConfig{
		Public: site.public,
		Staff: &httptransport.StaffConfig{
			Auth:     site.auth,
			Clubs:    site.clubs,
			Events:   site.events,
			Featured: site.featured,
		},
		Sessions:      site.auth,
		Store:         health,
		Metrics:       metrics,
		CSRFKey:       cfg.CSRFKey,
		SecureCookies: cfg.SecureCookies,
		StaticDir:     cfg.StaticDir,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// The event stream holds its response open, so writes are not bounded.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("club site listening", "addr", server.Addr, "store", string(cfg.Store))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// site wires the services over one document store.
type site struct {
	identities persistence.IdentityRepository
	staff      persistence.StaffRepository

	auth     *application.AuthService
	public   *application.PublicService
	clubs    *application.ClubManager
	events   *application.EventManager
	featured *application.FeaturedService
}

func newSite(store docstore.Store, cfg config.Config, logger *slog.Logger) *site {
	now := time.Now

	identities := documents.NewIdentityRepository(store)
	staff := documents.NewStaffRepository(store)
	clubRepo := newClubRepositoryAdapter(documents.NewClubRepository(store))
	eventRepo := newEventRepositoryAdapter(documents.NewEventRepository(store))
	featuredRepo := newFeaturedRepositoryAdapter(documents.NewFeaturedRepository(store))

	featured := application.NewFeaturedServiceWithLogger(featuredRepo, cfg.FeaturedAtomic, logger)
	return &site{
		identities: identities,
		staff:      staff,
		auth: application.NewAuthService(application.AuthConfig{
			Credentials:    newCredentialStoreAdapter(identities),
			Staff:          newStaffDirectoryAdapter(staff),
			Sessions:       newSessionRepositoryAdapter(documents.NewSessionRepository(store, now)),
			TokenGenerator: func() string { return randomHex(32) },
			Now:            now,
			SessionTTL:     cfg.SessionTTL,
			Logger:         logger,
		}),
		public: application.NewPublicService(application.PublicConfig{
			Clubs:      clubRepo,
			Events:     eventRepo,
			Watcher:    eventRepo,
			Featured:   featured,
			LogoExists: httptransport.LogoExists(cfg.StaticDir),
			Logger:     logger,
		}),
		clubs:    application.NewClubManager(clubRepo, now, logger),
		events:   application.NewEventManager(eventRepo, logger),
		featured: featured,
	}
}

type alwaysReachable struct{}

func (alwaysReachable) Ping(context.Context) error { return nil }

// openStore opens the configured backend. The MongoDB ping is retried while
// the deployment comes up.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (docstore.Store, httptransport.Pinger, error) {
	switch cfg.Store {
	case config.StoreMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		return docstore.NewMemory(), alwaysReachable{}, nil

	case config.StoreMongo:
		store, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		retrier := retry.NewRetrier(5, 100*time.Millisecond, time.Second)
		err = retrier.Run(func() error {
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			if err := store.Ping(pingCtx); err != nil {
				logger.Warn("mongodb not reachable yet", "error", err)
				return err
			}
			return nil
		})
		if err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("ping mongodb: %w", err)
		}
		return store, store, nil

	default:
		store, err := sqlite.Open(cfg.SQLiteDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open storage: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("apply migrations: %w", err)
		}
		return store, store, nil
	}
}

// bootstrapStaff provisions the configured identity and its staff record.
// Existing records are left untouched, so repeated starts are harmless.
func bootstrapStaff(ctx context.Context, identities persistence.IdentityRepository, staff persistence.StaffRepository, account config.BootstrapStaff) error {
	identity, err := identities.GetIdentityByEmail(ctx, account.Email)
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		hash, err := application.HashPassword(account.Password)
		if err != nil {
			return err
		}
		identity = persistence.Identity{ID: uuid.NewString(), Email: account.Email, PasswordHash: hash}
		if err := identities.CreateIdentity(ctx, identity); err != nil {
			return err
		}
	case err != nil:
		return err
	}

	if _, err := staff.GetStaff(ctx, identity.ID); err == nil {
		return nil
	} else if !errors.Is(err, persistence.ErrNotFound) {
		return err
	}

	fullName := account.FullName
	if fullName == "" {
		fullName = account.Email
	}
	return staff.PutStaff(ctx, persistence.Staff{
		ID:       identity.ID,
		Email:    identity.Email,
		FullName: fullName,
		Role:     bootstrapStaffRole,
	})
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(buf)
}
