// Command estatedesk-server serves the estatedesk HTTP API, the change stream
// and a gRPC health endpoint.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/and161185/estatedesk/internal/cache"
	"github.com/and161185/estatedesk/internal/changefeed"
	"github.com/and161185/estatedesk/internal/config"
	"github.com/and161185/estatedesk/internal/limiter"
	"github.com/and161185/estatedesk/internal/migrate"
	"github.com/and161185/estatedesk/internal/repository/postgres"
	grpcserver "github.com/and161185/estatedesk/internal/server/grpc"
	"github.com/and161185/estatedesk/internal/server/httpapi"
	"github.com/and161185/estatedesk/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main parses configuration, runs migrations and serves until SIGINT/SIGTERM.
func main() {
	config.LoadDotEnv()
	cfg, err := config.LoadServer(os.Args[1:], os.Getenv)
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	logger, _ := zap.NewProduction()
	if cfg.Dev {
		logger, _ = zap.NewDevelopment()
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
		zap.String("ops_addr", cfg.OpsAddr),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg config.Server, logger *zap.Logger) error {
	if err := migrate.Up(ctx, cfg.DSN, logger); err != nil {
		return err
	}

	db, pool, err := postgres.New(ctx, cfg.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	kv, closeCache := cache.New(ctx, cfg.RedisAddr, logger)
	defer func() { _ = closeCache() }()

	// Repositories
	users := postgres.NewUserRepo(db)
	profiles := postgres.NewProfileRepo(db)
	admins := postgres.NewAdminRepo(db)
	deliveries := postgres.NewDeliveryRepo(db)
	maintenance := postgres.NewMaintenanceRepo(db)
	visitors := postgres.NewVisitorRepo(db)
	announcements := postgres.NewAnnouncementRepo(db)

	var lim limiter.Limiter = limiter.NewPG(pool, limiter.DefaultPolicy)
	if cfg.LimiterBackend == "cache" {
		lim = limiter.NewCached(kv, limiter.DefaultPolicy)
	}
	tokens := service.NewTokenIssuer([]byte(cfg.JWTKey), kv)

	// Services
	var fed service.Federation
	if cfg.FederatedEnabled() {
		fed = service.NewGoogleFederation(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.OAuthRedirectURL)
	}
	authSvc := service.NewAuthService(service.AuthDeps{
		Users:      users,
		Profiles:   profiles,
		Tokens:     tokens,
		Limiter:    lim,
		Cache:      kv,
		Sender:     service.LogSender{Log: logger},
		Federation: fed,
		AccessTTL:  cfg.AccessTTL,
		CodeTTL:    cfg.CodeTTL,
	})
	adminSvc := service.NewAdminService(admins, tokens, lim, service.AdminPolicy{
		RevealUsernames: cfg.RevealAdminUsernames,
		TokenTTL:        cfg.AdminTTL,
	})
	if u, p, ok := cfg.BootstrapCredentials(); ok {
		if err := adminSvc.Ensure(ctx, u, p); err != nil {
			return err
		}
		logger.Info("admin bootstrap ensured", zap.String("username", u))
	}

	hub := changefeed.NewHub()
	router := httpapi.NewRouter(httpapi.Deps{
		Auth:           authSvc,
		Admin:          adminSvc,
		Tokens:         tokens,
		Deliveries:     service.NewDeliveryService(deliveries),
		Maintenance:    service.NewMaintenanceService(maintenance),
		Visitors:       service.NewVisitorService(visitors),
		Announcements:  service.NewAnnouncementService(announcements),
		Profiles:       service.NewProfileService(profiles, users, tokens),
		Dashboard:      service.NewDashboardService(deliveries, maintenance, visitors),
		Hub:            hub,
		Stream:         changefeed.StreamOptions{OriginPatterns: cfg.AllowedOrigins},
		OAuthReturnURL: cfg.OAuthReturnURL,
		Log:            logger,
	})

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	ops := grpcserver.New(db, logger, cfg.Dev)

	opsLis, err := net.Listen("tcp", cfg.OpsAddr)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return postgres.NewListener(pool, hub, logger).Run(gctx)
	})
	g.Go(func() error {
		ops.Watch(gctx, 10*time.Second)
		return nil
	})
	g.Go(func() error {
		logger.Info("ops listening", zap.String("addr", cfg.OpsAddr))
		return ops.Server.Serve(opsLis)
	})
	g.Go(func() error {
		var err error
		if cfg.TLSCert != "" {
			logger.Info("listening (TLS)", zap.String("addr", cfg.Addr))
			err = httpSrv.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
		} else {
			logger.Info("listening", zap.String("addr", cfg.Addr))
			err = httpSrv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := httpSrv.Shutdown(shutdownCtx)

		done := make(chan struct{})
		go func() {
			ops.Server.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-shutdownCtx.Done():
			ops.Server.Stop()
		}
		return err
	})
	return g.Wait()
}
