package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"salonbook/backend/internal/auth"
	"salonbook/backend/internal/config"
	"salonbook/backend/internal/metrics"
	"salonbook/backend/internal/notify"
	"salonbook/backend/internal/service/accounts"
	"salonbook/backend/internal/service/appointments"
	"salonbook/backend/internal/service/catalog"
	"salonbook/backend/internal/store/postgres"
	grpcTransport "salonbook/backend/internal/transport/grpc"
	"salonbook/backend/internal/transport/rest"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "salon-server"),
	)
	slog.SetDefault(log)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn(".env load failed", slog.Any("err", err))
	}

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", "salon-server"),
	)
	slog.SetDefault(log)
	if parseLogLevel(cfg.LogLevel) != slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Info("starting",
		slog.String("http_addr", cfg.HTTPAddr),
		slog.String("grpc_addr", cfg.GRPCAddr),
		slog.String("log_level", cfg.LogLevel),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
	db, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.Options{
		Pool: postgres.PoolConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
			ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		},
		SlowQuery: cfg.DBSlowQuery,
		Logger:    log.With(slog.String("component", "db")),
	})
	if err != nil {
		args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
		log.Error("database connection failed", args...)
		os.Exit(1)
	}
	closeDB := func() {
		if err := postgres.Close(db); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}

	if cfg.DatabaseMigrate {
		applied, err := postgres.Migrate(ctx, db)
		if err != nil {
			log.Error("database migration failed", slog.Any("err", err))
			closeDB()
			os.Exit(1)
		}
		log.Info("database migrated", slog.Any("applied", applied))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	userRepo := postgres.NewUserRepo(db)
	serviceRepo := postgres.NewServiceRepo(db)
	apptRepo := postgres.NewAppointmentRepo(db)

	var mailer notify.Mailer
	if cfg.Mail.Host == "" {
		log.Info("mail host not configured; notifications are logged only")
		mailer = notify.NewLogMailer(log)
	} else {
		mailer = notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		})
	}
	dispatcher := notify.NewDispatcher(apptRepo, mailer, log, m, notify.Config{
		QueueSize:  cfg.Notify.QueueSize,
		Workers:    cfg.Notify.Workers,
		Attempts:   cfg.Notify.Attempts,
		RetryDelay: cfg.Notify.RetryDelay,
	})

	accountSvc := accounts.NewService(userRepo, tokens)
	catalogSvc := catalog.NewService(serviceRepo)
	apptSvc := appointments.NewService(apptRepo, catalogSvc, dispatcher, m)

	if cfg.Admin.Username != "" {
		admin, changed, err := accountSvc.BootstrapAdmin(ctx, accounts.RegisterInput{
			Username: cfg.Admin.Username,
			Email:    cfg.Admin.Email,
			Password: cfg.Admin.Password,
		})
		if err != nil {
			log.Error("admin bootstrap failed", slog.Any("err", err), slog.String("username", cfg.Admin.Username))
			closeDB()
			os.Exit(1)
		}
		log.Info("admin account ready", slog.String("user_id", admin.ID.String()), slog.Bool("changed", changed))
	}

	limiter := rest.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	httpServer := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: rest.NewRouter(rest.Deps{
			Appointments: apptSvc,
			Accounts:     accountSvc,
			Catalog:      catalogSvc,
			Tokens:       tokens,
			Limiter:      limiter,
			Gatherer:     reg,
			Ready:        db.PingContext,
			Log:          log,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpcTransport.RequestTimeoutInterceptor(cfg.GRPCRequestTimeout),
			grpcTransport.AuthInterceptor(tokens),
		),
	)
	grpcTransport.RegisterAppointmentsServer(grpcServer, grpcTransport.NewAppointmentsServer(apptSvc, log))

	httpLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		log.Error("http listen failed", slog.Any("err", err), slog.String("http_addr", cfg.HTTPAddr))
		closeDB()
		os.Exit(1)
	}
	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Error("grpc listen failed", slog.Any("err", err), slog.String("grpc_addr", cfg.GRPCAddr))
		_ = httpLis.Close()
		closeDB()
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		limiter.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info("http server started", slog.String("http_addr", cfg.HTTPAddr))
		if err := httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Info("grpc server started", slog.String("grpc_addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			log.Info("shutdown signal received")
		}
		shutdown(log, httpServer, grpcServer, dispatcher, cfg.ShutdownTimeout)
		return nil
	})

	err = g.Wait()
	closeDB()
	if err != nil {
		log.Error("server stopped with error", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("stopped")
}

func shutdown(log *slog.Logger, hs *http.Server, gs *grpc.Server, d *notify.Dispatcher, timeout time.Duration) {
	log.Info("shutting down", slog.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := hs.Shutdown(ctx); err != nil {
		log.Warn("http graceful shutdown failed; closing", slog.Any("err", err))
		_ = hs.Close()
	}

	done := make(chan struct{})
	go func() {
		gs.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
		log.Info("grpc server stopped")
	case <-ctx.Done():
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		gs.Stop()
	}

	if err := d.Close(ctx); err != nil {
		log.Warn("notification drain incomplete", slog.Any("err", err))
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
