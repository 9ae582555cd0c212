package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/blog-api/internal/config"
	"github.com/iliyamo/blog-api/internal/database"
	"github.com/iliyamo/blog-api/internal/handler"
	"github.com/iliyamo/blog-api/internal/logger"
	"github.com/iliyamo/blog-api/internal/middleware"
	"github.com/iliyamo/blog-api/internal/password"
	"github.com/iliyamo/blog-api/internal/queue"
	"github.com/iliyamo/blog-api/internal/repository"
	"github.com/iliyamo/blog-api/internal/router"
	"github.com/iliyamo/blog-api/internal/service"
	"github.com/iliyamo/blog-api/internal/token"
)

func main() {
	_ = godotenv.Load() // .env is optional; real environment wins

	cfg, err := config.Load()
	if err != nil {
		// The logger is not configured yet.
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Must(cfg.LogLevel, cfg.IsProduction())
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	db, err := database.Open(ctx, database.DSN(cfg.Database))
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.Database.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		log.Info("migrations applied")
	}

	rdb := config.NewRedisClient(ctx, cfg.Redis)
	if rdb == nil {
		log.Warn("redis unavailable; using in-process rate limiting and no response cache")
	} else {
		defer rdb.Close()
	}

	issuer, err := token.NewIssuer(cfg.JWT.Secret, cfg.JWT.AccessTTL)
	if err != nil {
		return err
	}
	hasher, err := password.NewHasher(cfg.Password.Hasher, cfg.Password.BcryptCost)
	if err != nil {
		return err
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	posts := repository.NewPostRepo(db)
	comments := repository.NewCommentRepo(db)

	creds, err := service.NewCredentials(users, hasher)
	if err != nil {
		return err
	}
	ledger := service.NewLedger(tokens, users, issuer, cfg.RefreshTTL(), service.WithLedgerLogger(log))

	var events service.EventPublisher
	if p := queue.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Queue, log); p != nil {
		events = p
	}
	auth := service.NewAuth(creds, users, issuer, ledger, events, log)
	admin := service.NewUsers(users, ledger, events, log)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = (&handler.ErrorHandler{Log: log, Expose: cfg.ExposeErrors()}).Handle

	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Recover())
	e.Use(echomw.Secure())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORS.Origins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echomw.BodyLimit("1M"))

	h := router.Handlers{
		Health:   &handler.HealthHandler{DB: db, Redis: rdb},
		Auth:     handler.NewAuthHandler(auth),
		Users:    handler.NewUserHandler(admin),
		Taxonomy: handler.NewTaxonomyHandler(repository.NewCategoryRepo(db), repository.NewTagRepo(db)),
		Posts:    handler.NewPostHandler(posts, comments),
		Comments: handler.NewCommentHandler(comments, posts),
		Issuer:   issuer,
	}
	if cfg.RateLimit.Enabled {
		h.Limiter = middleware.NewTokenBucket(cfg.RateLimit, rdb, log)
	}
	if cfg.AuthRateLimit.Enabled {
		h.AuthLimit = middleware.NewTokenBucket(cfg.AuthRateLimit, rdb, log)
	}
	if cfg.Cache.Enabled && rdb != nil {
		h.CacheReads = middleware.NewRedisCache(cfg.Cache, rdb)
	}
	router.Register(e, h)

	if cfg.TokenGCInterval > 0 {
		go ledger.RunJanitor(ctx, cfg.TokenGCInterval)
	}
	if cfg.AMQP.URL != "" && cfg.AMQP.AuditConsumer {
		go func() {
			if err := queue.StartAuditConsumer(ctx, cfg.AMQP.URL, cfg.AMQP.Queue, cfg.AMQP.AuditLogPath, log); err != nil {
				log.Error("audit consumer stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
