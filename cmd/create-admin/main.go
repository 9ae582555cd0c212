// Command create-admin inserts an administrator account, or reports the
// existing one.  It reads the same environment as the server.
//
//	go run ./cmd/create-admin -email admin@example.com -name Admin
//
// The password comes from -password or, preferably, ADMIN_PASSWORD so it
// does not end up in shell history.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/iliyamo/blog-api/internal/config"
	"github.com/iliyamo/blog-api/internal/database"
	"github.com/iliyamo/blog-api/internal/logger"
	"github.com/iliyamo/blog-api/internal/model"
	"github.com/iliyamo/blog-api/internal/password"
	"github.com/iliyamo/blog-api/internal/repository"
	"github.com/iliyamo/blog-api/internal/service"
)

func main() {
	_ = godotenv.Load()

	email := flag.String("email", os.Getenv("ADMIN_EMAIL"), "admin email")
	name := flag.String("name", envOr("ADMIN_NAME", "Administrator"), "display name")
	pw := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "password (prefer ADMIN_PASSWORD)")
	flag.Parse()

	if strings.TrimSpace(*email) == "" || *pw == "" {
		fmt.Fprintln(os.Stderr, "usage: create-admin -email <email> [-name <name>] (password via ADMIN_PASSWORD)")
		os.Exit(2)
	}
	if res := password.Validate(*pw); !res.Valid {
		fmt.Fprintln(os.Stderr, "password does not meet requirements:")
		for _, m := range res.Messages() {
			fmt.Fprintln(os.Stderr, "  -", m)
		}
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.Must(cfg.LogLevel, cfg.IsProduction())
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	u, err := createAdmin(ctx, cfg, *name, *email, *pw)
	switch {
	case errors.Is(err, model.ErrDuplicateEmail):
		log.Info("admin already exists", zap.String("email", model.NormalizeEmail(*email)))
		return
	case err != nil:
		log.Fatal("create admin failed", zap.Error(err))
	}
	log.Info("admin created", zap.Uint64("id", u.ID), zap.String("email", u.Email))
}

func createAdmin(ctx context.Context, cfg config.Config, name, email, raw string) (model.User, error) {
	db, err := database.Open(ctx, database.DSN(cfg.Database))
	if err != nil {
		return model.User{}, err
	}
	defer db.Close()
	if cfg.Database.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			return model.User{}, err
		}
	}

	hasher, err := password.NewHasher(cfg.Password.Hasher, cfg.Password.BcryptCost)
	if err != nil {
		return model.User{}, err
	}
	creds, err := service.NewCredentials(repository.NewUserRepo(db), hasher)
	if err != nil {
		return model.User{}, err
	}
	return creds.CreateWithRole(ctx, name, email, raw, model.RoleAdmin)
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
