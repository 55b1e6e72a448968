// Command seedadmin creates the admin account, or resets its password and
// name when the email already exists.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/theheadmen/donations/internal/auth"
	"github.com/theheadmen/donations/internal/dbconnector"
	"github.com/theheadmen/donations/internal/logger"
	"github.com/theheadmen/donations/internal/serverconfig"
	"go.uber.org/zap"
)

const (
	defaultAdminEmail = "admin@donationapp.com"
	defaultAdminName  = "Admin"
)

type seedConfig struct {
	Database string
	Email    string
	Password string
	Name     string
}

func parseSeedConfig(fs *flag.FlagSet, args []string) (*seedConfig, error) {
	cfg := &seedConfig{Email: defaultAdminEmail, Name: defaultAdminName}
	fs.StringVar(&cfg.Database, "d", "", "data for connecting to db")
	fs.StringVar(&cfg.Email, "email", cfg.Email, "admin email")
	fs.StringVar(&cfg.Password, "password", "", "admin password")
	fs.StringVar(&cfg.Name, "name", cfg.Name, "admin display name")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URI"); v != "" {
		cfg.Database = v
	}
	if v := os.Getenv("ADMIN_EMAIL"); v != "" {
		cfg.Email = v
	}
	if v := os.Getenv("ADMIN_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("ADMIN_NAME"); v != "" {
		cfg.Name = v
	}
	cfg.Email = strings.ToLower(strings.TrimSpace(cfg.Email))

	var errs []error
	if cfg.Database == "" {
		errs = append(errs, errors.New("database uri is required (-d or DATABASE_URI)"))
	}
	if cfg.Email == "" {
		errs = append(errs, errors.New("admin email is required"))
	}
	if len(cfg.Password) < 8 {
		errs = append(errs, errors.New("admin password must be at least 8 characters (-password or ADMIN_PASSWORD)"))
	}
	return cfg, errors.Join(errs...)
}

func main() {
	if err := serverconfig.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := parseSeedConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log, err := logger.New(os.Getenv("APP_ENV"), "info")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := seed(cfg); err != nil {
		log.Fatal("seeding admin failed", zap.Error(err))
	}
	log.Info("admin account ready", zap.String("email", cfg.Email))
}

func seed(cfg *seedConfig) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := dbconnector.OpenDBConnect(cfg.Database, dbconnector.PoolSettings{})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	if err := db.DBInitialize(); err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}

	hash, err := auth.HashPassword(cfg.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return db.UpsertUser(ctx, &dbconnector.User{
		Name:     cfg.Name,
		Email:    cfg.Email,
		Password: hash,
		IsAdmin:  true,
	})
}
