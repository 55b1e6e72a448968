package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/theheadmen/donations/internal/auth"
	"github.com/theheadmen/donations/internal/dbconnector"
	"github.com/theheadmen/donations/internal/gateway"
	"github.com/theheadmen/donations/internal/logger"
	"github.com/theheadmen/donations/internal/metrics"
	"github.com/theheadmen/donations/internal/server"
	"github.com/theheadmen/donations/internal/serverconfig"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	if err := serverconfig.LoadDotEnv(); err != nil {
		return err
	}
	configStore := serverconfig.NewConfigStore()
	if err := configStore.ParseFlags(); err != nil {
		return err
	}
	if err := configStore.Validate(); err != nil {
		return err
	}

	log, err := logger.New(configStore.FlagEnv, configStore.FlagLogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := dbconnector.OpenDBConnect(configStore.FlagDatabase, dbconnector.PoolSettings{
		MaxOpenConns:    configStore.DBMaxOpenConns,
		MaxIdleConns:    configStore.DBMaxIdleConns,
		ConnMaxLifetime: configStore.DBConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	if err := db.DBInitialize(); err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}

	if !configStore.GatewayConfigured() {
		log.Warn("razorpay credentials are not set, payment routes will answer 503")
	}
	gw := gateway.NewRazorpayGateway(configStore.FlagRazorpayKey, configStore.FlagRazorpaySecret)
	tokens := auth.NewTokenManager(configStore.FlagJWTSecret, configStore.FlagJWTTTL)

	ls := server.NewServerSystem(db, gw, tokens,
		server.WithLogger(log),
		server.WithMetrics(metrics.New()),
		server.WithLoginRate(configStore.LoginRatePerMinute, configStore.LoginRateBurst),
	)
	srv := ls.MakeServer(configStore.FlagRunAddr)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", configStore.FlagRunAddr), zap.String("env", configStore.FlagEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
