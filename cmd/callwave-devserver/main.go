// Command callwave-devserver runs the in-memory Callwave backend on
// localhost so the dashboard can be used without an account.
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

	"go.uber.org/zap"

	"github.com/callwave/callwave/internal/config"
	"github.com/callwave/callwave/internal/devserver"
	"github.com/callwave/callwave/internal/logging"
)

// settings are read from CALLWAVE_DEV_* variables.
type settings struct {
	Addr         string        `env:"CALLWAVE_DEV_ADDR" envDefault:"127.0.0.1:8080"`
	Secret       string        `env:"CALLWAVE_DEV_SECRET"`
	AccessTTL    time.Duration `env:"CALLWAVE_DEV_ACCESS_TTL" envDefault:"1m"`
	RefreshTTL   time.Duration `env:"CALLWAVE_DEV_REFRESH_TTL" envDefault:"168h"`
	CallInterval time.Duration `env:"CALLWAVE_DEV_CALL_INTERVAL" envDefault:"2s"`
	MaxAttempts  int           `env:"CALLWAVE_DEV_MAX_ATTEMPTS" envDefault:"2"`
	Env          string        `env:"CALLWAVE_ENV" envDefault:"development"`
	LogLevel     string        `env:"CALLWAVE_LOG_LEVEL" envDefault:"info"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var s settings
	if err := config.ParseEnv(&s); err != nil {
		return err
	}
	log, err := logging.New(logging.Options{Env: s.Env, Level: s.LogLevel})
	if err != nil {
		return err
	}
	defer logging.Sync(log)

	dev, err := devserver.New(devserver.Options{
		Secret:       s.Secret,
		AccessTTL:    s.AccessTTL,
		RefreshTTL:   s.RefreshTTL,
		CallInterval: s.CallInterval,
		MaxAttempts:  s.MaxAttempts,
		Logger:       log,
		Seed:         true,
	})
	if err != nil {
		return err
	}
	defer dev.Close()

	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           dev.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("devserver listening",
			zap.String("addr", s.Addr),
			zap.String("demo_email", devserver.DemoEmail),
			zap.String("demo_password", devserver.DemoPassword))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
