package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/qturkey/listmailer/pkg/logger"
)

const (
	defaultAddress           = ":5001"
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
	defaultShutdownTimeout   = 30 * time.Second
)

// Hook is a start or shutdown step.
type Hook func(context.Context) error

type runConfig struct {
	logger          *slog.Logger
	address         string
	startHooks      []Hook
	shutdownHooks   []Hook
	shutdownTimeout time.Duration
}

// RunOption configures Run.
type RunOption func(*runConfig)

func Address(addr string) RunOption {
	return func(c *runConfig) {
		if addr != "" {
			c.address = addr
		}
	}
}

func Logger(l *slog.Logger) RunOption {
	return func(c *runConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// ShutdownTimeout bounds the HTTP drain and all shutdown hooks together.
func ShutdownTimeout(d time.Duration) RunOption {
	return func(c *runConfig) {
		if d > 0 {
			c.shutdownTimeout = d
		}
	}
}

// StartHook runs after the listener is bound and before serving.
// Hooks run in registration order; the first failure aborts startup.
func StartHook(fn Hook) RunOption {
	return func(c *runConfig) {
		if fn != nil {
			c.startHooks = append(c.startHooks, fn)
		}
	}
}

// ShutdownHook runs after the HTTP server has drained, in registration order.
func ShutdownHook(fn Hook) RunOption {
	return func(c *runConfig) {
		if fn != nil {
			c.shutdownHooks = append(c.shutdownHooks, fn)
		}
	}
}

// Run serves handler until ctx is canceled or SIGINT/SIGTERM arrives, then
// shuts the server down and runs the shutdown hooks.
func Run(ctx context.Context, handler http.Handler, opts ...RunOption) error {
	cfg := &runConfig{
		address:         defaultAddress,
		logger:          logger.NewNope(),
		shutdownTimeout: defaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	log := cfg.logger

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", cfg.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           handler,
		ReadTimeout:       defaultReadTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	for _, hook := range cfg.startHooks {
		if err := hook(ctx); err != nil {
			_ = ln.Close()
			return errors.Join(err, shutdown(cfg, nil))
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server starting", slog.String("address", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		return shutdown(cfg, srv)
	})

	if err := g.Wait(); err != nil {
		log.Error("shutdown completed with errors", slog.Any("error", err))
		return err
	}
	log.Info("shutdown completed")
	return nil
}

func shutdown(cfg *runConfig, srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.shutdownTimeout)
	defer cancel()

	var errs []error
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	for _, hook := range cfg.shutdownHooks {
		if err := hook(ctx); err != nil {
			cfg.logger.Error("shutdown hook failed", slog.Any("error", err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
