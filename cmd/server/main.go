package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/jrsteele09/takemethere/internal/bootstrap"
	"github.com/jrsteele09/takemethere/internal/config"
	"github.com/jrsteele09/takemethere/internal/logging"
	"github.com/jrsteele09/takemethere/internal/telemetry"
	"github.com/jrsteele09/takemethere/server"
	"github.com/jrsteele09/takemethere/server/authflowrepo"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.New()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logging.Setup(c.GetEnv(), c.GetLogLevel())
	displayAppname(c.GetAppName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, c, c.GetAppName())
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	app, err := bootstrap.Build(ctx, c)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to release resources")
		}
	}()

	opts := []server.Option{server.WithMetrics(app.Metrics)}
	if app.Local != nil {
		opts = append(opts, server.WithUserDirectory(app.Local))
	}
	handler, err := server.New(c, app.Auth, authflowrepo.NewCacheRepo(app.Cache, c.GetFlowStateTTL()), opts...)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return listenAndServe(httpServer)
	})
	g.Go(func() error {
		<-gctx.Done()
		return shutdown(httpServer, app.Auth.Drain, shutdownTracing)
	})
	return g.Wait()
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

// shutdown stops accepting requests, then waits for in-flight reset emails
// and flushes traces.
func shutdown(server *http.Server, drain, flush func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server.Shutdown: %w", err))
	}
	if err := drain(ctx); err != nil {
		errs = append(errs, fmt.Errorf("drain reset dispatches: %w", err))
	}
	if err := flush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
	}
	return errors.Join(errs...)
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
