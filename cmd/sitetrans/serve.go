package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZaguanLabs/sitetrans/httpapi"
	"github.com/ZaguanLabs/sitetrans/internal/cli"
)

func runServe(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	host := fs.String("host", "", "Host interface to bind (default: HTTP_HOST)")
	port := fs.Int("port", 0, "HTTP port (default: HTTP_PORT)")
	readTimeout := fs.Duration("read-timeout", 10*time.Second, "HTTP read timeout")
	writeTimeout := fs.Duration("write-timeout", 5*time.Minute, "HTTP write timeout")
	shutdownTimeout := fs.Duration("shutdown-timeout", 10*time.Second, "Graceful shutdown timeout")

	if help, err := parseFlags(fs, args); help || err != nil {
		return err
	}
	if *port < 0 || *port > 65535 {
		fmt.Fprintln(stderr, "--port must be between 1 and 65535")
		return errUsage
	}

	e, err := loadEnv(envLoader, stderr)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(e.cfg)
	if err != nil {
		e.logger.Error().Err(err).Str("backend", e.cfg.CacheBackend).Msg("serve failed to open cache")
		return err
	}
	defer closeStore()

	coord, err := e.newCoordinator(store)
	if err != nil {
		return err
	}

	if *host == "" {
		*host = e.cfg.HTTPHost
	}
	if *port == 0 {
		*port = e.cfg.HTTPPort
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := httpapi.NewServer(coord, e.logger, httpapi.Options{
		Host:            *host,
		Port:            *port,
		ReadTimeout:     *readTimeout,
		WriteTimeout:    *writeTimeout,
		ShutdownTimeout: *shutdownTimeout,
		AllowOrigins:    e.cfg.CORSAllowedOriginsList(),
	})

	e.logger.Info().
		Str("backend", e.cfg.CacheBackend).
		Str("model", e.cfg.ModelName).
		Str("source_lang", coord.Languages().Source().Code).
		Strs("targets", coord.Languages().TargetCodes()).
		Msg("starting")

	if err := srv.Start(ctx); err != nil {
		e.logger.Error().Err(err).Str("addr", srv.Addr()).Msg("server failed")
		return err
	}
	return nil
}
