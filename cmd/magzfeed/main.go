package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/eringen/magzfeed"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	app := &cli.App{
		Name:    "magzfeed",
		Usage:   "serve and inspect a partitioned magazine feed",
		Version: version,
		Commands: []*cli.Command{
			serveCommand(),
			feedCommand(),
			archiveCommand(),
			{
				Name:   "version",
				Usage:  "print the magzfeed version",
				Action: func(c *cli.Context) error {
					fmt.Fprintf(c.App.Writer, "magzfeed %s\n", version)
					return nil
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:        "serve",
		Usage:       "run the web server",
		Description: "SIGHUP drops the cached data files so edits show without a restart.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file", EnvVars: []string{"MAGZ_CONFIG"}},
			&cli.StringFlag{Name: "addr", Usage: "listen address", EnvVars: []string{"MAGZ_ADDR"}},
			&cli.StringFlag{Name: "name", Usage: "site name", EnvVars: []string{"SITE_NAME"}},
			&cli.StringFlag{Name: "url", Usage: "canonical site URL", EnvVars: []string{"SITE_URL"}},
			&cli.StringFlag{Name: "description", Usage: "site description", EnvVars: []string{"SITE_DESCRIPTION"}},
			&cli.StringFlag{Name: "data-origin", Usage: "origin the JSON data is fetched from", EnvVars: []string{"MAGZ_DATA_ORIGIN"}},
			&cli.StringFlag{Name: "base-path", Usage: "deployment sub-path", EnvVars: []string{"MAGZ_BASE_PATH"}},
			&cli.StringFlag{Name: "data-dir", Usage: "directory served at /data", EnvVars: []string{"MAGZ_DATA_DIR"}},
			&cli.StringFlag{Name: "db", Usage: "SQLite database path", EnvVars: []string{"DATABASE_PATH"}},
			&cli.StringFlag{Name: "session-secret", Usage: "cookie session secret", EnvVars: []string{"SESSION_SECRET"}},
			&cli.BoolFlag{Name: "cookie-secure", Usage: "mark cookies Secure", EnvVars: []string{"COOKIE_SECURE"}},
			&cli.StringFlag{Name: "static-dir", Usage: "directory served at /public", Value: "public", EnvVars: []string{"MAGZ_STATIC_DIR"}},
			&cli.BoolFlag{Name: "debug", Usage: "debug logging", EnvVars: []string{"MAGZ_DEBUG"}},
		},
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	var cfg magzfeed.SiteConfig
	if path := c.String("config"); path != "" {
		loaded, err := magzfeed.LoadConfigFile(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	// Flags and env vars override the file.
	override := func(name string, dst *string) {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	override("addr", &cfg.Addr)
	override("name", &cfg.Name)
	override("url", &cfg.URL)
	override("description", &cfg.Description)
	override("data-origin", &cfg.DataOrigin)
	override("base-path", &cfg.BasePath)
	override("data-dir", &cfg.DataDir)
	override("db", &cfg.DatabasePath)
	override("session-secret", &cfg.SessionSecret)
	if c.IsSet("cookie-secure") {
		cfg.CookieSecure = c.Bool("cookie-secure")
	}

	logger := newLogger(c.Bool("debug"))
	app := magzfeed.New(cfg, magzfeed.DefaultViews(),
		magzfeed.WithStaticDir(c.String("static-dir")),
		magzfeed.WithLogger(logger),
	)
	defer app.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	errc := make(chan error, 1)
	go func() { errc <- app.Start() }()

wait:
	for {
		select {
		case err := <-errc:
			return err
		case <-hup:
			app.Reload()
		case <-ctx.Done():
			break wait
		}
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
