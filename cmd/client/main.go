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

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"

	"age-of-war/server/internal/app"
	"age-of-war/server/internal/audio"
	"age-of-war/server/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "client: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a JSON or YAML settings file")
	server := flag.String("server", "", "server URL, overrides client.serverUrl")
	name := flag.String("name", "", "display name")
	headless := flag.Bool("headless", false, "log only, no terminal UI")
	logPath := flag.String("log", "", "write logs to this file instead of stderr")
	flag.Parse()

	settings, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	clientSettings := settings.Client
	if *server != "" {
		clientSettings.ServerURL = *server
	}
	if *name != "" {
		clientSettings.Name = *name
	}
	if *headless {
		clientSettings.Headless = true
	}

	var out io.Writer
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log: %w", err)
		}
		defer f.Close()
		out = zerolog.ConsoleWriter{Out: f, NoColor: true, TimeFormat: time.RFC3339}
	} else if !clientSettings.Headless {
		// The terminal belongs to the screen.
		out = io.Discard
	}
	logger := app.NewLogger(settings.Logging.Level, out)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := app.ClientConfig{Settings: clientSettings, Logger: logger}

	if clientSettings.Audio {
		player := audio.New(audio.DefaultConfig())
		if err := player.Start(); err != nil {
			logger.Warn().Err(err).Msg("audio unavailable")
		}
		defer player.Close()
		cfg.Audio = player
	}

	if !clientSettings.Headless {
		screen, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("screen: %w", err)
		}
		if err := screen.Init(); err != nil {
			return fmt.Errorf("screen: %w", err)
		}
		defer screen.Fini()
		cfg.Screen = screen
	}

	return app.RunClient(ctx, cfg)
}
