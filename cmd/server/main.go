package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"age-of-war/server/internal/app"
	"age-of-war/server/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON or YAML settings file")
	flag.Parse()

	settings, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, app.Config{Settings: settings}); err != nil {
		log.Fatalf("%v", err)
	}
}
