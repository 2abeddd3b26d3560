// Command moodify runs the Moodify web application.
package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/justestif/go-moodify/internal/bootstrap"
	"github.com/justestif/go-moodify/internal/config"
	"github.com/justestif/go-moodify/internal/web"
	webfs "github.com/justestif/go-moodify/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	services, err := bootstrap.Build(context.Background(), cfg, logger)
	if err != nil {
		return err
	}

	templates, err := fs.Sub(webfs.TemplatesFS, "templates")
	if err != nil {
		return fmt.Errorf("creating templates filesystem: %w", err)
	}

	static, err := fs.Sub(webfs.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("creating static filesystem: %w", err)
	}

	server, err := web.NewServer(web.ServerConfig{
		Addr:           cfg.Addr,
		TemplatesFS:    templates,
		StaticFS:       static,
		Sampler:        services.Sampler,
		Voice:          services.Voice,
		Playlists:      services.Playlists,
		Preview:        services.Preview,
		SampleBudget:   cfg.SampleBudget,
		ListenDuration: cfg.ListenDuration,
		Cloud:          !cfg.Local(),
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return server.Run()
}
