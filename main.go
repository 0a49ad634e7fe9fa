package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

const port = 8888

var validPaths = []string{
	"/index.html", "/spring.svg", "/spring.png", "/resources.html",
	"/styles.css", "/app.js", "/links.html", "/forms.html",
	"/classic.html", "/events.html", "/events.js",
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := NewServer(Config{
		Port:         port,
		Whitelist:    validPaths,
		RootDir:      "public",
		TemplatePath: "/classic.html",
	})

	if err := srv.Start(ctx); err != nil {
		slog.Error("failed to start server", "err", err)
		return err
	}

	err := srv.Wait()
	srv.Stop()
	return err
}
