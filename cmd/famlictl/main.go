package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"famli/internal/cli"
	"famli/internal/client"
)

func main() {
	server := flag.String("server", envOr("FAMLI_SERVER", "http://localhost:3001/api"), "API base URL")
	sessionFile := flag.String("session", envOr("FAMLI_SESSION", defaultSessionPath()), "session file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := client.New(*server, client.NewFileStore(*sessionFile))
	app := cli.NewApp(c, os.Stdin, os.Stdout)

	if err := app.Run(ctx, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "famlictl: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".famli-session.json"
	}
	return filepath.Join(dir, "famli", "session.json")
}
