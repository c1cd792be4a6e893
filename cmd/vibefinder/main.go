// Package main wires together the vibefinder service binary.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/vibefinder/vibefinder/internal/config"
	"github.com/vibefinder/vibefinder/internal/server"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	app, err := server.Build(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build application failed: %v\n", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
		os.Exit(1)
	}
}
