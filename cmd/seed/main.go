// Package main seeds a demo group chat into the journal and read model.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	seedcmd "github.com/louisbranch/groupchat/internal/cmd/seed"
	entrypoint "github.com/louisbranch/groupchat/internal/platform/cmd"
	"github.com/louisbranch/groupchat/internal/platform/config"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		config.Exitf(entrypoint.ServiceSeed, "load env: %v", err)
	}
	cfg, err := seedcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf(entrypoint.ServiceSeed, "parse flags: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := seedcmd.Run(ctx, cfg, os.Stdout); err != nil {
		config.Exitf(entrypoint.ServiceSeed, "seed: %v", err)
	}
}
