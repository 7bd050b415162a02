// Package main starts the group chat read model updater.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	rmucmd "github.com/louisbranch/groupchat/internal/cmd/rmu"
	entrypoint "github.com/louisbranch/groupchat/internal/platform/cmd"
	"github.com/louisbranch/groupchat/internal/platform/config"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		config.Exitf(entrypoint.ServiceRMU, "load env: %v", err)
	}
	cfg, err := rmucmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf(entrypoint.ServiceRMU, "parse flags: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rmucmd.Run(ctx, cfg); err != nil {
		config.Exitf(entrypoint.ServiceRMU, "read model updater: %v", err)
	}
}
