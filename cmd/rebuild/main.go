// Package main rebuilds the group chat read model from the journal.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	rebuildcmd "github.com/louisbranch/groupchat/internal/cmd/rebuild"
	entrypoint "github.com/louisbranch/groupchat/internal/platform/cmd"
	"github.com/louisbranch/groupchat/internal/platform/config"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		config.Exitf(entrypoint.ServiceRebuild, "load env: %v", err)
	}
	cfg, err := rebuildcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf(entrypoint.ServiceRebuild, "parse flags: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rebuildcmd.Run(ctx, cfg, os.Stdout); err != nil {
		config.Exitf(entrypoint.ServiceRebuild, "rebuild: %v", err)
	}
}
