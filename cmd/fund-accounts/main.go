// Package main is the fund-accounts command. It funds accounts from the development account of a node.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/leftasexercise/ethdeploy/engine/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// cobra prints the error, receipts of failed transactions are part of it
	if err := commands.New(commands.Config{}).FundAccounts().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
