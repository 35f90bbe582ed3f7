// Package main is the deploy-nft command. It compiles, deploys and mints an NFT contract.
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
	if err := commands.New(commands.Config{}).DeployNFT().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
