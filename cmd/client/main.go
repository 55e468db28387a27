package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"wallet_chat/internal/config"
	"wallet_chat/internal/service/app"
	"wallet_chat/internal/utils/log"

	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: client <peer wallet address>")
		os.Exit(2)
	}
	peer := os.Args[1]

	cfg, err := config.Load("client")
	if err != nil {
		panic(err)
	}
	if err := log.Init(cfg.Logger.Development, cfg.Logger.Level); err != nil {
		panic(err)
	}
	defer log.Sync()

	me, err := app.LoadOrCreateIdentity(cfg.Client.KeyDir)
	if err != nil {
		log.Fatal("load identity failed", zap.Error(err))
	}
	fmt.Printf("Your wallet address: %s\n", me.Address)

	api, err := app.NewAPI(cfg.Client.ServerURL)
	if err != nil {
		log.Fatal("invalid server url", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := app.NewApp(api, me)
	go func() {
		<-ctx.Done()
		c.Stop()
	}()

	if err := c.Run(ctx, peer); err != nil {
		if errors.Is(err, app.ErrPeerNotOnboarded) {
			fmt.Printf("%s has not onboarded yet; ask them to sign in once.\n", peer)
			return
		}
		log.Fatal("client exited", zap.Error(err))
	}
	c.Stop()
}
