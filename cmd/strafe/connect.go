package main

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/cfoust/strafe/pkg/client"
	"github.com/cfoust/strafe/pkg/config"
	"github.com/cfoust/strafe/pkg/ingress"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const CONNECT_TIMEOUT = 5 * time.Second

func connectCommand(configs []string) error {
	cfg, err := config.Process(configs)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	host, portText, err := net.SplitHostPort(cfg.Client.Server)
	if err != nil {
		return fmt.Errorf("invalid server address %s: %w", cfg.Client.Server, err)
	}
	port, err := strconv.Atoi(portText)
	if err != nil {
		return fmt.Errorf("invalid server port %s: %w", portText, err)
	}

	key, err := cfg.Server.ParseKey()
	if err != nil {
		return err
	}

	id := cfg.Client.ClientID
	if id == 0 {
		id = rand.Uint64()
	}

	conditioner := ingress.NewConditioner(cfg.Server.Conditioner, time.Now().UnixNano())
	conn, err := ingress.DialENet(host, port, conditioner)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return conn.Poll(ctx)
	})

	group.Go(func() error {
		select {
		case <-conn.Connected():
		case <-time.After(CONNECT_TIMEOUT):
			return fmt.Errorf("timed out connecting to %s", cfg.Client.Server)
		case <-ctx.Done():
			return nil
		}

		log.Info().
			Uint64("client", id).
			Str("server", cfg.Client.Server).
			Msg("connected")

		player := client.New(client.Settings{
			ID:       id,
			Key:      key,
			Movement: cfg.Movement,
		}, conn)

		err := player.Run(ctx, client.NewBot())
		conn.Close()
		return err
	})

	return group.Wait()
}
