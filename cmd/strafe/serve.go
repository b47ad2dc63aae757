package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cfoust/strafe/pkg/config"
	"github.com/cfoust/strafe/pkg/events"
	"github.com/cfoust/strafe/pkg/ingress"
	"github.com/cfoust/strafe/pkg/protocol"
	"github.com/cfoust/strafe/pkg/server"
	"github.com/cfoust/strafe/pkg/session"
	"github.com/cfoust/strafe/pkg/sim"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func serveCommand(configs []string) error {
	cfg, err := config.Process(configs)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	settings := cfg.Server

	if settings.ProtocolID != protocol.PROTOCOL_ID {
		return fmt.Errorf(
			"configured protocol %d does not match this build's %d",
			settings.ProtocolID,
			protocol.PROTOCOL_ID,
		)
	}

	key, err := settings.ParseKey()
	if err != nil {
		return err
	}

	level, err := settings.LoadLevel()
	if err != nil {
		return err
	}

	srv, err := server.New(server.Settings{
		Key:        key,
		MaxClients: settings.MaxClients,
		InputRate:  settings.InputRate,
		World: sim.Settings{
			Rate:     settings.TickRate,
			Targets:  settings.Targets,
			Movement: cfg.Movement,
			Level:    level,
			Seed:     time.Now().UnixNano(),
		},
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	group, ctx := errgroup.WithContext(ctx)

	conditioner := ingress.NewConditioner(settings.Conditioner, time.Now().UnixNano())
	if settings.Conditioner.Enabled() {
		log.Warn().
			Int("latencyMs", settings.Conditioner.LatencyMs).
			Int("jitterMs", settings.Conditioner.JitterMs).
			Float64("loss", settings.Conditioner.Loss).
			Msg("link conditioner enabled")
	}

	enetIngress := ingress.NewENetIngress(srv.Connections(), conditioner)
	if err := enetIngress.Serve(settings.Port, settings.MaxClients); err != nil {
		return err
	}
	group.Go(func() error {
		return enetIngress.Poll(ctx)
	})

	if port := settings.Ingress.Web.Port; port != 0 {
		wsIngress := ingress.NewWSIngress(srv.Connections())
		group.Go(func() error {
			return wsIngress.Serve(ctx, port)
		})
	}

	if settings.LogSessions {
		store, err := session.OpenStore(settings.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		group.Go(func() error {
			return store.Run(ctx, srv.Changes())
		})
	}

	if settings.Redis.Address != "" {
		sink := events.DialRedis(settings.Redis)
		subscriber := srv.Events.Subscribe()
		group.Go(func() error {
			return sink.Run(ctx, subscriber)
		})
	}

	group.Go(func() error {
		return srv.Poll(ctx)
	})

	err = group.Wait()
	log.Info().Msg("server stopped")
	return err
}
