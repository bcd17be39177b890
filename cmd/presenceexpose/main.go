package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/vorlie/presenceexpose/internal/boot"
	"github.com/vorlie/presenceexpose/internal/config"
	"github.com/vorlie/presenceexpose/internal/handlers"
	"github.com/vorlie/presenceexpose/internal/logger"
	"github.com/vorlie/presenceexpose/internal/presence"
	"github.com/vorlie/presenceexpose/internal/server"
	"github.com/vorlie/presenceexpose/internal/source"
	"github.com/vorlie/presenceexpose/internal/version"
)

func provideConfig() (config.Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDiscord(log *slog.Logger, runtimeConfig *boot.RuntimeConfig) (*source.Discord, error) {
	return source.NewDiscord(log, runtimeConfig.DiscordToken)
}

func provideBroadcaster(lc fx.Lifecycle, log *slog.Logger, state *presence.State, runtimeConfig *boot.RuntimeConfig) *presence.Broadcaster {
	broadcaster := presence.NewBroadcaster(log, state, runtimeConfig.BroadcastWorkers)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			broadcaster.Close()
			return nil
		},
	})
	return broadcaster
}

func provideService(log *slog.Logger, state *presence.State, discord *source.Discord, broadcaster *presence.Broadcaster) *presence.Service {
	return presence.NewService(log, state, discord, broadcaster)
}

func provideWSHandler(log *slog.Logger, state *presence.State, service *presence.Service, runtimeConfig *boot.RuntimeConfig) *handlers.WSHandler {
	return handlers.NewWSHandler(log, state, service, runtimeConfig.HeartbeatInterval, runtimeConfig.HeartbeatGrace)
}

func provideServer(log *slog.Logger, runtimeConfig *boot.RuntimeConfig, serverHandlers []server.Handler) *server.Server {
	return server.NewServer(log, runtimeConfig.ServerAddr, runtimeConfig.WebDir, serverHandlers...)
}

func startDiscord(lc fx.Lifecycle, discord *source.Discord, service *presence.Service) {
	discord.Bind(service)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return discord.Open()
		},
		OnStop: func(ctx context.Context) error {
			return discord.Close()
		},
	})
}

func startServer(lc fx.Lifecycle, log *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	fmt.Printf("Starting PresenceExpose %s\n", version.GetInfo())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && err != http.ErrServerClosed {
					log.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Stop(ctx)
		},
	})
}

func main() {
	fx.New(
		fx.Provide(
			provideConfig,
			boot.ProvideRuntimeConfig,
			provideLogger,

			presence.NewState,
			provideBroadcaster,
			provideDiscord,
			provideService,

			provideServerHandler(handlers.NewPingHandler),
			provideServerHandler(handlers.NewPresenceHandler),
			provideServerHandler(provideWSHandler),

			fx.Annotate(provideServer, fx.ParamTags("", "", `group:"server_handlers"`)),
		),
		fx.Invoke(
			startDiscord,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}
