package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/parlay-edge/internal/database"
	"github.com/yourusername/parlay-edge/internal/logger"
	"github.com/yourusername/parlay-edge/internal/provider"
	"github.com/yourusername/parlay-edge/internal/publish"
	"github.com/yourusername/parlay-edge/internal/repository"
	"github.com/yourusername/parlay-edge/internal/scheduler"
	"github.com/yourusername/parlay-edge/internal/server"
	"github.com/yourusername/parlay-edge/internal/service"
)

var serveRefreshOnStart bool

func init() {
	serveCmd.Flags().BoolVar(&serveRefreshOnStart, "refresh-on-start", true, "Run one recommendation refresh at startup when the scheduler is enabled")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, websocket stream and scheduled refreshes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	if cfg.Provider.ProjectionsPath == "" {
		return fmt.Errorf("provider.projections_path is required to serve recommendations")
	}

	source := provider.NewClientFromConfig(cfg.Provider, log)
	svcCfg := service.RecommendationConfig{
		Source:       source,
		Projections:  provider.FileProjections{Path: cfg.Provider.ProjectionsPath},
		EngineConfig: cfg.Engine.ToEngineConfig(),
		Books:        cfg.Provider.Books,
		Logger:       log,
	}

	var pinger server.DatabasePinger
	if cfg.Database.Enabled {
		db, err := database.Initialize(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()

		repos, err := repository.NewRepositories(db)
		if err != nil {
			return fmt.Errorf("failed to initialize repositories: %w", err)
		}
		svcCfg.Repository = repos.Recommendation
		pinger = db
	}

	var sinks []publish.Publisher
	var hub *publish.Hub
	if cfg.Publish.Websocket {
		hub = publish.NewHub(log, cfg.Server.AllowedOrigins)
		go hub.Run(ctx)
		sinks = append(sinks, hub)
	}
	if cfg.Publish.RedisURL != "" {
		redisClient, err := publish.NewRedisClient(ctx, cfg.Publish.RedisURL)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		sinks = append(sinks, publish.NewStreamPublisher(redisClient, cfg.Publish.Stream, cfg.Publish.MaxLen))
	}
	if multi := publish.NewMulti(logger.NewAuditLogger(log), sinks...); multi.Len() > 0 {
		svcCfg.Publisher = multi
	}

	svc, err := service.NewRecommendationService(svcCfg)
	if err != nil {
		return err
	}

	if cfg.Schedule.Enabled {
		sched := scheduler.NewScheduler(svc, log)
		if err := sched.ScheduleRefresh(cfg.ScheduleInterval()); err != nil {
			return err
		}
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()

		if serveRefreshOnStart {
			go func() {
				refreshCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
				defer cancel()
				sched.RunNow(refreshCtx)
			}()
		}
	}

	srv, err := server.NewServer(server.Config{
		ServiceName:    cfg.App.Name,
		Version:        Version,
		Port:           cfg.Server.Port,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MetricsPath:    cfg.Metrics.Path,
		DisableMetrics: !cfg.Metrics.Enabled,
		Logger:         log,
		DB:             pinger,
		Source:         source,
		Service:        svc,
		Hub:            hub,
	})
	if err != nil {
		return err
	}
	srv.SetReady(true)

	return srv.Start(ctx)
}
