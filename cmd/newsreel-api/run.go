package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	apiserver "github.com/newsreel/newsreel/internal/api_server"
	"github.com/newsreel/newsreel/internal/client"
	"github.com/newsreel/newsreel/internal/config"
	"github.com/newsreel/newsreel/internal/pipeline"
	"github.com/newsreel/newsreel/internal/scheduler"
	"github.com/newsreel/newsreel/internal/service"
	"github.com/newsreel/newsreel/internal/store"
	"github.com/newsreel/newsreel/pkg/log"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the newsreel api",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}

		logger := log.InitLog(log.Level(cfg.Service.LogLevel))
		defer func() { _ = logger.Sync() }()
		undo := zap.ReplaceGlobals(logger)
		defer undo()

		zap.S().Info("Starting API service")
		defer zap.S().Info("API service stopped")

		zap.S().Info("Initializing data store")
		db, err := store.InitDB(cfg)
		if err != nil {
			zap.S().Fatalf("initializing data store: %v", err)
		}

		s := store.NewStore(db)
		defer s.Close()

		if err := s.InitialMigration(); err != nil {
			zap.S().Fatalf("running initial migration: %v", err)
		}

		collab := pipeline.Collaborators{
			Articles:   client.NewNewsClient(cfg.Service.NewsURL, cfg.Service.NewsAPIKey, cfg.Service.ClientTimeout),
			Summarizer: client.NewSummarizerClient(cfg.Service.SummarizerURL, cfg.Service.ClientTimeout),
			Speech:     client.NewSpeechClient(cfg.Service.SpeechURL, cfg.Service.ClientTimeout),
			Renderer:   client.NewRendererClient(cfg.Service.RendererURL, cfg.Service.ClientTimeout),
			Publisher:  client.NewPublisherClient(cfg.Service.PublisherURL, "youtube", cfg.Service.ClientTimeout),
		}
		executor := pipeline.NewExecutor(s, collab, cfg.Automation.StageTimeout, cfg.Automation.MaxConcurrentJobs)

		reaper := scheduler.NewStuckJobReaper(s, cfg.Automation.StaleAfter)
		sweeper := scheduler.NewRetentionSweeper(s, cfg.Automation.RetentionWindow)
		sched := scheduler.New(s, collab.Articles, executor, reaper, sweeper, scheduler.Options{
			Topics:            cfg.Automation.Topics,
			Language:          cfg.Automation.Language,
			SyncInterval:      cfg.Automation.SyncInterval,
			LookbackWindow:    cfg.Automation.LookbackWindow,
			TopicQuota:        cfg.Automation.TopicQuota,
			CandidateLimit:    cfg.Automation.CandidateLimit,
			SyncCap:           cfg.Automation.SyncCap,
			CreationDelay:     cfg.Automation.CreationDelay,
			TargetLengths:     cfg.Automation.TargetLengths,
			AutoPublish:       cfg.Automation.AutoPublish,
			ReaperInterval:    cfg.Automation.ReaperInterval,
			RetentionInterval: cfg.Automation.RetentionInterval,
		})

		jobSrv := service.NewJobService(s, executor)
		automationSrv := service.NewAutomationService(sched)

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		sched.Start(ctx)
		defer sched.Stop()

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.Address)
			if err != nil {
				zap.S().Fatalf("creating listener: %s", err)
			}

			server := apiserver.New(cfg, jobSrv, automationSrv, listener)
			if err := server.Run(ctx); err != nil {
				zap.S().Fatalf("Error running server: %s", err)
			}
		}()

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.MetricsAddress)
			if err != nil {
				zap.S().Fatalf("creating metrics listener: %s", err)
			}

			metricsServer := apiserver.NewMetricServer(cfg.Service.MetricsAddress, listener)
			if err := metricsServer.Run(ctx); err != nil {
				zap.S().Fatalf("Error running metrics server: %s", err)
			}
		}()

		<-ctx.Done()
		return nil
	},
}

func newListener(address string) (net.Listener, error) {
	if address == "" {
		address = "localhost:0"
	}
	return net.Listen("tcp", address)
}
