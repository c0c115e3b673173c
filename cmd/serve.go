package cmd

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-intake/internal/logger"
	"github.com/spigell/job-intake/internal/pipeline"
	"github.com/spigell/job-intake/internal/scheduler"
	"github.com/spigell/job-intake/internal/webhook"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat webhook and run scheduled batches",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen", "", "listen address (default from webhook.listen)")
	serveCmd.Flags().String("schedule", "", "cron schedule for unattended batches, e.g. \"@every 6h\"")

	viper.BindPFlag("webhook.listen", serveCmd.Flags().Lookup("listen"))
	viper.BindPFlag("batch.schedule", serveCmd.Flags().Lookup("schedule"))
}

func serve() {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the job-intake server", zap.String("version", version))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, err := buildComponents(ctx, config, buildOptions{}, logger)
	if err != nil {
		logger.Fatal("preparing the batch", zap.Error(err))
	}
	defer components.Close()

	if config.Batch.Schedule != "" {
		sched, err := scheduler.New(config.Batch.Schedule, func(ctx context.Context) {
			components.orchestrator.Run(ctx, pipeline.RunOptions{})
		}, logger)
		if err != nil {
			logger.Fatal("preparing the scheduler", zap.Error(err))
		}
		if err := sched.Start(ctx); err != nil {
			logger.Fatal("starting the scheduler", zap.Error(err))
		}
	}

	if config.Webhook.VerifyToken == "" {
		logger.Warn("webhook verification disabled", zap.String("hint", "set webhook.verify-token or WHATSAPP_VERIFY_TOKEN"))
	}

	server := webhook.New(config.Webhook, webhook.Deps{
		Runner:    components.orchestrator,
		Parser:    commandParser(config.Command),
		Replier:   components.sender,
		Recipient: config.Alert.Recipient,
		Logger:    logger,
	})

	if err := server.Listen(ctx); err != nil {
		logger.Error("webhook server stopped", zap.Error(err))
	}
}
