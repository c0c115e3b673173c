package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-intake/internal/logger"
	"github.com/spigell/job-intake/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve batch runs and stored postings as MCP tools over stdio",
	Run: func(_ *cobra.Command, _ []string) {
		serveMCP()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func serveMCP() {
	// stdout carries the protocol.
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"), "stderr")
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	ctx := context.Background()

	components, err := buildComponents(ctx, config, buildOptions{}, logger)
	if err != nil {
		logger.Fatal("preparing the batch", zap.Error(err))
	}
	defer components.Close()

	server := mcpserver.New(app, version, mcpserver.Deps{
		Runner: components.orchestrator,
		Store:  components.store,
		Stop:   components.requestStop,
		Logger: logger,
	})

	logger.Info("serving mcp over stdio", zap.String("version", version))
	if err := server.ServeStdio(); err != nil {
		logger.Error("mcp server stopped", zap.Error(err))
	}
}
