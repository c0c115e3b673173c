package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-intake/internal/logger"
	"github.com/spigell/job-intake/internal/store"
)

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Print the most recently stored postings",
	Run: func(cmd *cobra.Command, _ []string) {
		recent(cmd)
	},
}

func init() {
	rootCmd.AddCommand(recentCmd)

	recentCmd.Flags().IntP("limit", "n", 20, "number of postings to print, 0 prints all")
}

func recent(cmd *cobra.Command) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	ctx := context.Background()

	s, err := store.Open(ctx, config.Store, logger)
	if err != nil {
		logger.Fatal("opening store", zap.Error(err))
	}
	defer s.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	items, err := s.ListRecent(ctx, limit)
	if err != nil {
		logger.Fatal("reading postings", zap.Error(err))
	}

	for _, p := range items {
		fmt.Printf("%s  %3.0f  %-6s  %s  %s\n", p.ID, p.Score, p.Priority, p, p.URL)
	}

	logger.Debug("printed postings", zap.Int("count", len(items)))
}
