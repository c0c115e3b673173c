package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-intake/internal/logger"
	"github.com/spigell/job-intake/internal/pipeline"
	"github.com/spigell/job-intake/internal/posting"
)

const (
	PromptYes             = "Yes"
	PromptNo              = "No"
	PromptDescribeFilters = "Describe filters"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "Start the batch?",
	Items: []string{PromptYes, PromptNo, PromptDescribeFilters},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one batch: scrape, score and store postings until the target is met",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntP("target", "t", 0, "number of postings to store (default from batch.target)")
	runCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation before starting")
	runCmd.Flags().Bool("dry-run", false, "keep stored postings in memory instead of the configured store")
	runCmd.Flags().Bool("dump", false, "dump the stored postings to a temporary json file")
	runCmd.Flags().Bool("report", false, "print stored postings grouped by company")

	viper.BindPFlag("batch.target", runCmd.Flags().Lookup("target"))
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the job-intake", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	components, err := buildComponents(ctx, config, buildOptions{dryRun: dryRun}, logger)
	if err != nil {
		logger.Fatal("preparing the batch", zap.Error(err))
	}
	defer components.Close()

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		if err := confirm(components, logger); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}

	go handleSignals(ctx, cancel, components, logger)

	summary := components.orchestrator.Run(ctx, pipeline.RunOptions{Target: config.Batch.Target})

	stored := &posting.Postings{Items: summary.Postings}

	if dump, _ := cmd.Flags().GetBool("dump"); dump && stored.Len() > 0 {
		filename, err := stored.DumpToTmpFile()
		if err != nil {
			logger.Error("dumping postings to file", zap.Error(err))
		} else {
			logger.Info("dumping result to file", zap.String("filename", filename))
		}
	}

	if report, _ := cmd.Flags().GetBool("report"); report && stored.Len() > 0 {
		pretty, _ := json.MarshalIndent(stored.ReportByCompany(), "", "  ")
		logger.Info(string(pretty), zap.Int("postings count", stored.Len()))
	}
}

func confirm(components *components, logger *zap.Logger) error {
	for {
		_, action, err := prompt.Run()
		if err != nil {
			return err
		}

		switch action {
		case PromptYes:
			return nil
		case PromptNo:
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return errExit
		case PromptDescribeFilters:
			for _, status := range components.filters.Describe() {
				logger.Info("filter",
					zap.String("name", status.Name),
					zap.Bool("enabled", status.Enabled),
					zap.String("reason", status.Reason),
					zap.Any("details", status.Details),
				)
			}
		default:
			return fmt.Errorf("invalid action: %s", action)
		}
	}
}

// handleSignals stops the batch after the current cycle on the first signal
// and cancels it on the second.
func handleSignals(ctx context.Context, cancel context.CancelFunc, components *components, logger *zap.Logger) {
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	select {
	case <-ctx.Done():
		return
	case sig := <-signals:
		logger.Info("stop requested, finishing current cycle", zap.String("signal", sig.String()))
		components.stop.Request()
	}

	select {
	case <-ctx.Done():
	case <-signals:
		logger.Warn("second signal, cancelling batch")
		cancel()
	}
}
