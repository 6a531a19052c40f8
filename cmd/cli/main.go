package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "abtest",
		Short:         "Automated A/B hypothesis testing",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("log-level", "", "Log level (ERROR, WARN, INFO, DEBUG, TRACE); defaults to LOG_LEVEL")

	appConfig := loadConfig()
	rootCmd.AddCommand(
		newEvaluateCmd(appConfig),
		newDescribeCmd(appConfig),
		newBatchCmd(appConfig),
		newServeCmd(appConfig),
		newGenerateCmd(),
	)
	return rootCmd
}
