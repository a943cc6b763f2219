package main

import (
	"fmt"
	"os"

	"github.com/SaiNageswarS/go-api-boot/dotenv"
	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "doqq",
		Short: "Doqq - chat with your code through a local Ollama model",
		Long: "Doqq primes a local Ollama model with the files of a directory and keeps " +
			"every conversation in a local sqlite database.",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "doqq.yaml", "path to Doqq config file")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newChatCmd(&configPath))
	cmd.AddCommand(newPrimeCmd(&configPath))
	cmd.AddCommand(newSessionsCmd(&configPath))
	cmd.AddCommand(newShowCmd(&configPath))
	cmd.AddCommand(newModelsCmd(&configPath))
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "doqq %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		logger.Error("Command failed", zap.Error(err))
		return 1
	}
	return 0
}

func main() {
	dotenv.LoadEnv()
	os.Exit(execute(newRootCmd()))
}
