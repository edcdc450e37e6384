package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/benvon/agenda-scheduler/cmd/schedulerctl/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:          "schedulerctl",
		Short:        "Operator tool for the agenda scheduler",
		Long:         "CLI tool for migrations, week locks and schedule generation",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVar(&commands.Debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(commands.NewMigrateCmd())
	rootCmd.AddCommand(commands.NewStateCmd())
	rootCmd.AddCommand(commands.NewCadenceCmd())
	rootCmd.AddCommand(commands.NewGenerateCmd())
	rootCmd.AddCommand(commands.NewLockCmd())
	rootCmd.AddCommand(commands.NewTickCmd())
	rootCmd.AddCommand(commands.NewDLQCmd())
	rootCmd.AddCommand(commands.NewAuthCheckCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
