package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/benvon/agenda-scheduler/internal/queue"
)

// NewDLQCmd creates the dlq command
func NewDLQCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "Manage dead-lettered jobs",
	}

	var olderThan time.Duration
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Drop dead-lettered jobs older than a retention",
		Long:  "Drop dead-lettered jobs older than --older-than; defaults to DLQ_RETENTION",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(envOptions{})
			if err != nil {
				return err
			}
			defer e.Close()

			q, err := e.openQueue()
			if err != nil {
				return err
			}
			retention := olderThan
			if retention <= 0 {
				retention = e.cfg.DLQRetention
			}

			n, err := queue.NewGarbageCollector(q, e.cfg.DLQGCInterval, retention, e.log).Collect(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d dead-lettered job(s) older than %s\n", n, retention)
			return nil
		},
	}
	purge.Flags().DurationVar(&olderThan, "older-than", 0, "Retention; jobs dead-lettered before now minus this are dropped")

	cmd.AddCommand(purge)
	return cmd
}
