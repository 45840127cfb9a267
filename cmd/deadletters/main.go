package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"basegraph.app/reminder/common/logger"
	"basegraph.app/reminder/core/config"
	"basegraph.app/reminder/internal/model"
	"basegraph.app/reminder/internal/queue"
)

func main() {
	cfg, err := config.Load(config.ServiceTypeDeadLetters)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}
	logger.Setup(cfg)

	open := func(ctx context.Context) (*queue.DeadLetterReader, func() error, error) {
		redisOpts, err := redis.ParseURL(cfg.DeadLetter.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing redis url: %w", err)
		}
		client := redis.NewClient(redisOpts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return queue.NewDeadLetterReader(client, cfg.DeadLetter.Stream), client.Close, nil
	}

	if err := newRootCmd(open).Execute(); err != nil {
		slog.Error("deadletters failed", "error", err)
		os.Exit(1)
	}
}

type openReaderFunc func(ctx context.Context) (*queue.DeadLetterReader, func() error, error)

func newRootCmd(open openReaderFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "deadletters",
		Short:         "Inspect reminders that could not be delivered",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newListCmd(open))
	cmd.AddCommand(newCountCmd(open))
	cmd.AddCommand(newPurgeCmd(open))
	return cmd
}

func withReader(cmd *cobra.Command, open openReaderFunc, fn func(ctx context.Context, r *queue.DeadLetterReader) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	reader, closeFn, err := open(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	return fn(ctx, reader)
}

func newListCmd(open openReaderFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List dead letters, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt64("limit")
			return withReader(cmd, open, func(ctx context.Context, r *queue.DeadLetterReader) error {
				letters, err := r.List(ctx, limit)
				if err != nil {
					return err
				}
				return printLetters(cmd.OutOrStdout(), letters)
			})
		},
	}

	cmd.Flags().Int64("limit", 20, "Maximum number of entries to show")
	return cmd
}

func newCountCmd(open openReaderFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of dead letters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withReader(cmd, open, func(ctx context.Context, r *queue.DeadLetterReader) error {
				n, err := r.Len(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			})
		},
	}
}

func newPurgeCmd(open openReaderFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "purge <entry-id>...",
		Short: "Delete dead letters by stream entry id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withReader(cmd, open, func(ctx context.Context, r *queue.DeadLetterReader) error {
				n, err := r.Delete(ctx, args...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d of %d\n", n, len(args))
				return nil
			})
		},
	}
}

func printLetters(w io.Writer, letters []model.DeadLetter) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTRY\tREMINDER\tCONVERSATION\tMENTION\tATTEMPTS\tFAILED AT\tERROR")
	for _, dl := range letters {
		failedAt := "-"
		if !dl.FailedAt.IsZero() {
			failedAt = dl.FailedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			dl.ID,
			strconv.FormatInt(dl.ReminderID, 10),
			dl.ConversationID,
			dl.Mention.Name,
			dl.Attempts,
			failedAt,
			logger.Truncate(dl.Error, 80),
		)
	}
	return tw.Flush()
}
