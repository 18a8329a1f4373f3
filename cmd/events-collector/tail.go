package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	commonkafka "github.com/YaganovValera/finam-trade-client/common/kafka"
	"github.com/YaganovValera/finam-trade-client/common/kafka/consumer"
	"github.com/YaganovValera/finam-trade-client/common/logger"
	"github.com/YaganovValera/finam-trade-client/internal/config"
	"github.com/YaganovValera/finam-trade-client/internal/sink"
)

func newTailCmd(cfgFile *string) *cobra.Command {
	var (
		topics     []string
		group      string
		fromOldest bool
	)
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print events published by the collector",
		RunE: func(cmd *cobra.Command, _ []string) error {
			kcfg, err := config.LoadKafka(*cfgFile)
			if err != nil {
				return err
			}
			if len(topics) == 0 {
				topics = kcfg.Topics.All()
			}
			log, err := logger.New(logger.Config{Level: "warn"})
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, err := consumer.New(ctx, consumer.Config{
				Brokers:    kcfg.Brokers,
				GroupID:    group,
				FromOldest: fromOldest,
				Backoff:    kcfg.Backoff,
			}, log)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			out := cmd.OutOrStdout()
			err = c.Consume(ctx, topics, func(_ context.Context, m *commonkafka.Message) error {
				return printMessage(out, m)
			})
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringSliceVar(&topics, "topic", nil, "topics to read (default: all collector topics)")
	cmd.Flags().StringVar(&group, "group", "events-collector-tail", "consumer group id")
	cmd.Flags().BoolVar(&fromOldest, "from-oldest", false, "start a new group from the oldest offset")
	return cmd
}

// printMessage печатает одну строку: топик, ключ, вид события, время и payload.
func printMessage(w io.Writer, m *commonkafka.Message) error {
	var msg sink.Message
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		return fmt.Errorf("decode %s@%d: %w", m.Topic, m.Offset, err)
	}
	_, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
		m.Topic, m.Key, msg.Kind, msg.ReceivedAt.Format("2006-01-02T15:04:05.000Z07:00"), msg.Payload)
	return err
}
