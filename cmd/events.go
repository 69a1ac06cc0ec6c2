/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/karkinos-edge/authserver/config"
	"github.com/karkinos-edge/authserver/internal/events"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// eventsCmd represents the events command.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect account events",
}

var eventsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Log every account event published to the topic",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Events.Backend == config.EventsNone {
			return errors.New("EVENTS_BACKEND is none, nothing to watch")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		backend, err := events.NewBackend(ctx, cfg.Events)
		if err != nil {
			return err
		}
		publisher, err := events.NewPublisher(backend, cfg.Events.Topic)
		if err != nil {
			_ = backend.Close()
			return err
		}
		defer publisher.Close()

		logger.WithField("topic", publisher.Topic()).Info("watching account events")
		err = publisher.Watch(ctx, func(_ context.Context, event events.Event) error {
			logger.WithFields(logrus.Fields{
				"event_id":    event.ID,
				"type":        event.Type,
				"account_id":  event.AccountID,
				"username":    event.Username,
				"occurred_at": event.OccurredAt,
			}).Info("account event")
			return nil
		}, func(msg events.Message, err error) {
			logger.WithError(err).WithField("message_id", msg.ID).Warn("dropping undecodable event")
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsWatchCmd)
}
