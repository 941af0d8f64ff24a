package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/saas-billing/internal/lib/rabbitmq"
)

func newEventsCmd(env *Env) *cobra.Command {
	var queue string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print domain events from a billing queue until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := env.Config.RabbitMQ
			if cfg.URL == "" {
				return errors.New("rabbitmq url is not configured")
			}

			conn, err := rabbitmq.Connect(cmd.Context(), cfg.URL, cfg.Retries, cfg.RetryDelay)
			if err != nil {
				return err
			}
			defer conn.Close()

			ch, err := rabbitmq.SetupChannel(conn, cfg.Exchange, rabbitmq.BillingQueues())
			if err != nil {
				return err
			}
			defer ch.Close()

			out := cmd.OutOrStdout()
			return rabbitmq.ConsumeMessages(cmd.Context(), ch, queue, func(msg rabbitmq.Message) error {
				_, err := fmt.Fprintf(out, "%s %s\n", msg.RoutingKey, msg.Body)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&queue, "queue", "billing.payments", "queue to consume")
	return cmd
}
