package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gyaneshwarpardhi/hookscope/internal/sender"
)

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "webhook-sender",
		Short: "Send generated webhooks to a hookscope server",
		Long: `webhook-sender posts realistic test webhooks to a running server.

Every flag can also be set through the environment, e.g. HOOKSCOPE_SENDER_HOST
or HOOKSCOPE_SENDER_SECRET. Flags win over the environment.

Examples:
  webhook-sender
  webhook-sender --event github.push --count 5
  webhook-sender --event github.push --github --secret "$GITHUB_WEBHOOK_SECRET"
  webhook-sender --host webhook.example.com --port 443 --event user.created`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf := sender.Config{
				Host:    v.GetString("host"),
				Port:    v.GetInt("port"),
				Event:   v.GetString("event"),
				Count:   v.GetInt("count"),
				Delay:   v.GetDuration("delay"),
				Secret:  v.GetString("secret"),
				GitHub:  v.GetBool("github"),
				Timeout: v.GetDuration("timeout"),
			}
			if conf.GitHub && conf.Secret == "" {
				return fmt.Errorf("--github requires --secret")
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sum, err := sender.New(conf, cmd.OutOrStdout()).Run(ctx)
			if err != nil {
				return err
			}
			if sum.Failed > 0 {
				return fmt.Errorf("%d of %d webhooks failed", sum.Failed, conf.Count)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("host", "localhost", "server host")
	flags.Int("port", 3000, "server port")
	flags.String("event", "test", "event type ("+strings.Join(sender.EventTypes, ", ")+")")
	flags.IntP("count", "c", 1, "number of webhooks to send")
	flags.Duration("delay", defaultDelay, "pause between webhooks")
	flags.String("secret", "", "HMAC secret used to sign bodies")
	flags.Bool("github", false, "send to the signed GitHub endpoint")
	flags.Duration("timeout", defaultTimeout, "per-request timeout")

	v.SetEnvPrefix("HOOKSCOPE_SENDER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlags(flags)

	return cmd
}
