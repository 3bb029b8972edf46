package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"onion-watch/src/channel"
	"onion-watch/src/config"
	"onion-watch/src/logger"
	"onion-watch/src/models"

	"github.com/spf13/cobra"
)

type watchOptions struct {
	url         string
	channels    []string
	token       string
	tokenFile   string
	maxAttempts int
	logLevel    string
}

// -----------------------------------------------------------------------------

func newWatchCmd() *cobra.Command {
	opts := watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Connect to a running server and print live updates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), opts)
		},
	}

	def := config.Default()
	cmd.Flags().StringVar(&opts.url, "url", envOrDefault("ONION_WATCH_WS_URL", def.Client.URL), "websocket endpoint")
	cmd.Flags().StringSliceVar(&opts.channels, "channel", nil, "channel to subscribe to (repeatable)")
	cmd.Flags().StringVar(&opts.token, "token", os.Getenv("ONION_WATCH_TOKEN"), "bearer token sent on every connect")
	cmd.Flags().StringVar(&opts.tokenFile, "token-file", "", "file holding the token, re-read on every connect")
	cmd.Flags().IntVar(&opts.maxAttempts, "max-attempts", def.Client.MaxReconnectAttempts, "reconnect attempts before giving up")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "WARNING", "log level")
	return cmd
}

// -----------------------------------------------------------------------------

func runWatch(ctx context.Context, opts watchOptions) error {
	appLogger := logger.NewLogger(opts.logLevel, "watch")
	defer appLogger.Sync()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	token := channel.StaticToken(opts.token)
	if opts.tokenFile != "" {
		token = channel.FileToken(opts.tokenFile)
	}

	gaveUp := make(chan error, 1)
	mgr := channel.NewManager(channel.Options{
		URL:         opts.url,
		Token:       token,
		MaxAttempts: opts.maxAttempts,
		Logger:      appLogger.Named("channel"),
		OnGiveUp: func(err error) {
			select {
			case gaveUp <- err:
			default:
			}
		},
	})

	out := newPrinter(os.Stdout)
	registerPrinters(mgr, out, opts.channels)

	for _, ch := range opts.channels {
		// recorded now, sent once the connection opens
		_ = mgr.Subscribe(ch)
	}

	if err := mgr.Connect(ctx); err != nil {
		appLogger.Warning("Initial connect failed, retrying in background: %v", err)
	}

	select {
	case <-ctx.Done():
		mgr.Disconnect()
		return nil
	case err := <-gaveUp:
		mgr.Disconnect()
		return err
	}
}

// -----------------------------------------------------------------------------

func registerPrinters(mgr *channel.Manager, out *printer, channels []string) {
	mgr.OnMessage(channel.ByType(models.MsgInitialData), func(msg channel.Message) {
		var m models.MInitialData
		if err := msg.Decode(&m); err == nil {
			out.initial(m)
		}
	})
	mgr.OnMessage(channel.ByType(models.MsgLiveUpdate), func(msg channel.Message) {
		var m models.MLiveUpdate
		if err := msg.Decode(&m); err == nil {
			out.live(m)
		}
	})
	mgr.OnMessage(channel.ByType(models.MsgTrafficControl), func(msg channel.Message) {
		var m models.MTrafficControl
		if err := msg.Decode(&m); err == nil {
			out.control(m)
		}
	})
	mgr.OnMessage(channel.ByType(models.MsgAuthResult), func(msg channel.Message) {
		var m models.MAuthResult
		if err := msg.Decode(&m); err == nil {
			out.auth(m)
		}
	})
	mgr.OnMessage(channel.ByType(models.MsgSubscriptionAck), func(msg channel.Message) {
		var m models.MSubscriptionAck
		if err := msg.Decode(&m); err == nil {
			out.line("ack", fmt.Sprintf("%s subscribed=%t", m.Channel, m.Subscribed))
		}
	})
	for _, ch := range channels {
		name := ch
		mgr.OnMessage(channel.ByChannel(name), func(msg channel.Message) {
			out.line(name, msg.Type())
		})
	}
}
