package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/app"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/config"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/usecase"
	"github.com/nishant-k1/flushjohn-api-sub000/pkg/logger"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// buildFunc opens the application; tests replace it
type buildFunc func() (*app.App, error)

func defaultBuild() (*app.App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.NewZapLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return app.Build(cfg, log.With(zap.String("component", "paymentctl")))
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(defaultBuild)
}

func newRootCmdWith(build buildFunc) *cobra.Command {
	root := &cobra.Command{
		Use:           "paymentctl",
		Short:         "Operate the payment reconciliation engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newBalanceCmd(build),
		newLinkCmd(build),
		newReceiptCmd(build),
		newWebhooksCmd(build),
		newVersionCmd(),
	)
	return root
}

// withApp opens the application for one command and closes it afterwards
func withApp(build buildFunc, run func(a *app.App) (interface{}, error)) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := build()
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := run(a)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(kind, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q: %w", kind, raw, err)
	}
	return id, nil
}

func newBalanceCmd(build buildFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Order balance commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "recompute <orderId>",
		Short: "Recompute an order's paid amount, balance due and payment status from its ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, err := parseID("order", args[0])
			if err != nil {
				return err
			}
			return withApp(build, func(a *app.App) (interface{}, error) {
				return a.Payments.RecomputeOrderBalance(cmd.Context(), orderID)
			})(cmd, args)
		},
	})
	return cmd
}

func newLinkCmd(build buildFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Payment link commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "sync <paymentId>",
		Short: "Ask the gateway whether a payment link was paid and apply the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paymentID, err := parseID("payment", args[0])
			if err != nil {
				return err
			}
			return withApp(build, func(a *app.App) (interface{}, error) {
				return a.Payments.SyncPaymentLinkStatus(cmd.Context(), paymentID)
			})(cmd, args)
		},
	})
	return cmd
}

func newReceiptCmd(build buildFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receipt",
		Short: "Receipt commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "send <paymentId>",
		Short: "Send the receipt for a completed payment unless it was already sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paymentID, err := parseID("payment", args[0])
			if err != nil {
				return err
			}
			return withApp(build, func(a *app.App) (interface{}, error) {
				return a.Payments.SendReceipt(cmd.Context(), paymentID)
			})(cmd, args)
		},
	})
	return cmd
}

func newWebhooksCmd(build buildFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhooks",
		Short: "Gateway event log commands",
	}

	var limit int
	replay := &cobra.Command{
		Use:   "replay",
		Short: "Re-apply stored gateway events that are pending or due for retry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(build, func(a *app.App) (interface{}, error) {
				return a.Webhooks.ReplayPending(cmd.Context(), limit)
			})(cmd, args)
		},
	}
	replay.Flags().IntVar(&limit, "limit", usecase.DefaultReplayLimit, "maximum number of events to replay")
	cmd.AddCommand(replay)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the paymentctl version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "paymentctl "+version)
		},
	}
}
