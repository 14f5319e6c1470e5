package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cassiomorais/cardgateway/internal/bootstrap"
	"github.com/cassiomorais/cardgateway/internal/domain/payment"
	"github.com/cassiomorais/cardgateway/pkg/redact"
	"github.com/spf13/cobra"
)

// withApp bootstraps the gateway with logs on stderr so stdout stays clean.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *bootstrap.App) error) error {
	ctx := cmd.Context()
	app, err := bootstrap.New(ctx, "gatewayctl", "gatewayctl", os.Stderr)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(ctx, app)
}

func printResult(cmd *cobra.Command, v any, text string) error {
	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := io.WriteString(out, text)
	return err
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Obtain a frontend token for the card widget",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reveal, _ := cmd.Flags().GetBool("reveal")
			return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				tok, err := app.Tokens.FrontendToken(ctx)
				if err != nil {
					return err
				}
				value := redact.Last4(tok.Value)
				if reveal {
					value = tok.Value
				}
				return printResult(cmd, map[string]any{
					"access_token": value,
					"scope":        tok.Scope,
					"expires_at":   tok.ExpiresAt,
				}, fmt.Sprintf("Token:    %s\nExpires:  %s\n", value, tok.ExpiresAt.Format("2006-01-02 15:04:05 MST")))
			})
		},
	}

	cmd.Flags().Bool("reveal", false, "Print the full token instead of its last four characters")

	return cmd
}

func tokenDetailsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token-details [payment-token-id]",
		Short: "Show the card behind a payment token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				d, err := app.Gateway.GetPaymentTokenDetails(ctx, args[0])
				if err != nil {
					return err
				}
				var b strings.Builder
				fmt.Fprintf(&b, "Token:    %s\n", d.ID)
				fmt.Fprintf(&b, "3DS:      %t\n", d.Is3DS)
				fmt.Fprintf(&b, "Card:     %s ending %s\n", valueOrDefault(d.CardType, "unknown"), valueOrDefault(d.Last4, "????"))
				if d.ExpMonth > 0 {
					fmt.Fprintf(&b, "Expires:  %02d/%d\n", d.ExpMonth, d.ExpYear)
				}
				return printResult(cmd, d, b.String())
			})
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [transaction-id]",
		Short: "Look up a transaction's status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				res, err := app.Gateway.CapturePayment(ctx, args[0])
				if err != nil {
					return err
				}
				return printResult(cmd, res, formatPayment(res))
			})
		},
	}
}

func refundCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refund [transaction-id]",
		Short: "Refund all or part of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			minor, _ := cmd.Flags().GetInt64("amount")
			currency, _ := cmd.Flags().GetString("currency")
			reason, _ := cmd.Flags().GetString("reason")
			if minor <= 0 {
				return fmt.Errorf("--amount must be a positive number of minor units")
			}

			return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				res, err := app.Gateway.RefundPayment(ctx, payment.RefundRequest{
					TransactionID: args[0],
					Amount:        payment.Amount{Minor: minor, Currency: strings.ToUpper(currency)},
					Reason:        reason,
				})
				if err != nil {
					return err
				}
				return printResult(cmd, res, fmt.Sprintf("Refund:   %s\nStatus:   %s\nAmount:   %s\n", res.ProviderID, res.Status, res.Amount))
			})
		},
	}

	cmd.Flags().Int64P("amount", "a", 0, "Amount in minor units (cents)")
	cmd.Flags().StringP("currency", "c", "USD", "ISO 4217 currency code")
	cmd.Flags().StringP("reason", "r", "", "Reason recorded with the refund")

	return cmd
}

func formatPayment(res *payment.PaymentResult) string {
	return fmt.Sprintf("Transaction: %s\nStatus:      %s\nAmount:      %s\n", res.ProviderID, res.Status, res.Amount)
}

func valueOrDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
