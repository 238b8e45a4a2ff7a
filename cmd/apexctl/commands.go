// cmd/apexctl/commands.go
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/apexchain/apex-backend/internal/database"
	"github.com/apexchain/apex-backend/internal/models"
	"github.com/apexchain/apex-backend/internal/qrpayload"
	"github.com/apexchain/apex-backend/internal/services"
	"github.com/apexchain/apex-backend/internal/wallet"
)

func balanceCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "balance [account]",
		Short: "Print the native coin balance of an account",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, release, err := e.session(ctx)
			if err != nil {
				return err
			}
			defer release()

			account := s.Account()
			if len(args) == 1 {
				account = args[0]
			}
			balance, err := wallet.Balance(ctx, s.Provider(), account)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{
				"account":     account,
				"balance":     wallet.FormatEther(balance),
				"balance_wei": balance.String(),
				"currency":    e.cfg.Blockchain.CurrencySymbol,
			})
		},
	}
}

func feeCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "fee",
		Short: "Estimate the cost of minting one certificate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, release, err := e.session(ctx)
			if err != nil {
				return err
			}
			defer release()

			fee, err := wallet.EstimateMintFee(ctx, s.Provider())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), fee)
		},
	}
}

func supplyCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "supply",
		Short: "Print the number of certificates minted by the registry contract",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, release, err := e.session(ctx)
			if err != nil {
				return err
			}
			defer release()

			supply, err := e.minting(s).TotalSupply(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), supply.String())
			return nil
		},
	}
}

func verifyCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <product-id|#token-id|qr-text>",
		Short: "Look up a product certificate in the registry database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.Initialize(e.cfg.Database)
			if err != nil {
				return err
			}
			defer database.Close(db)

			s := wallet.NewSession(nil, e.cfg.Blockchain.ContractAddress)
			minting := e.minting(s)
			products := services.NewProductService(db, minting)
			verification := services.NewVerificationService(db, products, minting, nil)

			report, err := verification.Lookup(cmd.Context(), services.LookupRequest{
				Input:  args[0],
				Method: models.VerificationMethodAPI,
				RequestMeta: services.RequestMeta{
					UserAgent: "apexctl",
				},
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}

func qrCommand() *cobra.Command {
	qrCmd := &cobra.Command{
		Use:   "qr",
		Short: "Encode and decode certificate QR codes",
	}
	qrCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error { return nil }

	qrCmd.AddCommand(qrEncodeCommand(), qrDecodeCommand())
	return qrCmd
}

func qrEncodeCommand() *cobra.Command {
	var (
		payload qrpayload.Payload
		text    string
		out     string
	)

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Render a certificate payload or plain text as a PNG QR code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				png []byte
				err error
			)
			switch {
			case payload.ProductID != "":
				if payload.Timestamp == "" {
					payload.Timestamp = time.Now().UTC().Format(time.RFC3339)
				}
				png, err = qrpayload.Encode(payload)
			case strings.TrimSpace(text) != "":
				png, err = qrpayload.EncodeText(strings.TrimSpace(text))
			default:
				return fmt.Errorf("either --product-id or --text is required")
			}
			if err != nil {
				return err
			}

			if out == "" {
				fmt.Fprintln(cmd.OutOrStdout(), qrpayload.DataURI(png))
				return nil
			}
			return os.WriteFile(out, png, 0o644)
		},
	}

	cmd.Flags().StringVar(&payload.ProductID, "product-id", "", "Product id")
	cmd.Flags().IntVar(&payload.Score, "score", 0, "Authenticity score")
	cmd.Flags().StringVar(&payload.Timestamp, "timestamp", "", "Registration time (RFC 3339, defaults to now)")
	cmd.Flags().BoolVar(&payload.Verified, "verified", true, "Verified flag")
	cmd.Flags().StringVar(&payload.TokenID, "token-id", "", "Token id")
	cmd.Flags().StringVar(&payload.ContractAddress, "contract", "", "Registry contract address")
	cmd.Flags().StringVar(&text, "text", "", "Encode arbitrary text instead of a payload")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the PNG to this file instead of printing a data URI")

	return cmd
}

func qrDecodeCommand() *cobra.Command {
	var text string

	cmd := &cobra.Command{
		Use:   "decode [image]",
		Short: "Decode a QR code image or scanned text",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result qrpayload.Result
			switch {
			case len(args) == 1:
				data, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				if result, err = qrpayload.DecodeImage(data); err != nil {
					return err
				}
			case text != "":
				result = qrpayload.Decode(text)
			default:
				return fmt.Errorf("an image path or --text is required")
			}

			return printJSON(cmd.OutOrStdout(), map[string]interface{}{
				"result":     result,
				"product_id": result.ProductID(),
			})
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Scanned text to classify")
	return cmd
}
