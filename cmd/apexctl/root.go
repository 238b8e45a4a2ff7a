// cmd/apexctl/root.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/apexchain/apex-backend/internal/config"
	"github.com/apexchain/apex-backend/internal/metadata"
	"github.com/apexchain/apex-backend/internal/metrics"
	"github.com/apexchain/apex-backend/internal/services"
	"github.com/apexchain/apex-backend/internal/wallet"
)

// env is the state shared by subcommands. It is populated lazily so that offline
// commands such as qr never touch the network.
type env struct {
	cfg     *config.Config
	verbose bool
}

func rootCommand() *cobra.Command {
	e := &env{}

	rootCmd := &cobra.Command{
		Use:           "apexctl",
		Short:         "Apex Chain merchandise registry CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if e.verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		e.cfg = cfg
		return nil
	}

	rootCmd.AddCommand(
		balanceCommand(e),
		feeCommand(e),
		supplyCommand(e),
		verifyCommand(e),
		qrCommand(),
	)

	return rootCmd
}

// session connects a wallet session using the configured provider. The returned
// function releases it.
func (e *env) session(ctx context.Context) (*wallet.Session, func(), error) {
	provider, closeProvider, err := wallet.ProviderFromConfig(ctx, e.cfg.Blockchain)
	if err != nil {
		return nil, nil, err
	}
	if provider == nil {
		closeProvider()
		return nil, nil, wallet.ErrProviderMissing
	}

	s := wallet.NewSession(provider, e.cfg.Blockchain.ContractAddress,
		wallet.WithReceiptPoll(e.cfg.Blockchain.ReceiptPoll))
	if _, _, err := s.Connect(ctx); err != nil {
		closeProvider()
		return nil, nil, err
	}
	return s, func() {
		s.Disconnect()
		closeProvider()
	}, nil
}

func (e *env) minting(s *wallet.Session) *services.MintingService {
	return services.NewMintingService(e.cfg, s, metadata.New(e.cfg.IPFS), metrics.NewNoop())
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
