package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// MintGasEstimate is the typical gas used by mintCertificate.
const MintGasEstimate = 150000

var (
	defaultGasPrice = big.NewInt(30_000_000_000)
	weiPerGwei      = big.NewInt(1_000_000_000)
	weiPerEther     = new(big.Float).SetInt(big.NewInt(1_000_000_000_000_000_000))
)

// FeeEstimate is the expected cost of one mint at the current gas price.
type FeeEstimate struct {
	EstimatedGas  uint64 `json:"estimated_gas"`
	GasPriceGwei  string `json:"gas_price_gwei"`
	TotalCostWei  string `json:"total_cost_wei"`
	TotalCostCoin string `json:"total_cost"`
}

// EstimateMintFee prices a mint with eth_gasPrice, falling back to 30 gwei when the
// provider does not report one.
func EstimateMintFee(ctx context.Context, provider Provider) (*FeeEstimate, error) {
	if provider == nil {
		return nil, ErrProviderMissing
	}

	gasPrice := new(big.Int).Set(defaultGasPrice)
	raw, err := provider.Request(ctx, "eth_gasPrice")
	if err == nil {
		var price hexutil.Big
		if json.Unmarshal(raw, &price) == nil && price.ToInt().Sign() > 0 {
			gasPrice = price.ToInt()
		}
	} else if code, ok := ErrorCode(err); !ok || code != CodeMethodNotFound {
		return nil, fmt.Errorf("failed to read gas price: %w", err)
	}

	total := new(big.Int).Mul(gasPrice, big.NewInt(MintGasEstimate))
	coin := new(big.Float).Quo(new(big.Float).SetInt(total), weiPerEther)

	return &FeeEstimate{
		EstimatedGas:  MintGasEstimate,
		GasPriceGwei:  new(big.Int).Div(gasPrice, weiPerGwei).String(),
		TotalCostWei:  total.String(),
		TotalCostCoin: coin.Text('f', 6),
	}, nil
}

// Balance returns the wei balance of account at the latest block.
func Balance(ctx context.Context, provider Provider, account string) (*big.Int, error) {
	if provider == nil {
		return nil, ErrProviderMissing
	}
	raw, err := provider.Request(ctx, "eth_getBalance", account, "latest")
	if err != nil {
		return nil, fmt.Errorf("failed to read balance: %w", err)
	}
	var balance hexutil.Big
	if err := json.Unmarshal(raw, &balance); err != nil {
		return nil, fmt.Errorf("invalid balance response: %w", err)
	}
	return balance.ToInt(), nil
}

// FormatEther renders a wei amount in whole coins.
func FormatEther(wei *big.Int) string {
	return new(big.Float).Quo(new(big.Float).SetInt(wei), weiPerEther).Text('f', 6)
}
