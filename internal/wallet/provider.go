// Package wallet manages the connection to a user-controlled blockchain account.
package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/apexchain/apex-backend/internal/config"
)

// Provider error codes defined by EIP-1193 and wallet implementations.
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnrecognizedChain = 4902
	CodeMethodNotFound    = -32601
)

var (
	ErrProviderMissing = errors.New("no wallet provider available")
	ErrNotConnected    = errors.New("wallet is not connected")
	ErrNoAccounts      = errors.New("wallet returned no accounts")
	ErrNoContract      = errors.New("no contract bound to the wallet session")
)

// Provider is an EIP-1193 style wallet capability.
type Provider interface {
	Request(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error)
	Subscribe(handler func(Event)) (unsubscribe func())
}

type EventKind string

const (
	EventAccountsChanged EventKind = "accountsChanged"
	EventChainChanged    EventKind = "chainChanged"
)

// Event is a provider notification. Accounts is set for accountsChanged, ChainID for chainChanged.
type Event struct {
	Kind     EventKind
	Accounts []string
	ChainID  string
}

// ProviderError is a coded error returned by a provider request.
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// ErrorCode returns the provider error code carried by err, if any.
func ErrorCode(err error) (int, bool) {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Code, true
	}
	return 0, false
}

// IsUserRejected reports whether the user declined the request in the wallet.
func IsUserRejected(err error) bool {
	code, ok := ErrorCode(err)
	return ok && code == CodeUserRejected
}

// Currency is the native currency of a chain definition.
type Currency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// Chain is the wallet_addEthereumChain chain definition.
type Chain struct {
	ChainID           string   `json:"chainId"`
	ChainName         string   `json:"chainName"`
	NativeCurrency    Currency `json:"nativeCurrency"`
	RPCURLs           []string `json:"rpcUrls"`
	BlockExplorerURLs []string `json:"blockExplorerUrls"`
}

// ChainFromConfig builds the definition of the configured target chain.
func ChainFromConfig(cfg config.BlockchainConfig) Chain {
	chain := Chain{
		ChainID:   cfg.ChainIDHex(),
		ChainName: cfg.ChainName,
		NativeCurrency: Currency{
			Name:     cfg.CurrencyName,
			Symbol:   cfg.CurrencySymbol,
			Decimals: 18,
		},
	}
	if cfg.RPCURL != "" {
		chain.RPCURLs = []string{cfg.RPCURL}
	}
	if cfg.ExplorerURL != "" {
		chain.BlockExplorerURLs = []string{cfg.ExplorerURL}
	}
	return chain
}

// ParseChainID converts a 0x-prefixed or decimal chain id.
func ParseChainID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseInt(s[2:], 16, 64)
	}
	return strconv.ParseInt(s, 10, 64)
}

// NormalizeChainID returns the lower-case hex form of a chain id.
func NormalizeChainID(s string) string {
	id, err := ParseChainID(s)
	if err != nil {
		return strings.ToLower(s)
	}
	return "0x" + strconv.FormatInt(id, 16)
}
