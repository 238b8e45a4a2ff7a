package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// ContractBinder creates a contract handle signed by from.
type ContractBinder func(address, from common.Address, provider Provider) Contract

// State is a snapshot of the session.
type State struct {
	Connected       bool   `json:"connected"`
	Account         string `json:"account,omitempty"`
	ChainID         string `json:"chain_id,omitempty"`
	ContractAddress string `json:"contract_address,omitempty"`
	ContractBound   bool   `json:"contract_bound"`
}

// Session holds one wallet connection and the contract handle bound to its signer.
// It is shared by everything that needs the wallet and is safe for concurrent use.
type Session struct {
	provider        Provider
	contractAddress string
	bind            ContractBinder
	receiptPoll     time.Duration
	log             *logrus.Entry

	mu          sync.RWMutex
	account     string
	chainID     string
	contract    Contract
	unsubscribe func()
}

type SessionOption func(*Session)

// WithContractBinder replaces the default RegistryContract binder.
func WithContractBinder(b ContractBinder) SessionOption {
	return func(s *Session) { s.bind = b }
}

// WithReceiptPoll sets the receipt polling interval of the default contract binder.
func WithReceiptPoll(d time.Duration) SessionOption {
	return func(s *Session) { s.receiptPoll = d }
}

// WithLogger sets the session logger.
func WithLogger(log *logrus.Entry) SessionOption {
	return func(s *Session) { s.log = log }
}

// NewSession creates a disconnected session. provider may be nil, in which case Connect
// fails with ErrProviderMissing. An empty or zero contractAddress leaves the session
// without a contract handle.
func NewSession(provider Provider, contractAddress string, opts ...SessionOption) *Session {
	s := &Session{
		provider:        provider,
		contractAddress: contractAddress,
		log:             logrus.WithField("component", "wallet"),
	}
	s.bind = func(address, from common.Address, p Provider) Contract {
		return NewRegistryContract(address, from, p).WithReceiptPoll(s.receiptPoll)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HasProvider reports whether a wallet provider is available at all.
func (s *Session) HasProvider() bool {
	return s.provider != nil
}

func (s *Session) Provider() Provider {
	return s.provider
}

// Connect requests account access and binds the contract handle. It returns the first
// account and the active chain id.
func (s *Session) Connect(ctx context.Context) (string, string, error) {
	if s.provider == nil {
		return "", "", ErrProviderMissing
	}

	raw, err := s.provider.Request(ctx, "eth_requestAccounts")
	if err != nil {
		return "", "", fmt.Errorf("failed to request accounts: %w", err)
	}
	var accounts []string
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return "", "", fmt.Errorf("invalid accounts response: %w", err)
	}
	if len(accounts) == 0 {
		return "", "", ErrNoAccounts
	}

	raw, err = s.provider.Request(ctx, "eth_chainId")
	if err != nil {
		return "", "", fmt.Errorf("failed to read chain id: %w", err)
	}
	var chainID string
	if err := json.Unmarshal(raw, &chainID); err != nil {
		return "", "", fmt.Errorf("invalid chain id response: %w", err)
	}
	chainID = NormalizeChainID(chainID)

	s.mu.Lock()
	s.account = accounts[0]
	s.chainID = chainID
	s.rebindLocked()
	subscribed := s.unsubscribe != nil
	s.mu.Unlock()

	if !subscribed {
		unsubscribe := s.provider.Subscribe(s.handleEvent)
		s.mu.Lock()
		if s.unsubscribe == nil {
			s.unsubscribe = unsubscribe
			unsubscribe = nil
		}
		s.mu.Unlock()
		if unsubscribe != nil {
			unsubscribe()
		}
	}

	s.log.WithFields(logrus.Fields{
		"account":  accounts[0],
		"chain_id": chainID,
	}).Info("Wallet connected")

	return accounts[0], chainID, nil
}

// EnsureConnected connects when the session is not already connected.
func (s *Session) EnsureConnected(ctx context.Context) (string, error) {
	if account := s.Account(); account != "" {
		return account, nil
	}
	account, _, err := s.Connect(ctx)
	return account, err
}

// SwitchNetwork asks the wallet to switch to chain, adding the chain definition first
// when the wallet does not know it.
func (s *Session) SwitchNetwork(ctx context.Context, chain Chain) error {
	if s.provider == nil {
		return ErrProviderMissing
	}

	switchParams := map[string]string{"chainId": chain.ChainID}
	_, err := s.provider.Request(ctx, "wallet_switchEthereumChain", switchParams)
	if err != nil {
		code, ok := ErrorCode(err)
		if !ok || code != CodeUnrecognizedChain {
			return fmt.Errorf("failed to switch network: %w", err)
		}

		if _, err := s.provider.Request(ctx, "wallet_addEthereumChain", chain); err != nil {
			return fmt.Errorf("failed to add network %s: %w", chain.ChainName, err)
		}
		if _, err := s.provider.Request(ctx, "wallet_switchEthereumChain", switchParams); err != nil {
			return fmt.Errorf("failed to switch network: %w", err)
		}
	}

	s.setChain(chain.ChainID)
	return nil
}

// Disconnect clears local state. Wallets have no disconnect primitive.
func (s *Session) Disconnect() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.account = ""
	s.chainID = ""
	s.contract = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	s.log.Info("Wallet disconnected")
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		Connected:       s.account != "",
		Account:         s.account,
		ChainID:         s.chainID,
		ContractAddress: s.boundAddress(),
		ContractBound:   s.contract != nil,
	}
}

func (s *Session) Account() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.account
}

func (s *Session) ChainID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chainID
}

// Contract returns the bound contract handle, or nil.
func (s *Session) Contract() Contract {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contract
}

func (s *Session) handleEvent(ev Event) {
	switch ev.Kind {
	case EventAccountsChanged:
		if len(ev.Accounts) == 0 {
			s.Disconnect()
			return
		}
		s.mu.Lock()
		if s.account == "" {
			s.mu.Unlock()
			return
		}
		s.account = ev.Accounts[0]
		s.rebindLocked()
		s.mu.Unlock()
		s.log.WithField("account", ev.Accounts[0]).Info("Wallet account changed")
	case EventChainChanged:
		s.setChain(ev.ChainID)
	}
}

// setChain records a new chain id and replaces the contract handle bound against the
// previous chain.
func (s *Session) setChain(chainID string) {
	chainID = NormalizeChainID(chainID)

	s.mu.Lock()
	if s.account == "" || s.chainID == chainID {
		s.mu.Unlock()
		return
	}
	s.chainID = chainID
	s.rebindLocked()
	s.mu.Unlock()

	s.log.WithField("chain_id", chainID).Info("Wallet network changed, contract rebound")
}

func (s *Session) rebindLocked() {
	s.contract = nil
	if s.account == "" || !common.IsHexAddress(s.contractAddress) {
		return
	}
	address := common.HexToAddress(s.contractAddress)
	if address == (common.Address{}) {
		return
	}
	s.contract = s.bind(address, common.HexToAddress(s.account), s.provider)
}

func (s *Session) boundAddress() string {
	if s.contract == nil {
		return ""
	}
	return s.contract.Address().Hex()
}
