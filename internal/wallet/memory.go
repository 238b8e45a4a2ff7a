package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// HandlerFunc answers one provider method on a MemoryProvider.
type HandlerFunc func(params []interface{}) (interface{}, error)

// MemoryProvider is an in-process wallet with a fixed account set. It backs local
// development without a browser wallet and drives the wallet tests.
type MemoryProvider struct {
	mu       sync.Mutex
	accounts []string
	chainID  string
	known    map[string]bool
	handlers map[string]HandlerFunc
	subs     map[int]func(Event)
	nextSub  int
	calls    []string
}

// NewMemoryProvider creates a wallet exposing accounts on chainID.
func NewMemoryProvider(chainID string, accounts ...string) *MemoryProvider {
	chainID = NormalizeChainID(chainID)
	return &MemoryProvider{
		accounts: append([]string(nil), accounts...),
		chainID:  chainID,
		known:    map[string]bool{chainID: true},
		handlers: make(map[string]HandlerFunc),
		subs:     make(map[int]func(Event)),
	}
}

// Handle installs fn for method, overriding the built-in behaviour.
func (m *MemoryProvider) Handle(method string, fn HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[method] = fn
}

// Calls returns the methods requested so far, in order.
func (m *MemoryProvider) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *MemoryProvider) Request(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.calls = append(m.calls, method)
	handler := m.handlers[method]
	m.mu.Unlock()

	var (
		result interface{}
		err    error
	)
	if handler != nil {
		result, err = handler(params)
	} else {
		result, err = m.builtin(method, params)
	}
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s result: %w", method, err)
	}
	return raw, nil
}

func (m *MemoryProvider) builtin(method string, params []interface{}) (interface{}, error) {
	switch method {
	case "eth_requestAccounts", "eth_accounts":
		m.mu.Lock()
		defer m.mu.Unlock()
		return append([]string{}, m.accounts...), nil
	case "eth_chainId":
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.chainID, nil
	case "wallet_switchEthereumChain":
		chainID, err := chainIDParam(params)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		if !m.known[chainID] {
			m.mu.Unlock()
			return nil, &ProviderError{Code: CodeUnrecognizedChain, Message: "Unrecognized chain ID " + chainID}
		}
		m.mu.Unlock()
		m.SetChain(chainID)
		return nil, nil
	case "wallet_addEthereumChain":
		chainID, err := chainIDParam(params)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.known[chainID] = true
		m.mu.Unlock()
		return nil, nil
	default:
		return nil, &ProviderError{Code: CodeMethodNotFound, Message: "method " + method + " not supported"}
	}
}

// chainIDParam extracts chainId from a map or struct parameter.
func chainIDParam(params []interface{}) (string, error) {
	if len(params) == 0 {
		return "", &ProviderError{Code: -32602, Message: "missing chain parameter"}
	}
	raw, err := json.Marshal(params[0])
	if err != nil {
		return "", err
	}
	var p struct {
		ChainID string `json:"chainId"`
	}
	if err := json.Unmarshal(raw, &p); err != nil || p.ChainID == "" {
		return "", &ProviderError{Code: -32602, Message: "invalid chain parameter"}
	}
	return NormalizeChainID(p.ChainID), nil
}

func (m *MemoryProvider) Subscribe(handler func(Event)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = handler

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// Subscribers returns the number of active subscriptions.
func (m *MemoryProvider) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// SetAccounts replaces the account set and emits accountsChanged.
func (m *MemoryProvider) SetAccounts(accounts ...string) {
	m.mu.Lock()
	m.accounts = append([]string(nil), accounts...)
	m.mu.Unlock()
	m.emit(Event{Kind: EventAccountsChanged, Accounts: append([]string{}, accounts...)})
}

// SetChain changes the active chain and emits chainChanged.
func (m *MemoryProvider) SetChain(chainID string) {
	chainID = NormalizeChainID(chainID)
	m.mu.Lock()
	changed := m.chainID != chainID
	m.chainID = chainID
	m.known[chainID] = true
	m.mu.Unlock()
	if changed {
		m.emit(Event{Kind: EventChainChanged, ChainID: chainID})
	}
}

func (m *MemoryProvider) emit(ev Event) {
	m.mu.Lock()
	handlers := make([]func(Event), 0, len(m.subs))
	for _, h := range m.subs {
		handlers = append(handlers, h)
	}
	m.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}
