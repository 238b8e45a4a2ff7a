package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"
)

// RPCProvider exposes a JSON-RPC node as a wallet provider. Nodes do not push
// account or chain changes, so Watch polls for them.
type RPCProvider struct {
	client *rpc.Client

	mu       sync.Mutex
	subs     map[int]func(Event)
	nextSub  int
	accounts []string
	chainID  string
}

// DialRPC connects to the node at url.
func DialRPC(ctx context.Context, url string) (*RPCProvider, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	return NewRPCProvider(client), nil
}

func NewRPCProvider(client *rpc.Client) *RPCProvider {
	return &RPCProvider{
		client: client,
		subs:   make(map[int]func(Event)),
	}
}

func (p *RPCProvider) Request(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	// Nodes grant account access without a prompt.
	if method == "eth_requestAccounts" {
		method = "eth_accounts"
	}

	var result json.RawMessage
	if err := p.client.CallContext(ctx, &result, method, params...); err != nil {
		var rpcErr rpc.Error
		if errors.As(err, &rpcErr) {
			return nil, &ProviderError{Code: rpcErr.ErrorCode(), Message: rpcErr.Error()}
		}
		return nil, err
	}
	return result, nil
}

func (p *RPCProvider) Subscribe(handler func(Event)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = handler

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
}

// Watch polls accounts and chain id every interval and emits change events until ctx
// is cancelled. The first poll establishes the baseline and emits nothing.
func (p *RPCProvider) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	first := true
	for {
		p.poll(ctx, first)
		first = false

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *RPCProvider) poll(ctx context.Context, baseline bool) {
	var events []Event

	var accounts []string
	if err := p.client.CallContext(ctx, &accounts, "eth_accounts"); err == nil {
		p.mu.Lock()
		if !slices.Equal(accounts, p.accounts) {
			p.accounts = accounts
			if !baseline {
				events = append(events, Event{Kind: EventAccountsChanged, Accounts: append([]string{}, accounts...)})
			}
		}
		p.mu.Unlock()
	} else if ctx.Err() == nil {
		logrus.WithError(err).Debug("Wallet watcher failed to read accounts")
	}

	var chainID string
	if err := p.client.CallContext(ctx, &chainID, "eth_chainId"); err == nil {
		chainID = NormalizeChainID(chainID)
		p.mu.Lock()
		if chainID != p.chainID {
			p.chainID = chainID
			if !baseline {
				events = append(events, Event{Kind: EventChainChanged, ChainID: chainID})
			}
		}
		p.mu.Unlock()
	} else if ctx.Err() == nil {
		logrus.WithError(err).Debug("Wallet watcher failed to read chain id")
	}

	if len(events) == 0 {
		return
	}

	p.mu.Lock()
	handlers := make([]func(Event), 0, len(p.subs))
	for _, h := range p.subs {
		handlers = append(handlers, h)
	}
	p.mu.Unlock()

	for _, ev := range events {
		for _, h := range handlers {
			h(ev)
		}
	}
}

func (p *RPCProvider) Close() {
	p.client.Close()
}
