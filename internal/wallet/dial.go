package wallet

import (
	"context"

	"github.com/apexchain/apex-backend/internal/config"
)

// ProviderFromConfig picks the wallet backend: a JSON-RPC node when an RPC URL is set,
// otherwise the in-process wallet when a dev account is set. It returns a nil provider
// when neither is configured. The returned stop function releases the provider and is
// never nil.
func ProviderFromConfig(ctx context.Context, cfg config.BlockchainConfig) (Provider, func(), error) {
	switch {
	case cfg.RPCURL != "":
		p, err := DialRPC(ctx, cfg.RPCURL)
		if err != nil {
			return nil, func() {}, err
		}
		watchCtx, cancel := context.WithCancel(context.Background())
		if cfg.WatchInterval > 0 {
			go p.Watch(watchCtx, cfg.WatchInterval)
		}
		return p, func() {
			cancel()
			p.Close()
		}, nil
	case cfg.DevAccount != "":
		return NewMemoryProvider(cfg.ChainIDHex(), cfg.DevAccount), func() {}, nil
	default:
		return nil, func() {}, nil
	}
}
