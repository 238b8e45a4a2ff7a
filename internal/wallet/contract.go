package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const registryABIJSON = `[
  {"type":"function","name":"mintCertificate","stateMutability":"nonpayable",
   "inputs":[{"name":"to","type":"address"},{"name":"productId","type":"string"},{"name":"uri","type":"string"},{"name":"authenticityScore","type":"uint256"},{"name":"qrCode","type":"string"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"transferProduct","stateMutability":"nonpayable",
   "inputs":[{"name":"tokenId","type":"uint256"},{"name":"to","type":"address"}],
   "outputs":[]},
  {"type":"function","name":"verifyCertificate","stateMutability":"view",
   "inputs":[{"name":"productId","type":"string"}],
   "outputs":[{"name":"","type":"bool"},{"name":"","type":"uint256"}]},
  {"type":"function","name":"totalSupply","stateMutability":"view",
   "inputs":[],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"event","name":"CertificateMinted","anonymous":false,
   "inputs":[{"name":"tokenId","type":"uint256","indexed":true},{"name":"productId","type":"string","indexed":false},{"name":"owner","type":"address","indexed":true},{"name":"authenticityScore","type":"uint256","indexed":false}]}
]`

// RegistryABI is the certificate registry contract interface.
var RegistryABI = mustParseABI(registryABIJSON)

var (
	ErrTransactionFailed = errors.New("transaction reverted")
	ErrMintEventMissing  = errors.New("CertificateMinted event not found in receipt")
)

const defaultReceiptPoll = 2 * time.Second

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("invalid registry ABI: %v", err))
	}
	return parsed
}

// MintRequest holds the arguments of mintCertificate.
type MintRequest struct {
	To        common.Address
	ProductID string
	URI       string
	Score     int
	QRCode    string
}

// Receipt is the mined result of a contract transaction.
type Receipt struct {
	TxHash      string `json:"transaction_hash"`
	BlockNumber uint64 `json:"block_number"`
	TokenID     string `json:"token_id,omitempty"`
}

// Contract is the certificate registry as seen through a wallet signer.
type Contract interface {
	Address() common.Address
	MintCertificate(ctx context.Context, req MintRequest) (*Receipt, error)
	TransferProduct(ctx context.Context, tokenID *big.Int, to common.Address) (*Receipt, error)
	VerifyCertificate(ctx context.Context, productID string) (bool, *big.Int, error)
	TotalSupply(ctx context.Context) (*big.Int, error)
}

// RegistryContract sends ABI-encoded calls through a Provider.
type RegistryContract struct {
	address  common.Address
	from     common.Address
	provider Provider
	poll     time.Duration
}

func NewRegistryContract(address, from common.Address, provider Provider) *RegistryContract {
	return &RegistryContract{
		address:  address,
		from:     from,
		provider: provider,
		poll:     defaultReceiptPoll,
	}
}

// WithReceiptPoll sets how often receipts are polled while waiting for a transaction.
func (c *RegistryContract) WithReceiptPoll(d time.Duration) *RegistryContract {
	if d > 0 {
		c.poll = d
	}
	return c
}

func (c *RegistryContract) Address() common.Address {
	return c.address
}

func (c *RegistryContract) MintCertificate(ctx context.Context, req MintRequest) (*Receipt, error) {
	data, err := RegistryABI.Pack("mintCertificate", req.To, req.ProductID, req.URI, big.NewInt(int64(req.Score)), req.QRCode)
	if err != nil {
		return nil, fmt.Errorf("failed to pack mintCertificate: %w", err)
	}

	raw, err := c.transact(ctx, data)
	if err != nil {
		return nil, err
	}

	receipt := &Receipt{TxHash: raw.TxHash.Hex(), BlockNumber: uint64(raw.BlockNumber)}
	event := RegistryABI.Events["CertificateMinted"]
	for _, log := range raw.Logs {
		if log.Address != c.address || len(log.Topics) < 2 || log.Topics[0] != event.ID {
			continue
		}
		receipt.TokenID = new(big.Int).SetBytes(log.Topics[1].Bytes()).String()
		return receipt, nil
	}

	return nil, ErrMintEventMissing
}

func (c *RegistryContract) TransferProduct(ctx context.Context, tokenID *big.Int, to common.Address) (*Receipt, error) {
	data, err := RegistryABI.Pack("transferProduct", tokenID, to)
	if err != nil {
		return nil, fmt.Errorf("failed to pack transferProduct: %w", err)
	}

	raw, err := c.transact(ctx, data)
	if err != nil {
		return nil, err
	}
	return &Receipt{TxHash: raw.TxHash.Hex(), BlockNumber: uint64(raw.BlockNumber)}, nil
}

func (c *RegistryContract) VerifyCertificate(ctx context.Context, productID string) (bool, *big.Int, error) {
	out, err := c.call(ctx, "verifyCertificate", productID)
	if err != nil {
		return false, nil, err
	}
	exists, ok := out[0].(bool)
	if !ok {
		return false, nil, fmt.Errorf("unexpected verifyCertificate result %T", out[0])
	}
	score, ok := out[1].(*big.Int)
	if !ok {
		return false, nil, fmt.Errorf("unexpected verifyCertificate score %T", out[1])
	}
	return exists, score, nil
}

func (c *RegistryContract) TotalSupply(ctx context.Context) (*big.Int, error) {
	out, err := c.call(ctx, "totalSupply")
	if err != nil {
		return nil, err
	}
	supply, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected totalSupply result %T", out[0])
	}
	return supply, nil
}

type callArgs struct {
	From string `json:"from,omitempty"`
	To   string `json:"to"`
	Data string `json:"data"`
}

func (c *RegistryContract) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := RegistryABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	raw, err := c.provider.Request(ctx, "eth_call", callArgs{To: c.address.Hex(), Data: hexutil.Encode(data)}, "latest")
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}

	var result hexutil.Bytes
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("invalid %s result: %w", method, err)
	}

	out, err := RegistryABI.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	return out, nil
}

type rpcLog struct {
	Address common.Address `json:"address"`
	Topics  []common.Hash  `json:"topics"`
	Data    hexutil.Bytes  `json:"data"`
}

type rpcReceipt struct {
	TxHash      common.Hash    `json:"transactionHash"`
	BlockNumber hexutil.Uint64 `json:"blockNumber"`
	Status      hexutil.Uint64 `json:"status"`
	Logs        []rpcLog       `json:"logs"`
}

// transact sends a transaction signed by the wallet and waits for it to be mined.
func (c *RegistryContract) transact(ctx context.Context, data []byte) (*rpcReceipt, error) {
	tx := callArgs{From: c.from.Hex(), To: c.address.Hex(), Data: hexutil.Encode(data)}
	raw, err := c.provider.Request(ctx, "eth_sendTransaction", tx)
	if err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	var hash common.Hash
	if err := json.Unmarshal(raw, &hash); err != nil {
		return nil, fmt.Errorf("invalid transaction hash: %w", err)
	}

	return c.waitReceipt(ctx, hash)
}

func (c *RegistryContract) waitReceipt(ctx context.Context, hash common.Hash) (*rpcReceipt, error) {
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	for {
		raw, err := c.provider.Request(ctx, "eth_getTransactionReceipt", hash.Hex())
		if err != nil {
			return nil, fmt.Errorf("failed to fetch receipt for %s: %w", hash.Hex(), err)
		}

		if len(raw) > 0 && string(raw) != "null" {
			var receipt rpcReceipt
			if err := json.Unmarshal(raw, &receipt); err != nil {
				return nil, fmt.Errorf("invalid receipt for %s: %w", hash.Hex(), err)
			}
			receipt.TxHash = hash
			if receipt.Status == 0 {
				return nil, fmt.Errorf("%w: %s", ErrTransactionFailed, hash.Hex())
			}
			return &receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for receipt %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
