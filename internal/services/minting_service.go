// internal/services/minting_service.go
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/apexchain/apex-backend/internal/config"
	"github.com/apexchain/apex-backend/internal/metadata"
	"github.com/apexchain/apex-backend/internal/metrics"
	"github.com/apexchain/apex-backend/internal/utils"
	"github.com/apexchain/apex-backend/internal/wallet"
)

type MintingService struct {
	config  *config.Config
	session *wallet.Session
	pinner  metadata.Pinner
	metrics *metrics.Metrics
}

type MintInput struct {
	Owner       string
	ProductID   string
	Description string
	ImageURL    string
	Score       int
	Labels      []string
	QRPayload   string
	VerifiedAt  time.Time
}

type MintResult struct {
	TokenID         string `json:"token_id"`
	TransactionHash string `json:"transaction_hash"`
	BlockNumber     uint64 `json:"block_number,omitempty"`
	ContractAddress string `json:"contract_address,omitempty"`
	OwnerAddress    string `json:"owner_address"`
	MetadataURI     string `json:"metadata_uri"`
	Simulated       bool   `json:"simulated"`
}

func NewMintingService(config *config.Config, session *wallet.Session, pinner metadata.Pinner, m *metrics.Metrics) *MintingService {
	if pinner == nil {
		pinner = metadata.HashPinner{}
	}
	if m == nil {
		m = metrics.NewNoop()
	}
	return &MintingService{
		config:  config,
		session: session,
		pinner:  pinner,
		metrics: m,
	}
}

// Mint pins the certificate metadata and mints it through the bound contract. Without a
// contract the certificate is recorded as simulated when configuration allows it.
func (s *MintingService) Mint(ctx context.Context, in MintInput) (*MintResult, error) {
	if !common.IsHexAddress(in.Owner) {
		return nil, fmt.Errorf("%w: owner address %q", ErrInvalidInput, in.Owner)
	}

	doc := metadata.NewCertificateDocument(metadata.CertificateInput{
		ProductID:   in.ProductID,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		VerifyURL:   s.config.Workflow.VerifyURL,
		Score:       in.Score,
		Labels:      in.Labels,
		VerifiedAt:  in.VerifiedAt,
	})

	uri, err := s.pinner.Pin(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to store metadata: %w", err)
	}

	contract := s.contract()
	if contract == nil {
		if !s.config.Workflow.AllowSimulatedMint {
			return nil, ErrSimulatedDisabled
		}
		return s.simulate(in, uri), nil
	}

	receipt, err := contract.MintCertificate(ctx, wallet.MintRequest{
		To:        common.HexToAddress(in.Owner),
		ProductID: in.ProductID,
		URI:       uri,
		Score:     in.Score,
		QRCode:    in.QRPayload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to mint certificate: %w", err)
	}

	s.metrics.RecordMint(false)

	return &MintResult{
		TokenID:         receipt.TokenID,
		TransactionHash: receipt.TxHash,
		BlockNumber:     receipt.BlockNumber,
		ContractAddress: contract.Address().Hex(),
		OwnerAddress:    in.Owner,
		MetadataURI:     uri,
	}, nil
}

func (s *MintingService) simulate(in MintInput, uri string) *MintResult {
	recordData := map[string]interface{}{
		"type":       "certificate_mint",
		"product_id": in.ProductID,
		"owner":      in.Owner,
		"uri":        uri,
		"score":      in.Score,
		"timestamp":  in.VerifiedAt.UnixNano(),
	}
	hash := generateHash(recordData)

	// the whole digest keeps simulated ids from colliding
	tokenID := new(big.Int).SetBytes(hash[:])

	result := &MintResult{
		TokenID:         tokenID.String(),
		TransactionHash: "0x" + hex.EncodeToString(hash[:]),
		OwnerAddress:    in.Owner,
		MetadataURI:     uri,
		Simulated:       true,
	}

	logrus.WithFields(logrus.Fields{
		"product_id": in.ProductID,
		"token_id":   result.TokenID,
		"tx_hash":    result.TransactionHash,
	}).Warn("No contract bound, certificate recorded as simulated")

	s.metrics.RecordMint(true)
	return result
}

// TransferOnChain moves a token to a new owner through the bound contract.
func (s *MintingService) TransferOnChain(ctx context.Context, tokenID, to string) (*wallet.Receipt, error) {
	contract, err := s.connectedContract(ctx)
	if err != nil {
		return nil, err
	}

	id, ok := new(big.Int).SetString(tokenID, 10)
	if !ok {
		return nil, fmt.Errorf("%w: token id %q", ErrInvalidInput, tokenID)
	}
	if !common.IsHexAddress(to) {
		return nil, fmt.Errorf("%w: address %q", ErrInvalidInput, to)
	}

	receipt, err := contract.TransferProduct(ctx, id, common.HexToAddress(to))
	if err != nil {
		return nil, fmt.Errorf("failed to transfer token: %w", err)
	}
	return receipt, nil
}

// VerifyOnChain asks the contract whether productID has a certificate.
func (s *MintingService) VerifyOnChain(ctx context.Context, productID string) (bool, string, error) {
	contract, err := s.connectedContract(ctx)
	if err != nil {
		return false, "", err
	}

	exists, tokenID, err := contract.VerifyCertificate(ctx, productID)
	if err != nil {
		return false, "", fmt.Errorf("failed to verify certificate on chain: %w", err)
	}
	if !exists || tokenID == nil {
		return false, "", nil
	}
	return true, tokenID.String(), nil
}

func (s *MintingService) TotalSupply(ctx context.Context) (*big.Int, error) {
	contract, err := s.connectedContract(ctx)
	if err != nil {
		return nil, err
	}
	return contract.TotalSupply(ctx)
}

// OnChain reports whether a contract is currently bound.
func (s *MintingService) OnChain() bool {
	return s.contract() != nil
}

// connectedContract connects the wallet session when needed and returns the bound contract.
func (s *MintingService) connectedContract(ctx context.Context) (wallet.Contract, error) {
	if s.session == nil || !s.session.HasProvider() {
		return nil, wallet.ErrProviderMissing
	}
	if _, err := s.session.EnsureConnected(ctx); err != nil {
		return nil, err
	}
	if contract := s.contract(); contract != nil {
		return contract, nil
	}
	return nil, wallet.ErrNoContract
}

func (s *MintingService) contract() wallet.Contract {
	if s.session == nil {
		return nil
	}
	return s.session.Contract()
}

func generateHash(data map[string]interface{}) [32]byte {
	hash, err := utils.HashJSON(data)
	if err != nil {
		return sha256.Sum256([]byte(fmt.Sprintf("%+v", data)))
	}
	return hash
}
