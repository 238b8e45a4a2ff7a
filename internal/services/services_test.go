package services

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/apexchain/apex-backend/internal/config"
	"github.com/apexchain/apex-backend/internal/database"
	"github.com/apexchain/apex-backend/internal/models"
	"github.com/apexchain/apex-backend/internal/wallet"
)

const (
	ownerAccount    = "0x1111111111111111111111111111111111111111"
	buyerAccount    = "0x2222222222222222222222222222222222222222"
	contractAddress = "0x3333333333333333333333333333333333333333"
)

// fakeContract answers every registry call from memory.
type fakeContract struct {
	minted      []wallet.MintRequest
	transfers   []string
	onChainIDs  map[string]int64
	verifyError error
}

func (c *fakeContract) Address() common.Address { return common.HexToAddress(contractAddress) }

func (c *fakeContract) MintCertificate(_ context.Context, req wallet.MintRequest) (*wallet.Receipt, error) {
	c.minted = append(c.minted, req)
	return &wallet.Receipt{TxHash: "0xmint", BlockNumber: 5, TokenID: "42"}, nil
}

func (c *fakeContract) TransferProduct(_ context.Context, tokenID *big.Int, to common.Address) (*wallet.Receipt, error) {
	c.transfers = append(c.transfers, tokenID.String()+":"+to.Hex())
	return &wallet.Receipt{TxHash: "0xtransfer", BlockNumber: 6}, nil
}

func (c *fakeContract) VerifyCertificate(_ context.Context, productID string) (bool, *big.Int, error) {
	if c.verifyError != nil {
		return false, nil, c.verifyError
	}
	id, ok := c.onChainIDs[productID]
	if !ok {
		return false, nil, nil
	}
	return true, big.NewInt(id), nil
}

func (c *fakeContract) TotalSupply(context.Context) (*big.Int, error) {
	return big.NewInt(int64(len(c.minted))), nil
}

// ServiceTestSuite wires every service against an in-memory database.
type ServiceTestSuite struct {
	suite.Suite
	db           *gorm.DB
	cfg          *config.Config
	contract     *fakeContract
	session      *wallet.Session
	minting      *MintingService
	products     *ProductService
	certificates *CertificateService
	verification *VerificationService
	shipments    *ShipmentService
}

func (s *ServiceTestSuite) SetupTest() {
	db, err := database.OpenMemory()
	s.Require().NoError(err)
	s.db = db

	s.cfg = &config.Config{
		JWT:      config.JWTConfig{SecretKey: "test-secret", AccessTokenTTL: 1, RefreshTokenTTL: 24},
		Workflow: config.WorkflowConfig{VerifyURL: "https://apex.example/verify", AllowSimulatedMint: true},
	}
	s.contract = &fakeContract{onChainIDs: map[string]int64{}}
	s.session = wallet.NewSession(wallet.NewMemoryProvider("0x13882", ownerAccount), contractAddress,
		wallet.WithContractBinder(func(common.Address, common.Address, wallet.Provider) wallet.Contract { return s.contract }))

	s.minting = NewMintingService(s.cfg, s.session, nil, nil)
	s.products = NewProductService(db, s.minting)
	s.certificates = NewCertificateService(db)
	s.verification = NewVerificationService(db, s.products, s.minting, nil)
	s.shipments = NewShipmentService(db, s.products)
}

func (s *ServiceTestSuite) TearDownTest() {
	database.Close(s.db)
}

// seed stores a registered product whose certificate has the given score and token.
func (s *ServiceTestSuite) seed(productID string, score int, tokenID string, simulated bool) *models.Product {
	product, _, err := s.certificates.SaveRegistration(&Registration{
		ProductID:   productID,
		Name:        "Team Jacket " + productID,
		Description: "Official team jacket",
		Owner:       ownerAccount,
		Score:       score,
		Labels:      []string{"Jacket", "Formula 1"},
		Mint: &MintResult{
			TokenID:         tokenID,
			TransactionHash: "0xseed" + tokenID,
			OwnerAddress:    ownerAccount,
			Simulated:       simulated,
		},
		MintedAt: time.Now().UTC(),
	})
	s.Require().NoError(err)
	return product
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}
