package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/apexchain/apex-backend/internal/wallet"
)

func (s *ServiceTestSuite) mintInput(productID string) MintInput {
	return MintInput{
		Owner:       ownerAccount,
		ProductID:   productID,
		Description: "Official team cap",
		Score:       88,
		Labels:      []string{"Cap"},
		QRPayload:   `{"productId":"` + productID + `"}`,
		VerifiedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (s *ServiceTestSuite) TestMintThroughContract() {
	_, err := s.session.EnsureConnected(context.Background())
	s.Require().NoError(err)

	result, err := s.minting.Mint(context.Background(), s.mintInput("F1-MINT"))
	s.Require().NoError(err)

	s.False(result.Simulated)
	s.Equal("42", result.TokenID)
	s.Equal("0xmint", result.TransactionHash)
	s.Equal(contractAddress, strings.ToLower(result.ContractAddress))
	s.True(strings.HasPrefix(result.MetadataURI, "sha256://"))

	s.Require().Len(s.contract.minted, 1)
	s.Equal("F1-MINT", s.contract.minted[0].ProductID)
	s.Equal(88, s.contract.minted[0].Score)
}

func (s *ServiceTestSuite) TestMintSimulatedWithoutContract() {
	minting := NewMintingService(s.cfg, wallet.NewSession(nil, ""), nil, nil)

	first, err := minting.Mint(context.Background(), s.mintInput("F1-SIM-1"))
	s.Require().NoError(err)
	second, err := minting.Mint(context.Background(), s.mintInput("F1-SIM-1"))
	s.Require().NoError(err)

	s.True(first.Simulated)
	s.Equal(first.TokenID, second.TokenID)
	s.Len(first.TransactionHash, 66)
	s.True(strings.HasPrefix(first.TransactionHash, "0x"))
	s.False(minting.OnChain())
}

func (s *ServiceTestSuite) TestSimulatedTokenIDsAreDistinct() {
	minting := NewMintingService(s.cfg, wallet.NewSession(nil, ""), nil, nil)
	logrus.SetLevel(logrus.ErrorLevel)
	defer logrus.SetLevel(logrus.InfoLevel)

	seen := make(map[string]string, 2000)
	for i := 0; i < 2000; i++ {
		productID := fmt.Sprintf("F1-%d", i)
		result, err := minting.Mint(context.Background(), s.mintInput(productID))
		s.Require().NoError(err)
		if other, ok := seen[result.TokenID]; ok {
			s.Failf("token id reused", "%s minted for %s and %s", result.TokenID, other, productID)
		}
		seen[result.TokenID] = productID
	}
}

func (s *ServiceTestSuite) TestTokenIDIsUniquePerProduct() {
	s.seed("F1-TOKEN-A", 90, "31337", true)

	_, _, err := s.certificates.SaveRegistration(&Registration{
		ProductID: "F1-TOKEN-B",
		Name:      "Other cap",
		Owner:     ownerAccount,
		Mint:      &MintResult{TokenID: "31337", Simulated: true},
	})
	s.ErrorIs(err, ErrAlreadyExists)

	product, err := s.products.GetProductByTokenID("31337")
	s.Require().NoError(err)
	s.Equal("F1-TOKEN-A", product.ProductID)
}

func (s *ServiceTestSuite) TestMintSimulatedDisabled() {
	s.cfg.Workflow.AllowSimulatedMint = false
	minting := NewMintingService(s.cfg, nil, nil, nil)

	_, err := minting.Mint(context.Background(), s.mintInput("F1-OFF"))
	s.ErrorIs(err, ErrSimulatedDisabled)
}

func (s *ServiceTestSuite) TestMintRejectsBadOwner() {
	in := s.mintInput("F1-BAD")
	in.Owner = "not-an-address"

	_, err := s.minting.Mint(context.Background(), in)
	s.ErrorIs(err, ErrInvalidInput)
}

func (s *ServiceTestSuite) TestReadPathsNeedProvider() {
	minting := NewMintingService(s.cfg, nil, nil, nil)

	_, err := minting.TotalSupply(context.Background())
	s.ErrorIs(err, wallet.ErrProviderMissing)

	_, _, err = minting.VerifyOnChain(context.Background(), "F1-ANY")
	s.ErrorIs(err, wallet.ErrProviderMissing)
}

func (s *ServiceTestSuite) TestTotalSupplyConnectsSession() {
	supply, err := s.minting.TotalSupply(context.Background())
	s.Require().NoError(err)
	s.Equal(int64(0), supply.Int64())
	s.NotEmpty(s.session.Account())
}
