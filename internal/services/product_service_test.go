package services

import (
	"context"

	"github.com/apexchain/apex-backend/internal/models"
	"github.com/apexchain/apex-backend/internal/utils"
)

func (s *ServiceTestSuite) TestUpdateStatusFollowsSupplyChain() {
	s.seed("F1-STATUS", 90, "1", true)

	product, err := s.products.UpdateStatus("F1-STATUS", &UpdateStatusRequest{Status: models.ProductStatusInTransit})
	s.Require().NoError(err)
	s.Equal(models.ProductStatusInTransit, product.Status)

	_, err = s.products.UpdateStatus("F1-STATUS", &UpdateStatusRequest{Status: models.ProductStatusManufactured})
	s.ErrorIs(err, models.ErrInvalidTransition)

	_, err = s.products.UpdateStatus("F1-STATUS", &UpdateStatusRequest{Status: models.ProductStatusDelivered})
	s.ErrorIs(err, models.ErrInvalidTransition)

	product, err = s.products.UpdateStatus("F1-STATUS", &UpdateStatusRequest{Status: models.ProductStatusVerified})
	s.Require().NoError(err)
	s.Equal(models.ProductStatusVerified, product.Status)
	s.True(product.Verified)
}

func (s *ServiceTestSuite) TestUpdateStatusRejectsUnknownStatus() {
	s.seed("F1-BADSTATUS", 90, "1", true)

	_, err := s.products.UpdateStatus("F1-BADSTATUS", &UpdateStatusRequest{Status: "lost"})
	s.ErrorIs(err, ErrInvalidInput)
}

func (s *ServiceTestSuite) TestTransferOffChain() {
	s.seed("F1-GIFT", 90, "7", true)

	transfer, err := s.products.TransferOwnership(context.Background(), "F1-GIFT", &TransferRequest{ToAddress: buyerAccount})
	s.Require().NoError(err)
	s.Equal(ownerAccount, transfer.FromAddress)
	s.Nil(transfer.TransactionHash)

	product, err := s.products.GetProduct("F1-GIFT")
	s.Require().NoError(err)
	s.Equal(buyerAccount, product.OwnerAddress)
	s.Equal(buyerAccount, product.ActiveCertificate().OwnerAddress)
	s.Empty(s.contract.transfers)
}

func (s *ServiceTestSuite) TestTransferOnChain() {
	s.seed("F1-RESALE", 90, "42", false)

	transfer, err := s.products.TransferOwnership(context.Background(), "F1-RESALE",
		&TransferRequest{ToAddress: buyerAccount, OnChain: true})
	s.Require().NoError(err)
	s.Require().NotNil(transfer.TransactionHash)
	s.Equal("0xtransfer", *transfer.TransactionHash)
	s.Len(s.contract.transfers, 1)
}

func (s *ServiceTestSuite) TestTransferOnChainRejectsSimulatedCertificate() {
	s.seed("F1-SIM", 90, "99", true)

	_, err := s.products.TransferOwnership(context.Background(), "F1-SIM",
		&TransferRequest{ToAddress: buyerAccount, OnChain: true})
	s.ErrorIs(err, ErrInvalidInput)
	s.Empty(s.contract.transfers)
}

func (s *ServiceTestSuite) TestTransferToCurrentOwnerFails() {
	s.seed("F1-SAME", 90, "8", true)

	_, err := s.products.TransferOwnership(context.Background(), "F1-SAME", &TransferRequest{ToAddress: ownerAccount})
	s.ErrorIs(err, ErrInvalidInput)
}

func (s *ServiceTestSuite) TestHistory() {
	s.seed("F1-HIST", 90, "9", true)
	_, err := s.products.TransferOwnership(context.Background(), "F1-HIST", &TransferRequest{ToAddress: buyerAccount})
	s.Require().NoError(err)
	_, err = s.shipments.CreateShipment(&CreateShipmentRequest{ProductID: "F1-HIST", FromLocation: "Maranello", ToLocation: "Monza"})
	s.Require().NoError(err)
	s.lookup("F1-HIST")

	history, err := s.products.History("F1-HIST")
	s.Require().NoError(err)
	s.Len(history.Transfers, 1)
	s.Len(history.Shipments, 1)
	s.Len(history.Verifications, 1)
}

func (s *ServiceTestSuite) TestSearchProducts() {
	s.seed("F1-SEARCH-A", 90, "11", true)
	s.seed("F1-SEARCH-B", 90, "12", true)
	_, err := s.products.UpdateStatus("F1-SEARCH-B", &UpdateStatusRequest{Status: models.ProductStatusInTransit})
	s.Require().NoError(err)

	params := ProductSearchParams{PaginationParams: utils.PaginationParams{Page: 1, Limit: 20, Sort: "created_at", Order: "desc", Search: "search"}}
	products, total, err := s.products.SearchProducts(params)
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	s.Len(products, 2)

	status := models.ProductStatusInTransit
	params.Status = &status
	products, total, err = s.products.SearchProducts(params)
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Equal("F1-SEARCH-B", products[0].ProductID)
}

func (s *ServiceTestSuite) TestGetProductNotFound() {
	_, err := s.products.GetProduct("F1-GHOST")
	s.ErrorIs(err, ErrNotFound)
}
